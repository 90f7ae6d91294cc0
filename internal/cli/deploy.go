package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-dao/internal/cli/render"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	var (
		outPath       string
		resumePath    string
		skipActions   bool
		verifyImports bool
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "deploy <config>",
		Short: "Provision a DAO from a deployment configuration",
		Long: `Deploy or import every component of the configuration, link the proposal
pipeline, program the permission registry, hand off authority and replay the
governance action script. A network descriptor is written even when the run fails.`,
		Example: `  # Deploy on a local dev node
  trebdao deploy examples/dao.yaml --network localhost

  # Continue a failed run, importing what it already deployed
  trebdao deploy dao.yaml -n gnosis --resume .trebdao/deployments/dxdao-gnosis.json

  # Show the plan without touching the chain
  trebdao deploy dao.yaml --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params := usecase.DeployDAOParams{
				ConfigPath:    args[0],
				OutPath:       outPath,
				ResumePath:    resumePath,
				SkipActions:   skipActions,
				VerifyImports: verifyImports,
				DryRun:        dryRun,
			}

			result, err := app.DeployDAO.Execute(cmd.Context(), params)
			if errors.Is(err, usecase.ErrCancelled) {
				fmt.Fprintln(cmd.OutOrStdout(), render.FormatWarning("Deployment cancelled"))
				return nil
			}
			if result == nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			renderer := render.NewDeployRenderer(cmd.OutOrStdout(), !app.Config.NonInteractive)
			if renderErr := renderer.Render(result); renderErr != nil {
				return renderErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Path of the network descriptor (default .trebdao/deployments/<plan>-<network>.json)")
	cmd.Flags().StringVar(&resumePath, "resume", "", "Descriptor of an earlier run whose components are imported")
	cmd.Flags().BoolVar(&skipActions, "skip-actions", false, "Do not replay the governance action script")
	cmd.Flags().BoolVar(&verifyImports, "verify-imports", false, "Check that imported addresses hold contract code")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build and print the plan without sending transactions")

	return cmd
}
