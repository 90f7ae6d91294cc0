package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-dao/internal/cli/render"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// NewPlanCmd creates the plan command
func NewPlanCmd() *cobra.Command {
	var resumePath string

	cmd := &cobra.Command{
		Use:   "plan <config>",
		Short: "Show the resolved deployment plan",
		Long: `Load and validate a deployment configuration and print the components in
provisioning order with their dependencies, links, permission sets, handoffs
and governance actions. Nothing is sent to the chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			plan, err := app.PlanDAO.Execute(cmd.Context(), usecase.PlanDAOParams{
				ConfigPath: args[0],
				ResumePath: resumePath,
			})
			if err != nil {
				return err
			}

			renderer := render.NewPlanRenderer(cmd.OutOrStdout(), !app.Config.NonInteractive)
			return renderer.Render(plan)
		},
	}

	cmd.Flags().StringVar(&resumePath, "resume", "", "Descriptor of an earlier run whose components are imported")

	return cmd
}
