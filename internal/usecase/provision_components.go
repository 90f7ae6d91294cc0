package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
)

// ProvisionComponents imports or deploys every component of the plan in order
type ProvisionComponents struct {
	submitter *Submitter
	progress  ProgressSink
	log       *slog.Logger
}

// NewProvisionComponents creates a new component provisioner
func NewProvisionComponents(submitter *Submitter, progress ProgressSink, log *slog.Logger) *ProvisionComponents {
	return &ProvisionComponents{
		submitter: submitter,
		progress:  progress,
		log:       log,
	}
}

// Run provisions every component. The first failure aborts the run since
// later components depend on the failed one.
func (p *ProvisionComponents) Run(ctx context.Context, state *RunState) error {
	total := len(state.Plan.Components)
	for i, spec := range state.Plan.Components {
		var result *ProvisionedComponent

		if spec.IsImport() {
			if err := state.Registry.Register(spec.Name, spec.Address); err != nil {
				return err
			}
			result = &ProvisionedComponent{Spec: spec, Address: spec.Address}
			state.record(result)
		} else {
			scope := state.scope(spec.Name)
			args, err := p.submitter.ResolveArgs(ctx, scope, spec.Args)
			if err != nil {
				return fmt.Errorf("failed to resolve constructor arguments of %s: %w", spec.Name, err)
			}

			var libraries map[string]common.Address
			if len(spec.Libraries) > 0 {
				libraries = make(map[string]common.Address, len(spec.Libraries))
				for placeholder, ref := range spec.Libraries {
					addr, err := scope.Resolve(ref)
					if err != nil {
						return fmt.Errorf("failed to resolve library %s of %s: %w", placeholder, spec.Name, err)
					}
					libraries[placeholder] = addr
				}
			}

			receipt, err := p.submitter.Deploy(ctx, DeployRequest{
				Name:      spec.Name,
				Kind:      spec.Kind,
				Args:      args,
				Libraries: libraries,
			}, "")
			if err != nil {
				return fmt.Errorf("failed to deploy %s: %w", spec.Name, err)
			}
			if err := state.Registry.Register(spec.Name, receipt.ContractAddress); err != nil {
				return err
			}
			result = &ProvisionedComponent{
				Spec:     spec,
				Address:  receipt.ContractAddress,
				Deployed: true,
				TxHash:   receipt.TxHash,
				Block:    receipt.BlockNumber,
			}
			state.record(result)

			for _, inv := range spec.PostCreate {
				if _, err := p.submitter.Invoke(ctx, scope, inv); err != nil {
					return fmt.Errorf("post-deployment step %s of %s failed: %w", inv, spec.Name, err)
				}
			}
		}

		p.log.Debug("component provisioned", "name", spec.Name, "address", result.Address.Hex(), "deployed", result.Deployed)
		p.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageComponent,
			Current:  i + 1,
			Total:    total,
			Message:  spec.Name,
			Metadata: result,
		})
	}
	return nil
}
