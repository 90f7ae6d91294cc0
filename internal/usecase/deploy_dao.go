package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// ErrCancelled is returned when the operator declines the deployment
var ErrCancelled = errors.New("deployment cancelled")

// Run phases in execution order
const (
	PhasePreflight   = "preflight"
	PhaseProvision   = "provision"
	PhaseLink        = "link"
	PhasePermissions = "permissions"
	PhaseHandoffs    = "handoffs"
	PhaseActions     = "actions"
)

// DeployDAO runs a full provisioning run: preflight, provisioning, linking,
// permissions, handoffs and action replay. A network descriptor is written
// whatever the outcome.
type DeployDAO struct {
	cfg         *config.RuntimeConfig
	planner     *PlanDAO
	gateway     ChainGateway
	senders     *SenderBook
	prompter    InteractivePrompter
	descriptors DescriptorStore
	abis        ABIResolver
	submitter   *Submitter
	provision   *ProvisionComponents
	link        *LinkPipeline
	permissions *ConfigurePermissions
	actions     *ReplayActions
	progress    ProgressSink
	log         *slog.Logger
}

// NewDeployDAO creates a new deploy use case
func NewDeployDAO(
	cfg *config.RuntimeConfig,
	planner *PlanDAO,
	gateway ChainGateway,
	senders *SenderBook,
	prompter InteractivePrompter,
	descriptors DescriptorStore,
	abis ABIResolver,
	submitter *Submitter,
	provision *ProvisionComponents,
	link *LinkPipeline,
	permissions *ConfigurePermissions,
	actions *ReplayActions,
	progress ProgressSink,
	log *slog.Logger,
) *DeployDAO {
	return &DeployDAO{
		cfg:         cfg,
		planner:     planner,
		gateway:     gateway,
		senders:     senders,
		prompter:    prompter,
		descriptors: descriptors,
		abis:        abis,
		submitter:   submitter,
		provision:   provision,
		link:        link,
		permissions: permissions,
		actions:     actions,
		progress:    progress,
		log:         log,
	}
}

// DeployDAOParams contains parameters for a run
type DeployDAOParams struct {
	ConfigPath    string
	OutPath       string
	ResumePath    string
	SkipActions   bool
	VerifyImports bool
	DryRun        bool
}

// DeployDAOResult contains the result of a run
type DeployDAOResult struct {
	Plan       *models.DeploymentPlan
	State      *RunState
	Descriptor *models.NetworkDescriptor
	OutPath    string
}

// Execute runs the deployment. On a fatal error the returned result still
// carries the descriptor with everything resolved before the failure.
func (d *DeployDAO) Execute(ctx context.Context, params DeployDAOParams) (*DeployDAOResult, error) {
	plan, err := d.planner.Execute(ctx, PlanDAOParams{
		ConfigPath: params.ConfigPath,
		ResumePath: params.ResumePath,
	})
	if err != nil {
		return nil, err
	}

	result := &DeployDAOResult{Plan: plan, State: NewRunState(plan)}
	d.progress.OnProgress(ctx, ProgressEvent{Stage: StagePlanCreated, Total: len(plan.Components), Metadata: plan})
	if params.DryRun {
		return result, nil
	}

	if err := d.preflight(ctx, plan, params); err != nil {
		return nil, err
	}

	descriptor := &models.NetworkDescriptor{
		RunID:     uuid.NewString(),
		Plan:      plan.Name,
		Network:   d.cfg.Network.Name,
		StartedAt: time.Now().UTC(),
	}
	result.Descriptor = descriptor

	runErr := d.run(ctx, result.State, descriptor, params)

	fillDescriptor(descriptor, result.State)
	d.log.Debug("run finished", "run", descriptor.RunID,
		"components", result.State.Registry.Len(), "proposals", result.State.Proposals.Len(), "error", runErr)
	descriptor.Status = models.RunCompleted
	if runErr != nil {
		descriptor.Status = models.RunFailed
		descriptor.Error = runErr.Error()
	}

	result.OutPath = params.OutPath
	if result.OutPath == "" {
		result.OutPath = filepath.Join(d.cfg.DataDir, "deployments", fmt.Sprintf("%s-%s.json", plan.Name, d.cfg.Network.Name))
	}
	if err := d.descriptors.Write(result.OutPath, descriptor); err != nil {
		if runErr != nil {
			d.log.Error("failed to write network descriptor", "path", result.OutPath, "error", err)
			return result, runErr
		}
		return result, fmt.Errorf("failed to write network descriptor: %w", err)
	}

	d.progress.OnProgress(ctx, ProgressEvent{Stage: StageRunCompleted, Metadata: result})
	return result, runErr
}

func (d *DeployDAO) preflight(ctx context.Context, plan *models.DeploymentPlan, params DeployDAOParams) error {
	d.phase(ctx, PhasePreflight)

	if d.cfg.Network == nil {
		return domain.Configf("network", "no network selected (use --network)")
	}
	deployer, err := d.senders.Default()
	if err != nil {
		return err
	}
	if err := d.senders.CheckUsable(deployer); err != nil {
		return err
	}
	for _, spec := range plan.Components {
		if !spec.IsImport() && !d.abis.HasArtifact(spec.Kind) {
			return domain.Configf(spec.Name, "no deployable artifact %s (compile the contracts or import an address)", spec.Kind)
		}
	}

	chainID, err := d.gateway.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", d.cfg.Network.Name, err)
	}
	if d.cfg.Network.ChainID != 0 && d.cfg.Network.ChainID != chainID {
		return domain.Configf("networks."+d.cfg.Network.Name+".chain_id",
			"configured chain id %d but node reports %d", d.cfg.Network.ChainID, chainID)
	}
	d.cfg.Network.ChainID = chainID

	if params.VerifyImports {
		for _, spec := range plan.Components {
			if !spec.IsImport() {
				continue
			}
			code, err := d.gateway.GetCode(ctx, spec.Address)
			if err != nil {
				return fmt.Errorf("failed to read code of %s: %w", spec.Name, err)
			}
			if len(code) == 0 {
				return domain.Configf(spec.Name, "no contract code at imported address %s", spec.Address.Hex())
			}
		}
	}

	if !d.cfg.NonInteractive && !d.cfg.Network.Dev {
		deploys := 0
		for _, spec := range plan.Components {
			if !spec.IsImport() {
				deploys++
			}
		}
		ok, err := d.prompter.Confirm(ctx, fmt.Sprintf("Deploy %d component(s) and import %d on %s (chain %d) from %s?",
			deploys, len(plan.Components)-deploys, d.cfg.Network.Name, chainID, deployer.Address.Hex()))
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}
	return nil
}

func (d *DeployDAO) run(ctx context.Context, state *RunState, descriptor *models.NetworkDescriptor, params DeployDAOParams) error {
	descriptor.ChainID = d.cfg.Network.ChainID
	from, err := d.gateway.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to read start block: %w", err)
	}
	descriptor.FromBlock = from

	d.phase(ctx, PhaseProvision)
	if err := d.provision.Run(ctx, state); err != nil {
		return err
	}

	d.phase(ctx, PhaseLink)
	if err := d.link.Run(ctx, state); err != nil {
		return err
	}

	d.phase(ctx, PhasePermissions)
	if err := d.permissions.Run(ctx, state); err != nil {
		return err
	}

	d.phase(ctx, PhaseHandoffs)
	if err := d.handoffs(ctx, state); err != nil {
		return err
	}

	if params.SkipActions {
		d.progress.Info("Skipping action replay")
		return nil
	}
	d.phase(ctx, PhaseActions)
	return d.actions.Run(ctx, state)
}

// handoffs transfers authority of freshly deployed components. Imported
// targets are assumed to be wired already.
func (d *DeployDAO) handoffs(ctx context.Context, state *RunState) error {
	for i, h := range state.Plan.Handoffs {
		if models.IsLogicalName(h.Target) && !state.Deployed(h.Target) {
			d.progress.Info(fmt.Sprintf("Skipping %s: %s was imported", h, h.Target))
			continue
		}
		if _, err := d.submitter.Invoke(ctx, state.scope(h.Target), h); err != nil {
			return fmt.Errorf("handoff %s failed: %w", h, err)
		}
		d.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageHandoff,
			Current:  i + 1,
			Total:    len(state.Plan.Handoffs),
			Message:  h.String(),
			Metadata: h,
		})
	}
	return nil
}

func (d *DeployDAO) phase(ctx context.Context, name string) {
	d.log.Debug("phase starting", "phase", name)
	d.progress.OnProgress(ctx, ProgressEvent{Stage: StagePhaseStarting, Message: name})
}
