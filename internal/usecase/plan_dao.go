package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// PlanDAO builds the deployment plan of a configuration without touching the chain
type PlanDAO struct {
	loader      DeploymentConfigLoader
	descriptors DescriptorStore
	senders     *SenderBook
}

// NewPlanDAO creates a new plan use case
func NewPlanDAO(loader DeploymentConfigLoader, descriptors DescriptorStore, senders *SenderBook) *PlanDAO {
	return &PlanDAO{
		loader:      loader,
		descriptors: descriptors,
		senders:     senders,
	}
}

// PlanDAOParams contains parameters for planning
type PlanDAOParams struct {
	ConfigPath string

	// ResumePath is a descriptor of an earlier run whose components are imported
	ResumePath string
}

// Execute loads, validates and expands the configuration
func (p *PlanDAO) Execute(ctx context.Context, params PlanDAOParams) (*models.DeploymentPlan, error) {
	cfg, err := p.loader.Load(params.ConfigPath)
	if err != nil {
		return nil, err
	}

	var opts BlueprintOptions
	if deployer, err := p.senders.Default(); err == nil {
		opts.Deployer = deployer.Address
	}

	if params.ResumePath != "" {
		previous, err := p.descriptors.Read(params.ResumePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read descriptor to resume from: %w", err)
		}
		opts.Resumed = make(map[string]common.Address, len(previous.Components))
		for _, c := range previous.Components {
			opts.Resumed[c.Name] = common.HexToAddress(c.Address)
		}
	}

	return BuildPlan(cfg, opts)
}
