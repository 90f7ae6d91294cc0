package usecase

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// ProvisionedComponent is the outcome of provisioning one component
type ProvisionedComponent struct {
	Spec     *models.ComponentSpec
	Address  common.Address
	Deployed bool
	TxHash   common.Hash
	Block    uint64
}

// RunState is the mutable state owned by a single run
type RunState struct {
	Plan       *models.DeploymentPlan
	Registry   *AddressRegistry
	Proposals  *ProposalLog
	Components []*ProvisionedComponent

	// FailedExecutions lists proposal indexes whose execute action reverted
	FailedExecutions []models.ProposalIndex

	byName map[string]*ProvisionedComponent
}

// NewRunState creates empty run state for a plan
func NewRunState(plan *models.DeploymentPlan) *RunState {
	return &RunState{
		Plan:      plan,
		Registry:  NewAddressRegistry(),
		Proposals: NewProposalLog(),
		byName:    make(map[string]*ProvisionedComponent),
	}
}

func (s *RunState) record(c *ProvisionedComponent) {
	s.Components = append(s.Components, c)
	s.byName[c.Spec.Name] = c
}

// Deployed reports whether the named component was created in this run
func (s *RunState) Deployed(name string) bool {
	c, ok := s.byName[name]
	return ok && c.Deployed
}

// scope returns a call scope for the named component
func (s *RunState) scope(self string) callScope {
	return newScope(s.Registry, s.Plan, self)
}
