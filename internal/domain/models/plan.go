package models

import (
	"fmt"
	"strings"

	"github.com/trebuchet-org/treb-dao/internal/domain"
)

// DeploymentPlan is the fully resolved description of one run: components in
// provisioning order, the deferred link pass, permission sets, finalization
// handoffs and the governance action script.
type DeploymentPlan struct {
	Name       string
	Components []*ComponentSpec

	// Links are applied after every component exists
	Links []Invocation

	// GovernanceToken is the token held by the avatar
	GovernanceToken string

	// PermissionRegistry is the component receiving permission rules
	PermissionRegistry string
	PermissionSets     []PermissionSet

	// VotingMachine receives stake, vote, execute and redeem actions
	VotingMachine string

	// Handoffs run after permissions, only for targets deployed in this run
	Handoffs []Invocation

	Actions []GovernanceAction

	index map[string]*ComponentSpec
}

// NewDeploymentPlan orders specs so that every component comes after all of
// its dependencies. Declaration order breaks ties, so an already valid order
// is kept as is.
func NewDeploymentPlan(name string, specs []*ComponentSpec) (*DeploymentPlan, error) {
	index := make(map[string]*ComponentSpec, len(specs))
	position := make(map[string]int, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, domain.Configf(fmt.Sprintf("components[%d]", i), "name is required")
		}
		if _, exists := index[spec.Name]; exists {
			return nil, domain.Configf(spec.Name, "component declared more than once")
		}
		if spec.Mode == "" {
			spec.Mode = ModeDeploy
		}
		if spec.IsImport() && spec.Address == ZeroAddress {
			return nil, domain.Configf(spec.Name, "import mode requires an address")
		}
		if !spec.IsImport() && spec.Kind == "" {
			return nil, domain.Configf(spec.Name, "deploy mode requires a kind")
		}
		index[spec.Name] = spec
		position[spec.Name] = i
	}

	// in-degree and reverse edges
	inDegree := make(map[string]int, len(specs))
	dependents := make(map[string][]string)
	for _, spec := range specs {
		for _, dep := range spec.Dependencies() {
			if _, exists := index[dep]; !exists {
				return nil, domain.Configf(spec.Name, "depends on unknown component %q", dep)
			}
			inDegree[spec.Name]++
			dependents[dep] = append(dependents[dep], spec.Name)
		}
	}

	var ready []string
	for _, spec := range specs {
		if inDegree[spec.Name] == 0 {
			ready = append(ready, spec.Name)
		}
	}

	ordered := make([]*ComponentSpec, 0, len(specs))
	for len(ready) > 0 {
		// pick the earliest declared ready component
		best := 0
		for i := range ready {
			if position[ready[i]] < position[ready[best]] {
				best = i
			}
		}
		current := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		ordered = append(ordered, index[current])

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(ordered) != len(specs) {
		var cycle []string
		for _, spec := range specs {
			if inDegree[spec.Name] > 0 {
				cycle = append(cycle, spec.Name)
			}
		}
		return nil, domain.Configf("components", "circular dependency involving %s", strings.Join(cycle, ", "))
	}

	return &DeploymentPlan{
		Name:       name,
		Components: ordered,
		index:      index,
	}, nil
}

// Component returns the spec registered under name
func (p *DeploymentPlan) Component(name string) (*ComponentSpec, bool) {
	spec, ok := p.index[name]
	return spec, ok
}

// Kind returns the artifact kind of a named component, "" when unknown
func (p *DeploymentPlan) Kind(name string) string {
	if spec, ok := p.index[name]; ok {
		return spec.Kind
	}
	return ""
}

// Names returns component names in provisioning order
func (p *DeploymentPlan) Names() []string {
	names := make([]string, len(p.Components))
	for i, c := range p.Components {
		names[i] = c.Name
	}
	return names
}
