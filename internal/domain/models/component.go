package models

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// DeploymentMode decides whether a component is created or bound to an existing address
type DeploymentMode string

const (
	ModeDeploy DeploymentMode = "deploy"
	ModeImport DeploymentMode = "import"
)

// ComponentGroup classifies a component for the network descriptor
type ComponentGroup string

const (
	GroupCore          ComponentGroup = "core"
	GroupToken         ComponentGroup = "token"
	GroupVotingMachine ComponentGroup = "votingMachine"
	GroupScheme        ComponentGroup = "scheme"
	GroupPipeline      ComponentGroup = "pipeline"
	GroupLibrary       ComponentGroup = "library"
	GroupUtil          ComponentGroup = "util"
)

// ComponentSpec describes one deployable or importable on-chain unit
type ComponentSpec struct {
	Name  string
	Kind  string // artifact name
	Group ComponentGroup
	Args  []Arg

	// DependsOn lists explicit dependencies. References found in Args,
	// Libraries and PostCreate are added implicitly by Dependencies.
	DependsOn []string

	// Libraries maps a library placeholder name in the bytecode to the
	// logical name of the library component.
	Libraries map[string]string

	// PostCreate runs only when the component was deployed in this run
	PostCreate []Invocation

	Mode    DeploymentMode
	Address common.Address // set when Mode is ModeImport
}

// IsImport reports whether the component binds to a fixed address
func (c *ComponentSpec) IsImport() bool {
	return c.Mode == ModeImport
}

// Dependencies returns every logical name that must be registered before
// this component is provisioned, in first-seen order.
func (c *ComponentSpec) Dependencies() []string {
	deps := append([]string{}, c.DependsOn...)
	if !c.IsImport() {
		for _, a := range c.Args {
			deps = append(deps, a.References()...)
		}
		placeholders := lo.Keys(c.Libraries)
		sort.Strings(placeholders)
		for _, p := range placeholders {
			deps = append(deps, c.Libraries[p])
		}
		for _, inv := range c.PostCreate {
			deps = append(deps, inv.References()...)
		}
	}
	return lo.Filter(lo.Uniq(deps), func(d string, _ int) bool {
		return d != c.Name
	})
}
