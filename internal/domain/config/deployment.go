package config

import (
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// DeploymentConfig is the deployment configuration payload (YAML or JSON).
// Any component may be imported instead of deployed by giving its address,
// either inline or through the Imports map.
type DeploymentConfig struct {
	Name    string `yaml:"name"`
	DAOName string `yaml:"daoName"`

	// Imports maps logical names to already deployed addresses
	Imports map[string]string `yaml:"imports"`

	Reputation         ReputationConfig     `yaml:"reputation"`
	Tokens             []TokenConfig        `yaml:"tokens"`
	GovernanceToken    string               `yaml:"governanceToken"`
	Avatar             ComponentRef         `yaml:"avatar"`
	Controller         ComponentRef         `yaml:"controller"`
	PermissionRegistry ComponentRef         `yaml:"permissionRegistry"`
	VotingMachine      *VotingMachineConfig `yaml:"votingMachine"`
	WalletSchemes      []SchemeConfig       `yaml:"walletSchemes"`
	Components         []ComponentConfig    `yaml:"components"`
	Pipeline           PipelineConfig       `yaml:"pipeline"`

	Links       []models.Invocation `yaml:"links"`
	Permissions PermissionsConfig   `yaml:"permissions"`

	// PermissionsApply is "deployed" (default) or "always"
	PermissionsApply string `yaml:"permissionsApply"`

	Handoffs []models.Invocation       `yaml:"handoffs"`
	Actions  []models.GovernanceAction `yaml:"actions"`
}

// ComponentRef overrides the artifact kind or imports a core component
type ComponentRef struct {
	Kind    string `yaml:"kind"`
	Address string `yaml:"address"`
}

// Allocation is an address and amount pair
type Allocation struct {
	Address string        `yaml:"address"`
	Amount  models.Amount `yaml:"amount"`
}

// ReputationConfig describes the membership ledger and its founders
type ReputationConfig struct {
	ComponentRef `yaml:",inline"`
	Founders     []Allocation `yaml:"founders"`
}

// TokenConfig describes one token, registered under its symbol
type TokenConfig struct {
	ComponentRef `yaml:",inline"`
	Name         string       `yaml:"name"`
	Symbol       string       `yaml:"symbol"`
	Args         []models.Arg `yaml:"args"`
	Distribution []Allocation `yaml:"distribution"`
}

// VotingMachineConfig describes the voting engine schemes register their parameters in
type VotingMachineConfig struct {
	ComponentRef `yaml:",inline"`
	Name         string       `yaml:"name"`
	Token        string       `yaml:"token"`
	Args         []models.Arg `yaml:"args"`
}

// ControllerPermissions are the scheme flags granted by the controller
type ControllerPermissions struct {
	CanGenericCall       bool `yaml:"canGenericCall"`
	CanUpgrade           bool `yaml:"canUpgrade"`
	CanChangeConstraints bool `yaml:"canChangeConstraints"`
	CanRegisterSchemes   bool `yaml:"canRegisterSchemes"`
}

// SchemeConfig describes one wallet scheme with its voting parameters
type SchemeConfig struct {
	ComponentRef           `yaml:",inline"`
	Name                   string                  `yaml:"name"`
	DoAvatarGenericCalls   bool                    `yaml:"doAvatarGenericCalls"`
	MaxSecondsForExecution models.Amount           `yaml:"maxSecondsForExecution"`
	MaxRepPercentageChange models.Amount           `yaml:"maxRepPercentageChange"`
	ControllerPermissions  ControllerPermissions   `yaml:"controllerPermissions"`
	Permissions            []models.PermissionRule `yaml:"permissions"`

	QueuedVoteRequiredPercentage models.Amount `yaml:"queuedVoteRequiredPercentage"`
	QueuedVotePeriodLimit        models.Amount `yaml:"queuedVotePeriodLimit"`
	BoostedVotePeriodLimit       models.Amount `yaml:"boostedVotePeriodLimit"`
	PreBoostedVotePeriodLimit    models.Amount `yaml:"preBoostedVotePeriodLimit"`
	ThresholdConst               models.Amount `yaml:"thresholdConst"`
	QuietEndingPeriod            models.Amount `yaml:"quietEndingPeriod"`
	ProposingRepReward           models.Amount `yaml:"proposingRepReward"`
	VotersReputationLossRatio    models.Amount `yaml:"votersReputationLossRatio"`
	MinimumDaoBounty             models.Amount `yaml:"minimumDaoBounty"`
	DaoBountyConst               models.Amount `yaml:"daoBountyConst"`
}

// ComponentConfig declares an extra component (manager, registry, utility)
type ComponentConfig struct {
	ComponentRef `yaml:",inline"`
	Name         string              `yaml:"name"`
	Group        string              `yaml:"group"`
	Args         []models.Arg        `yaml:"args"`
	DependsOn    []string            `yaml:"dependsOn"`
	Libraries    map[string]string   `yaml:"libraries"`
	Post         []models.Invocation `yaml:"post"`
}

// PipelineConfig lists the worker-pipeline stages in pipeline order
type PipelineConfig struct {
	// Libraries are helper libraries deployed once per deployed stage
	Libraries []string      `yaml:"libraries"`
	Stages    []StageConfig `yaml:"stages"`
}

// StageConfig describes one worker-pipeline stage and its links
type StageConfig struct {
	ComponentRef `yaml:",inline"`
	Name         string       `yaml:"name"`
	Args         []models.Arg `yaml:"args"`
	DependsOn    []string     `yaml:"dependsOn"`

	// Libraries overrides the pipeline-wide helper libraries
	Libraries []string `yaml:"libraries"`

	// LinkNext and LinkPrev name the setters receiving the adjacent stages
	LinkNext string `yaml:"linkNext"`
	LinkPrev string `yaml:"linkPrev"`

	// Managers maps a setter on this stage to the manager it receives
	Managers map[string]string `yaml:"managers"`

	// Registrars are calls on managers that receive this stage's address
	Registrars []Registrar `yaml:"registrars"`
}

// Registrar is a method on another component taking the stage address
type Registrar struct {
	Target string `yaml:"target"`
	Method string `yaml:"method"`
}

// PermissionsConfig holds the global permission rules. Deny entries are
// expanded first, then the rules, which keeps a blanket deny ahead of the
// narrower allows that override it.
type PermissionsConfig struct {
	Deny  []DenyConfig            `yaml:"deny"`
	Rules []models.PermissionRule `yaml:"rules"`
}

// DenyConfig blocks a list of callee methods for a caller
type DenyConfig struct {
	Asset   string   `yaml:"asset"`
	Caller  string   `yaml:"from"`
	Callee  string   `yaml:"to"`
	Methods []string `yaml:"methods"`
}
