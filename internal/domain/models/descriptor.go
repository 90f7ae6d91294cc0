package models

import "time"

// RunStatus is the terminal state of a run
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunPlanned   RunStatus = "planned"
)

// NetworkDescriptor is the output of a run. It is written even when the run
// fails so the recorded addresses can be imported by the next run.
type NetworkDescriptor struct {
	RunID     string    `json:"runId"`
	Plan      string    `json:"plan"`
	Network   string    `json:"network"`
	ChainID   uint64    `json:"chainId"`
	FromBlock uint64    `json:"fromBlock"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt"`

	Contracts  NetworkContracts  `json:"contracts"`
	Addresses  map[string]string `json:"addresses"`
	Components []ComponentRecord `json:"components"`
	Proposals  []string          `json:"proposals"`
}

// NetworkContracts groups the resolved addresses by role
type NetworkContracts struct {
	Avatar             string            `json:"avatar,omitempty"`
	Reputation         string            `json:"reputation,omitempty"`
	Token              string            `json:"token,omitempty"`
	Controller         string            `json:"controller,omitempty"`
	PermissionRegistry string            `json:"permissionRegistry,omitempty"`
	VotingMachine      string            `json:"votingMachine,omitempty"`
	Tokens             map[string]string `json:"tokens,omitempty"`
	Schemes            map[string]string `json:"schemes,omitempty"`
	Pipeline           map[string]string `json:"pipeline,omitempty"`
	Utils              map[string]string `json:"utils,omitempty"`
}

// ComponentRecord is one provisioned component as written to the descriptor
type ComponentRecord struct {
	Name     string         `json:"name"`
	Kind     string         `json:"kind,omitempty"`
	Group    ComponentGroup `json:"group,omitempty"`
	Address  string         `json:"address"`
	Deployed bool           `json:"deployed"`
	TxHash   string         `json:"txHash,omitempty"`
	Block    uint64         `json:"block,omitempty"`
}
