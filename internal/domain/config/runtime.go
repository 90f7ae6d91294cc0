package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network *Network // nil if not specified
	Sender  *Sender  // default actor for deployments and configuration calls
	Senders map[string]Sender

	// Execution settings
	Debug          bool
	NonInteractive bool
	Timeout        time.Duration

	// Resolved configurations
	ArtifactDirs []string
	IPFS         IPFSConfig
	ConfigSource string // path of trebdao.toml, "" when defaults are used
}

// Network represents network configuration
type Network struct {
	Name           string        `json:"name"`
	ChainID        uint64        `json:"chainId"`
	RPCURL         string        `json:"rpcUrl"`
	Confirmations  uint64        `json:"confirmations"`
	PollInterval   time.Duration `json:"pollInterval"`
	ConfirmTimeout time.Duration `json:"confirmTimeout"`

	// Unlocked lets the node sign for senders without a private key
	Unlocked bool `json:"unlocked"`

	// Dev enables chain clock manipulation between actions
	Dev bool `json:"dev"`
}

// IPFSConfig selects the content store used for proposal metadata
type IPFSConfig struct {
	APIURL   string // IPFS HTTP API, empty for the local store
	LocalDir string
}
