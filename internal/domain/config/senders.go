package config

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
)

// SenderConfig represents a [senders.<name>] section
type SenderConfig struct {
	Address    string `toml:"address,omitempty"`
	PrivateKey string `toml:"private_key,omitempty"` //nolint:gosec // holds env var reference, not a literal secret
}

// Sender is a resolved actor. Key is nil for accounts the node signs for.
type Sender struct {
	Name    string
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// CanSign reports whether the sender signs locally
func (s Sender) CanSign() bool {
	return s.Key != nil
}
