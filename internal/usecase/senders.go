package usecase

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
)

// SenderBook resolves action and invocation actors
type SenderBook struct {
	cfg *config.RuntimeConfig
}

// NewSenderBook creates a sender book over the configured senders
func NewSenderBook(cfg *config.RuntimeConfig) *SenderBook {
	return &SenderBook{cfg: cfg}
}

// Default returns the sender used when no actor is given
func (b *SenderBook) Default() (config.Sender, error) {
	if b.cfg.Sender == nil {
		return config.Sender{}, domain.Configf("sender", "no default sender configured (use --sender or [senders] in trebdao.toml)")
	}
	return *b.cfg.Sender, nil
}

// Resolve accepts "", a sender name or a hex address. Addresses without a
// configured key are returned keyless and need an unlocked node.
func (b *SenderBook) Resolve(ref string) (config.Sender, error) {
	if ref == "" {
		return b.Default()
	}
	if s, ok := b.cfg.Senders[ref]; ok {
		return s, nil
	}
	if common.IsHexAddress(ref) {
		addr := common.HexToAddress(ref)
		for _, s := range b.cfg.Senders {
			if s.Address == addr {
				return s, nil
			}
		}
		if b.cfg.Sender != nil && b.cfg.Sender.Address == addr {
			return *b.cfg.Sender, nil
		}
		return config.Sender{Name: addr.Hex(), Address: addr}, nil
	}
	return config.Sender{}, domain.Configf("from", "unknown sender %q (known: %v)", ref, b.names())
}

// CheckUsable fails when the sender can neither sign nor rely on the node
func (b *SenderBook) CheckUsable(s config.Sender) error {
	if s.CanSign() {
		return nil
	}
	if b.cfg.Network != nil && b.cfg.Network.Unlocked {
		return nil
	}
	return domain.Configf("from", "sender %s has no private key and network is not unlocked", s.Name)
}

func (b *SenderBook) names() []string {
	names := make([]string, 0, len(b.cfg.Senders))
	for n := range b.cfg.Senders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
