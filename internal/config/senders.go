package config

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
)

// defaultSenderName is used when --sender is not given and several senders exist
const defaultSenderName = "deployer"

// resolveSenders turns [senders] entries into actors. A private key implies
// the address; a configured address must then match it.
func resolveSenders(entries map[string]config.SenderConfig) (map[string]config.Sender, error) {
	senders := make(map[string]config.Sender, len(entries))
	for name, entry := range entries {
		field := "senders." + name
		s := config.Sender{Name: name}

		if entry.PrivateKey != "" {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(entry.PrivateKey, "0x"))
			if err != nil {
				return nil, domain.Configf(field+".private_key", "invalid private key")
			}
			s.Key = key
			s.Address = crypto.PubkeyToAddress(key.PublicKey)
		}

		if entry.Address != "" {
			if !common.IsHexAddress(entry.Address) {
				return nil, domain.Configf(field+".address", "invalid address %q", entry.Address)
			}
			addr := common.HexToAddress(entry.Address)
			if s.Key != nil && addr != s.Address {
				return nil, domain.Configf(field+".address", "address %s does not match private key (%s)", addr.Hex(), s.Address.Hex())
			}
			s.Address = addr
		}

		if s.Address == (common.Address{}) {
			return nil, domain.Configf(field, "address or private_key is required")
		}
		senders[name] = s
	}
	return senders, nil
}

// defaultSender picks the sender named on the command line, then "deployer",
// then the only configured sender. It returns nil when none applies.
func defaultSender(senders map[string]config.Sender, name string) (*config.Sender, error) {
	if name != "" {
		if s, ok := senders[name]; ok {
			return &s, nil
		}
		if common.IsHexAddress(name) {
			return &config.Sender{Name: name, Address: common.HexToAddress(name)}, nil
		}
		known := make([]string, 0, len(senders))
		for n := range senders {
			known = append(known, n)
		}
		sort.Strings(known)
		return nil, domain.Configf("sender", "unknown sender %q (known: %s)", name, strings.Join(known, ", "))
	}

	if s, ok := senders[defaultSenderName]; ok {
		return &s, nil
	}
	if len(senders) == 1 {
		for _, s := range senders {
			return &s, nil
		}
	}
	return nil, nil
}
