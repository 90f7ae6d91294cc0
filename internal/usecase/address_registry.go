package usecase

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

const maxSuggestions = 3

// Resolver turns a reference into an address
type Resolver interface {
	Resolve(ref string) (common.Address, error)
}

// AddressRegistry maps logical component names to addresses for one run.
// Entries are never removed or rebound.
type AddressRegistry struct {
	addresses map[string]common.Address
	order     []string
}

// NewAddressRegistry creates an empty registry
func NewAddressRegistry() *AddressRegistry {
	return &AddressRegistry{addresses: make(map[string]common.Address)}
}

// Register binds name to address. Registering the same pair again is a no-op.
func (r *AddressRegistry) Register(name string, address common.Address) error {
	if existing, ok := r.addresses[name]; ok {
		if existing != address {
			return domain.DuplicateRegistrationError{Name: name, Existing: existing, Attempted: address}
		}
		return nil
	}
	r.addresses[name] = address
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the address bound to name
func (r *AddressRegistry) Lookup(name string) (common.Address, bool) {
	addr, ok := r.addresses[name]
	return addr, ok
}

// Resolve resolves a literal address, the NULL reference or a logical name.
// The self placeholder needs a scope, see Scoped.
func (r *AddressRegistry) Resolve(ref string) (common.Address, error) {
	return r.resolve(ref, "")
}

// Scoped returns a resolver that substitutes the self placeholder with the
// address registered under self.
func (r *AddressRegistry) Scoped(self string) Resolver {
	return scopedResolver{registry: r, self: self}
}

// Snapshot returns a copy of the registry contents as checksummed hex
func (r *AddressRegistry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.addresses))
	for name, addr := range r.addresses {
		out[name] = addr.Hex()
	}
	return out
}

// Len returns the number of registered names
func (r *AddressRegistry) Len() int {
	return len(r.order)
}

func (r *AddressRegistry) resolve(ref, self string) (common.Address, error) {
	switch {
	case models.IsSelfRef(ref):
		if self == "" {
			return common.Address{}, domain.UnresolvedReferenceError{Ref: ref}
		}
		return r.resolve(self, "")
	case models.IsNullRef(ref):
		return common.Address{}, nil
	case models.IsLiteralAddress(ref):
		return common.HexToAddress(ref), nil
	}

	if addr, ok := r.Lookup(ref); ok {
		return addr, nil
	}
	return common.Address{}, domain.UnresolvedReferenceError{Ref: ref, Suggestions: r.suggest(ref)}
}

func (r *AddressRegistry) suggest(ref string) []string {
	matches := fuzzy.Find(ref, r.order)
	var out []string
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].Str)
	}
	return out
}

type scopedResolver struct {
	registry *AddressRegistry
	self     string
}

func (s scopedResolver) Resolve(ref string) (common.Address, error) {
	return s.registry.resolve(ref, s.self)
}
