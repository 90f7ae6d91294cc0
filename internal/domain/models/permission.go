package models

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// AnyFunctionSignature is the wildcard selector understood by the permission registry
var AnyFunctionSignature = [4]byte{0xaa, 0xaa, 0xaa, 0xaa}

// PermissionRule is one row of the permission table. References may be
// logical names, the self placeholder or raw addresses.
type PermissionRule struct {
	Asset    string `yaml:"asset" json:"asset"`
	Caller   string `yaml:"from,omitempty" json:"caller"`
	Callee   string `yaml:"to" json:"callee"`
	Selector string `yaml:"functionSignature" json:"selector"`
	ValueCap Amount `yaml:"value" json:"valueCap"`
	Allowed  bool   `yaml:"allowed" json:"allowed"`
}

func (r PermissionRule) String() string {
	verb := "deny"
	if r.Allowed {
		verb = "allow"
	}
	asset := r.Asset
	if IsNullRef(asset) {
		asset = "native"
	}
	return fmt.Sprintf("%s %s -> %s.%s [%s, cap %s]", verb, r.Caller, r.Callee, r.Selector, asset, r.ValueCap)
}

// PermissionSet is an ordered group of rules sharing a self anchor
type PermissionSet struct {
	Scope string

	// Anchor is the component the self placeholder stands for, "" for global sets
	Anchor string

	// Gate names the component whose deployment in this run enables the set
	Gate string

	// Always applies the set even when Gate was imported
	Always bool

	Rules []PermissionRule
}

// Selector is a parsed function selector. Method is set, and ID left zero,
// when the selector was given as a bare method name that still needs the
// callee's ABI.
type Selector struct {
	ID     [4]byte
	Method string
}

// Resolved reports whether the selector bytes are known
func (s Selector) Resolved() bool {
	return s.Method == ""
}

func (s Selector) Hex() string {
	return "0x" + hex.EncodeToString(s.ID[:])
}

var methodNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ParseSelector accepts 0x-prefixed 4-byte hex, a full signature such as
// "transfer(address,uint256)", the ANY wildcard, or a bare method name.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Selector{}, fmt.Errorf("empty function selector")
	case strings.EqualFold(s, "ANY"):
		return Selector{ID: AnyFunctionSignature}, nil
	case strings.HasPrefix(s, "0x"):
		raw, err := hex.DecodeString(s[2:])
		if err != nil || len(raw) != 4 {
			return Selector{}, fmt.Errorf("invalid function selector %q: want 4 bytes of hex", s)
		}
		var sel Selector
		copy(sel.ID[:], raw)
		return sel, nil
	case strings.Contains(s, "("):
		if !strings.HasSuffix(s, ")") {
			return Selector{}, fmt.Errorf("invalid function signature %q", s)
		}
		var sel Selector
		copy(sel.ID[:], crypto.Keccak256([]byte(strings.ReplaceAll(s, " ", "")))[:4])
		return sel, nil
	case methodNamePattern.MatchString(s):
		return Selector{Method: s}, nil
	default:
		return Selector{}, fmt.Errorf("invalid function selector %q", s)
	}
}
