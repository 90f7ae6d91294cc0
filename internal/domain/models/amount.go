package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxUint256 is the largest value an on-chain uint256 can hold
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Amount is a non-negative integer quantity (wei, token units, reputation).
// The zero value is a valid zero amount.
type Amount struct {
	v *big.Int
}

// NewAmount wraps a big integer
func NewAmount(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{v: new(big.Int).Set(v)}
}

// AmountFromUint64 builds an amount from a machine integer
func AmountFromUint64(v uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(v)}
}

// ParseAmount accepts decimal strings, 0x-prefixed hex strings and "max"
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Amount{}, nil
	case strings.EqualFold(s, "max"):
		return NewAmount(MaxUint256), nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		hex := s[2:]
		if hex == "" {
			return Amount{}, nil
		}
		v, ok := new(big.Int).SetString(hex, 16)
		if !ok {
			return Amount{}, fmt.Errorf("invalid hex amount %q", s)
		}
		return Amount{v: v}, nil
	default:
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Amount{}, fmt.Errorf("invalid amount %q", s)
		}
		if v.Sign() < 0 {
			return Amount{}, fmt.Errorf("amount %q is negative", s)
		}
		return Amount{v: v}, nil
	}
}

// Int returns a copy of the underlying value, zero when unset
func (a Amount) Int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

// IsZero reports whether the amount is zero or unset
func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

func (a Amount) String() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

// UnmarshalYAML accepts both integer and string scalars
func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	parsed, err := ParseAmount(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*a = parsed
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain JSON number
		s = strings.TrimSpace(string(data))
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
