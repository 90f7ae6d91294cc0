package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// SelfPlaceholder refers to the component currently being configured
const SelfPlaceholder = "ITSELF"

// ZeroAddress is the all-zero address
var ZeroAddress = common.Address{}

// NullRef stands for the zero address (native currency when used as an asset)
const NullRef = "NULL"

// IsSelfRef reports whether ref is the self placeholder
func IsSelfRef(ref string) bool {
	return ref == SelfPlaceholder || strings.EqualFold(ref, "self")
}

// IsNullRef reports whether ref denotes the zero address
func IsNullRef(ref string) bool {
	return ref == "" || ref == NullRef
}

// IsLiteralAddress reports whether ref is a hex address
func IsLiteralAddress(ref string) bool {
	return common.IsHexAddress(ref)
}

// IsLogicalName reports whether ref must be looked up in the registry
func IsLogicalName(ref string) bool {
	return !IsNullRef(ref) && !IsSelfRef(ref) && !IsLiteralAddress(ref)
}

// Arg is a constructor or call argument. Exactly one of the fields is set.
//
// In YAML an Arg is either a literal (scalar or sequence) or a mapping with a
// single key: {ref: Name}, {refs: [A, B]} or {call: {target, method, args}}.
type Arg struct {
	Value any
	Ref   string
	Refs  []string
	Call  *Invocation
}

// Lit builds a literal argument
func Lit(v any) Arg { return Arg{Value: v} }

// RefArg builds a single address reference
func RefArg(ref string) Arg { return Arg{Ref: ref} }

// RefsArg builds an address array reference
func RefsArg(refs ...string) Arg { return Arg{Refs: refs} }

// CallArg builds an argument whose value is the first return of a read-only call
func CallArg(inv Invocation) Arg { return Arg{Call: &inv} }

// References returns the logical names this argument depends on
func (a Arg) References() []string {
	var out []string
	add := func(ref string) {
		if IsLogicalName(ref) {
			out = append(out, ref)
		}
	}
	add(a.Ref)
	for _, r := range a.Refs {
		add(r)
	}
	if a.Call != nil {
		out = append(out, a.Call.References()...)
	}
	return out
}

func (a Arg) String() string {
	switch {
	case a.Call != nil:
		return a.Call.String() + "()"
	case a.Ref != "":
		return "@" + a.Ref
	case a.Refs != nil:
		return "@[" + strings.Join(a.Refs, ",") + "]"
	default:
		return fmt.Sprint(a.Value)
	}
}

func (a *Arg) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode, yaml.SequenceNode:
		v, err := literalFromNode(node)
		if err != nil {
			return err
		}
		*a = Arg{Value: v}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Ref  *string     `yaml:"ref"`
			Refs []string    `yaml:"refs"`
			Call *Invocation `yaml:"call"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		set := 0
		if raw.Ref != nil {
			a.Ref = *raw.Ref
			set++
		}
		if raw.Refs != nil {
			a.Refs = raw.Refs
			set++
		}
		if raw.Call != nil {
			a.Call = raw.Call
			set++
		}
		if set != 1 {
			return fmt.Errorf("line %d: argument mapping needs exactly one of ref, refs, call", node.Line)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported argument", node.Line)
	}
}

// literalFromNode keeps numbers as strings so values beyond 64 bits survive
// until they are converted against the ABI type.
func literalFromNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		case "!!null":
			return nil, nil
		default:
			return node.Value, nil
		}
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := literalFromNode(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return literalFromNode(node.Alias)
	default:
		return nil, fmt.Errorf("line %d: literal must be a scalar or a list", node.Line)
	}
}

// Invocation is one configuration transaction (or read, when used inside a
// call argument) against a component.
type Invocation struct {
	Target string  `yaml:"target"`
	Kind   string  `yaml:"kind,omitempty"`
	Method string  `yaml:"method"`
	Args   []Arg   `yaml:"args,omitempty"`
	From   string  `yaml:"from,omitempty"`
	Value  *Amount `yaml:"value,omitempty"`
}

// References returns the logical names the invocation touches
func (i Invocation) References() []string {
	var out []string
	if IsLogicalName(i.Target) {
		out = append(out, i.Target)
	}
	for _, a := range i.Args {
		out = append(out, a.References()...)
	}
	return out
}

func (i Invocation) String() string {
	return i.Target + "." + i.Method
}
