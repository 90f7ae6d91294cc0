package artifacts

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/treb-dao/internal/domain"
)

// Artifact is a compiled contract as produced by hardhat or foundry
type Artifact struct {
	Name       string
	SourceName string
	Path       string
	ABI        abi.ABI

	// Bytecode is the creation code in hex without 0x, placeholders included
	Bytecode string

	// LinkReferences maps source file -> library name -> placeholder positions
	LinkReferences map[string]map[string][]LinkReference
}

// LinkReference is a byte range of the bytecode holding a library address
type LinkReference struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// rawArtifact covers both formats. Hardhat stores bytecode as a string with
// top-level linkReferences; foundry nests them in a bytecode object.
type rawArtifact struct {
	ContractName   string                                `json:"contractName"`
	SourceName     string                                `json:"sourceName"`
	ABI            json.RawMessage                       `json:"abi"`
	Bytecode       json.RawMessage                       `json:"bytecode"`
	LinkReferences map[string]map[string][]LinkReference `json:"linkReferences"`
	Metadata       struct {
		Settings struct {
			CompilationTarget map[string]string `json:"compilationTarget"`
		} `json:"settings"`
	} `json:"metadata"`
}

type foundryBytecode struct {
	Object         string                                `json:"object"`
	LinkReferences map[string]map[string][]LinkReference `json:"linkReferences"`
}

// parseArtifact decodes an artifact file. fallbackName is used when the
// file does not carry the contract name.
func parseArtifact(data []byte, fallbackName string) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("no abi")
	}

	parsed, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return nil, fmt.Errorf("invalid abi: %w", err)
	}

	art := &Artifact{
		Name:           raw.ContractName,
		SourceName:     raw.SourceName,
		ABI:            parsed,
		LinkReferences: raw.LinkReferences,
	}
	for source, name := range raw.Metadata.Settings.CompilationTarget {
		art.SourceName = source
		if art.Name == "" {
			art.Name = name
		}
	}
	if art.Name == "" {
		art.Name = fallbackName
	}

	if len(raw.Bytecode) > 0 {
		var code string
		if err := json.Unmarshal(raw.Bytecode, &code); err != nil {
			var fb foundryBytecode
			if err := json.Unmarshal(raw.Bytecode, &fb); err != nil {
				return nil, fmt.Errorf("invalid bytecode: %w", err)
			}
			code = fb.Object
			art.LinkReferences = fb.LinkReferences
		}
		art.Bytecode = strings.TrimPrefix(code, "0x")
	}
	return art, nil
}

// Deployable reports whether the artifact has creation code
func (a *Artifact) Deployable() bool {
	return a.Bytecode != ""
}

// Link substitutes library addresses into the bytecode. Libraries are keyed
// by library name or by "source:name".
func (a *Artifact) Link(libraries map[string]common.Address) ([]byte, error) {
	code := []byte(a.Bytecode)

	for source, libs := range a.LinkReferences {
		for lib, refs := range libs {
			addr, ok := libraries[lib]
			if !ok {
				addr, ok = libraries[source+":"+lib]
			}
			if !ok {
				return nil, domain.Configf(a.Name+".libraries", "library %s is not linked", lib)
			}
			hexAddr := []byte(hex.EncodeToString(addr.Bytes()))
			for _, ref := range refs {
				start, end := ref.Start*2, (ref.Start+ref.Length)*2
				if ref.Length != common.AddressLength || end > len(code) {
					return nil, fmt.Errorf("invalid link reference for %s in %s", lib, a.Name)
				}
				copy(code[start:end], hexAddr)
			}
		}
	}

	// Artifacts without link references still carry hashed placeholders
	linked := string(code)
	for name, addr := range libraries {
		for _, placeholder := range placeholders(name) {
			linked = strings.ReplaceAll(linked, placeholder, hex.EncodeToString(addr.Bytes()))
		}
	}

	if i := strings.Index(linked, "__"); i >= 0 {
		end := i + 40
		if end > len(linked) {
			end = len(linked)
		}
		return nil, domain.Configf(a.Name+".libraries", "unlinked library placeholder %s", linked[i:end])
	}

	out, err := hex.DecodeString(linked)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode for %s: %w", a.Name, err)
	}
	return out, nil
}

// placeholders returns the solc placeholders a fully qualified library name
// may appear as: the hashed form and the legacy padded name.
func placeholders(fqName string) []string {
	hash := crypto.Keccak256([]byte(fqName))
	hashed := "__$" + hex.EncodeToString(hash)[:34] + "$__"

	name := fqName
	if len(name) > 36 {
		name = name[:36]
	}
	legacy := "__" + name + strings.Repeat("_", 38-len(name))
	return []string{hashed, legacy}
}

// Method finds a method by name or full signature. Overloads resolve to the
// first declared unless the signature is given.
func (a *Artifact) Method(name string) (*abi.Method, error) {
	if m, ok := a.ABI.Methods[name]; ok {
		return &m, nil
	}
	for _, m := range a.ABI.Methods {
		if m.Sig == name {
			return &m, nil
		}
	}
	return nil, domain.Configf(a.Name, "method %s not found in abi", name)
}
