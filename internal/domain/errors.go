package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for run classification. Every typed error below matches
// exactly one of these with errors.Is.
var (
	// ErrConfiguration is returned for missing or malformed plan or script entries
	ErrConfiguration = errors.New("configuration error")

	// ErrUnresolvedReference is returned when a logical name is not registered yet
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrDuplicateRegistration is returned when a name is rebound to another address
	ErrDuplicateRegistration = errors.New("duplicate registration")

	// ErrChainCall is returned when a submitted transaction or call reverted
	ErrChainCall = errors.New("chain call failed")

	// ErrConfirmationTimeout is returned when confirmation polling exceeds its bound
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrNotFound is returned when a requested artifact or file doesn't exist
	ErrNotFound = errors.New("not found")
)

// ConfigurationError describes a problem with the deployment configuration.
// Field is a dotted path into the configuration (e.g. "walletSchemes[1].permissions[0].to").
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration at %s: %s", e.Field, e.Reason)
}

func (e ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError with a formatted reason
func Configf(field, format string, args ...any) ConfigurationError {
	return ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnresolvedReferenceError is returned when a reference names a component
// that has not been registered in this run.
type UnresolvedReferenceError struct {
	Ref         string
	Suggestions []string
}

func (e UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("unresolved reference %q", e.Ref)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e UnresolvedReferenceError) Is(target error) bool { return target == ErrUnresolvedReference }

// DuplicateRegistrationError is returned when a name is already bound to a different address
type DuplicateRegistrationError struct {
	Name      string
	Existing  common.Address
	Attempted common.Address
}

func (e DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("%s is already registered at %s, cannot rebind to %s",
		e.Name, e.Existing.Hex(), e.Attempted.Hex())
}

func (e DuplicateRegistrationError) Is(target error) bool { return target == ErrDuplicateRegistration }

// ChainCallError is returned when a transaction reverted or could not be submitted
type ChainCallError struct {
	Target string // logical name or address of the callee
	Method string // method name, "constructor" for deployments, "" for value transfers
	TxHash common.Hash
	Reason string
	Err    error
}

func (e ChainCallError) Error() string {
	op := e.Method
	if op == "" {
		op = "transfer"
	}
	where := op
	if e.Target != "" {
		where = fmt.Sprintf("%s.%s", e.Target, op)
	}

	msg := fmt.Sprintf("%s reverted", where)
	if e.Reason != "" {
		msg += ": " + e.Reason
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	return msg
}

func (e ChainCallError) Unwrap() error { return e.Err }

func (e ChainCallError) Is(target error) bool { return target == ErrChainCall }

// ConfirmationTimeoutError is returned when the chain did not reach the target
// block height within the polling bound, or a transaction was not mined in time.
type ConfirmationTimeoutError struct {
	TxHash      common.Hash // set when the transaction itself was never mined
	TargetBlock uint64
	LastBlock   uint64
	Waited      time.Duration
}

func (e ConfirmationTimeoutError) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("timed out after %s waiting for receipt of %s", e.Waited, e.TxHash.Hex())
	}
	return fmt.Sprintf("timed out after %s waiting for block %d (last seen %d)",
		e.Waited, e.TargetBlock, e.LastBlock)
}

func (e ConfirmationTimeoutError) Is(target error) bool { return target == ErrConfirmationTimeout }
