package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "configuration",
			err:      Configf("walletSchemes[0].permissions[1].to", "unknown component %q", "Avtar"),
			sentinel: ErrConfiguration,
			message:  `invalid configuration at walletSchemes[0].permissions[1].to: unknown component "Avtar"`,
		},
		{
			name:     "unresolved reference",
			err:      UnresolvedReferenceError{Ref: "Avtar", Suggestions: []string{"Avatar"}},
			sentinel: ErrUnresolvedReference,
			message:  `unresolved reference "Avtar" (did you mean: Avatar?)`,
		},
		{
			name:     "duplicate registration",
			err:      DuplicateRegistrationError{Name: "Avatar", Existing: common.HexToAddress("0x01"), Attempted: common.HexToAddress("0x02")},
			sentinel: ErrDuplicateRegistration,
			message:  "Avatar is already registered at 0x0000000000000000000000000000000000000001, cannot rebind to 0x0000000000000000000000000000000000000002",
		},
		{
			name:     "reverted deployment",
			err:      ChainCallError{Target: "Controller", Method: "constructor", Reason: "avatar is zero"},
			sentinel: ErrChainCall,
			message:  "Controller.constructor reverted: avatar is zero",
		},
		{
			name:     "value transfer",
			err:      ChainCallError{Err: errors.New("insufficient funds")},
			sentinel: ErrChainCall,
			message:  "transfer reverted: insufficient funds",
		},
		{
			name:     "confirmation timeout",
			err:      ConfirmationTimeoutError{TargetBlock: 12, LastBlock: 10, Waited: 2 * time.Second},
			sentinel: ErrConfirmationTimeout,
			message:  "timed out after 2s waiting for block 12 (last seen 10)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", tt.err), tt.sentinel))
			assert.False(t, errors.Is(tt.err, ErrNotFound))
		})
	}
}

func TestChainCallErrorUnwrap(t *testing.T) {
	cause := errors.New("nonce too low")
	err := ChainCallError{Target: "DXD", Method: "transfer", TxHash: common.HexToHash("0xab"), Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DXD.transfer reverted: nonce too low (tx 0x")
}
