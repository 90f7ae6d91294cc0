package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

func mustType(t *testing.T, name string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(name, "", nil)
	require.NoError(t, err)
	return typ
}

func TestConvertArg(t *testing.T) {
	int256Min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
	avatar := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")

	tests := []struct {
		name    string
		typ     string
		value   any
		want    any
		wantErr bool
	}{
		{"address from reference", "address", avatar, avatar, false},
		{"address from literal", "address", avatar.Hex(), avatar, false},
		{"invalid address", "address", "0x1234", nil, true},
		{"uint256 from decimal string", "uint256", "1000000000000000000", big.NewInt(1e18), false},
		{"uint256 from amount", "uint256", models.AmountFromUint64(7), big.NewInt(7), false},
		{"uint64 narrows", "uint64", "5", uint64(5), false},
		{"uint8 overflow", "uint8", "256", nil, true},
		{"negative unsigned", "uint8", big.NewInt(-1), nil, true},
		{"int32 narrows", "int32", "-3", int32(-3), false},
		{"int8 minimum", "int8", "-128", int8(-128), false},
		{"int8 maximum", "int8", "127", int8(127), false},
		{"int8 underflow", "int8", "-129", nil, true},
		{"int8 overflow", "int8", "128", nil, true},
		{"int256 minimum", "int256", int256Min, int256Min, false},
		{"int256 underflow", "int256", new(big.Int).Sub(int256Min, big.NewInt(1)), nil, true},
		{"negative uint256 string", "uint256", "-1", nil, true},
		{"uint256 overflow", "uint256", new(big.Int).Lsh(big.NewInt(1), 256), nil, true},
		{"bool from literal", "bool", true, true, false},
		{"bool from string", "bool", "false", false, false},
		{"string", "string", "DXdao", "DXdao", false},
		{"bytes from hex", "bytes", "0xdeadbeef", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"empty bytes", "bytes", "0x", []byte{}, false},
		{"bytes4 from hex", "bytes4", "0x00000013", [4]byte{0, 0, 0, 0x13}, false},
		{"bytes4 from array", "bytes4", [4]byte{0xaa, 0xaa, 0xaa, 0xaa}, [4]byte{0xaa, 0xaa, 0xaa, 0xaa}, false},
		{"bytes32 from hash", "bytes32", common.Hash{0x01}, [32]byte{0x01}, false},
		{"bytes4 too long", "bytes4", "0x0102030405", nil, true},
		{"address array", "address[]", []any{avatar.Hex()}, []common.Address{avatar}, false},
		{"uint256 array from big ints", "uint256[]", []*big.Int{big.NewInt(1)}, []*big.Int{big.NewInt(1)}, false},
		{"fixed array", "uint256[2]", []any{"1", "2"}, [2]*big.Int{big.NewInt(1), big.NewInt(2)}, false},
		{"fixed array length mismatch", "uint256[2]", []any{"1"}, nil, true},
		{"scalar for array", "address[]", "0x00", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertArg(mustType(t, tt.typ), tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackArgs(t *testing.T) {
	inputs := abi.Arguments{
		{Name: "to", Type: mustType(t, "address")},
		{Name: "amount", Type: mustType(t, "uint256")},
	}

	packed, err := packArgs(inputs, []any{"0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512", "100"})
	require.NoError(t, err)
	assert.Len(t, packed, 64)
	assert.Equal(t, byte(100), packed[63])

	_, err = packArgs(inputs, []any{"0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"})
	assert.ErrorContains(t, err, "expected 2 arguments")

	_, err = packArgs(inputs, []any{"nope", "1"})
	assert.ErrorContains(t, err, "argument to (address)")
}
