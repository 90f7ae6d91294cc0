package chain

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// packArgs converts loosely typed values to the Go types the ABI encoder
// expects. Configuration literals arrive as strings, references as addresses.
func packArgs(inputs abi.Arguments, values []any) ([]byte, error) {
	if len(values) != len(inputs) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(values))
	}
	converted := make([]any, len(values))
	for i, input := range inputs {
		v, err := convertArg(input.Type, values[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, input.Type.String(), err)
		}
		converted[i] = v
	}
	return inputs.Pack(converted...)
}

func convertArg(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.IntTy, abi.UintTy:
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		return fitInt(t, n)
	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
	case abi.StringTy:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		return toFixedBytes(t, v)
	case abi.SliceTy, abi.ArrayTy:
		return toSlice(t, v)
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, t.String())
}

func toAddress(v any) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case string:
		if !common.IsHexAddress(a) {
			return common.Address{}, fmt.Errorf("invalid address %q", a)
		}
		return common.HexToAddress(a), nil
	}
	return common.Address{}, fmt.Errorf("cannot use %T as address", v)
}

func toBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case models.Amount:
		return n.Int(), nil
	case *models.Amount:
		return n.Int(), nil
	case string:
		if strings.HasPrefix(n, "-") {
			v, ok := new(big.Int).SetString(n, 10)
			if !ok {
				return nil, fmt.Errorf("invalid integer %q", n)
			}
			return v, nil
		}
		a, err := models.ParseAmount(n)
		if err != nil {
			return nil, err
		}
		return a.Int(), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case uint8:
		return big.NewInt(int64(n)), nil
	case uint32:
		return big.NewInt(int64(n)), nil
	case bool:
		if n {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	}
	return nil, fmt.Errorf("cannot use %T as integer", v)
}

// fitInt range-checks n against t and returns it as the exact Go type
// go-ethereum uses for t
func fitInt(t abi.Type, n *big.Int) (any, error) {
	switch t.T {
	case abi.UintTy:
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
	case abi.IntTy:
		// two's complement: -2^(size-1) <= n < 2^(size-1)
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
	}

	goType := t.GetType()
	switch goType.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
	}
	return n, nil
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		if b == "" || b == "0x" {
			return []byte{}, nil
		}
		return hexutil.Decode(withHexPrefix(b))
	case common.Hash:
		return b.Bytes(), nil
	}
	return nil, fmt.Errorf("cannot use %T as bytes", v)
}

func toFixedBytes(t abi.Type, v any) (any, error) {
	goType := t.GetType()
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Array && rv.Type().ConvertibleTo(goType) {
		return rv.Convert(goType).Interface(), nil
	}

	raw, err := toBytes(v)
	if err != nil {
		return nil, err
	}
	if len(raw) > t.Size {
		return nil, fmt.Errorf("%d bytes do not fit in %s", len(raw), t.String())
	}
	out := reflect.New(goType).Elem()
	reflect.Copy(out, reflect.ValueOf(raw))
	return out.Interface(), nil
}

func toSlice(t abi.Type, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("cannot use %T as %s", v, t.String())
	}
	if t.T == abi.ArrayTy && rv.Len() != t.Size {
		return nil, fmt.Errorf("expected %d elements, got %d", t.Size, rv.Len())
	}

	goType := t.GetType()
	var out reflect.Value
	if t.T == abi.ArrayTy {
		out = reflect.New(goType).Elem()
	} else {
		out = reflect.MakeSlice(goType, rv.Len(), rv.Len())
	}
	for i := 0; i < rv.Len(); i++ {
		elem, err := convertArg(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}

func withHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
