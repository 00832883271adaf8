package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// fieldReader pulls typed values out of an unpacked event. The first failure
// sticks in err and later reads return zero values.
type fieldReader struct {
	values map[string]interface{}
	err    error
}

func (f *fieldReader) lookup(key string) (interface{}, bool) {
	if f.err != nil {
		return nil, false
	}
	value, ok := f.values[key]
	if !ok {
		f.err = fmt.Errorf("missing field %s", key)
	}
	return value, ok
}

func (f *fieldReader) address(key string) string {
	value, ok := f.lookup(key)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case *common.Address:
		return v.Hex()
	}
	f.err = fmt.Errorf("%s: unsupported address type %T", key, value)
	return ""
}

// integer renders an int24/uint128/uint160/int256 field in base 10.
func (f *fieldReader) integer(key string) string {
	v := f.bigInt(key)
	if v == nil {
		return ""
	}
	return v.String()
}

func (f *fieldReader) tick(key string) int32 {
	v := f.bigInt(key)
	if v == nil {
		return 0
	}
	if v.Cmp(minInt24) < 0 || v.Cmp(maxInt24) > 0 {
		f.err = fmt.Errorf("%s: int24 overflow: %s", key, v)
		return 0
	}
	return int32(v.Int64())
}

var (
	minInt24 = big.NewInt(-1 << 23)
	maxInt24 = big.NewInt(1<<23 - 1)
)

func (f *fieldReader) bigInt(key string) *big.Int {
	value, ok := f.lookup(key)
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case *big.Int:
		if v != nil {
			return v
		}
	case big.Int:
		return &v
	case int32:
		return big.NewInt(int64(v))
	case int64:
		return big.NewInt(v)
	case uint32:
		return new(big.Int).SetUint64(uint64(v))
	case uint64:
		return new(big.Int).SetUint64(v)
	}
	f.err = fmt.Errorf("%s: unsupported integer type %T", key, value)
	return nil
}
