package model

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:       "0x1111111111111111111111111111111111111111",
		Recipient:    "0x2222222222222222222222222222222222222222",
		Amount0:      "12345678901234567890",
		Amount1:      "-42",
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "5000000000000000000",
		Tick:         10,
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"amount0", "amount1", "sqrt_price_x96", "liquidity"} {
		assert.IsType(t, "", decoded[key], key)
	}
}

func TestTypedEventRecordDecodeSwap(t *testing.T) {
	line := []byte(`{"event_name":"Swap","timestamp":1700000000,"decoded":{"amount0":"1000","amount1":"-995","sqrt_price_x96":"79228162514264337593543950336","liquidity":"5000","tick":0},"pool_meta":{"fee":500,"tick_spacing":10}}`)

	var record TypedEventRecord
	require.NoError(t, json.Unmarshal(line, &record))

	swap, err := record.DecodeSwap()
	require.NoError(t, err)
	assert.Equal(t, "1000", swap.Amount0)
	assert.Equal(t, "-995", swap.Amount1)
	assert.Equal(t, uint32(500), record.PoolMeta.Fee)
	assert.Equal(t, int32(10), record.PoolMeta.TickSpacing)

	_, err = record.DecodeMint()
	assert.Error(t, err, "a swap record is not a mint")
}

func TestParseBigInt(t *testing.T) {
	v, err := ParseBigInt("-42")
	require.NoError(t, err)
	assert.Equal(t, int64(-42), v.Int64())

	v, err = ParseBigInt("")
	require.NoError(t, err)
	assert.Zero(t, v.Sign())

	_, err = ParseBigInt("12x")
	assert.Error(t, err)
}

func TestDecodeEventSwap(t *testing.T) {
	original := SwapEvent{
		Timestamp:      1700000000123,
		AmountIn:       uint256.NewInt(1_000_000),
		AmountOut:      uint256.NewInt(998_000),
		ZeroForOne:     true,
		SqrtPriceAfter: uint256.MustFromDecimal("18446744073709551616"),
		FeeAmount:      uint256.NewInt(500),
		Liquidity:      uint256.MustFromDecimal("5000000000000000000"),
		Tick:           -3,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	evt, err := DecodeEvent(data)
	require.NoError(t, err)
	decoded, ok := evt.(SwapEvent)
	require.True(t, ok, "got %T", evt)
	assert.Equal(t, original.Timestamp, decoded.Time())
	assert.True(t, decoded.ZeroForOne)
	assert.Equal(t, int32(-3), decoded.Tick)
	assert.True(t, decoded.AmountIn.Eq(original.AmountIn))
	assert.True(t, decoded.Liquidity.Eq(original.Liquidity))
	assert.Nil(t, decoded.SqrtPriceBefore)
	assert.Nil(t, decoded.ReserveA)
}

func TestDecodeEventRangeKinds(t *testing.T) {
	evt, err := DecodeEvent([]byte(`{"type":"burn","timestamp":5,"tick_lower":-60,"tick_upper":60,"amount":"700"}`))
	require.NoError(t, err)
	burn, ok := evt.(BurnEvent)
	require.True(t, ok, "got %T", evt)
	assert.Equal(t, int32(-60), burn.Lower)
	assert.Equal(t, int32(60), burn.Upper)
	assert.Equal(t, uint64(700), burn.Amount.Uint64())

	_, err = DecodeEvent([]byte(`{"type":"collect"}`))
	assert.Error(t, err, "unknown type")
	_, err = DecodeEvent([]byte(`{"type":"mint","amount":"abc"}`))
	assert.Error(t, err, "malformed amount")
}
