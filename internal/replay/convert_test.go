package replay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
)

// sqrtPriceX96One is 2^96, price 1.
const sqrtPriceX96One = "79228162514264337593543950336"

func typedRecord(t *testing.T, name string, payload interface{}) model.TypedEventRecord {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return model.TypedEventRecord{
		Address:   "0x1111111111111111111111111111111111111111",
		EventName: name,
		Timestamp: 1_700_000_000,
		Decoded:   raw,
		PoolMeta:  model.PoolMeta{Fee: 3000, TickSpacing: 60},
	}
}

func TestConvertSwapZeroForOne(t *testing.T) {
	evt, err := ConvertRecord(typedRecord(t, "Swap", model.SwapEventData{
		Amount0:      "1000",
		Amount1:      "-990",
		SqrtPriceX96: sqrtPriceX96One,
		Liquidity:    "5000000",
		Tick:         0,
	}))
	require.NoError(t, err)

	swap, ok := evt.(model.SwapEvent)
	require.True(t, ok)
	assert.True(t, swap.ZeroForOne)
	assert.Equal(t, int64(1_700_000_000_000), swap.Timestamp)
	assert.Equal(t, "1000", swap.AmountIn.Dec())
	assert.Equal(t, "990", swap.AmountOut.Dec())
	assert.Equal(t, "3", swap.FeeAmount.Dec())
	assert.Equal(t, "5000000", swap.Liquidity.Dec())
	assert.True(t, swap.SqrtPriceAfter.Eq(fixedpoint.Q64))
	assert.Nil(t, swap.SqrtPriceBefore)
}

func TestConvertSwapOneForZero(t *testing.T) {
	evt, err := ConvertRecord(typedRecord(t, "swap", model.SwapEventData{
		Amount0:      "-4990",
		Amount1:      "5000",
		SqrtPriceX96: sqrtPriceX96One,
		Liquidity:    "1",
	}))
	require.NoError(t, err)

	swap := evt.(model.SwapEvent)
	assert.False(t, swap.ZeroForOne)
	assert.Equal(t, "5000", swap.AmountIn.Dec())
	assert.Equal(t, "4990", swap.AmountOut.Dec())
	assert.Equal(t, "15", swap.FeeAmount.Dec())
}

func TestConvertSwapRejectsBadPayloads(t *testing.T) {
	_, err := ConvertRecord(typedRecord(t, "Swap", model.SwapEventData{
		Amount0: "10", Amount1: "10", SqrtPriceX96: sqrtPriceX96One,
	}))
	assert.Error(t, err)

	_, err = ConvertRecord(typedRecord(t, "Swap", model.SwapEventData{
		Amount0: "10", Amount1: "-10", SqrtPriceX96: "0",
	}))
	assert.ErrorIs(t, err, fixedpoint.ErrInvalidPrice)

	_, err = ConvertRecord(typedRecord(t, "Swap", model.SwapEventData{
		Amount0: "ten", Amount1: "-10", SqrtPriceX96: sqrtPriceX96One,
	}))
	assert.Error(t, err)
}

func TestConvertMintBurn(t *testing.T) {
	evt, err := ConvertRecord(typedRecord(t, "Mint", model.MintEventData{
		TickLower: -120, TickUpper: 120, Amount: "777",
	}))
	require.NoError(t, err)
	mint := evt.(model.MintEvent)
	assert.Equal(t, int32(-120), mint.Lower)
	assert.Equal(t, int32(120), mint.Upper)
	assert.Equal(t, "777", mint.Amount.Dec())

	evt, err = ConvertRecord(typedRecord(t, "Burn", model.BurnEventData{
		TickLower: -60, TickUpper: 60, Amount: "5",
	}))
	require.NoError(t, err)
	assert.Equal(t, model.KindBurn, evt.Kind())

	_, err = ConvertRecord(typedRecord(t, "Burn", model.BurnEventData{Amount: "-5"}))
	assert.Error(t, err)
}

func TestConvertUnsupportedEvent(t *testing.T) {
	_, err := ConvertRecord(typedRecord(t, "Collect", map[string]string{"amount0": "1"}))
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}
