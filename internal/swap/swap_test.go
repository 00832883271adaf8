package swap

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/slippage"
)

type staticPool struct {
	sqrtPrice *uint256.Int
	feePips   uint32
}

func (p staticPool) SqrtPrice() *uint256.Int { return p.sqrtPrice.Clone() }
func (p staticPool) FeePips() uint32         { return p.feePips }

func atPrice(t *testing.T, price string, feePips uint32) staticPool {
	t.Helper()
	sqrtPrice, err := fixedpoint.PriceToSqrtPrice(decimal.RequireFromString(price))
	require.NoError(t, err)
	return staticPool{sqrtPrice: sqrtPrice, feePips: feePips}
}

func TestQuoteWithoutSlippageAtParity(t *testing.T) {
	fixed, err := slippage.NewFixed(decimal.Zero)
	require.NoError(t, err)
	sim := NewSimulator(staticPool{sqrtPrice: fixedpoint.Q64.Clone(), feePips: 500}, fixed)

	res := sim.Quote(uint256.NewInt(1_000_000), true)
	assert.Equal(t, uint64(500), res.Fee.Uint64())
	assert.Equal(t, uint64(999_500), res.AmountInNet.Uint64())
	assert.Equal(t, uint64(999_500), res.AmountOut.Uint64())
	assert.True(t, res.SlippageAmount.IsZero())

	d0, d1 := res.Deltas()
	assert.Equal(t, int64(-1_000_000), d0.Int64())
	assert.Equal(t, int64(999_500), d1.Int64())
}

func TestQuoteAppliesPriceInBothDirections(t *testing.T) {
	fixed, err := slippage.NewFixed(decimal.Zero)
	require.NoError(t, err)
	sim := NewSimulator(atPrice(t, "4", 0), fixed)

	sell0 := sim.Quote(uint256.NewInt(1_000), true)
	assert.InDelta(t, 4_000, float64(sell0.AmountOut.Uint64()), 1)

	sell1 := sim.Quote(uint256.NewInt(1_000), false)
	assert.InDelta(t, 250, float64(sell1.AmountOut.Uint64()), 1)
	assert.LessOrEqual(t, sell1.AmountOut.Uint64(), uint64(250))
}

func TestQuoteWithholdsSlippage(t *testing.T) {
	fixed, err := slippage.NewFixed(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	sim := NewSimulator(staticPool{sqrtPrice: fixedpoint.Q64.Clone(), feePips: 0}, fixed)

	res := sim.Quote(uint256.NewInt(10_000), false)
	assert.Equal(t, uint64(100), res.SlippageAmount.Uint64())
	assert.Equal(t, uint64(9_900), res.AmountOut.Uint64())
	assert.True(t, res.SlippagePct.Equal(decimal.RequireFromString("0.01")))
}

func TestQuoteDoesNotMutateAndIsDeterministic(t *testing.T) {
	clmm, err := slippage.NewCLMM(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.05"), decimal.NewFromInt(1))
	require.NoError(t, err)
	clmm.SetPoolLiquidity(uint256.NewInt(1_000_000))
	pool := staticPool{sqrtPrice: fixedpoint.Q64.Clone(), feePips: 3000}
	sim := NewSimulator(pool, clmm)

	first := sim.Quote(uint256.NewInt(100_000), true)
	second := sim.Quote(uint256.NewInt(100_000), true)
	assert.Equal(t, first.AmountOut.Dec(), second.AmountOut.Dec())
	assert.True(t, pool.sqrtPrice.Eq(fixedpoint.Q64))
}

func TestQuoteEdgeCases(t *testing.T) {
	sim := NewSimulator(staticPool{sqrtPrice: fixedpoint.Q64.Clone(), feePips: 500}, nil)

	zero := sim.Quote(nil, true)
	assert.True(t, zero.AmountOut.IsZero())
	assert.True(t, zero.Fee.IsZero())

	huge := new(uint256.Int).SetAllOne()
	res := sim.Quote(huge, true)
	assert.False(t, res.AmountOut.IsZero())

	full, err := slippage.NewFixed(decimal.NewFromInt(1))
	require.NoError(t, err)
	res = NewSimulator(staticPool{sqrtPrice: fixedpoint.Q64.Clone()}, full).Quote(uint256.NewInt(5_000), true)
	assert.True(t, res.AmountOut.IsZero())
}
