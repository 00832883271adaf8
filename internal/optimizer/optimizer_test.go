package optimizer

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/liquidity"
	"liquidityLab/internal/pool"
	"liquidityLab/internal/slippage"
	"liquidityLab/internal/swap"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func newOptimizer(t *testing.T, poolLiquidity uint64) (*Optimizer, *pool.Pool) {
	t.Helper()
	p, err := pool.NewAtTick(pool.Config{TickSpacing: 60, FeePips: 500}, 0)
	require.NoError(t, err)
	p.SetLiquidity(u(poolLiquidity))

	model, err := slippage.NewCLMM(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.05"), decimal.NewFromInt(1))
	require.NoError(t, err)
	model.SetPoolLiquidity(p.Liquidity())
	return New(p, swap.NewSimulator(p, model)), p
}

func TestRangeAbovePriceSwapsAllToken1(t *testing.T) {
	opt, _ := newOptimizer(t, 1_000_000_000_000)

	res, err := opt.OptimizeForMaxLiquidity(u(1_000_000), u(1_000_000), 120, 600, u(1_000))
	require.NoError(t, err)
	assert.True(t, res.NeedSwap)
	assert.Equal(t, OneToZero, res.SwapDirection)
	assert.Equal(t, uint64(1_000_000), res.SwapAmount.Uint64())
	assert.True(t, res.FinalAmount1.IsZero())
	require.NotNil(t, res.SwapResult)
	assert.Equal(t, uint64(500), res.SwapResult.Fee.Uint64())
	assert.Equal(t, 1_000_000+res.SwapResult.AmountOut.Uint64(), res.FinalAmount0.Uint64())
	assert.True(t, res.Liquidity.Gt(res.Improvement.OriginalLiquidity))
	assert.True(t, res.Improvement.ImprovementPct.IsPositive())
}

func TestRangeBelowPriceSwapsAllToken0(t *testing.T) {
	opt, _ := newOptimizer(t, 1_000_000_000_000)

	res, err := opt.OptimizeForMaxLiquidity(u(1_000_000), u(1_000_000), -600, -120, u(1_000))
	require.NoError(t, err)
	assert.True(t, res.NeedSwap)
	assert.Equal(t, ZeroToOne, res.SwapDirection)
	assert.Equal(t, uint64(1_000_000), res.SwapAmount.Uint64())
	assert.True(t, res.FinalAmount0.IsZero())
	assert.Equal(t, 1_000_000+res.SwapResult.AmountOut.Uint64(), res.FinalAmount1.Uint64())
}

func TestBalancedInRangeDoesNotSwap(t *testing.T) {
	opt, _ := newOptimizer(t, 1_000_000_000_000)

	res, err := opt.OptimizeForMaxLiquidity(u(500_000), u(500_000), -120, 120, u(0))
	require.NoError(t, err)
	assert.False(t, res.NeedSwap)
	assert.Equal(t, NoSwap, res.SwapDirection)
	assert.Nil(t, res.SwapResult)
	assert.Equal(t, uint64(83587749), res.Liquidity.Uint64())
}

func TestSingleSidedInRangeFindsPosition(t *testing.T) {
	opt, _ := newOptimizer(t, 1_000_000_000_000)

	for _, tc := range []struct {
		name      string
		a0, a1    uint64
		direction Direction
	}{
		{"only token1", 0, 1_000_000, OneToZero},
		{"only token0", 1_000_000, 0, ZeroToOne},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := opt.OptimizeForMaxLiquidity(u(tc.a0), u(tc.a1), -600, 600, u(1_000))
			require.NoError(t, err)
			require.True(t, res.NeedSwap)
			assert.Equal(t, tc.direction, res.SwapDirection)
			assert.True(t, res.Improvement.OriginalLiquidity.IsZero())
			assert.False(t, res.Liquidity.IsZero())
			assert.False(t, res.FinalAmount0.IsZero())
			assert.False(t, res.FinalAmount1.IsZero())
		})
	}
}

func TestMinSwapThresholdSuppressesDust(t *testing.T) {
	opt, _ := newOptimizer(t, 1_000_000_000_000)

	res, err := opt.OptimizeForMaxLiquidity(u(0), u(900), 120, 600, u(1_000))
	require.NoError(t, err)
	assert.False(t, res.NeedSwap)
	assert.True(t, res.Liquidity.IsZero())
	assert.Equal(t, uint64(900), res.FinalAmount1.Uint64())
}

func TestOptimizerNeverLosesLiquidity(t *testing.T) {
	opt, _ := newOptimizer(t, 50_000_000)

	ranges := [][2]int32{{-600, 600}, {-120, 60}, {-60, 1200}, {60, 600}, {-1200, -60}}
	amounts := [][2]uint64{{1_000_000, 0}, {0, 1_000_000}, {1_000_000, 10_000}, {3_000, 7_000_000}, {123_456, 654_321}}
	for _, r := range ranges {
		for _, a := range amounts {
			res, err := opt.OptimizeForMaxLiquidity(u(a[0]), u(a[1]), r[0], r[1], u(100))
			require.NoError(t, err)
			assert.False(t, res.Improvement.OptimizedLiquidity.Lt(res.Improvement.OriginalLiquidity), "range %v amounts %v", r, a)
			if res.NeedSwap {
				assert.True(t, res.Improvement.OptimizedLiquidity.Gt(res.Improvement.OriginalLiquidity), "range %v amounts %v", r, a)
			}
		}
	}
}

// The in-range search is a heuristic; compare it with an exhaustive scan.
func TestInRangeSearchApproachesBruteForce(t *testing.T) {
	opt, p := newOptimizer(t, 1_000_000_000)
	sqrtLower, sqrtUpper, err := fixedpoint.RangeSqrtPrices(-600, 600, 60)
	require.NoError(t, err)

	res, err := opt.OptimizeForMaxLiquidity(u(1_000_000), u(0), -600, 600, u(1))
	require.NoError(t, err)
	require.True(t, res.NeedSwap)

	best := new(uint256.Int)
	for size := uint64(0); size <= 1_000_000; size += 500 {
		quote := opt.sim.Quote(u(size), true)
		final0, final1 := applyQuote(u(1_000_000), u(0), quote)
		if l := liquidity.ForAmounts(p.SqrtPrice(), sqrtLower, sqrtUpper, final0, final1); l.Gt(best) {
			best = l
		}
	}
	floor := fixedpoint.MulDiv(best, u(99), u(100))
	assert.False(t, res.Liquidity.Lt(floor), "optimizer %s brute force %s", res.Liquidity.Dec(), best.Dec())
}

func TestRoundTripThroughPoolPrice(t *testing.T) {
	opt, _ := newOptimizer(t, 0)

	liq, err := opt.MaxLiquidityFromAmounts(u(500_000), u(500_000), -120, 120)
	require.NoError(t, err)
	amount0, amount1, err := opt.AmountsFromLiquidity(liq, -120, 120)
	require.NoError(t, err)
	assert.InDelta(t, 500_000, float64(amount0.Uint64()), 1)
	assert.InDelta(t, 500_000, float64(amount1.Uint64()), 1)
}

func TestInvalidRanges(t *testing.T) {
	opt, _ := newOptimizer(t, 0)

	_, err := opt.OptimizeForMaxLiquidity(u(1), u(1), 600, 120, nil)
	assert.ErrorIs(t, err, fixedpoint.ErrInvalidRange)
	_, err = opt.MaxLiquidityFromAmounts(u(1), u(1), -100, 120)
	assert.ErrorIs(t, err, fixedpoint.ErrMisalignedTick)
	_, _, err = opt.AmountsFromLiquidity(u(1), 0, 0)
	assert.ErrorIs(t, err, fixedpoint.ErrInvalidRange)
}
