// Package optimizer decides how to split two token balances so a position over
// a tick range gets as much liquidity as possible, swapping once if it helps.
package optimizer

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/liquidity"
	"liquidityLab/internal/swap"
)

const (
	// searchIterations caps the in-range binary search.
	searchIterations = 10
	// ratioTolerancePct is the ratio deviation accepted without swapping.
	ratioTolerancePct = 1
)

var (
	minImpactFactor = decimal.RequireFromString("0.95")
	// referenceLiquidity is large enough that the required token ratio keeps
	// full integer precision.
	referenceLiquidity = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
)

// Direction names the swap the optimizer chose.
type Direction string

const (
	NoSwap    Direction = ""
	ZeroToOne Direction = "0to1"
	OneToZero Direction = "1to0"
)

// PoolView is the read-only pool state the optimizer needs.
type PoolView interface {
	SqrtPrice() *uint256.Int
	Liquidity() *uint256.Int
	TickSpacing() int32
}

// Improvement reports the liquidity gained by swapping.
type Improvement struct {
	OriginalLiquidity  *uint256.Int
	OptimizedLiquidity *uint256.Int
	// ImprovementPct is (optimized-original)/original*100, zero when original is zero.
	ImprovementPct decimal.Decimal
}

// Result is the outcome of OptimizeForMaxLiquidity. Final amounts are the
// balances after the swap; Liquidity is what they support over the range.
type Result struct {
	NeedSwap      bool
	SwapDirection Direction
	SwapAmount    *uint256.Int
	SwapResult    *swap.Result
	FinalAmount0  *uint256.Int
	FinalAmount1  *uint256.Int
	Liquidity     *uint256.Int
	Improvement   Improvement
}

type Optimizer struct {
	pool PoolView
	sim  *swap.Simulator
}

func New(pool PoolView, sim *swap.Simulator) *Optimizer {
	return &Optimizer{pool: pool, sim: sim}
}

// MaxLiquidityFromAmounts returns the largest liquidity amount0/amount1 can back
// over [lower, upper) at the current pool price.
func (o *Optimizer) MaxLiquidityFromAmounts(amount0, amount1 *uint256.Int, lower, upper int32) (*uint256.Int, error) {
	sqrtLower, sqrtUpper, err := fixedpoint.RangeSqrtPrices(lower, upper, o.pool.TickSpacing())
	if err != nil {
		return nil, err
	}
	return liquidity.ForAmounts(o.pool.SqrtPrice(), sqrtLower, sqrtUpper, fixedpoint.OrZero(amount0), fixedpoint.OrZero(amount1)), nil
}

// AmountsFromLiquidity returns the token amounts backing liq over [lower, upper)
// at the current pool price, rounded down.
func (o *Optimizer) AmountsFromLiquidity(liq *uint256.Int, lower, upper int32) (*uint256.Int, *uint256.Int, error) {
	sqrtLower, sqrtUpper, err := fixedpoint.RangeSqrtPrices(lower, upper, o.pool.TickSpacing())
	if err != nil {
		return nil, nil, err
	}
	amount0, amount1 := liquidity.AmountsFor(o.pool.SqrtPrice(), sqrtLower, sqrtUpper, fixedpoint.OrZero(liq))
	return amount0, amount1, nil
}

// OptimizeForMaxLiquidity decides whether one swap before providing liquidity
// increases the liquidity obtainable from amount0/amount1. Swaps smaller than
// minSwap are never proposed.
func (o *Optimizer) OptimizeForMaxLiquidity(amount0, amount1 *uint256.Int, lower, upper int32, minSwap *uint256.Int) (Result, error) {
	sqrtLower, sqrtUpper, err := fixedpoint.RangeSqrtPrices(lower, upper, o.pool.TickSpacing())
	if err != nil {
		return Result{}, err
	}
	amount0 = fixedpoint.OrZero(amount0).Clone()
	amount1 = fixedpoint.OrZero(amount1).Clone()
	minSwap = fixedpoint.OrZero(minSwap)
	sqrtPrice := o.pool.SqrtPrice()

	original := liquidity.ForAmounts(sqrtPrice, sqrtLower, sqrtUpper, amount0, amount1)
	res := Result{
		SwapAmount:   new(uint256.Int),
		FinalAmount0: amount0,
		FinalAmount1: amount1,
		Liquidity:    original,
		Improvement: Improvement{
			OriginalLiquidity:  original.Clone(),
			OptimizedLiquidity: original.Clone(),
			ImprovementPct:     decimal.Zero,
		},
	}

	var (
		direction Direction
		size      *uint256.Int
	)
	// Token0 is the base asset: price is token1 per token0, so a range above
	// the price holds only token0 and a range below it only token1. A range
	// such as [-600, -120] at tick 0 therefore swaps 0to1 and ends with no
	// token0, never the other way round.
	switch {
	case sqrtPrice.Cmp(sqrtLower) <= 0:
		// Range above price: only token0 is usable.
		direction, size = OneToZero, amount1.Clone()
	case sqrtPrice.Cmp(sqrtUpper) >= 0:
		direction, size = ZeroToOne, amount0.Clone()
	default:
		direction, size = o.searchInRange(amount0, amount1, sqrtPrice, sqrtLower, sqrtUpper)
	}
	if direction == NoSwap || size.IsZero() || size.Lt(minSwap) {
		return res, nil
	}

	quote := o.sim.Quote(size, direction == ZeroToOne)
	final0, final1 := applyQuote(amount0, amount1, quote)
	optimized := liquidity.ForAmounts(sqrtPrice, sqrtLower, sqrtUpper, final0, final1)
	if !optimized.Gt(original) {
		return res, nil
	}

	res.NeedSwap = true
	res.SwapDirection = direction
	res.SwapAmount = size
	res.SwapResult = &quote
	res.FinalAmount0 = final0
	res.FinalAmount1 = final1
	res.Liquidity = optimized
	res.Improvement.OptimizedLiquidity = optimized.Clone()
	res.Improvement.ImprovementPct = improvementPct(original, optimized)
	return res, nil
}

// searchInRange binary-searches the swap size that brings the balances to the
// ratio the range needs at the current price. Price impact during the search
// is approximated; candidates are then compared with real quotes.
func (o *Optimizer) searchInRange(amount0, amount1, sqrtPrice, sqrtLower, sqrtUpper *uint256.Int) (Direction, *uint256.Int) {
	need0, need1 := liquidity.AmountsFor(sqrtPrice, sqrtLower, sqrtUpper, referenceLiquidity)
	if need0.IsZero() || need1.IsZero() {
		return NoSwap, nil
	}
	if withinTolerance(amount0, amount1, need0, need1) {
		return NoSwap, nil
	}

	zeroForOne := excessToken0(amount0, amount1, need0, need1)
	direction, available := OneToZero, amount1
	if zeroForOne {
		direction, available = ZeroToOne, amount0
	}

	poolLiquidity := fixedpoint.Decimal(o.pool.Liquidity())
	lo, hi := new(uint256.Int), available.Clone()
	for i := 0; i < searchIterations && new(uint256.Int).Sub(hi, lo).GtUint64(1); i++ {
		mid := new(uint256.Int).Add(lo, hi)
		mid.Rsh(mid, 1)

		quote := o.sim.Quote(mid, zeroForOne)
		estimated := fixedpoint.FromDecimal(fixedpoint.Decimal(quote.AmountOut).Mul(impactFactor(mid, poolLiquidity)))
		final0, final1 := applyAmounts(amount0, amount1, mid, estimated, zeroForOne)
		if excessToken0(final0, final1, need0, need1) == zeroForOne {
			lo = mid
		} else {
			hi = mid
		}
	}

	best, bestL := lo, new(uint256.Int)
	for _, candidate := range []*uint256.Int{lo, hi} {
		quote := o.sim.Quote(candidate, zeroForOne)
		final0, final1 := applyQuote(amount0, amount1, quote)
		if l := liquidity.ForAmounts(sqrtPrice, sqrtLower, sqrtUpper, final0, final1); l.Gt(bestL) {
			best, bestL = candidate, l
		}
	}
	return direction, best.Clone()
}

// impactFactor dampens the quoted output for large swaps relative to pool liquidity.
func impactFactor(size *uint256.Int, poolLiquidity decimal.Decimal) decimal.Decimal {
	if !poolLiquidity.IsPositive() {
		return minImpactFactor
	}
	ratio := fixedpoint.Decimal(size).DivRound(poolLiquidity, 18).Div(decimal.NewFromInt(10))
	factor := decimal.NewFromInt(1).Sub(ratio)
	if factor.LessThan(minImpactFactor) {
		return minImpactFactor
	}
	return factor
}

// excessToken0 reports whether amount0/amount1 holds more token0 than need0/need1.
func excessToken0(amount0, amount1, need0, need1 *uint256.Int) bool {
	lhs := new(big.Int).Mul(amount0.ToBig(), need1.ToBig())
	rhs := new(big.Int).Mul(amount1.ToBig(), need0.ToBig())
	return lhs.Cmp(rhs) > 0
}

// withinTolerance reports whether the two ratios differ by at most ratioTolerancePct.
func withinTolerance(amount0, amount1, need0, need1 *uint256.Int) bool {
	lhs := new(big.Int).Mul(amount0.ToBig(), need1.ToBig())
	rhs := new(big.Int).Mul(amount1.ToBig(), need0.ToBig())
	largest := lhs
	if rhs.Cmp(lhs) > 0 {
		largest = rhs
	}
	if largest.Sign() == 0 {
		return true
	}
	diff := new(big.Int).Sub(lhs, rhs)
	diff.Abs(diff).Mul(diff, big.NewInt(100))
	return diff.Cmp(new(big.Int).Mul(largest, big.NewInt(ratioTolerancePct))) <= 0
}

func applyQuote(amount0, amount1 *uint256.Int, quote swap.Result) (*uint256.Int, *uint256.Int) {
	return applyAmounts(amount0, amount1, quote.AmountIn, quote.AmountOut, quote.ZeroForOne)
}

func applyAmounts(amount0, amount1, in, out *uint256.Int, zeroForOne bool) (*uint256.Int, *uint256.Int) {
	if zeroForOne {
		return fixedpoint.SubFloor(amount0, in), saturatingAdd(amount1, out)
	}
	return saturatingAdd(amount0, out), fixedpoint.SubFloor(amount1, in)
}

func saturatingAdd(a, b *uint256.Int) *uint256.Int {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return sum
}

func improvementPct(original, optimized *uint256.Int) decimal.Decimal {
	if original.IsZero() {
		return decimal.Zero
	}
	gain := fixedpoint.Decimal(optimized).Sub(fixedpoint.Decimal(original))
	return gain.Mul(decimal.NewFromInt(100)).DivRound(fixedpoint.Decimal(original), 6)
}

// String renders the result for debug logs.
func (r Result) String() string {
	if !r.NeedSwap {
		return fmt.Sprintf("no swap, liquidity %s", r.Liquidity.Dec())
	}
	return fmt.Sprintf("swap %s %s, liquidity %s -> %s (+%s%%)", r.SwapDirection, r.SwapAmount.Dec(),
		r.Improvement.OriginalLiquidity.Dec(), r.Liquidity.Dec(), r.Improvement.ImprovementPct.String())
}
