// Package liquidity converts between token amounts and concentrated liquidity
// over a sqrt-price interval. Sqrt prices are Q64.64.
package liquidity

import (
	"github.com/holiman/uint256"

	"liquidityLab/internal/fixedpoint"
)

func ordered(a, b *uint256.Int) (*uint256.Int, *uint256.Int) {
	if a.Gt(b) {
		return b, a
	}
	return a, b
}

// Amount0Delta returns L * 2^64 * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func Amount0Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	sqrtA, sqrtB = ordered(sqrtA, sqrtB)
	if sqrtA.IsZero() || liquidity.IsZero() || sqrtA.Eq(sqrtB) {
		return new(uint256.Int)
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 64)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		inner := fixedpoint.MulDivRoundingUp(numerator1, numerator2, sqrtB)
		return fixedpoint.MulDivRoundingUp(inner, uint256.NewInt(1), sqrtA)
	}
	inner := fixedpoint.MulDiv(numerator1, numerator2, sqrtB)
	return inner.Div(inner, sqrtA)
}

// Amount1Delta returns L * (sqrtB - sqrtA) / 2^64.
func Amount1Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	sqrtA, sqrtB = ordered(sqrtA, sqrtB)
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return fixedpoint.MulDivRoundingUp(liquidity, diff, fixedpoint.Q64)
	}
	return fixedpoint.MulDiv(liquidity, diff, fixedpoint.Q64)
}

// ForAmount0 returns the liquidity a token0 amount supports between the two prices.
func ForAmount0(sqrtA, sqrtB, amount0 *uint256.Int) *uint256.Int {
	sqrtA, sqrtB = ordered(sqrtA, sqrtB)
	if sqrtA.Eq(sqrtB) {
		return new(uint256.Int)
	}
	intermediate := fixedpoint.MulDiv(sqrtA, sqrtB, fixedpoint.Q64)
	return fixedpoint.MulDiv(amount0, intermediate, new(uint256.Int).Sub(sqrtB, sqrtA))
}

// ForAmount1 returns the liquidity a token1 amount supports between the two prices.
func ForAmount1(sqrtA, sqrtB, amount1 *uint256.Int) *uint256.Int {
	sqrtA, sqrtB = ordered(sqrtA, sqrtB)
	if sqrtA.Eq(sqrtB) {
		return new(uint256.Int)
	}
	return fixedpoint.MulDiv(amount1, fixedpoint.Q64, new(uint256.Int).Sub(sqrtB, sqrtA))
}

// ForAmounts returns the maximum liquidity obtainable from both amounts for the
// range [sqrtA, sqrtB] at the current sqrt price.
func ForAmounts(sqrtPrice, sqrtA, sqrtB, amount0, amount1 *uint256.Int) *uint256.Int {
	sqrtA, sqrtB = ordered(sqrtA, sqrtB)
	switch {
	case sqrtPrice.Cmp(sqrtA) <= 0:
		return ForAmount0(sqrtA, sqrtB, amount0)
	case sqrtPrice.Lt(sqrtB):
		liquidity0 := ForAmount0(sqrtPrice, sqrtB, amount0)
		liquidity1 := ForAmount1(sqrtA, sqrtPrice, amount1)
		return fixedpoint.Min(liquidity0, liquidity1)
	default:
		return ForAmount1(sqrtA, sqrtB, amount1)
	}
}

// AmountsFor returns the token amounts backing liquidity at the current sqrt
// price, rounded down.
func AmountsFor(sqrtPrice, sqrtA, sqrtB, liquidity *uint256.Int) (*uint256.Int, *uint256.Int) {
	sqrtA, sqrtB = ordered(sqrtA, sqrtB)
	switch {
	case sqrtPrice.Cmp(sqrtA) <= 0:
		return Amount0Delta(sqrtA, sqrtB, liquidity, false), new(uint256.Int)
	case sqrtPrice.Lt(sqrtB):
		return Amount0Delta(sqrtPrice, sqrtB, liquidity, false), Amount1Delta(sqrtA, sqrtPrice, liquidity, false)
	default:
		return new(uint256.Int), Amount1Delta(sqrtA, sqrtB, liquidity, false)
	}
}
