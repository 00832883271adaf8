// Package position keeps the simulated LP book: cash, positions, earned fees
// and the costs of rebalancing swaps.
package position

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/liquidity"
)

// Position is one liquidity range owned by the book. Token amounts are derived
// from Liquidity at the pool price and never stored.
type Position struct {
	ID        string
	Lower     int32
	Upper     int32
	Liquidity *uint256.Int

	// FeesOwed are claimable; AccumulatedFees count every fee ever credited.
	FeesOwed0        *uint256.Int
	FeesOwed1        *uint256.Int
	AccumulatedFees0 *uint256.Int
	AccumulatedFees1 *uint256.Int

	// Swap fees are paid in the input token, slippage is lost from the output token.
	SwapFees0 *uint256.Int
	SwapFees1 *uint256.Int
	Slippage0 *uint256.Int
	Slippage1 *uint256.Int

	// Token amounts moved into and out of liquidity.
	Added0   *uint256.Int
	Added1   *uint256.Int
	Removed0 *uint256.Int
	Removed1 *uint256.Int

	CreatedAt int64
	UpdatedAt int64
	ClosedAt  int64
	Closed    bool
}

func newPosition(id string, lower, upper int32, now int64) *Position {
	return &Position{
		ID:               id,
		Lower:            lower,
		Upper:            upper,
		Liquidity:        new(uint256.Int),
		FeesOwed0:        new(uint256.Int),
		FeesOwed1:        new(uint256.Int),
		AccumulatedFees0: new(uint256.Int),
		AccumulatedFees1: new(uint256.Int),
		SwapFees0:        new(uint256.Int),
		SwapFees1:        new(uint256.Int),
		Slippage0:        new(uint256.Int),
		Slippage1:        new(uint256.Int),
		Added0:           new(uint256.Int),
		Added1:           new(uint256.Int),
		Removed0:         new(uint256.Int),
		Removed1:         new(uint256.Int),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy so views never alias book state.
func (p *Position) Clone() Position {
	out := *p
	for _, field := range []**uint256.Int{
		&out.Liquidity,
		&out.FeesOwed0, &out.FeesOwed1,
		&out.AccumulatedFees0, &out.AccumulatedFees1,
		&out.SwapFees0, &out.SwapFees1,
		&out.Slippage0, &out.Slippage1,
		&out.Added0, &out.Added1,
		&out.Removed0, &out.Removed1,
	} {
		*field = (*field).Clone()
	}
	return out
}

// InRange reports whether the position earns fees at tick.
func (p *Position) InRange(tick int32) bool {
	return !p.Closed && p.Lower <= tick && tick < p.Upper
}

// Width is the range width in ticks.
func (p *Position) Width() int32 { return p.Upper - p.Lower }

// Amounts returns the tokens backing the position at sqrtPrice, rounded down.
func (p *Position) Amounts(sqrtPrice *uint256.Int) (*uint256.Int, *uint256.Int) {
	sqrtLower, sqrtUpper, err := fixedpoint.RangeSqrtPrices(p.Lower, p.Upper, 1)
	if err != nil {
		return new(uint256.Int), new(uint256.Int)
	}
	return liquidity.AmountsFor(sqrtPrice, sqrtLower, sqrtUpper, p.Liquidity)
}

// FeeValue values accumulated fees in token1 at price.
func (p *Position) FeeValue(price decimal.Decimal) decimal.Decimal {
	return fixedpoint.Decimal(p.AccumulatedFees0).Mul(price).Add(fixedpoint.Decimal(p.AccumulatedFees1))
}

// CostValue values swap fees and slippage in token1 at price.
func (p *Position) CostValue(price decimal.Decimal) decimal.Decimal {
	token0 := fixedpoint.Decimal(p.SwapFees0).Add(fixedpoint.Decimal(p.Slippage0))
	token1 := fixedpoint.Decimal(p.SwapFees1).Add(fixedpoint.Decimal(p.Slippage1))
	return token0.Mul(price).Add(token1)
}
