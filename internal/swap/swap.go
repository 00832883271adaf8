// Package swap quotes strategy-initiated swaps against the current pool price.
// Quotes never mutate the pool; callers decide what to do with the result.
package swap

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/slippage"
)

// PriceSource is the part of the pool a quote depends on.
type PriceSource interface {
	SqrtPrice() *uint256.Int
	FeePips() uint32
}

// Result describes one quoted swap. Fee is charged in the input token and
// SlippageAmount is withheld from the output token.
type Result struct {
	ZeroForOne     bool
	AmountIn       *uint256.Int
	Fee            *uint256.Int
	AmountInNet    *uint256.Int
	AmountOut      *uint256.Int
	SlippageAmount *uint256.Int
	SlippagePct    decimal.Decimal
}

// Deltas returns the signed token0/token1 balance changes for the trader.
func (r Result) Deltas() (*big.Int, *big.Int) {
	in := new(big.Int).Neg(r.AmountIn.ToBig())
	out := r.AmountOut.ToBig()
	if r.ZeroForOne {
		return in, out
	}
	return out, in
}

// Simulator quotes swaps at the pool's current price minus modelled slippage.
type Simulator struct {
	pool  PriceSource
	model slippage.Model
}

func NewSimulator(pool PriceSource, model slippage.Model) *Simulator {
	return &Simulator{pool: pool, model: model}
}

func (s *Simulator) Model() slippage.Model { return s.model }

// Quote computes fee, gross output at spot price and the slippage-adjusted output.
func (s *Simulator) Quote(amountIn *uint256.Int, zeroForOne bool) Result {
	amountIn = fixedpoint.OrZero(amountIn).Clone()
	res := Result{
		ZeroForOne:     zeroForOne,
		AmountIn:       amountIn,
		Fee:            new(uint256.Int),
		AmountInNet:    new(uint256.Int),
		AmountOut:      new(uint256.Int),
		SlippageAmount: new(uint256.Int),
		SlippagePct:    decimal.Zero,
	}
	if amountIn.IsZero() {
		return res
	}

	res.Fee = mulDivSaturating(amountIn, uint256.NewInt(uint64(s.pool.FeePips())), uint256.NewInt(fixedpoint.FeeDenominator))
	res.AmountInNet = new(uint256.Int).Sub(amountIn, res.Fee)

	sqrtPrice := s.pool.SqrtPrice()
	if sqrtPrice.IsZero() {
		return res
	}
	gross := spotOutput(res.AmountInNet, sqrtPrice, zeroForOne)

	pct := decimal.Zero
	if s.model != nil {
		pct = s.model.SlippagePct(res.AmountInNet, zeroForOne, fixedpoint.SqrtPriceToPrice(sqrtPrice))
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	if pct.GreaterThan(decimal.NewFromInt(1)) {
		pct = decimal.NewFromInt(1)
	}
	res.SlippagePct = pct
	res.SlippageAmount = fixedpoint.FromDecimal(fixedpoint.Decimal(gross).Mul(pct))
	res.AmountOut = fixedpoint.SubFloor(gross, res.SlippageAmount)
	return res
}

// spotOutput converts net input at price (sqrtPrice/2^64)^2 without slippage.
func spotOutput(amount, sqrtPrice *uint256.Int, zeroForOne bool) *uint256.Int {
	if zeroForOne {
		step := mulDivSaturating(amount, sqrtPrice, fixedpoint.Q64)
		return mulDivSaturating(step, sqrtPrice, fixedpoint.Q64)
	}
	step := mulDivSaturating(amount, fixedpoint.Q64, sqrtPrice)
	return mulDivSaturating(step, fixedpoint.Q64, sqrtPrice)
}

func mulDivSaturating(a, b, denominator *uint256.Int) *uint256.Int {
	result, overflow := new(uint256.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return result
}
