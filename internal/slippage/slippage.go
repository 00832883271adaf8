// Package slippage provides the interchangeable price-impact models used when a
// strategy swaps against the simulated pool.
package slippage

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
)

// divisionPrecision bounds the decimal places kept by size/liquidity ratios.
const divisionPrecision int32 = 18

// Model quotes a slippage fraction in [0, MaxSlippage()] for a swap of
// amountIn (net of fees). Implementations never return negative values.
type Model interface {
	SlippagePct(amountIn *uint256.Int, zeroForOne bool, price decimal.Decimal) decimal.Decimal
	OnSwapEvent(evt model.SwapEvent)
	SetPoolLiquidity(liquidity *uint256.Int)
	MaxSlippage() decimal.Decimal
}

// Kind names a slippage model in configuration.
type Kind string

const (
	KindFixed  Kind = "fixed"
	KindLinear Kind = "linear"
	KindCLMM   Kind = "clmm"
)

// Config carries the parameters of every model kind; unused fields are ignored.
type Config struct {
	Kind          Kind
	Pct           decimal.Decimal
	Base          decimal.Decimal
	Factor        decimal.Decimal
	ScalingFactor decimal.Decimal
	Max           decimal.Decimal
	MinLiquidity  decimal.Decimal
}

// New builds the model selected by cfg.Kind.
func New(cfg Config) (Model, error) {
	switch Kind(strings.ToLower(string(cfg.Kind))) {
	case KindFixed:
		return NewFixed(cfg.Pct)
	case KindLinear:
		return NewLinear(cfg.Base, cfg.Factor, cfg.Max, cfg.MinLiquidity)
	case KindCLMM, "":
		return NewCLMM(cfg.ScalingFactor, cfg.Max, cfg.MinLiquidity)
	default:
		return nil, fmt.Errorf("unknown slippage model %q", cfg.Kind)
	}
}

func validateFraction(name string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0, 1], got %s", name, v.String())
	}
	return nil
}

func clamp(v, max decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}

func isEmpty(amount *uint256.Int) bool {
	return amount == nil || amount.IsZero()
}

// Fixed applies the same fraction to every non-empty swap.
type Fixed struct {
	pct decimal.Decimal
}

func NewFixed(pct decimal.Decimal) (*Fixed, error) {
	if err := validateFraction("fixed slippage", pct); err != nil {
		return nil, err
	}
	return &Fixed{pct: pct}, nil
}

func (f *Fixed) SlippagePct(amountIn *uint256.Int, _ bool, _ decimal.Decimal) decimal.Decimal {
	if isEmpty(amountIn) {
		return decimal.Zero
	}
	return f.pct
}

func (f *Fixed) OnSwapEvent(model.SwapEvent)   {}
func (f *Fixed) SetPoolLiquidity(*uint256.Int) {}
func (f *Fixed) MaxSlippage() decimal.Decimal  { return f.pct }

// Linear grows with trade size relative to the input-side reserve:
// base + amountIn/reserve*factor, capped at max.
type Linear struct {
	base       decimal.Decimal
	factor     decimal.Decimal
	max        decimal.Decimal
	minReserve decimal.Decimal
	reserve0   decimal.Decimal
	reserve1   decimal.Decimal
	liquidity  decimal.Decimal
}

func NewLinear(base, factor, max, minReserve decimal.Decimal) (*Linear, error) {
	if err := validateFraction("linear base", base); err != nil {
		return nil, err
	}
	if err := validateFraction("linear max", max); err != nil {
		return nil, err
	}
	if factor.IsNegative() {
		return nil, fmt.Errorf("linear factor must be >= 0, got %s", factor.String())
	}
	if base.GreaterThan(max) {
		return nil, fmt.Errorf("linear base %s exceeds max %s", base.String(), max.String())
	}
	return &Linear{base: base, factor: factor, max: max, minReserve: minReserve}, nil
}

func (l *Linear) SlippagePct(amountIn *uint256.Int, zeroForOne bool, _ decimal.Decimal) decimal.Decimal {
	if isEmpty(amountIn) {
		return decimal.Zero
	}
	reserve := l.reserve1
	if zeroForOne {
		reserve = l.reserve0
	}
	if reserve.IsZero() {
		reserve = l.liquidity
	}
	if !reserve.IsPositive() || reserve.LessThan(l.minReserve) {
		return l.max
	}
	ratio := fixedpoint.Decimal(amountIn).DivRound(reserve, divisionPrecision)
	return clamp(l.base.Add(ratio.Mul(l.factor)), l.max)
}

// OnSwapEvent refreshes reserves when the event reports them.
func (l *Linear) OnSwapEvent(evt model.SwapEvent) {
	if evt.ReserveA != nil {
		l.reserve0 = fixedpoint.Decimal(evt.ReserveA)
	}
	if evt.ReserveB != nil {
		l.reserve1 = fixedpoint.Decimal(evt.ReserveB)
	}
}

// SetPoolLiquidity sets the reserve proxy used until reserves are reported.
func (l *Linear) SetPoolLiquidity(liquidity *uint256.Int) {
	l.liquidity = fixedpoint.Decimal(liquidity)
}

func (l *Linear) MaxSlippage() decimal.Decimal { return l.max }

// CLMM approximates concentrated-liquidity price impact as
// amountIn/liquidity*scalingFactor, capped at max.
type CLMM struct {
	scalingFactor decimal.Decimal
	max           decimal.Decimal
	minLiquidity  decimal.Decimal
	liquidity     decimal.Decimal
}

func NewCLMM(scalingFactor, max, minLiquidity decimal.Decimal) (*CLMM, error) {
	if scalingFactor.IsNegative() {
		return nil, fmt.Errorf("clmm scaling factor must be >= 0, got %s", scalingFactor.String())
	}
	if err := validateFraction("clmm max", max); err != nil {
		return nil, err
	}
	return &CLMM{scalingFactor: scalingFactor, max: max, minLiquidity: minLiquidity}, nil
}

func (c *CLMM) SlippagePct(amountIn *uint256.Int, _ bool, _ decimal.Decimal) decimal.Decimal {
	if isEmpty(amountIn) {
		return decimal.Zero
	}
	if !c.liquidity.IsPositive() || c.liquidity.LessThan(c.minLiquidity) {
		return c.max
	}
	ratio := fixedpoint.Decimal(amountIn).DivRound(c.liquidity, divisionPrecision)
	return clamp(ratio.Mul(c.scalingFactor), c.max)
}

// OnSwapEvent tracks the reported in-range liquidity.
func (c *CLMM) OnSwapEvent(evt model.SwapEvent) {
	if evt.Liquidity != nil && !evt.Liquidity.IsZero() {
		c.liquidity = fixedpoint.Decimal(evt.Liquidity)
	}
}

func (c *CLMM) SetPoolLiquidity(liquidity *uint256.Int) {
	c.liquidity = fixedpoint.Decimal(liquidity)
}

func (c *CLMM) MaxSlippage() decimal.Decimal { return c.max }
