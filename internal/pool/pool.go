// Package pool holds the replayed state of one concentrated-liquidity pool:
// price, in-range liquidity, the tick ledger and fee growth counters.
//
// A Pool is owned by a single replay loop and is not safe for concurrent use.
package pool

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
)

// LiquiditySource selects how in-range liquidity follows historical swaps.
type LiquiditySource string

const (
	// LiquidityFromEvent trusts the liquidity reported by the swap and
	// estimates it from the price move only when the event carries none.
	LiquidityFromEvent LiquiditySource = "event"
	// LiquidityEstimated always derives liquidity from the realized price
	// impact, falling back to the reported value when the price did not move.
	LiquidityEstimated LiquiditySource = "estimate"
	// LiquidityFromLedger keeps the value maintained by the tick ledger.
	LiquidityFromLedger LiquiditySource = "ledger"
)

// ParseLiquiditySource maps a config string to a LiquiditySource.
func ParseLiquiditySource(value string) (LiquiditySource, error) {
	switch LiquiditySource(strings.ToLower(strings.TrimSpace(value))) {
	case "", LiquidityFromEvent:
		return LiquidityFromEvent, nil
	case LiquidityEstimated:
		return LiquidityEstimated, nil
	case LiquidityFromLedger:
		return LiquidityFromLedger, nil
	default:
		return "", fmt.Errorf("unknown liquidity source %q", value)
	}
}

// Config describes the immutable pool parameters.
type Config struct {
	TickSpacing     int32
	FeePips         uint32
	LiquiditySource LiquiditySource
}

// Pool is the replayed pool state.
type Pool struct {
	cfg Config

	sqrtPrice *uint256.Int
	tick      int32
	liquidity *uint256.Int

	feeGrowthGlobal0 *uint256.Int
	feeGrowthGlobal1 *uint256.Int

	reserve0 *uint256.Int
	reserve1 *uint256.Int

	ticks       map[int32]*TickInfo
	initialized []int32

	lastEventAt int64
}

// New creates a pool positioned at sqrtPrice (Q64.64) with no liquidity.
func New(cfg Config, sqrtPrice *uint256.Int) (*Pool, error) {
	if cfg.TickSpacing <= 0 {
		return nil, fmt.Errorf("tick spacing must be > 0, got %d", cfg.TickSpacing)
	}
	if cfg.FeePips >= fixedpoint.FeeDenominator {
		return nil, fmt.Errorf("fee %d ppm must be < %d", cfg.FeePips, fixedpoint.FeeDenominator)
	}
	source, err := ParseLiquiditySource(string(cfg.LiquiditySource))
	if err != nil {
		return nil, err
	}
	cfg.LiquiditySource = source

	tick, err := fixedpoint.SqrtPriceToTick(sqrtPrice)
	if err != nil {
		return nil, fmt.Errorf("initial price: %w", err)
	}

	return &Pool{
		cfg:              cfg,
		sqrtPrice:        sqrtPrice.Clone(),
		tick:             tick,
		liquidity:        new(uint256.Int),
		feeGrowthGlobal0: new(uint256.Int),
		feeGrowthGlobal1: new(uint256.Int),
		reserve0:         new(uint256.Int),
		reserve1:         new(uint256.Int),
		ticks:            make(map[int32]*TickInfo),
	}, nil
}

// NewAtTick creates a pool priced exactly at tick.
func NewAtTick(cfg Config, tick int32) (*Pool, error) {
	sqrtPrice, err := fixedpoint.TickToSqrtPrice(tick)
	if err != nil {
		return nil, err
	}
	return New(cfg, sqrtPrice)
}

func (p *Pool) SqrtPrice() *uint256.Int { return p.sqrtPrice.Clone() }
func (p *Pool) Tick() int32             { return p.tick }
func (p *Pool) Liquidity() *uint256.Int { return p.liquidity.Clone() }
func (p *Pool) TickSpacing() int32      { return p.cfg.TickSpacing }
func (p *Pool) FeePips() uint32         { return p.cfg.FeePips }
func (p *Pool) LastEventAt() int64      { return p.lastEventAt }

// Price returns token1 per token0 at the current sqrt price.
func (p *Pool) Price() decimal.Decimal {
	return fixedpoint.SqrtPriceToPrice(p.sqrtPrice)
}

// FeeGrowthGlobal returns the X128 fee growth counters for token0 and token1.
func (p *Pool) FeeGrowthGlobal() (*uint256.Int, *uint256.Int) {
	return p.feeGrowthGlobal0.Clone(), p.feeGrowthGlobal1.Clone()
}

// Reserves returns the last reserves reported by the event stream.
func (p *Pool) Reserves() (*uint256.Int, *uint256.Int) {
	return p.reserve0.Clone(), p.reserve1.Clone()
}

// SetLiquidity overrides the in-range liquidity, e.g. from a pool snapshot
// taken before the replay window.
func (p *Pool) SetLiquidity(liquidity *uint256.Int) {
	p.liquidity = fixedpoint.OrZero(liquidity).Clone()
}

// ApplySwapEvent folds a historical swap into the pool. Only an invalid sqrt
// price is rejected; other anomalies degrade to the closest sensible state.
func (p *Pool) ApplySwapEvent(evt model.SwapEvent) error {
	if err := fixedpoint.ValidateSqrtPrice(evt.SqrtPriceAfter); err != nil {
		return fmt.Errorf("apply swap: %w", err)
	}
	before := p.sqrtPrice
	if evt.SqrtPriceBefore != nil && !evt.SqrtPriceBefore.IsZero() {
		if err := fixedpoint.ValidateSqrtPrice(evt.SqrtPriceBefore); err != nil {
			return fmt.Errorf("apply swap: %w", err)
		}
		before = evt.SqrtPriceBefore
	}

	p.accrueFee(evt.FeeAmount, evt.ZeroForOne)

	if err := p.MoveTo(evt.SqrtPriceAfter); err != nil {
		return fmt.Errorf("apply swap: %w", err)
	}
	p.resolveLiquidity(evt, before)

	if evt.ReserveA != nil {
		p.reserve0 = evt.ReserveA.Clone()
	}
	if evt.ReserveB != nil {
		p.reserve1 = evt.ReserveB.Clone()
	}
	p.lastEventAt = evt.Timestamp
	return nil
}

// ApplyMintEvent adds historical liquidity to the ledger.
func (p *Pool) ApplyMintEvent(evt model.MintEvent) error {
	if err := p.AddLiquidity(evt.Lower, evt.Upper, fixedpoint.OrZero(evt.Amount)); err != nil {
		return fmt.Errorf("apply mint: %w", err)
	}
	p.lastEventAt = evt.Timestamp
	return nil
}

// ApplyBurnEvent removes historical liquidity from the ledger.
func (p *Pool) ApplyBurnEvent(evt model.BurnEvent) error {
	if err := p.RemoveLiquidity(evt.Lower, evt.Upper, fixedpoint.OrZero(evt.Amount)); err != nil {
		return fmt.Errorf("apply burn: %w", err)
	}
	p.lastEventAt = evt.Timestamp
	return nil
}

// MoveTo sets the price, crossing every initialized tick between the old and
// the new tick in order.
func (p *Pool) MoveTo(sqrtPrice *uint256.Int) error {
	newTick, err := fixedpoint.SqrtPriceToTick(sqrtPrice)
	if err != nil {
		return err
	}
	p.crossTo(newTick)
	p.sqrtPrice = sqrtPrice.Clone()
	return nil
}

func (p *Pool) accrueFee(fee *uint256.Int, zeroForOne bool) {
	if fee == nil || fee.IsZero() || p.liquidity.IsZero() {
		return
	}
	growth, overflow := new(uint256.Int).MulDivOverflow(fee, fixedpoint.Q128, p.liquidity)
	if overflow {
		return
	}
	if zeroForOne {
		p.feeGrowthGlobal0.Add(p.feeGrowthGlobal0, growth)
	} else {
		p.feeGrowthGlobal1.Add(p.feeGrowthGlobal1, growth)
	}
}

func (p *Pool) resolveLiquidity(evt model.SwapEvent, before *uint256.Int) {
	reported := evt.Liquidity != nil && !evt.Liquidity.IsZero()

	switch p.cfg.LiquiditySource {
	case LiquidityFromLedger:
		return
	case LiquidityEstimated:
		if estimated, ok := estimateLiquidity(evt, before); ok {
			p.liquidity = estimated
		} else if reported {
			p.liquidity = evt.Liquidity.Clone()
		}
	default:
		if reported {
			p.liquidity = evt.Liquidity.Clone()
		} else if estimated, ok := estimateLiquidity(evt, before); ok {
			p.liquidity = estimated
		}
	}
}

// estimateLiquidity recovers L from the output amount and the sqrt price move:
// L = out / Δ√P for token1 out, L = out / Δ(1/√P) for token0 out.
func estimateLiquidity(evt model.SwapEvent, before *uint256.Int) (*uint256.Int, bool) {
	after := evt.SqrtPriceAfter
	out := evt.AmountOut
	if out == nil || out.IsZero() || before.Eq(after) {
		return nil, false
	}

	if evt.ZeroForOne {
		if !after.Lt(before) {
			return nil, false
		}
		delta := new(uint256.Int).Sub(before, after)
		estimated, overflow := new(uint256.Int).MulDivOverflow(out, fixedpoint.Q64, delta)
		return estimated, !overflow
	}

	if !after.Gt(before) {
		return nil, false
	}
	delta := new(uint256.Int).Sub(after, before)
	product, overflow := new(uint256.Int).MulDivOverflow(before, after, fixedpoint.Q64)
	if overflow {
		return nil, false
	}
	estimated, overflow := new(uint256.Int).MulDivOverflow(out, product, delta)
	return estimated, !overflow
}
