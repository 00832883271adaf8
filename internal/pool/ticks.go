package pool

import (
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"liquidityLab/internal/fixedpoint"
)

// TickInfo is the ledger entry of an initialized tick.
type TickInfo struct {
	LiquidityGross    *uint256.Int
	LiquidityNet      *big.Int
	FeeGrowthOutside0 *uint256.Int
	FeeGrowthOutside1 *uint256.Int
}

func (t *TickInfo) clone() TickInfo {
	return TickInfo{
		LiquidityGross:    t.LiquidityGross.Clone(),
		LiquidityNet:      new(big.Int).Set(t.LiquidityNet),
		FeeGrowthOutside0: t.FeeGrowthOutside0.Clone(),
		FeeGrowthOutside1: t.FeeGrowthOutside1.Clone(),
	}
}

// TickInfo returns a copy of the ledger entry at tick.
func (p *Pool) TickInfo(tick int32) (TickInfo, bool) {
	info, ok := p.ticks[tick]
	if !ok {
		return TickInfo{}, false
	}
	return info.clone(), true
}

// InitializedTicks lists ledger ticks in ascending order.
func (p *Pool) InitializedTicks() []int32 {
	out := make([]int32, len(p.initialized))
	copy(out, p.initialized)
	return out
}

// AddLiquidity credits amount to the range [lower, upper).
func (p *Pool) AddLiquidity(lower, upper int32, amount *uint256.Int) error {
	return p.ApplyLiquidityDelta(lower, upper, amount.ToBig())
}

// RemoveLiquidity debits amount from the range [lower, upper).
func (p *Pool) RemoveLiquidity(lower, upper int32, amount *uint256.Int) error {
	return p.ApplyLiquidityDelta(lower, upper, new(big.Int).Neg(amount.ToBig()))
}

// ApplyLiquidityDelta updates liquidityNet at lower (+delta) and upper
// (-delta), and the in-range liquidity when the current tick is inside the
// range. Removing more than the ledger holds saturates at zero, which happens
// when a burn refers to liquidity minted before the replay window.
func (p *Pool) ApplyLiquidityDelta(lower, upper int32, delta *big.Int) error {
	if err := fixedpoint.ValidateRange(lower, upper, p.cfg.TickSpacing); err != nil {
		return err
	}
	if delta.Sign() == 0 {
		return nil
	}

	p.updateTick(lower, delta, false)
	p.updateTick(upper, delta, true)

	if lower <= p.tick && p.tick < upper {
		p.liquidity = addSigned(p.liquidity, delta)
	}
	return nil
}

func (p *Pool) updateTick(tick int32, delta *big.Int, upper bool) {
	info, ok := p.ticks[tick]
	if !ok {
		info = &TickInfo{
			LiquidityGross:    new(uint256.Int),
			LiquidityNet:      new(big.Int),
			FeeGrowthOutside0: new(uint256.Int),
			FeeGrowthOutside1: new(uint256.Int),
		}
		// By convention all growth before initialization happened below the tick.
		if tick <= p.tick {
			info.FeeGrowthOutside0.Set(p.feeGrowthGlobal0)
			info.FeeGrowthOutside1.Set(p.feeGrowthGlobal1)
		}
		p.ticks[tick] = info
		p.insertInitialized(tick)
	}

	info.LiquidityGross = addSigned(info.LiquidityGross, delta)
	if upper {
		info.LiquidityNet.Sub(info.LiquidityNet, delta)
	} else {
		info.LiquidityNet.Add(info.LiquidityNet, delta)
	}

	if info.LiquidityGross.IsZero() && info.LiquidityNet.Sign() == 0 {
		delete(p.ticks, tick)
		p.removeInitialized(tick)
	}
}

// crossTo walks the ledger from the current tick to newTick, crossing each
// initialized tick on the way.
func (p *Pool) crossTo(newTick int32) {
	switch {
	case newTick > p.tick:
		i := sort.Search(len(p.initialized), func(i int) bool { return p.initialized[i] > p.tick })
		for ; i < len(p.initialized) && p.initialized[i] <= newTick; i++ {
			p.crossTick(p.initialized[i], true)
		}
	case newTick < p.tick:
		i := sort.Search(len(p.initialized), func(i int) bool { return p.initialized[i] > p.tick }) - 1
		for ; i >= 0 && p.initialized[i] > newTick; i-- {
			p.crossTick(p.initialized[i], false)
		}
	}
	p.tick = newTick
}

// crossTick flips the outside fee growth of tick and applies its net
// liquidity in the direction of travel.
func (p *Pool) crossTick(tick int32, upward bool) {
	info, ok := p.ticks[tick]
	if !ok {
		return
	}
	info.FeeGrowthOutside0 = new(uint256.Int).Sub(p.feeGrowthGlobal0, info.FeeGrowthOutside0)
	info.FeeGrowthOutside1 = new(uint256.Int).Sub(p.feeGrowthGlobal1, info.FeeGrowthOutside1)

	if upward {
		p.liquidity = addSigned(p.liquidity, info.LiquidityNet)
	} else {
		p.liquidity = addSigned(p.liquidity, new(big.Int).Neg(info.LiquidityNet))
	}
}

// FeeGrowthOutside returns the outside counters of tick, zero when uninitialized.
func (p *Pool) FeeGrowthOutside(tick int32) (*uint256.Int, *uint256.Int) {
	info, ok := p.ticks[tick]
	if !ok {
		return new(uint256.Int), new(uint256.Int)
	}
	return info.FeeGrowthOutside0.Clone(), info.FeeGrowthOutside1.Clone()
}

// FeeGrowthBelow returns the fee growth accrued while the price was below tick.
func (p *Pool) FeeGrowthBelow(tick int32) (*uint256.Int, *uint256.Int) {
	out0, out1 := p.FeeGrowthOutside(tick)
	if p.tick >= tick {
		return out0, out1
	}
	return out0.Sub(p.feeGrowthGlobal0, out0), out1.Sub(p.feeGrowthGlobal1, out1)
}

// FeeGrowthAbove returns the fee growth accrued while the price was at or above tick.
func (p *Pool) FeeGrowthAbove(tick int32) (*uint256.Int, *uint256.Int) {
	out0, out1 := p.FeeGrowthOutside(tick)
	if p.tick < tick {
		return out0, out1
	}
	return out0.Sub(p.feeGrowthGlobal0, out0), out1.Sub(p.feeGrowthGlobal1, out1)
}

// FeeGrowthInside returns the X128 fee growth per unit of liquidity accrued
// inside [lower, upper). Arithmetic wraps modulo 2^256.
func (p *Pool) FeeGrowthInside(lower, upper int32) (*uint256.Int, *uint256.Int) {
	below0, below1 := p.FeeGrowthBelow(lower)
	above0, above1 := p.FeeGrowthAbove(upper)

	inside0 := new(uint256.Int).Sub(p.feeGrowthGlobal0, below0)
	inside0.Sub(inside0, above0)
	inside1 := new(uint256.Int).Sub(p.feeGrowthGlobal1, below1)
	inside1.Sub(inside1, above1)
	return inside0, inside1
}

func (p *Pool) insertInitialized(tick int32) {
	i := sort.Search(len(p.initialized), func(i int) bool { return p.initialized[i] >= tick })
	p.initialized = append(p.initialized, 0)
	copy(p.initialized[i+1:], p.initialized[i:])
	p.initialized[i] = tick
}

func (p *Pool) removeInitialized(tick int32) {
	i := sort.Search(len(p.initialized), func(i int) bool { return p.initialized[i] >= tick })
	if i < len(p.initialized) && p.initialized[i] == tick {
		p.initialized = append(p.initialized[:i], p.initialized[i+1:]...)
	}
}

// addSigned returns max(v + delta, 0).
func addSigned(v *uint256.Int, delta *big.Int) *uint256.Int {
	sum := new(big.Int).Add(v.ToBig(), delta)
	if sum.Sign() <= 0 {
		return new(uint256.Int)
	}
	out, overflow := uint256.FromBig(sum)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}
