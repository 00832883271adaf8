package replay

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
	"liquidityLab/internal/pool"
)

// ErrNoInitialPrice is returned when neither configuration, pool metadata nor
// the first event fixes a starting price.
var ErrNoInitialPrice = errors.New("no initial price")

// PoolSeed carries explicit pool parameters; zero values defer to metadata.
type PoolSeed struct {
	TickSpacing     int32
	FeePips         uint32
	SqrtPrice       *uint256.Int
	Liquidity       *uint256.Int
	LiquiditySource pool.LiquiditySource
}

// NewPool builds the replay pool. Parameters resolve in order: seed, pool
// metadata, then the first event. The starting price prefers the first swap's
// pre-swap price and falls back to its post-swap price.
func NewPool(seed PoolSeed, meta *model.PoolMeta, first model.Event) (*pool.Pool, error) {
	cfg := pool.Config{
		TickSpacing:     seed.TickSpacing,
		FeePips:         seed.FeePips,
		LiquiditySource: seed.LiquiditySource,
	}
	if meta != nil {
		if cfg.TickSpacing == 0 {
			cfg.TickSpacing = meta.TickSpacing
		}
		if cfg.FeePips == 0 {
			cfg.FeePips = meta.Fee
		}
	}

	sqrtPrice, err := initialSqrtPrice(seed, meta, first)
	if err != nil {
		return nil, err
	}
	p, err := pool.New(cfg, sqrtPrice)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	liquidity := seed.Liquidity
	if liquidity == nil && meta != nil && meta.Liquidity != "" {
		if liquidity, err = parseAmount("pool liquidity", meta.Liquidity); err != nil {
			return nil, err
		}
	}
	if liquidity == nil {
		if swap, ok := first.(model.SwapEvent); ok && swap.Liquidity != nil {
			liquidity = swap.Liquidity
		}
	}
	if liquidity != nil {
		p.SetLiquidity(liquidity)
	}
	return p, nil
}

func initialSqrtPrice(seed PoolSeed, meta *model.PoolMeta, first model.Event) (*uint256.Int, error) {
	if seed.SqrtPrice != nil && !seed.SqrtPrice.IsZero() {
		return seed.SqrtPrice, nil
	}
	if meta != nil && meta.Slot0 != nil && meta.Slot0.SqrtPriceX96 != "" {
		x96, err := model.ParseBigInt(meta.Slot0.SqrtPriceX96)
		if err != nil {
			return nil, fmt.Errorf("parse slot0 sqrt price: %w", err)
		}
		return fixedpoint.X96ToQ64(x96)
	}
	if swap, ok := first.(model.SwapEvent); ok {
		if swap.SqrtPriceBefore != nil && !swap.SqrtPriceBefore.IsZero() {
			return swap.SqrtPriceBefore, nil
		}
		if swap.SqrtPriceAfter != nil && !swap.SqrtPriceAfter.IsZero() {
			return swap.SqrtPriceAfter, nil
		}
	}
	return nil, ErrNoInitialPrice
}
