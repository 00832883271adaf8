package replay

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
)

func TestNewPoolPrefersSeed(t *testing.T) {
	sqrt, err := fixedpoint.TickToSqrtPrice(600)
	require.NoError(t, err)
	meta := &model.PoolMeta{
		Fee:         500,
		TickSpacing: 10,
		Liquidity:   "123",
		Slot0:       &model.PoolSlot0{SqrtPriceX96: sqrtPriceX96One},
	}

	p, err := NewPool(PoolSeed{TickSpacing: 60, SqrtPrice: sqrt, Liquidity: uint256.NewInt(9)}, meta, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(60), p.TickSpacing())
	assert.Equal(t, uint32(500), p.FeePips())
	assert.Equal(t, int32(600), p.Tick())
	assert.Equal(t, "9", p.Liquidity().Dec())
}

func TestNewPoolFromMetadata(t *testing.T) {
	meta := &model.PoolMeta{
		Fee:         3000,
		TickSpacing: 60,
		Liquidity:   "123",
		Slot0:       &model.PoolSlot0{SqrtPriceX96: sqrtPriceX96One},
	}
	p, err := NewPool(PoolSeed{}, meta, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), p.Tick())
	assert.True(t, p.SqrtPrice().Eq(fixedpoint.Q64))
	assert.Equal(t, "123", p.Liquidity().Dec())
}

func TestNewPoolFromFirstSwap(t *testing.T) {
	before, err := fixedpoint.TickToSqrtPrice(-120)
	require.NoError(t, err)
	after, err := fixedpoint.TickToSqrtPrice(-60)
	require.NoError(t, err)

	first := model.SwapEvent{SqrtPriceBefore: before, SqrtPriceAfter: after, Liquidity: uint256.NewInt(77)}
	p, err := NewPool(PoolSeed{TickSpacing: 60, FeePips: 3000}, nil, first)
	require.NoError(t, err)
	assert.Equal(t, int32(-120), p.Tick())
	assert.Equal(t, "77", p.Liquidity().Dec())

	first.SqrtPriceBefore = nil
	p, err = NewPool(PoolSeed{TickSpacing: 60, FeePips: 3000}, nil, first)
	require.NoError(t, err)
	assert.Equal(t, int32(-60), p.Tick())
}

func TestNewPoolWithoutPrice(t *testing.T) {
	_, err := NewPool(PoolSeed{TickSpacing: 60}, nil, model.MintEvent{Lower: -60, Upper: 60})
	assert.ErrorIs(t, err, ErrNoInitialPrice)

	_, err = NewPool(PoolSeed{SqrtPrice: fixedpoint.Q64}, nil, nil)
	assert.Error(t, err, "missing tick spacing must fail")
}
