package slippage

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/model"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCLMMScalesWithLiquidity(t *testing.T) {
	m, err := NewCLMM(dec(t, "0.1"), dec(t, "0.05"), decimal.NewFromInt(1))
	require.NoError(t, err)
	m.SetPoolLiquidity(uint256.NewInt(1_000_000_000_000_000_000))

	pct := m.SlippagePct(uint256.NewInt(100_000_000_000_000_000), true, decimal.NewFromInt(1))
	assert.True(t, pct.Equal(dec(t, "0.01")), "got %s", pct)

	capped, err := NewCLMM(dec(t, "0.1"), dec(t, "0.005"), decimal.NewFromInt(1))
	require.NoError(t, err)
	capped.SetPoolLiquidity(uint256.NewInt(1_000_000_000_000_000_000))
	pct = capped.SlippagePct(uint256.NewInt(100_000_000_000_000_000), true, decimal.NewFromInt(1))
	assert.True(t, pct.Equal(dec(t, "0.005")), "got %s", pct)
}

func TestCLMMBelowMinLiquidityReturnsMax(t *testing.T) {
	m, err := NewCLMM(dec(t, "0.1"), dec(t, "0.05"), decimal.NewFromInt(1000))
	require.NoError(t, err)

	pct := m.SlippagePct(uint256.NewInt(1), false, decimal.Zero)
	assert.True(t, pct.Equal(dec(t, "0.05")), "no liquidity: %s", pct)

	m.SetPoolLiquidity(uint256.NewInt(999))
	pct = m.SlippagePct(uint256.NewInt(1), false, decimal.Zero)
	assert.True(t, pct.Equal(dec(t, "0.05")), "thin pool: %s", pct)

	m.OnSwapEvent(model.SwapEvent{Liquidity: uint256.NewInt(10_000)})
	pct = m.SlippagePct(uint256.NewInt(1000), false, decimal.Zero)
	assert.True(t, pct.Equal(dec(t, "0.01")), "after event: %s", pct)
}

func TestModelsAreMonotoneAndBounded(t *testing.T) {
	fixed, err := NewFixed(dec(t, "0.003"))
	require.NoError(t, err)
	linear, err := NewLinear(dec(t, "0.001"), dec(t, "0.5"), dec(t, "0.1"), decimal.NewFromInt(1))
	require.NoError(t, err)
	linear.OnSwapEvent(model.SwapEvent{ReserveA: uint256.NewInt(1_000_000), ReserveB: uint256.NewInt(2_000_000)})
	clmm, err := NewCLMM(dec(t, "0.1"), dec(t, "0.05"), decimal.NewFromInt(1))
	require.NoError(t, err)
	clmm.SetPoolLiquidity(uint256.NewInt(1_000_000))

	models := map[string]Model{"fixed": fixed, "linear": linear, "clmm": clmm}
	for name, m := range models {
		for _, zeroForOne := range []bool{true, false} {
			assert.True(t, m.SlippagePct(uint256.NewInt(0), zeroForOne, decimal.Zero).IsZero(), name)
			assert.True(t, m.SlippagePct(nil, zeroForOne, decimal.Zero).IsZero(), name)

			prev := decimal.Zero
			for amount := uint64(1); amount <= 100_000_000; amount *= 10 {
				pct := m.SlippagePct(uint256.NewInt(amount), zeroForOne, decimal.Zero)
				assert.False(t, pct.LessThan(prev), "%s not monotone at %d", name, amount)
				assert.False(t, pct.IsNegative(), name)
				assert.False(t, pct.GreaterThan(m.MaxSlippage()), "%s above max at %d", name, amount)
				prev = pct
			}
		}
	}
}

func TestLinearUsesInputReserve(t *testing.T) {
	m, err := NewLinear(decimal.Zero, decimal.NewFromInt(1), dec(t, "0.5"), decimal.NewFromInt(1))
	require.NoError(t, err)
	m.OnSwapEvent(model.SwapEvent{ReserveA: uint256.NewInt(1_000), ReserveB: uint256.NewInt(10_000)})

	assert.True(t, m.SlippagePct(uint256.NewInt(100), true, decimal.Zero).Equal(dec(t, "0.1")))
	assert.True(t, m.SlippagePct(uint256.NewInt(100), false, decimal.Zero).Equal(dec(t, "0.01")))
}

func TestLinearFallsBackToLiquidity(t *testing.T) {
	m, err := NewLinear(decimal.Zero, decimal.NewFromInt(1), dec(t, "0.5"), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, m.SlippagePct(uint256.NewInt(100), true, decimal.Zero).Equal(dec(t, "0.5")))

	m.SetPoolLiquidity(uint256.NewInt(4_000))
	assert.True(t, m.SlippagePct(uint256.NewInt(100), true, decimal.Zero).Equal(dec(t, "0.025")))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Kind: KindFixed, Pct: dec(t, "1.5")})
	assert.Error(t, err)
	_, err = New(Config{Kind: KindCLMM, ScalingFactor: dec(t, "-1"), Max: dec(t, "0.05")})
	assert.Error(t, err)
	_, err = New(Config{Kind: KindLinear, Base: dec(t, "0.2"), Max: dec(t, "0.1")})
	assert.Error(t, err)
	_, err = New(Config{Kind: "quadratic"})
	assert.Error(t, err)

	m, err := New(Config{Kind: "CLMM", ScalingFactor: dec(t, "0.1"), Max: dec(t, "0.05")})
	require.NoError(t, err)
	_, ok := m.(*CLMM)
	assert.True(t, ok)
}
