package liquidity

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/fixedpoint"
)

func sqrtAt(t *testing.T, tick int32) *uint256.Int {
	t.Helper()
	v, err := fixedpoint.TickToSqrtPrice(tick)
	require.NoError(t, err)
	return v
}

// relErrPPM returns |got-want|/want in parts per million.
func relErrPPM(got, want *uint256.Int) uint64 {
	if want.IsZero() {
		return got.Uint64()
	}
	diff := new(uint256.Int)
	if got.Gt(want) {
		diff.Sub(got, want)
	} else {
		diff.Sub(want, got)
	}
	return fixedpoint.MulDiv(diff, uint256.NewInt(1_000_000), want).Uint64()
}

func TestForAmountsSymmetricRange(t *testing.T) {
	liq := ForAmounts(sqrtAt(t, 0), sqrtAt(t, -120), sqrtAt(t, 120), uint256.NewInt(500_000), uint256.NewInt(500_000))
	assert.Equal(t, uint64(83587749), liq.Uint64())

	amount0, amount1 := AmountsFor(sqrtAt(t, 0), sqrtAt(t, -120), sqrtAt(t, 120), liq)
	assert.Equal(t, uint64(499999), amount0.Uint64())
	assert.Equal(t, uint64(499999), amount1.Uint64())
}

func TestRoundTripAllRegions(t *testing.T) {
	cases := []struct {
		name               string
		tick, lower, upper int32
		amount0, amount1   uint64
		want0, want1       uint64
	}{
		{name: "above price", tick: 0, lower: 120, upper: 600, amount0: 1_000_000, want0: 1_000_000},
		{name: "below price", tick: 0, lower: -600, upper: -120, amount1: 1_000_000, want1: 1_000_000},
		{name: "in range", tick: 0, lower: -600, upper: 600, amount0: 1_000_000, amount1: 2_000_000, want0: 1_000_000, want1: 1_000_000},
		{name: "large amounts", tick: -3000, lower: -600, upper: 600, amount0: 1_000_000_000_000_000_000, want0: 1_000_000_000_000_000_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sqrtPrice, sqrtA, sqrtB := sqrtAt(t, tc.tick), sqrtAt(t, tc.lower), sqrtAt(t, tc.upper)
			liq := ForAmounts(sqrtPrice, sqrtA, sqrtB, uint256.NewInt(tc.amount0), uint256.NewInt(tc.amount1))
			require.False(t, liq.IsZero())

			amount0, amount1 := AmountsFor(sqrtPrice, sqrtA, sqrtB, liq)
			assert.LessOrEqual(t, relErrPPM(amount0, uint256.NewInt(tc.want0)), uint64(100))
			assert.LessOrEqual(t, relErrPPM(amount1, uint256.NewInt(tc.want1)), uint64(100))
			assert.True(t, amount0.Cmp(uint256.NewInt(tc.amount0)) <= 0)
			assert.True(t, amount1.Cmp(uint256.NewInt(tc.amount1)) <= 0)
		})
	}
}

func TestAmountDeltaRounding(t *testing.T) {
	sqrtA, sqrtB := sqrtAt(t, -60), sqrtAt(t, 60)
	liq := uint256.NewInt(123_456_789)

	down := Amount0Delta(sqrtA, sqrtB, liq, false)
	up := Amount0Delta(sqrtB, sqrtA, liq, true)
	assert.True(t, up.Cmp(down) >= 0)
	assert.LessOrEqual(t, new(uint256.Int).Sub(up, down).Uint64(), uint64(1))

	down = Amount1Delta(sqrtA, sqrtB, liq, false)
	up = Amount1Delta(sqrtA, sqrtB, liq, true)
	assert.LessOrEqual(t, new(uint256.Int).Sub(up, down).Uint64(), uint64(1))
}

func TestDegenerateInterval(t *testing.T) {
	sqrtPrice := sqrtAt(t, 0)
	assert.True(t, ForAmount0(sqrtPrice, sqrtPrice, uint256.NewInt(10)).IsZero())
	assert.True(t, ForAmount1(sqrtPrice, sqrtPrice, uint256.NewInt(10)).IsZero())
	assert.True(t, Amount0Delta(sqrtPrice, sqrtPrice, uint256.NewInt(10), true).IsZero())
}
