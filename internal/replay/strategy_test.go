package replay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeStrategyRange(t *testing.T) {
	cases := []struct {
		width, tick, spacing int32
		lower, upper         int32
	}{
		{600, 0, 60, -300, 300},
		{100, 17, 10, -30, 70},
		{10, 0, 60, 0, 60},
	}
	for _, tc := range cases {
		s := &RangeStrategy{Width: tc.width}
		lower, upper := s.Range(tc.tick, tc.spacing)
		assert.Equal(t, tc.lower, lower, "width %d tick %d", tc.width, tc.tick)
		assert.Equal(t, tc.upper, upper, "width %d tick %d", tc.width, tc.tick)
	}
}

func TestRangeStrategyInitOpensCenteredPosition(t *testing.T) {
	book := newReplayBook(t)
	s := &RangeStrategy{Width: 600, Amount0: u(1_000_000), Amount1: u(1_000_000)}
	require.NoError(t, s.Init(book))

	open := book.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, int32(-300), open[0].Lower)
	assert.Equal(t, int32(300), open[0].Upper)
	assert.False(t, open[0].Liquidity.IsZero())

	assert.Error(t, (&RangeStrategy{}).Init(newReplayBook(t)))
}

func TestRangeStrategyRecenters(t *testing.T) {
	book := newReplayBook(t)
	s := &RangeStrategy{Width: 120, Amount0: u(1_000_000), Amount1: u(1_000_000), Recenter: true}
	runner := NewRunner(Config{TickInterval: 1000}, book, s, nil)

	_, err := runner.Run(context.Background(), NewSliceSource(
		swapTo(t, 1000, 200, 10, false),
		swapTo(t, 2000, 210, 10, false),
	))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Rebalances)
	open := book.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, int32(120), open[0].Lower)
	assert.Equal(t, int32(240), open[0].Upper)
	assert.Len(t, book.Positions(), 2)
}
