package postgres

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/model"
)

func TestSnapshotArgs(t *testing.T) {
	snap := model.Snapshot{
		RunID:         "run-1",
		Timestamp:     1_700_000_000_000,
		SqrtPriceX64:  "18446744073709551616",
		Price:         "1",
		Tick:          -60,
		ValueInToken1: "2000",
		OpenPositions: 1,
	}
	args, err := snapshotArgs(snap)
	require.NoError(t, err)
	require.Len(t, args, strings.Count(upsertSnapshotSQL, "$"))
	assert.Equal(t, "run-1", args[0])
	assert.Equal(t, int64(1_700_000_000_000), args[1])
	assert.Equal(t, int32(-60), args[4])
	positions, _ := args[len(args)-1].([]byte)
	assert.Nil(t, positions)

	snap.Positions = []model.PositionSummary{{ID: "p1", Lower: -60, Upper: 60}}
	args, err = snapshotArgs(snap)
	require.NoError(t, err)
	var decoded []model.PositionSummary
	require.NoError(t, json.Unmarshal(args[len(args)-1].([]byte), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "p1", decoded[0].ID)

	_, err = snapshotArgs(model.Snapshot{})
	assert.Error(t, err, "missing run id")
}

func TestRunArgs(t *testing.T) {
	summary := model.RunSummary{
		RunID:     "run-1",
		Name:      "static",
		StartedAt: 1_700_000_000_000,
		Swaps:     3,
		Metrics:   model.Metrics{FinalValue: "10.5", PnL: "-1"},
	}
	args, err := runArgs(summary)
	require.NoError(t, err)
	require.Len(t, args, strings.Count(upsertRunSQL, "$"))

	started, ok := args[3].(time.Time)
	require.True(t, ok)
	assert.True(t, started.Equal(time.UnixMilli(1_700_000_000_000)))

	finalValue, ok := args[11].(*string)
	require.True(t, ok)
	require.NotNil(t, finalValue)
	assert.Equal(t, "10.5", *finalValue)

	feeAPR, ok := args[13].(*string)
	require.True(t, ok)
	assert.Nil(t, feeAPR, "empty fee apr is stored as NULL")

	var decoded model.RunSummary
	require.NoError(t, json.Unmarshal(args[14].([]byte), &decoded))
	assert.Equal(t, 3, decoded.Swaps)
	assert.Equal(t, "-1", decoded.Metrics.PnL)

	_, err = runArgs(model.RunSummary{})
	assert.Error(t, err, "missing run id")
}
