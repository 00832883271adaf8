package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLab/internal/config"
	"liquidityLab/internal/dex"
	"liquidityLab/internal/model"
	"liquidityLab/internal/replay"
)

type stubDecoder struct{}

func (stubDecoder) CanDecode(topic0 string) bool { return topic0 == "0xswap" }

func (stubDecoder) Decode(log model.LogRecord, _ dex.DecodeContext) (*model.TypedEvent, error) {
	if log.Data == "bad" {
		return nil, errors.New("bad data")
	}
	return &model.TypedEvent{EventName: model.EventSwap}, nil
}

type memoryWriter struct {
	values []interface{}
}

func (w *memoryWriter) Write(value interface{}) error {
	w.values = append(w.values, value)
	return nil
}

func TestDecodeLogs(t *testing.T) {
	input := strings.Join([]string{
		`{"topics":["0xswap"],"data":"ok","block_number":1}`,
		``,
		`not json`,
		`{"topics":[],"block_number":2}`,
		`{"topics":["0xcollect"],"block_number":3}`,
		`{"topics":["0xswap"],"data":"bad","block_number":4,"tx_hash":"0xfeed"}`,
	}, "\n")

	out, errs := &memoryWriter{}, &memoryWriter{}
	stats, err := decodeLogs(context.Background(), strings.NewReader(input), stubDecoder{}, dex.DecodeContext{}, out, errs)
	require.NoError(t, err)
	assert.Equal(t, replay.Stats{Total: 5, Decoded: 1, Skipped: 1, Failed: 3}, stats)
	assert.Len(t, out.values, 1)
	require.Len(t, errs.values, 3)

	last, ok := errs.values[2].(model.DecodeError)
	require.True(t, ok, "got %T", errs.values[2])
	assert.Equal(t, uint64(4), last.BlockNumber)
	assert.Equal(t, "0xfeed", last.TxHash)
	assert.Equal(t, "bad data", last.Error)
}

func TestDecodeLogsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := decodeLogs(ctx, strings.NewReader(`{"topics":["0xswap"]}`), stubDecoder{}, dex.DecodeContext{}, &memoryWriter{}, &memoryWriter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildRegistry(t *testing.T) {
	registry, err := buildRegistry(config.DecodeConfig{DefaultPool: "500/10"})
	require.NoError(t, err)
	meta, ok := registry.Lookup([20]byte{1})
	require.True(t, ok)
	assert.Equal(t, uint32(500), meta.Fee)
	assert.Equal(t, int32(10), meta.TickSpacing)

	_, err = buildRegistry(config.DecodeConfig{DefaultPool: "500"})
	assert.Error(t, err, "invalid default pool")
}
