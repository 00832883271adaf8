package dex

import (
	"go.uber.org/zap"

	"liquidityLab/internal/model"
)

// Decoder turns raw pool logs into typed events.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// DecodeContext provides shared dependencies for decoders. Decoding never
// touches the network; pool metadata comes from Pools.
type DecodeContext struct {
	Pools  *PoolRegistry
	Logger *zap.Logger
}

func (c DecodeContext) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
