package storage

import (
	"context"
	"fmt"
	"sync"

	"liquidityLab/internal/model"
)

// JSONLSink writes replay snapshots as JSON lines. Each batch is flushed
// before WriteSnapshots returns so a cancelled run keeps what it produced.
type JSONLSink struct {
	mu     sync.Mutex
	writer *JSONLWriter
}

func NewJSONLSink(path string, appendMode bool) (*JSONLSink, error) {
	writer, err := NewJSONLWriter(path, appendMode)
	if err != nil {
		return nil, fmt.Errorf("open snapshot sink: %w", err)
	}
	return &JSONLSink{writer: writer}, nil
}

// WriteSnapshots appends a batch of snapshots.
func (s *JSONLSink) WriteSnapshots(ctx context.Context, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		if err := s.writer.Write(snap); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	return s.writer.Flush()
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}
