package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"liquidityLab/internal/model"
)

// EventSource yields replay events in order and returns io.EOF when drained.
type EventSource interface {
	Next() (model.Event, error)
}

// Stats counts input lines the way the decode command reports them.
type Stats struct {
	Total   int
	Decoded int
	Skipped int
	Failed  int
}

// JSONLSource reads a JSONL stream holding either native replay events
// (lines with "type") or decoder output (lines with "event_name"). Malformed
// lines are counted and logged, never fatal.
type JSONLSource struct {
	scanner *bufio.Scanner
	logger  *zap.Logger
	stats   Stats
	meta    *model.PoolMeta
	peeked  model.Event
	line    int
}

func NewJSONLSource(r io.Reader, logger *zap.Logger) *JSONLSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	return &JSONLSource{scanner: scanner, logger: logger}
}

// Peek returns the next event without consuming it.
func (s *JSONLSource) Peek() (model.Event, error) {
	if s.peeked != nil {
		return s.peeked, nil
	}
	evt, err := s.read()
	if err != nil {
		return nil, err
	}
	s.peeked = evt
	return evt, nil
}

// Next returns the next decodable event.
func (s *JSONLSource) Next() (model.Event, error) {
	if s.peeked != nil {
		evt := s.peeked
		s.peeked = nil
		return evt, nil
	}
	return s.read()
}

// PoolMeta is the metadata of the first decoder record seen, if any.
func (s *JSONLSource) PoolMeta() (model.PoolMeta, bool) {
	if s.meta == nil {
		return model.PoolMeta{}, false
	}
	return *s.meta, true
}

func (s *JSONLSource) Stats() Stats { return s.stats }

func (s *JSONLSource) read() (model.Event, error) {
	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s.stats.Total++

		evt, err := s.decodeLine(line)
		if errors.Is(err, ErrUnsupportedEvent) {
			s.stats.Skipped++
			continue
		}
		if err != nil {
			s.stats.Failed++
			s.logger.Warn("decode replay event", zap.Int("line", s.line), zap.Error(err))
			continue
		}
		s.stats.Decoded++
		return evt, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return nil, io.EOF
}

func (s *JSONLSource) decodeLine(line []byte) (model.Event, error) {
	var head struct {
		Type      string `json:"type"`
		EventName string `json:"event_name"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, err
	}
	switch {
	case head.Type != "":
		return model.DecodeEvent(line)
	case head.EventName != "":
		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, err
		}
		if s.meta == nil {
			meta := record.PoolMeta
			s.meta = &meta
		}
		return ConvertRecord(record)
	default:
		return nil, fmt.Errorf("line has neither type nor event_name")
	}
}

// SliceSource replays an in-memory event list.
type SliceSource struct {
	events []model.Event
	pos    int
}

func NewSliceSource(events ...model.Event) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) Next() (model.Event, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	evt := s.events[s.pos]
	s.pos++
	return evt, nil
}
