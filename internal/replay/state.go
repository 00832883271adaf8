package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"liquidityLab/internal/model"
)

// FileSummaryStore keeps the latest run summary in a local JSON file,
// replacing it atomically.
type FileSummaryStore struct {
	Path string
}

func (s *FileSummaryStore) SaveSummary(ctx context.Context, summary model.RunSummary) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write summary tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename summary: %w", err)
	}
	return nil
}

// LoadSummary reads a summary written by SaveSummary; ok is false when the
// file does not exist yet.
func (s *FileSummaryStore) LoadSummary(ctx context.Context) (model.RunSummary, bool, error) {
	var out model.RunSummary
	if s == nil || s.Path == "" {
		return out, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, false, nil
		}
		return out, false, fmt.Errorf("read summary: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, fmt.Errorf("parse summary: %w", err)
	}
	return out, true, nil
}

// MultiRecorder fans a summary out to several recorders.
type MultiRecorder []SummaryRecorder

func (m MultiRecorder) SaveSummary(ctx context.Context, summary model.RunSummary) error {
	for _, rec := range m {
		if rec == nil {
			continue
		}
		if err := rec.SaveSummary(ctx, summary); err != nil {
			return err
		}
	}
	return nil
}
