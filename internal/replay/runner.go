package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"liquidityLab/internal/model"
	"liquidityLab/internal/position"
)

// ErrOutOfOrder aborts a replay whose timestamps go backwards.
var ErrOutOfOrder = errors.New("event out of order")

// SnapshotSink persists snapshots in batches.
type SnapshotSink interface {
	WriteSnapshots(ctx context.Context, snapshots []model.Snapshot) error
}

// SummaryRecorder persists the outcome of a finished run.
type SummaryRecorder interface {
	SaveSummary(ctx context.Context, summary model.RunSummary) error
}

// Config controls the replay loop. TickInterval is in milliseconds of event
// time; zero disables OnTick callbacks and periodic snapshots.
//
// Events before StartAt only move the pool: the strategy is initialised on
// the first event at or after it. Events after a non-zero EndAt end the run.
type Config struct {
	RunID         string
	RunName       string
	Input         string
	TickInterval  int64
	StartAt       int64
	EndAt         int64
	BatchSize     int
	WithPositions bool
	CloseAtEnd    bool
}

var runIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("liquiditylab:run"))

// DeriveRunID names a run after its input and settings. Replaying the same
// input with the same settings yields the same id, so sinks overwrite rather
// than duplicate.
func DeriveRunID(input string, settings ...string) string {
	key := strings.Join(append([]string{input}, settings...), "\x00")
	return uuid.NewSHA1(runIDSpace, []byte(key)).String()
}

// Runner replays an event stream through a position book.
type Runner struct {
	cfg      Config
	book     *position.Book
	strategy Strategy
	sinks    []SnapshotSink
	recorder SummaryRecorder
	logger   *zap.Logger

	pending []model.Snapshot
}

func NewRunner(cfg Config, book *position.Book, strategy Strategy, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy == nil {
		strategy = Passive{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.RunID == "" {
		cfg.RunID = DeriveRunID(cfg.Input,
			cfg.RunName,
			strconv.FormatInt(cfg.TickInterval, 10),
			strconv.FormatInt(cfg.StartAt, 10),
			strconv.FormatInt(cfg.EndAt, 10),
		)
	}
	return &Runner{
		cfg:      cfg,
		book:     book,
		strategy: strategy,
		logger:   logger,
	}
}

// AddSink registers a snapshot destination.
func (r *Runner) AddSink(sink SnapshotSink) {
	if sink != nil {
		r.sinks = append(r.sinks, sink)
	}
}

// SetRecorder registers where the final summary goes.
func (r *Runner) SetRecorder(recorder SummaryRecorder) { r.recorder = recorder }

func (r *Runner) RunID() string { return r.cfg.RunID }

// Run consumes src until EOF. Malformed events are the source's business;
// events the pool rejects are counted as failed and skipped. Cancellation is
// checked between events.
func (r *Runner) Run(ctx context.Context, src EventSource) (model.RunSummary, error) {
	if r.book == nil {
		return model.RunSummary{}, fmt.Errorf("runner requires a position book")
	}

	summary := model.RunSummary{
		RunID:     r.cfg.RunID,
		Name:      r.cfg.RunName,
		Input:     r.cfg.Input,
		StartedAt: time.Now().UnixMilli(),
	}
	r.logger.Info("replay start",
		zap.String("run_id", r.cfg.RunID),
		zap.String("input", r.cfg.Input),
		zap.Int64("tick_interval_ms", r.cfg.TickInterval),
	)

	started, seen := false, false
	var last, nextTick int64
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		evt, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}

		ts := evt.Time()
		if seen && ts < last {
			return summary, fmt.Errorf("%w: %d after %d", ErrOutOfOrder, ts, last)
		}
		if r.cfg.EndAt > 0 && ts > r.cfg.EndAt {
			break
		}
		seen = true

		if !started && ts < r.cfg.StartAt {
			r.warmUp(evt, &summary)
			last = ts
			continue
		}

		if !started {
			r.book.Advance(ts)
			if err := r.strategy.Init(r.book); err != nil {
				return summary, fmt.Errorf("strategy init: %w", err)
			}
			if err := r.snapshot(ctx); err != nil {
				return summary, err
			}
			summary.FirstEventAt = ts
			nextTick = ts + r.cfg.TickInterval
			started = true
		}

		if r.cfg.TickInterval > 0 && ts >= nextTick {
			r.book.Advance(nextTick)
			if err := r.strategy.OnTick(r.book, nextTick); err != nil {
				return summary, fmt.Errorf("strategy tick at %d: %w", nextTick, err)
			}
			if err := r.snapshot(ctx); err != nil {
				return summary, err
			}
			// quiet stretches fire one tick, then realign to the grid
			nextTick += ((ts-nextTick)/r.cfg.TickInterval + 1) * r.cfg.TickInterval
		}

		if err := r.apply(evt, &summary); err != nil {
			return summary, err
		}
		last = ts
	}

	if started {
		summary.LastEventAt = last
	} else {
		r.logger.Warn("replay window held no events", zap.String("input", r.cfg.Input))
	}

	if r.cfg.CloseAtEnd && started {
		if _, err := r.book.CloseAll(); err != nil {
			return summary, fmt.Errorf("close positions: %w", err)
		}
	}

	final := TakeSnapshot(r.book, r.cfg.RunID, r.cfg.WithPositions)
	r.pending = append(r.pending, final)
	if err := r.flush(ctx); err != nil {
		return summary, err
	}

	summary.Final = final
	summary.Metrics = ComputeMetrics(r.book.Totals(), r.book.Price(), summary.LastEventAt-summary.FirstEventAt)
	if stats, ok := src.(interface{ Stats() Stats }); ok {
		s := stats.Stats()
		summary.Skipped = s.Skipped
		summary.Failed += s.Failed
	}

	if r.recorder != nil {
		if err := r.recorder.SaveSummary(ctx, summary); err != nil {
			return summary, fmt.Errorf("save summary: %w", err)
		}
	}

	r.logger.Info("replay complete",
		zap.String("run_id", summary.RunID),
		zap.Int("swaps", summary.Swaps),
		zap.Int("mints", summary.Mints),
		zap.Int("burns", summary.Burns),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.String("final_value", summary.Metrics.FinalValue),
		zap.String("pnl", summary.Metrics.PnL),
		zap.String("fee_apr", summary.Metrics.FeeAPR),
	)
	return summary, nil
}

func (r *Runner) apply(evt model.Event, summary *model.RunSummary) error {
	var err error
	switch e := evt.(type) {
	case model.SwapEvent:
		dist, applyErr := r.book.OnSwapEvent(e)
		if err = applyErr; err == nil {
			summary.Swaps++
			if err := r.strategy.OnSwap(r.book, e, dist); err != nil {
				return fmt.Errorf("strategy swap at %d: %w", e.Timestamp, err)
			}
		}
	case model.MintEvent:
		if err = r.book.OnMintEvent(e); err == nil {
			summary.Mints++
		}
	case model.BurnEvent:
		if err = r.book.OnBurnEvent(e); err == nil {
			summary.Burns++
		}
	default:
		err = fmt.Errorf("unknown event kind %q", evt.Kind())
	}
	if err != nil {
		summary.Failed++
		r.logger.Warn("apply replay event",
			zap.String("kind", string(evt.Kind())),
			zap.Int64("timestamp", evt.Time()),
			zap.Error(err),
		)
	}
	return nil
}

// warmUp applies a pre-window event to the pool without involving the
// strategy. Nothing is held yet, so the book has nothing to accrue.
func (r *Runner) warmUp(evt model.Event, summary *model.RunSummary) {
	var err error
	switch e := evt.(type) {
	case model.SwapEvent:
		_, err = r.book.OnSwapEvent(e)
	case model.MintEvent:
		err = r.book.OnMintEvent(e)
	case model.BurnEvent:
		err = r.book.OnBurnEvent(e)
	}
	if err != nil {
		summary.Failed++
		r.logger.Warn("apply warm-up event", zap.Int64("timestamp", evt.Time()), zap.Error(err))
		return
	}
	summary.WarmUp++
}

func (r *Runner) snapshot(ctx context.Context) error {
	r.pending = append(r.pending, TakeSnapshot(r.book, r.cfg.RunID, r.cfg.WithPositions))
	if len(r.pending) < r.cfg.BatchSize {
		return nil
	}
	return r.flush(ctx)
}

func (r *Runner) flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	for _, sink := range r.sinks {
		if err := sink.WriteSnapshots(ctx, r.pending); err != nil {
			return fmt.Errorf("write snapshots: %w", err)
		}
	}
	r.pending = r.pending[:0]
	return nil
}
