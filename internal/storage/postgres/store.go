package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityLab/internal/model"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS replay_runs (
	run_id          TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	input           TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	first_event_ms  BIGINT NOT NULL,
	last_event_ms   BIGINT NOT NULL,
	swaps           INTEGER NOT NULL,
	mints           INTEGER NOT NULL,
	burns           INTEGER NOT NULL,
	skipped         INTEGER NOT NULL,
	failed          INTEGER NOT NULL,
	final_value     NUMERIC,
	pnl             NUMERIC,
	fee_apr         NUMERIC,
	summary         JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS replay_snapshots (
	run_id             TEXT NOT NULL,
	ts_ms              BIGINT NOT NULL,
	sqrt_price_x64     NUMERIC NOT NULL,
	price              NUMERIC NOT NULL,
	tick               INTEGER NOT NULL,
	pool_liquidity     NUMERIC NOT NULL,
	cash0              NUMERIC NOT NULL,
	cash1              NUMERIC NOT NULL,
	position_amount0   NUMERIC NOT NULL,
	position_amount1   NUMERIC NOT NULL,
	fees_owed0         NUMERIC NOT NULL,
	fees_owed1         NUMERIC NOT NULL,
	value_in_token1    NUMERIC NOT NULL,
	open_positions     INTEGER NOT NULL,
	in_range_positions INTEGER NOT NULL,
	positions          JSONB,
	PRIMARY KEY (run_id, ts_ms)
);
`

const upsertSnapshotSQL = `
	INSERT INTO replay_snapshots (
		run_id, ts_ms, sqrt_price_x64, price, tick, pool_liquidity, cash0, cash1,
		position_amount0, position_amount1, fees_owed0, fees_owed1, value_in_token1,
		open_positions, in_range_positions, positions
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (run_id, ts_ms)
	DO UPDATE SET
		sqrt_price_x64 = EXCLUDED.sqrt_price_x64,
		price = EXCLUDED.price,
		tick = EXCLUDED.tick,
		pool_liquidity = EXCLUDED.pool_liquidity,
		cash0 = EXCLUDED.cash0,
		cash1 = EXCLUDED.cash1,
		position_amount0 = EXCLUDED.position_amount0,
		position_amount1 = EXCLUDED.position_amount1,
		fees_owed0 = EXCLUDED.fees_owed0,
		fees_owed1 = EXCLUDED.fees_owed1,
		value_in_token1 = EXCLUDED.value_in_token1,
		open_positions = EXCLUDED.open_positions,
		in_range_positions = EXCLUDED.in_range_positions,
		positions = EXCLUDED.positions
`

const upsertRunSQL = `
	INSERT INTO replay_runs (
		run_id, name, input, started_at, first_event_ms, last_event_ms,
		swaps, mints, burns, skipped, failed, final_value, pnl, fee_apr, summary,
		created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
	ON CONFLICT (run_id)
	DO UPDATE SET
		name = EXCLUDED.name,
		input = EXCLUDED.input,
		first_event_ms = EXCLUDED.first_event_ms,
		last_event_ms = EXCLUDED.last_event_ms,
		swaps = EXCLUDED.swaps,
		mints = EXCLUDED.mints,
		burns = EXCLUDED.burns,
		skipped = EXCLUDED.skipped,
		failed = EXCLUDED.failed,
		final_value = EXCLUDED.final_value,
		pnl = EXCLUDED.pnl,
		fee_apr = EXCLUDED.fee_apr,
		summary = EXCLUDED.summary,
		updated_at = now()
`

// Options tunes how writes are retried.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Store provides Postgres persistence for replay runs and snapshots.
type Store struct {
	pool *pgxpool.Pool
	opts Options
}

func NewStore(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, opts: opts}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// WriteSnapshots upserts a batch of snapshots keyed by run and timestamp.
func (s *Store) WriteSnapshots(ctx context.Context, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(snapshots))
	for _, snap := range snapshots {
		args, err := snapshotArgs(snap)
		if err != nil {
			return err
		}
		rows = append(rows, args)
	}

	return withRetry(ctx, s.opts.MaxRetries, s.opts.RetryBackoff, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, args := range rows {
			batch.Queue(upsertSnapshotSQL, args...)
		}

		br := s.pool.SendBatch(ctx, batch)
		defer br.Close()

		for range rows {
			if _, err := br.Exec(); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSummary upserts the run row.
func (s *Store) SaveSummary(ctx context.Context, summary model.RunSummary) error {
	args, err := runArgs(summary)
	if err != nil {
		return err
	}
	return withRetry(ctx, s.opts.MaxRetries, s.opts.RetryBackoff, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, upsertRunSQL, args...)
		return err
	})
}

// LoadSummary returns the stored summary of runID.
func (s *Store) LoadSummary(ctx context.Context, runID string) (model.RunSummary, bool, error) {
	var out model.RunSummary
	if runID == "" {
		return out, false, fmt.Errorf("run id required")
	}
	var raw []byte
	row := s.pool.QueryRow(ctx, `SELECT summary FROM replay_runs WHERE run_id=$1`, runID)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, false, nil
		}
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("parse summary: %w", err)
	}
	return out, true, nil
}

func snapshotArgs(snap model.Snapshot) ([]interface{}, error) {
	if snap.RunID == "" {
		return nil, fmt.Errorf("snapshot at %d has no run id", snap.Timestamp)
	}
	var positions []byte
	if len(snap.Positions) > 0 {
		encoded, err := json.Marshal(snap.Positions)
		if err != nil {
			return nil, fmt.Errorf("marshal positions: %w", err)
		}
		positions = encoded
	}
	return []interface{}{
		snap.RunID,
		snap.Timestamp,
		snap.SqrtPriceX64,
		snap.Price,
		snap.Tick,
		snap.PoolLiquidity,
		snap.Cash0,
		snap.Cash1,
		snap.PositionAmount0,
		snap.PositionAmount1,
		snap.FeesOwed0,
		snap.FeesOwed1,
		snap.ValueInToken1,
		snap.OpenPositions,
		snap.InRangePositions,
		positions,
	}, nil
}

func runArgs(summary model.RunSummary) ([]interface{}, error) {
	if summary.RunID == "" {
		return nil, fmt.Errorf("run id required")
	}
	encoded, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return []interface{}{
		summary.RunID,
		summary.Name,
		summary.Input,
		time.UnixMilli(summary.StartedAt).UTC(),
		summary.FirstEventAt,
		summary.LastEventAt,
		summary.Swaps,
		summary.Mints,
		summary.Burns,
		summary.Skipped,
		summary.Failed,
		nullableNumeric(summary.Metrics.FinalValue),
		nullableNumeric(summary.Metrics.PnL),
		nullableNumeric(summary.Metrics.FeeAPR),
		encoded,
	}, nil
}

func nullableNumeric(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
