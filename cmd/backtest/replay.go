package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLab/internal/config"
	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
	"liquidityLab/internal/position"
	"liquidityLab/internal/replay"
	"liquidityLab/internal/slippage"
	"liquidityLab/internal/storage"
	"liquidityLab/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	if cfg.RunID == "" {
		cfg.RunID = defaultRunID(cfg)
	}

	src := replay.NewJSONLSource(inputFile, logger)
	book, err := buildBook(cfg, src, logger)
	if err != nil {
		return err
	}

	runner := replay.NewRunner(replay.Config{
		RunID:         cfg.RunID,
		RunName:       cfg.RunName,
		Input:         cfg.In,
		TickInterval:  cfg.TickIntervalMillis(),
		StartAt:       cfg.StartAt,
		EndAt:         cfg.EndAt,
		BatchSize:     cfg.BatchSize,
		WithPositions: cfg.WithPositions,
		CloseAtEnd:    cfg.CloseAtEnd,
	}, book, buildStrategy(cfg), logger)

	var recorders replay.MultiRecorder
	if cfg.Out != "" {
		sink, err := storage.NewJSONLSink(cfg.Out, false)
		if err != nil {
			return err
		}
		defer sink.Close()
		runner.AddSink(sink)
	}
	if cfg.SummaryFile != "" {
		recorders = append(recorders, &replay.FileSummaryStore{Path: cfg.SummaryFile})
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, postgres.Options{
			MaxRetries:   cfg.PGMaxRetries,
			RetryBackoff: cfg.PGRetryBackoff,
		})
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		runner.AddSink(store)
		recorders = append(recorders, store)
	}
	runner.SetRecorder(recorders)

	logger.Info("replay configured",
		zap.String("run_id", runner.RunID()),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("summary_file", cfg.SummaryFile),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int32("tick_spacing", book.TickSpacing()),
		zap.Int32("tick", book.Tick()),
		zap.String("slippage_model", string(cfg.Slippage.Kind)),
		zap.String("share_mode", string(cfg.Fees.ShareMode)),
	)

	_, err = runner.Run(ctx, src)
	return err
}

// buildBook seeds the pool from configuration, falling back to the input's
// own metadata and first event.
func buildBook(cfg config.ReplayConfig, src *replay.JSONLSource, logger *zap.Logger) (*position.Book, error) {
	first, err := src.Peek()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read first event: %w", err)
	}

	seed := replay.PoolSeed{
		TickSpacing:     cfg.TickSpacing,
		FeePips:         cfg.FeePips,
		Liquidity:       cfg.PoolLiquidity,
		LiquiditySource: cfg.LiquiditySource,
	}
	if cfg.Price.IsPositive() {
		if seed.SqrtPrice, err = fixedpoint.PriceToSqrtPrice(cfg.Price); err != nil {
			return nil, fmt.Errorf("initial price: %w", err)
		}
	}

	var meta *model.PoolMeta
	if m, ok := src.PoolMeta(); ok {
		meta = &m
	}

	p, err := replay.NewPool(seed, meta, first)
	if err != nil {
		return nil, fmt.Errorf("initialise pool: %w", err)
	}

	slip, err := slippage.New(cfg.Slippage)
	if err != nil {
		return nil, err
	}

	return position.NewBook(p, slip, position.Config{
		MinSwap: cfg.MinSwap,
		Fees:    cfg.Fees,
		IDSeed:  cfg.RunID,
	}, logger)
}

// buildStrategy runs a range strategy when a budget is configured and a
// passive observer otherwise.
func buildStrategy(cfg config.ReplayConfig) replay.Strategy {
	if fixedpoint.OrZero(cfg.Deposit0).IsZero() && fixedpoint.OrZero(cfg.Deposit1).IsZero() {
		return replay.Passive{}
	}
	return &replay.RangeStrategy{
		Width:    cfg.RangeWidth,
		Amount0:  fixedpoint.OrZero(cfg.Deposit0),
		Amount1:  fixedpoint.OrZero(cfg.Deposit1),
		Recenter: cfg.Recenter,
	}
}

// defaultRunID derives the run id from the input path and every knob that
// changes the outcome, so a rerun overwrites its own rows.
func defaultRunID(cfg config.ReplayConfig) string {
	return replay.DeriveRunID(cfg.In,
		cfg.RunName,
		fmt.Sprintf("window=%d-%d/%d", cfg.StartAt, cfg.EndAt, cfg.TickIntervalMillis()),
		fmt.Sprintf("deposit=%s/%s", fixedpoint.OrZero(cfg.Deposit0).Dec(), fixedpoint.OrZero(cfg.Deposit1).Dec()),
		fmt.Sprintf("range=%d/%t", cfg.RangeWidth, cfg.Recenter),
		fmt.Sprintf("pool=%d/%d/%s/%s/%s", cfg.TickSpacing, cfg.FeePips, cfg.Price.String(), fixedpoint.OrZero(cfg.PoolLiquidity).Dec(), cfg.LiquiditySource),
		fmt.Sprintf("fees=%s/%s", cfg.Fees.ShareMode, fixedpoint.OrZero(cfg.Fees.MinDistribution).Dec()),
		fmt.Sprintf("slippage=%s/%s/%s/%s/%s/%s/%s", cfg.Slippage.Kind, cfg.Slippage.Pct, cfg.Slippage.Base, cfg.Slippage.Factor,
			cfg.Slippage.ScalingFactor, cfg.Slippage.Max, cfg.Slippage.MinLiquidity),
		fmt.Sprintf("min-swap=%s", fixedpoint.OrZero(cfg.MinSwap).Dec()),
	)
}
