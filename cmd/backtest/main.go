package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "backtest",
		Short:        "Concentrated liquidity pool replay and backtesting",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw pool logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().String("pools", "", "pool metadata (comma-separated address=fee/tickSpacing[/token0/token1])")
	decodeCmd.Flags().String("default-pool", "", "metadata for pools missing from --pools (fee/tickSpacing)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay pool events against a liquidity strategy",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input events JSONL (typed or native)")
	replayCmd.Flags().String("out", "./data/snapshots.jsonl", "output snapshots JSONL, empty to disable")
	replayCmd.Flags().String("summary-file", "./data/summary.json", "run summary JSON, empty to disable")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for runs and snapshots")
	replayCmd.Flags().Int("pg-max-retries", 3, "maximum retries for database writes")
	replayCmd.Flags().Duration("pg-retry-backoff", 500*time.Millisecond, "initial database retry backoff")
	replayCmd.Flags().String("run-name", "", "run name")
	replayCmd.Flags().String("run-id", "", "run id, generated when empty")
	replayCmd.Flags().String("deposit0", "", "token0 budget in raw units")
	replayCmd.Flags().String("deposit1", "", "token1 budget in raw units")
	replayCmd.Flags().Int32("range-width", 1200, "position width in ticks")
	replayCmd.Flags().Bool("recenter", false, "reopen the range around the price when it leaves it")
	replayCmd.Flags().Duration("tick-interval", time.Hour, "strategy tick and snapshot cadence in event time, 0 disables")
	replayCmd.Flags().String("start", "", "strategy start (unix seconds or RFC3339), earlier events warm up the pool")
	replayCmd.Flags().String("end", "", "replay end (unix seconds or RFC3339)")
	replayCmd.Flags().Int("batch-size", 500, "snapshots per sink write")
	replayCmd.Flags().Bool("with-positions", false, "include per-position detail in snapshots")
	replayCmd.Flags().Bool("close-at-end", false, "close all positions after the last event")
	replayCmd.Flags().Int32("tick-spacing", 0, "pool tick spacing, 0 uses the input metadata")
	replayCmd.Flags().Uint32("fee", 0, "pool fee in pips, 0 uses the input metadata")
	replayCmd.Flags().String("price", "", "initial price (token1 per token0), empty uses the first swap")
	replayCmd.Flags().String("liquidity", "", "initial active liquidity, empty uses the input")
	replayCmd.Flags().String("liquidity-source", "event", "active liquidity source (event, estimate, ledger)")
	replayCmd.Flags().String("fee-threshold", "1000", "smallest swap fee worth distributing")
	replayCmd.Flags().String("share-mode", "full", "fee share (full, pool)")
	replayCmd.Flags().String("min-swap", "0", "smallest rebalancing swap")
	replayCmd.Flags().String("slippage-model", "clmm", "slippage model (fixed, linear, clmm)")
	replayCmd.Flags().String("slippage-pct", "", "fixed model slippage fraction")
	replayCmd.Flags().String("slippage-base", "", "linear model base fraction")
	replayCmd.Flags().String("slippage-factor", "", "linear model factor per unit of size/liquidity")
	replayCmd.Flags().String("slippage-scaling", "0.1", "clmm model scaling factor")
	replayCmd.Flags().String("slippage-max", "0.05", "slippage cap")
	replayCmd.Flags().String("slippage-min-liquidity", "", "liquidity below which the cap applies")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
