package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"liquidityLab/internal/fees"
	"liquidityLab/internal/pool"
	"liquidityLab/internal/slippage"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	In          string
	Out         string
	SummaryFile string
	PGDSN       string
	RunName     string
	RunID       string
	LogLevel    string

	// Database write retries.
	PGMaxRetries   int
	PGRetryBackoff time.Duration

	// Strategy budget and range.
	Deposit0   *uint256.Int
	Deposit1   *uint256.Int
	RangeWidth int32
	Recenter   bool

	TickInterval  time.Duration
	StartAt       int64
	EndAt         int64
	BatchSize     int
	WithPositions bool
	CloseAtEnd    bool

	// Pool seed; zero values defer to the input.
	TickSpacing     int32
	FeePips         uint32
	Price           decimal.Decimal
	PoolLiquidity   *uint256.Int
	LiquiditySource pool.LiquiditySource

	Fees     fees.Config
	MinSwap  *uint256.Int
	Slippage slippage.Config
}

// TickIntervalMillis is the tick cadence in event-time milliseconds.
func (c ReplayConfig) TickIntervalMillis() int64 {
	return c.TickInterval.Milliseconds()
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":              "./data/snapshots.jsonl",
		"summary-file":     "./data/summary.json",
		"log-level":        "info",
		"pg-max-retries":   3,
		"pg-retry-backoff": "500ms",
		"range-width":      1200,
		"recenter":         false,
		"tick-interval":    "1h",
		"batch-size":       500,
		"with-positions":   false,
		"close-at-end":     false,
		"liquidity-source": string(pool.LiquidityFromEvent),
		"fee-threshold":    "1000",
		"share-mode":       string(fees.ShareFull),
		"min-swap":         "0",
		"slippage-model":   string(slippage.KindCLMM),
		"slippage-scaling": "0.1",
		"slippage-max":     "0.05",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		In:             v.GetString("in"),
		Out:            v.GetString("out"),
		SummaryFile:    v.GetString("summary-file"),
		PGDSN:          v.GetString("pg-dsn"),
		PGMaxRetries:   v.GetInt("pg-max-retries"),
		PGRetryBackoff: v.GetDuration("pg-retry-backoff"),
		RunName:        v.GetString("run-name"),
		RunID:          v.GetString("run-id"),
		LogLevel:       v.GetString("log-level"),
		RangeWidth:     v.GetInt32("range-width"),
		Recenter:       v.GetBool("recenter"),
		TickInterval:   v.GetDuration("tick-interval"),
		BatchSize:      v.GetInt("batch-size"),
		WithPositions:  v.GetBool("with-positions"),
		CloseAtEnd:     v.GetBool("close-at-end"),
		TickSpacing:    v.GetInt32("tick-spacing"),
		FeePips:        v.GetUint32("fee"),
	}
	if cfg.TickInterval < 0 {
		return cfg, fmt.Errorf("tick-interval must not be negative")
	}

	if cfg.StartAt, err = windowMillis(v, "start"); err != nil {
		return cfg, err
	}
	if cfg.EndAt, err = windowMillis(v, "end"); err != nil {
		return cfg, err
	}
	if cfg.EndAt > 0 && cfg.EndAt < cfg.StartAt {
		return cfg, fmt.Errorf("end must not precede start")
	}

	if cfg.Deposit0, err = getUint(v, "deposit0"); err != nil {
		return cfg, err
	}
	if cfg.Deposit1, err = getUint(v, "deposit1"); err != nil {
		return cfg, err
	}
	if cfg.PoolLiquidity, err = getUint(v, "liquidity"); err != nil {
		return cfg, err
	}
	if cfg.MinSwap, err = getUint(v, "min-swap"); err != nil {
		return cfg, err
	}
	if cfg.Price, err = getDecimal(v, "price"); err != nil {
		return cfg, err
	}
	if cfg.Price.IsNegative() {
		return cfg, fmt.Errorf("price must not be negative")
	}

	if cfg.LiquiditySource, err = pool.ParseLiquiditySource(v.GetString("liquidity-source")); err != nil {
		return cfg, err
	}
	if cfg.Fees.ShareMode, err = fees.ParseShareMode(v.GetString("share-mode")); err != nil {
		return cfg, err
	}
	if cfg.Fees.MinDistribution, err = getUint(v, "fee-threshold"); err != nil {
		return cfg, err
	}

	if cfg.Slippage, err = loadSlippage(v); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadSlippage(v *viper.Viper) (slippage.Config, error) {
	out := slippage.Config{Kind: slippage.Kind(strings.ToLower(strings.TrimSpace(v.GetString("slippage-model"))))}
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"slippage-pct", &out.Pct},
		{"slippage-base", &out.Base},
		{"slippage-factor", &out.Factor},
		{"slippage-scaling", &out.ScalingFactor},
		{"slippage-max", &out.Max},
		{"slippage-min-liquidity", &out.MinLiquidity},
	}
	for _, f := range fields {
		d, err := getDecimal(v, f.key)
		if err != nil {
			return out, err
		}
		*f.dst = d
	}
	return out, nil
}

func windowMillis(v *viper.Viper, key string) (int64, error) {
	secs, err := ParseTimestamp(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return int64(secs) * 1000, nil
}
