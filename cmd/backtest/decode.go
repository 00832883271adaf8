package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLab/internal/config"
	"liquidityLab/internal/dex"
	"liquidityLab/internal/model"
	"liquidityLab/internal/replay"
	"liquidityLab/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
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
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decoder, err := dex.NewV3PoolDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("pools", registry.Len()),
		zap.Bool("default_pool", cfg.DefaultPool != ""),
	)

	stats, err := decodeLogs(ctx, inputFile, decoder, dex.DecodeContext{Pools: registry, Logger: logger}, outWriter, errWriter)
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", stats.Total),
		zap.Int("decoded", stats.Decoded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)

	return nil
}

func buildRegistry(cfg config.DecodeConfig) (*dex.PoolRegistry, error) {
	registry, err := dex.NewPoolRegistryFromSpecs(cfg.Pools)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultPool != "" {
		meta, err := dex.ParsePoolSpec(cfg.DefaultPool)
		if err != nil {
			return nil, fmt.Errorf("default pool: %w", err)
		}
		if err := registry.SetFallback(meta); err != nil {
			return nil, fmt.Errorf("default pool: %w", err)
		}
	}
	return registry, nil
}

type recordWriter interface {
	Write(value interface{}) error
}

// decodeLogs turns raw log lines into typed events. Bad lines go to errs and
// never stop the stream; only write failures and cancellation do.
func decodeLogs(ctx context.Context, r io.Reader, decoder dex.Decoder, decodeCtx dex.DecodeContext, out, errs recordWriter) (replay.Stats, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var stats replay.Stats
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Failed++
			writeDecodeError(errs, model.DecodeError{Error: err.Error()})
			continue
		}
		if len(record.Topics) == 0 {
			stats.Failed++
			writeDecodeError(errs, model.NewDecodeError(record, fmt.Errorf("missing topic0")))
			continue
		}

		if !decoder.CanDecode(record.Topics[0]) {
			stats.Skipped++
			continue
		}

		event, err := decoder.Decode(record, decodeCtx)
		if err != nil {
			stats.Failed++
			writeDecodeError(errs, model.NewDecodeError(record, err))
			continue
		}

		if err := out.Write(event); err != nil {
			return stats, err
		}
		stats.Decoded++
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	return stats, nil
}

func writeDecodeError(writer recordWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
