package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLedger/internal/chain"
	"liquidityLedger/internal/config"
	"liquidityLedger/internal/dex"
	"liquidityLedger/internal/model"
	"liquidityLedger/internal/storage"
)

// decodeCounts tallies a decode run; decoded is keyed by event name.
type decodeCounts struct {
	total, skipped, unknownPool, failed int
	decoded                             map[string]int
}

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

	switch {
	case cfg.RPCURL == "":
		return fmt.Errorf("rpc url is required")
	case cfg.In == "":
		return fmt.Errorf("input path is required")
	case cfg.Out == "":
		return fmt.Errorf("output path is required")
	case cfg.Errors == "":
		return fmt.Errorf("errors path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	decoder, err := newDecoders(cfg.FactoryAddress, cfg.Topic0Map)
	if err != nil {
		return err
	}

	// With FactoryPoolsOnly the cache is filled only by PoolCreated, so pool
	// events of other emitters come back as dex.ErrUnknownPool.
	decodeCtx := dex.DecodeContext{
		Context:          ctx,
		Chain:            chainClient,
		PoolMetaCache:    dex.NewPoolMetaCache(),
		TokenMetaCache:   dex.NewTokenMetaCache(),
		SkipUnknownPools: cfg.FactoryPoolsOnly,
		Logger:           logger,
		IncludeLiveMeta:  cfg.IncludeLiveMeta,
	}

	out, err := storage.CreateJSONL(cfg.Out, false)
	if err != nil {
		return err
	}
	defer out.Close()

	errOut, err := storage.CreateJSONL(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errOut.Close()

	logger.Info("decode start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.String("factory", cfg.FactoryAddress),
		zap.Bool("factory_pools_only", cfg.FactoryPoolsOnly),
		zap.Bool("include_live_meta", cfg.IncludeLiveMeta),
	)

	counts := decodeCounts{decoded: make(map[string]int)}
	err = storage.ReadJSONL(ctx, cfg.In, func(line []byte) error {
		counts.total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			counts.failed++
			return errOut.Write(model.DecodeError{Error: err.Error()})
		}
		if len(record.Topics) == 0 {
			counts.failed++
			return errOut.Write(model.NewDecodeError(record, fmt.Errorf("missing topic0")))
		}
		if !decoder.CanDecode(record) {
			counts.skipped++
			return nil
		}

		event, err := decoder.Decode(record, decodeCtx)
		switch {
		case errors.Is(err, dex.ErrUnknownPool):
			counts.unknownPool++
			return nil
		case err != nil:
			counts.failed++
			return errOut.Write(model.NewDecodeError(record, err))
		}

		counts.decoded[event.EventName]++
		return out.Write(event)
	})
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", counts.total),
		zap.Any("decoded", counts.decoded),
		zap.Int("skipped", counts.skipped),
		zap.Int("unknown_pool", counts.unknownPool),
		zap.Int("failed", counts.failed),
	)
	return nil
}
