package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLedger/internal/chain"
	"liquidityLedger/internal/config"
	"liquidityLedger/internal/dex"
	"liquidityLedger/internal/engine"
	"liquidityLedger/internal/metrics"
	"liquidityLedger/internal/pipeline"
)

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProcess(cfgFile, cmd.Flags())
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

	m := metrics.New(prometheus.DefaultRegisterer)
	serveMetrics(ctx, cfg.MetricsAddr, logger)

	backend, closeBackend, err := openBackend(ctx, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	engineCfg := engine.Config{
		Network: config.NewNetwork(cfg.Network),
		Metrics: m,
	}
	decodeCtx := dex.DecodeContext{
		TokenMetaCache: dex.NewTokenMetaCache(),
		Logger:         logger,
	}
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		engineCfg.FeeGrowth = dex.NewFeeGrowthFetcher(chainClient)
		decodeCtx.Chain = chainClient
	} else {
		logger.Info("rpc not set, fee growth is not refreshed and token metadata must come from the input")
	}

	eng, err := engine.New(engineCfg, logger)
	if err != nil {
		return err
	}

	processor, err := pipeline.NewProcessor(pipeline.Config{
		Engine:               eng,
		Backend:              backend,
		DecodeContext:        decodeCtx,
		Metrics:              m,
		CursorName:           cfg.Cursor,
		RegisterUnknownPools: cfg.RegisterUnknownPools,
	}, logger)
	if err != nil {
		return err
	}

	cursor, err := processor.Cursor(ctx)
	if err != nil {
		return err
	}
	fields := []zap.Field{
		zap.String("in", cfg.In),
		zap.String("cursor", cfg.Cursor),
		zap.Bool("postgres", cfg.PGDSN != ""),
	}
	if cursor != nil {
		fields = append(fields, zap.Uint64("resume_block", cursor.BlockNumber), zap.Uint64("resume_log_index", cursor.LogIndex))
	}
	logger.Info("process start", fields...)

	if err := processor.ProcessFile(ctx, cfg.In); err != nil {
		return err
	}

	logStats(logger, "process complete", processor.Stats())
	return nil
}
