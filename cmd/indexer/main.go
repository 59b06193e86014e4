package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityLedger/internal/chain"
	"liquidityLedger/internal/config"
	"liquidityLedger/internal/dex"
	"liquidityLedger/internal/engine"
	"liquidityLedger/internal/indexer"
	"liquidityLedger/internal/metrics"
	"liquidityLedger/internal/pipeline"
	"liquidityLedger/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Uniswap V3 price and volume ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch pool logs and apply them to the ledger",
		RunE:  runSync,
	}

	syncCmd.Flags().String("rpc", "", "Polygon RPC URL")
	syncCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	syncCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	syncCmd.Flags().StringSlice("address", nil, "contract addresses (comma-separated), empty means any emitter")
	syncCmd.Flags().StringSlice("topic0", nil, "topic0 signatures (comma-separated), empty means factory and pool events")
	syncCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	syncCmd.Flags().String("archive", "", "optional raw logs JSONL archive path")
	syncCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	syncCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addLedgerFlags(syncCmd, "sync")

	root.AddCommand(syncCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "Polygon RPC URL")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().Bool("include-live-meta", false, "include slot0, liquidity and token balances of pools read from chain (requires archive RPC for historical accuracy)")
	decodeCmd.Flags().Bool("factory-pools-only", false, "drop pool events unless the input contains the pool's PoolCreated")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Apply typed events to the ledger",
		RunE:  runProcess,
	}

	processCmd.Flags().String("rpc", "", "optional Polygon RPC URL for fee growth and token metadata")
	processCmd.Flags().String("in", "./data/typed_events.jsonl", "input typed events JSONL")
	addLedgerFlags(processCmd, "process")

	root.AddCommand(processCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLedgerFlags(cmd *cobra.Command, cursor string) {
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, empty keeps entities in memory")
	cmd.Flags().String("cursor", cursor, "cursor name for resuming")
	cmd.Flags().Bool("register-unknown-pools", false, "register pools on their first event when PoolCreated was not seen; sync seeds them from slot0, liquidity and token balances at the parent block (archive RPC), process needs pool_meta state in the input")
	cmd.Flags().String("metrics-addr", "", "Prometheus listen address, empty disables")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	defaultTopics, err := dex.DefaultTopics()
	if err != nil {
		return err
	}
	filter, err := indexer.NewFilter(cfg.Addresses, cfg.Topic0, cfg.Network.FactoryAddress, defaultTopics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	serveMetrics(ctx, cfg.MetricsAddr, logger)

	backend, closeBackend, err := openBackend(ctx, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	eng, err := engine.New(engine.Config{
		Network:   config.NewNetwork(cfg.Network),
		FeeGrowth: dex.NewFeeGrowthFetcher(chainClient),
		Metrics:   m,
	}, logger)
	if err != nil {
		return err
	}

	decoder, err := newDecoders(cfg.Network.FactoryAddress, nil)
	if err != nil {
		return err
	}

	processor, err := pipeline.NewProcessor(pipeline.Config{
		Engine:  eng,
		Backend: backend,
		Decoder: decoder,
		DecodeContext: dex.DecodeContext{
			Chain:           chainClient,
			PoolMetaCache:   dex.NewPoolMetaCache(),
			TokenMetaCache:  dex.NewTokenMetaCache(),
			Logger:          logger,
			IncludeLiveMeta: cfg.RegisterUnknownPools,
		},
		Metrics:              m,
		CursorName:           cfg.Cursor,
		RegisterUnknownPools: cfg.RegisterUnknownPools,
	}, logger)
	if err != nil {
		return err
	}

	// The archive only receives batches the ledger has applied.
	var sink storage.Storage = processor
	if cfg.Archive != "" {
		sink = storage.Fanout{processor, storage.NewJsonlStorage(cfg.Archive)}
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		Addresses:    filter.Addresses,
		Topic0:       filter.Topic0,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, sink, processor, logger)

	logger.Info("sync start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(filter.Addresses)),
		zap.Int("topic0", len(filter.Topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("archive", cfg.Archive),
		zap.String("cursor", cfg.Cursor),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	if err := runner.Run(ctx); err != nil {
		return err
	}

	logStats(logger, "sync complete", processor.Stats())
	return nil
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
