package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"liquidityLedger/internal/dex"
	"liquidityLedger/internal/metrics"
	"liquidityLedger/internal/pipeline"
	"liquidityLedger/internal/storage/postgres"
	"liquidityLedger/internal/store"
)

// openBackend connects to Postgres when a DSN is set and falls back to an
// in-memory backend otherwise.
func openBackend(ctx context.Context, dsn string, logger *zap.Logger) (store.Backend, func(), error) {
	if dsn == "" {
		logger.Warn("pg dsn not set, entities are kept in memory and lost on exit")
		return store.NewMemory(), func() {}, nil
	}

	pg, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// newDecoders recognises factory PoolCreated logs and pool events.
func newDecoders(factory string, topic0Map map[string]string) (dex.Decoders, error) {
	factoryDecoder, err := dex.NewV3FactoryDecoder(factory)
	if err != nil {
		return nil, err
	}
	poolDecoder, err := dex.NewV3PoolDecoder(dex.DecoderConfig{Topic0Map: topic0Map})
	if err != nil {
		return nil, err
	}
	return dex.Decoders{factoryDecoder, poolDecoder}, nil
}

// serveMetrics exposes /metrics until ctx is done. An empty addr disables it.
func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func logStats(logger *zap.Logger, msg string, stats pipeline.Stats) {
	logger.Info(msg,
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
}
