package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLedger/internal/config"
	"liquidityLedger/internal/metrics"
	"liquidityLedger/internal/model"
	"liquidityLedger/internal/pricing"
	"liquidityLedger/internal/store"
)

// FeeGrowthReader reads a pool's global fee growth accumulators at a block.
type FeeGrowthReader interface {
	FeeGrowthGlobals(ctx context.Context, pool string, block uint64) (*big.Int, *big.Int, error)
}

// Config wires the engine's collaborators.
type Config struct {
	Network *config.Network
	// FeeGrowth is optional; without it pools keep their last fee growth values.
	FeeGrowth FeeGrowthReader
	Metrics   *metrics.Metrics
}

// Engine applies pool events to entities. Handlers are not safe for
// concurrent use; callers deliver events one at a time in chain order, each
// with its own unit of work, and commit the unit afterwards.
type Engine struct {
	network   *config.Network
	oracle    *pricing.Oracle
	feeGrowth FeeGrowthReader
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if cfg.Network == nil {
		return nil, fmt.Errorf("network config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		network:   cfg.Network,
		oracle:    pricing.NewOracle(cfg.Network, logger.Named("oracle")),
		feeGrowth: cfg.FeeGrowth,
		metrics:   cfg.Metrics,
		logger:    logger,
	}, nil
}

// poolContext is the set of entities every pool event touches.
type poolContext struct {
	pool    *model.Pool
	token0  *model.Token
	token1  *model.Token
	bundle  *model.Bundle
	factory *model.Factory
}

func (e *Engine) loadPoolContext(ctx context.Context, u *store.Unit, poolID string) (*poolContext, error) {
	pool, err := u.Pool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	token0, err := u.Token(ctx, pool.Token0)
	if err != nil {
		return nil, err
	}
	token1, err := u.Token(ctx, pool.Token1)
	if err != nil {
		return nil, err
	}
	bundle, err := u.Bundle(ctx)
	if err != nil {
		return nil, err
	}
	factory, err := u.Factory(ctx, e.network.FactoryAddress)
	if err != nil {
		return nil, err
	}
	return &poolContext{pool: pool, token0: token0, token1: token1, bundle: bundle, factory: factory}, nil
}

func (pc *poolContext) save(u *store.Unit) {
	u.Save(pc.pool)
	u.Save(pc.token0)
	u.Save(pc.token1)
	u.Save(pc.bundle)
	u.Save(pc.factory)
}

func (e *Engine) readFeeGrowth(ctx context.Context, pool *model.Pool, block uint64) error {
	if e.feeGrowth == nil {
		return nil
	}
	growth0, growth1, err := e.feeGrowth.FeeGrowthGlobals(ctx, pool.ID, block)
	if err != nil {
		return fmt.Errorf("fee growth %s: %w", pool.ID, err)
	}
	g0, overflow := uint256.FromBig(growth0)
	if overflow {
		return fmt.Errorf("fee growth0 %s overflows 256 bits", pool.ID)
	}
	g1, overflow := uint256.FromBig(growth1)
	if overflow {
		return fmt.Errorf("fee growth1 %s overflows 256 bits", pool.ID)
	}
	pool.FeeGrowthGlobal0X128 = g0
	pool.FeeGrowthGlobal1X128 = g1
	return nil
}

func eventFields(meta EventMeta) []zap.Field {
	return []zap.Field{
		zap.String("pool", meta.Pool),
		zap.String("tx_hash", meta.TxHash),
		zap.Uint64("block", meta.BlockNumber),
		zap.Uint64("log_index", meta.LogIndex),
	}
}
