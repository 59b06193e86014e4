package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLedger/internal/model"
	"liquidityLedger/internal/numeric"
	"liquidityLedger/internal/store"
)

// RegisterPool creates the pool, its tokens and the protocol singletons on
// first sight. Registering a known pool is a no-op.
func (e *Engine) RegisterPool(ctx context.Context, u *store.Unit, ev PoolCreated) error {
	if _, ok, err := u.FindPool(ctx, ev.Pool); err != nil {
		return err
	} else if ok {
		return nil
	}
	if ev.Token0.ID == "" || ev.Token1.ID == "" {
		return fmt.Errorf("pool %s: missing token metadata", ev.Pool)
	}

	factory, ok, err := u.FindFactory(ctx, e.network.FactoryAddress)
	if err != nil {
		return err
	}
	if !ok {
		factory = &model.Factory{ID: e.network.FactoryAddress}
	}
	bundle, ok, err := u.FindBundle(ctx)
	if err != nil {
		return err
	}
	if !ok {
		bundle = &model.Bundle{ID: model.BundleID}
	}

	token0, err := e.findOrCreateToken(ctx, u, ev.Token0)
	if err != nil {
		return err
	}
	token1, err := e.findOrCreateToken(ctx, u, ev.Token1)
	if err != nil {
		return err
	}

	pool := &model.Pool{
		ID:                   ev.Pool,
		Token0:               token0.ID,
		Token1:               token1.ID,
		FeeTier:              ev.FeeTier,
		TickSpacing:          ev.TickSpacing,
		Liquidity:            big.NewInt(0),
		SqrtPrice:            big.NewInt(0),
		FeeGrowthGlobal0X128: uint256.NewInt(0),
		FeeGrowthGlobal1X128: uint256.NewInt(0),
		CreatedAtBlock:       ev.BlockNumber,
		CreatedAtTimestamp:   ev.Timestamp,
	}
	if ev.Liquidity != nil {
		pool.Liquidity = new(big.Int).Set(ev.Liquidity)
	}
	if ev.SqrtPriceX96 != nil {
		pool.SqrtPrice = new(big.Int).Set(ev.SqrtPriceX96)
	}
	if ev.Tick != nil {
		tick := *ev.Tick
		pool.Tick = &tick
	}

	if e.network.IsWhitelisted(token0.ID) && !token1.HasWhitelistPool(pool.ID) {
		token1.WhitelistPools = append(token1.WhitelistPools, pool.ID)
	}
	if e.network.IsWhitelisted(token1.ID) && !token0.HasWhitelistPool(pool.ID) {
		token0.WhitelistPools = append(token0.WhitelistPools, pool.ID)
	}

	factory.PoolCount++

	pc := &poolContext{pool: pool, token0: token0, token1: token1, bundle: bundle, factory: factory}
	updatePoolPrices(pc)
	// Staged first: the oracle reads the new pool and tokens through u.
	pc.save(u)

	// A pool registered after its creation starts from its token balances.
	if ev.Balance0 != nil || ev.Balance1 != nil {
		balance0 := numeric.ToDecimal(ev.Balance0, token0.Decimals)
		balance1 := numeric.ToDecimal(ev.Balance1, token1.Decimals)
		pool.TotalValueLockedToken0 = balance0
		pool.TotalValueLockedToken1 = balance1
		token0.TotalValueLocked = token0.TotalValueLocked.Add(balance0)
		token1.TotalValueLocked = token1.TotalValueLocked.Add(balance1)
		if err := e.refreshPrices(ctx, u, pc); err != nil {
			return err
		}
		addPoolTVL(pc)
	}

	e.logger.Debug("pool registered",
		zap.String("pool", pool.ID),
		zap.String("token0", token0.ID),
		zap.String("token1", token1.ID),
		zap.Uint32("fee_tier", pool.FeeTier),
		zap.String("balance0", numeric.FormatTokenAmount(ev.Balance0, token0.Decimals)),
		zap.String("balance1", numeric.FormatTokenAmount(ev.Balance1, token1.Decimals)),
	)
	return nil
}

func (e *Engine) findOrCreateToken(ctx context.Context, u *store.Unit, info TokenInfo) (*model.Token, error) {
	token, ok, err := u.FindToken(ctx, info.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return token, nil
	}
	return &model.Token{
		ID:       info.ID,
		Symbol:   info.Symbol,
		Name:     info.Name,
		Decimals: info.Decimals,
	}, nil
}

// HandleInitialize sets the pool's first price and refreshes prices that depend on it.
func (e *Engine) HandleInitialize(ctx context.Context, u *store.Unit, ev Initialize) error {
	pc, err := e.loadPoolContext(ctx, u, ev.Pool)
	if err != nil {
		return err
	}

	if ev.SqrtPriceX96 == nil {
		return fmt.Errorf("pool %s: initialize %s without sqrt price", ev.Pool, ev.TxHash)
	}
	pc.pool.SqrtPrice = new(big.Int).Set(ev.SqrtPriceX96)
	tick := ev.Tick
	pc.pool.Tick = &tick
	updatePoolPrices(pc)

	if err := e.refreshPrices(ctx, u, pc); err != nil {
		return err
	}
	pc.save(u)
	e.metrics.EventHandled(model.EventInitialize)
	return nil
}

// HandleSetFeeProtocol stores the protocol fee denominators.
func (e *Engine) HandleSetFeeProtocol(ctx context.Context, u *store.Unit, ev SetFeeProtocol) error {
	pool, err := u.Pool(ctx, ev.Pool)
	if err != nil {
		return err
	}
	pool.FeeProtocol0 = ev.FeeProtocol0
	pool.FeeProtocol1 = ev.FeeProtocol1
	u.Save(pool)
	e.metrics.EventHandled(model.EventSetFeeProtocol)
	return nil
}
