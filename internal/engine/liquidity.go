package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityLedger/internal/model"
	"liquidityLedger/internal/numeric"
	"liquidityLedger/internal/store"
)

// liquidityChange is the common part of mints and burns; sign is +1 or -1.
type liquidityChange struct {
	meta      EventMeta
	owner     string
	sender    string
	tickLower int32
	tickUpper int32
	amount    *big.Int
	amount0   *big.Int
	amount1   *big.Int
	sign      int
}

// HandleMint adds liquidity to the pool and bumps its deposit counter.
func (e *Engine) HandleMint(ctx context.Context, u *store.Unit, ev Mint) error {
	change := liquidityChange{
		meta:      ev.EventMeta,
		owner:     ev.Owner,
		sender:    ev.Sender,
		tickLower: ev.TickLower,
		tickUpper: ev.TickUpper,
		amount:    ev.Amount,
		amount0:   ev.Amount0,
		amount1:   ev.Amount1,
		sign:      1,
	}
	record, err := e.applyLiquidity(ctx, u, change)
	if err != nil {
		return err
	}

	deposits, ok, err := u.PoolDeposits(ctx, ev.Pool)
	if err != nil {
		return err
	}
	if !ok {
		deposits = &model.PoolDeposits{ID: ev.Pool}
	}
	deposits.Count++
	u.Save(deposits)

	u.Save(&model.Deposit{LiquidityChange: record})
	e.metrics.EventHandled(model.EventMint)
	return nil
}

// HandleBurn removes liquidity from the pool.
func (e *Engine) HandleBurn(ctx context.Context, u *store.Unit, ev Burn) error {
	change := liquidityChange{
		meta:      ev.EventMeta,
		owner:     ev.Owner,
		tickLower: ev.TickLower,
		tickUpper: ev.TickUpper,
		amount:    ev.Amount,
		amount0:   ev.Amount0,
		amount1:   ev.Amount1,
		sign:      -1,
	}
	record, err := e.applyLiquidity(ctx, u, change)
	if err != nil {
		return err
	}
	u.Save(&model.Withdraw{LiquidityChange: record})
	e.metrics.EventHandled(model.EventBurn)
	return nil
}

func (e *Engine) applyLiquidity(ctx context.Context, u *store.Unit, change liquidityChange) (model.LiquidityChange, error) {
	pc, err := e.loadPoolContext(ctx, u, change.meta.Pool)
	if err != nil {
		return model.LiquidityChange{}, err
	}
	if change.amount == nil || change.amount0 == nil || change.amount1 == nil {
		return model.LiquidityChange{}, fmt.Errorf("pool %s: incomplete liquidity event %s", change.meta.Pool, change.meta.TxHash)
	}

	sign := decimal.NewFromInt(int64(change.sign))
	amount0 := numeric.ToDecimal(change.amount0, pc.token0.Decimals).Mul(sign)
	amount1 := numeric.ToDecimal(change.amount1, pc.token1.Decimals).Mul(sign)
	valueUSD := amountUSD(pc, amount0.Abs(), amount1.Abs())

	removePoolTVL(pc)

	pc.factory.TxCount++
	pc.pool.TxCount++
	pc.token0.TxCount++
	pc.token1.TxCount++

	// Only in-range positions contribute to active liquidity.
	if pc.pool.Tick != nil && change.tickLower <= *pc.pool.Tick && *pc.pool.Tick < change.tickUpper {
		delta := new(big.Int).Set(change.amount)
		if change.sign < 0 {
			delta.Neg(delta)
		}
		pc.pool.Liquidity = new(big.Int).Add(pc.pool.Liquidity, delta)
	}

	pc.pool.TotalValueLockedToken0 = pc.pool.TotalValueLockedToken0.Add(amount0)
	pc.pool.TotalValueLockedToken1 = pc.pool.TotalValueLockedToken1.Add(amount1)
	pc.token0.TotalValueLocked = pc.token0.TotalValueLocked.Add(amount0)
	pc.token1.TotalValueLocked = pc.token1.TotalValueLocked.Add(amount1)

	addPoolTVL(pc)
	pc.save(u)

	e.logger.Debug("liquidity applied",
		append(eventFields(change.meta),
			zap.Int("sign", change.sign),
			zap.String("amount0", numeric.FormatTokenAmount(change.amount0, pc.token0.Decimals)),
			zap.String("amount1", numeric.FormatTokenAmount(change.amount1, pc.token1.Decimals)),
		)...,
	)

	return model.LiquidityChange{
		ID:          fmt.Sprintf("%s#%d", change.meta.TxHash, change.meta.LogIndex),
		Transaction: change.meta.TxHash,
		Timestamp:   change.meta.Timestamp,
		BlockNumber: change.meta.BlockNumber,
		LogIndex:    change.meta.LogIndex,
		Pool:        pc.pool.ID,
		Owner:       change.owner,
		Sender:      change.sender,
		TickLower:   change.tickLower,
		TickUpper:   change.tickUpper,
		Liquidity:   new(big.Int).Set(change.amount),
		Amount0:     amount0.Abs(),
		Amount1:     amount1.Abs(),
		AmountUSD:   valueUSD,
	}, nil
}
