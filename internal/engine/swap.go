package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityLedger/internal/model"
	"liquidityLedger/internal/numeric"
	"liquidityLedger/internal/pricing"
	"liquidityLedger/internal/store"
)

// SkipDenylisted is the skip reason recorded for hot-fix excluded pools.
const SkipDenylisted = "denylisted"

// HandleSwap applies a swap: volumes and fees are valued at the prices held
// before the swap, then pool state and prices are advanced and TVL is rebuilt.
func (e *Engine) HandleSwap(ctx context.Context, u *store.Unit, ev Swap) error {
	if e.network.IsDenylisted(ev.Pool) {
		e.logger.Debug("skip denylisted pool", eventFields(ev.EventMeta)...)
		e.metrics.EventSkipped(SkipDenylisted)
		return nil
	}
	if ev.Amount0 == nil || ev.Amount1 == nil || ev.SqrtPriceX96 == nil || ev.Liquidity == nil {
		return fmt.Errorf("pool %s: incomplete swap %s", ev.Pool, ev.TxHash)
	}

	pc, err := e.loadPoolContext(ctx, u, ev.Pool)
	if err != nil {
		return err
	}
	pool, token0, token1, bundle, factory := pc.pool, pc.token0, pc.token1, pc.bundle, pc.factory

	amount0 := numeric.ToDecimal(ev.Amount0, token0.Decimals)
	amount1 := numeric.ToDecimal(ev.Amount1, token1.Decimals)
	amount0Abs := amount0.Abs()
	amount1Abs := amount1.Abs()

	// Prior prices.
	ethPrice := bundle.EthPriceUSD
	price0USD := token0.DerivedETH.Mul(ethPrice)
	price1USD := token1.DerivedETH.Mul(ethPrice)
	amount0USD := amount0Abs.Mul(price0USD)
	amount1USD := amount1Abs.Mul(price1USD)

	trackedUSD := numeric.SafeDiv(
		pricing.TrackedAmountUSD(amount0Abs, price0USD, token0.ID, amount1Abs, price1USD, token1.ID, e.network),
		numeric.Two)
	trackedETH := numeric.SafeDiv(trackedUSD, ethPrice)
	untrackedUSD := numeric.SafeDiv(amount0USD.Add(amount1USD), numeric.Two)

	feeTier := decimal.NewFromInt(int64(pool.FeeTier))
	feesETH := numeric.SafeDiv(trackedETH.Mul(feeTier), numeric.Million)
	feesUSD := numeric.SafeDiv(trackedUSD.Mul(feeTier), numeric.Million)

	deposits, _, err := u.PoolDeposits(ctx, pool.ID)
	if err != nil {
		return err
	}
	perSide := pricing.TrackedVolume(pricing.TrackedVolumeInput{
		Pool:       pool,
		Deposits:   deposits,
		Token0:     token0.ID,
		Token1:     token1.ID,
		Amount0USD: amount0USD,
		Amount1USD: amount1USD,
		Price0USD:  price0USD,
		Price1USD:  price1USD,
	}, e.network)

	factory.TxCount++
	factory.TotalVolumeETH = factory.TotalVolumeETH.Add(trackedETH)
	factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedUSD)
	factory.UntrackedVolumeUSD = factory.UntrackedVolumeUSD.Add(untrackedUSD)
	factory.TotalFeesETH = factory.TotalFeesETH.Add(feesETH)
	factory.TotalFeesUSD = factory.TotalFeesUSD.Add(feesUSD)
	removePoolTVL(pc)

	pool.VolumeToken0 = pool.VolumeToken0.Add(amount0Abs)
	pool.VolumeToken1 = pool.VolumeToken1.Add(amount1Abs)
	pool.VolumeUSD = pool.VolumeUSD.Add(trackedUSD)
	pool.UntrackedVolumeUSD = pool.UntrackedVolumeUSD.Add(untrackedUSD)
	pool.TrackedVolumeToken0USD = pool.TrackedVolumeToken0USD.Add(perSide[0])
	pool.TrackedVolumeToken1USD = pool.TrackedVolumeToken1USD.Add(perSide[1])
	pool.TrackedVolumeUSD = pool.TrackedVolumeUSD.Add(perSide[2])
	pool.FeesUSD = pool.FeesUSD.Add(feesUSD)
	pool.TxCount++

	pool.Liquidity = new(big.Int).Set(ev.Liquidity)
	tick := ev.Tick
	pool.Tick = &tick
	pool.SqrtPrice = new(big.Int).Set(ev.SqrtPriceX96)
	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)

	applyTokenSwap(token0, amount0, amount0Abs, trackedUSD, untrackedUSD, feesUSD)
	applyTokenSwap(token1, amount1, amount1Abs, trackedUSD, untrackedUSD, feesUSD)

	updatePoolPrices(pc)
	if err := e.refreshPrices(ctx, u, pc); err != nil {
		return err
	}
	addPoolTVL(pc)

	if err := e.readFeeGrowth(ctx, pool, ev.BlockNumber); err != nil {
		return err
	}

	token0Price := token0.PriceUSD()
	token1Price := token1.PriceUSD()
	swap := &model.Swap{
		ID:             fmt.Sprintf("%s#%d", ev.TxHash, pool.TxCount),
		Transaction:    ev.TxHash,
		Timestamp:      ev.Timestamp,
		BlockNumber:    ev.BlockNumber,
		Pool:           pool.ID,
		Token0:         token0.ID,
		Token1:         token1.ID,
		Sender:         ev.Sender,
		Recipient:      ev.Recipient,
		Amount0:        amount0,
		Amount1:        amount1,
		AmountUSD:      trackedUSD,
		Tick:           ev.Tick,
		SqrtPriceX96:   new(big.Int).Set(ev.SqrtPriceX96),
		LogIndex:       ev.LogIndex,
		Token0PriceUSD: token0Price,
		Token1PriceUSD: token1Price,
		ExchangeRate:   numeric.SafeDiv(token1Price, token0Price),
	}

	pc.save(u)
	u.Save(swap)
	e.metrics.EventHandled(model.EventSwap)

	e.logger.Debug("swap applied",
		append(eventFields(ev.EventMeta),
			zap.String("amount0", numeric.FormatTokenAmount(ev.Amount0, token0.Decimals)),
			zap.String("amount1", numeric.FormatTokenAmount(ev.Amount1, token1.Decimals)),
			zap.String("amount_usd", trackedUSD.String()),
			zap.String("fees_usd", feesUSD.String()),
			zap.String("eth_price_usd", bundle.EthPriceUSD.String()),
		)...,
	)
	return nil
}

func applyTokenSwap(token *model.Token, amount, amountAbs, trackedUSD, untrackedUSD, feesUSD decimal.Decimal) {
	token.Volume = token.Volume.Add(amountAbs)
	token.TotalValueLocked = token.TotalValueLocked.Add(amount)
	token.VolumeUSD = token.VolumeUSD.Add(trackedUSD)
	token.UntrackedVolumeUSD = token.UntrackedVolumeUSD.Add(untrackedUSD)
	token.FeesUSD = token.FeesUSD.Add(feesUSD)
	token.TxCount++
}
