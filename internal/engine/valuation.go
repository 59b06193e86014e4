package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"liquidityLedger/internal/model"
	"liquidityLedger/internal/pricing"
	"liquidityLedger/internal/store"
)

// refreshPrices re-runs the native USD oracle and then both token oracles
// against the current state of the unit.
func (e *Engine) refreshPrices(ctx context.Context, u *store.Unit, pc *poolContext) error {
	ethPrice, err := e.oracle.NativePriceInUSD(ctx, u, pc.bundle.EthPriceUSD)
	if err != nil {
		return err
	}
	pc.bundle.EthPriceUSD = ethPrice
	e.metrics.SetNativePrice(ethPrice.InexactFloat64())

	if err := e.refreshTokenPrice(ctx, u, pc.token0, ethPrice); err != nil {
		return err
	}
	return e.refreshTokenPrice(ctx, u, pc.token1, ethPrice)
}

func (e *Engine) refreshTokenPrice(ctx context.Context, u *store.Unit, token *model.Token, ethPrice decimal.Decimal) error {
	price, err := e.oracle.TokenPrice(ctx, u, token, ethPrice)
	if err != nil {
		return err
	}
	if price.ETH.IsZero() && !e.network.IsUntrackedToken(token.ID) {
		e.metrics.PriceMiss()
	}
	token.DerivedETH = price.ETH
	token.SetPriceUSD(price.USD)
	return nil
}

// updatePoolPrices decodes both spot prices from the pool's current sqrt price.
func updatePoolPrices(pc *poolContext) {
	pc.pool.Token0Price, pc.pool.Token1Price = pricing.SqrtPriceX96ToTokenPrices(
		pc.pool.SqrtPrice, pc.token0.Decimals, pc.token1.Decimals)
}

// removePoolTVL takes the pool's current contribution out of the factory total.
// It must be paired with addPoolTVL once balances and prices are final.
func removePoolTVL(pc *poolContext) {
	pc.factory.TotalValueLockedETH = pc.factory.TotalValueLockedETH.Sub(pc.pool.TotalValueLockedETH)
}

// addPoolTVL recomputes pool and token TVL from balances and derived prices
// and adds the pool's new contribution back to the factory.
func addPoolTVL(pc *poolContext) {
	ethPrice := pc.bundle.EthPriceUSD
	pool := pc.pool

	pool.TotalValueLockedETH = pool.TotalValueLockedToken0.Mul(pc.token0.DerivedETH).
		Add(pool.TotalValueLockedToken1.Mul(pc.token1.DerivedETH))
	pool.TotalValueLockedUSD = pool.TotalValueLockedETH.Mul(ethPrice)

	pc.factory.TotalValueLockedETH = pc.factory.TotalValueLockedETH.Add(pool.TotalValueLockedETH)
	pc.factory.TotalValueLockedUSD = pc.factory.TotalValueLockedETH.Mul(ethPrice)

	pc.token0.TotalValueLockedUSD = pc.token0.TotalValueLocked.Mul(pc.token0.DerivedETH).Mul(ethPrice)
	pc.token1.TotalValueLockedUSD = pc.token1.TotalValueLocked.Mul(pc.token1.DerivedETH).Mul(ethPrice)
}

// amountUSD values both legs of an amount pair at the tokens' derived prices.
func amountUSD(pc *poolContext, amount0, amount1 decimal.Decimal) decimal.Decimal {
	ethPrice := pc.bundle.EthPriceUSD
	return amount0.Mul(pc.token0.DerivedETH).Mul(ethPrice).
		Add(amount1.Mul(pc.token1.DerivedETH).Mul(ethPrice))
}
