package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityLedger/internal/config"
	"liquidityLedger/internal/model"
	"liquidityLedger/internal/numeric"
)

// Reader loads entities from the current unit of work.
type Reader interface {
	// FindPool returns ok=false when the pool has not been created yet.
	FindPool(ctx context.Context, id string) (*model.Pool, bool, error)
	Pool(ctx context.Context, id string) (*model.Pool, error)
	Token(ctx context.Context, id string) (*model.Token, error)
}

// TokenPrice is a token's price in the reference currency and in USD.
type TokenPrice struct {
	ETH decimal.Decimal
	USD decimal.Decimal
}

// Oracle derives reference currency and token prices from pool state.
// Every call rescans its candidate pools; nothing is cached between events.
type Oracle struct {
	network *config.Network
	logger  *zap.Logger
}

func NewOracle(network *config.Network, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{network: network, logger: logger}
}

// NativePriceInUSD returns the reference currency USD price read from the stable
// oracle pool with the largest stable balance. current is returned unchanged when
// no pool clears the stable liquidity minimum.
func (o *Oracle) NativePriceInUSD(ctx context.Context, r Reader, current decimal.Decimal) (decimal.Decimal, error) {
	if len(o.network.StableOraclePools) == 0 {
		o.logger.Warn("no stable oracle pools configured")
		return current, nil
	}

	var (
		best       *model.Pool
		stableSide decimal.Decimal
	)
	for _, id := range o.network.StableOraclePools {
		pool, ok, err := r.FindPool(ctx, id)
		if err != nil {
			return current, fmt.Errorf("load oracle pool %s: %w", id, err)
		}
		if !ok {
			continue
		}
		balance := pool.TotalValueLockedToken0
		if pool.Token0 == o.network.ReferenceToken {
			balance = pool.TotalValueLockedToken1
		}
		if balance.GreaterThan(stableSide) {
			stableSide = balance
			best = pool
		}
	}

	if best == nil || !stableSide.GreaterThan(o.network.MinimumStableLiquidity) {
		o.logger.Debug("native price unchanged",
			zap.String("stable_balance", stableSide.String()),
			zap.String("price", current.String()),
		)
		return current, nil
	}

	// Token1Price is token1 per token0: the stable side quoted per unit of reference.
	if best.Token0 == o.network.ReferenceToken {
		return best.Token1Price, nil
	}
	return best.Token0Price, nil
}

// DerivedETH returns the token price in the reference currency.
func (o *Oracle) DerivedETH(ctx context.Context, r Reader, token *model.Token, ethPriceUSD decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case o.network.IsReference(token.ID):
		return numeric.One, nil
	case o.network.IsStableCoin(token.ID):
		return numeric.SafeDiv(numeric.One, ethPriceUSD), nil
	case o.network.IsUntrackedToken(token.ID):
		return numeric.Zero, nil
	}

	largest := numeric.Zero
	priceSoFar := numeric.Zero
	for _, poolID := range token.WhitelistPools {
		pool, err := r.Pool(ctx, poolID)
		if err != nil {
			return numeric.Zero, fmt.Errorf("load whitelist pool %s: %w", poolID, err)
		}
		if pool.Liquidity == nil || pool.Liquidity.Sign() <= 0 {
			continue
		}

		var (
			counterID      string
			counterBalance decimal.Decimal
			counterPer     decimal.Decimal
		)
		switch token.ID {
		case pool.Token0:
			counterID, counterBalance, counterPer = pool.Token1, pool.TotalValueLockedToken1, pool.Token1Price
		case pool.Token1:
			counterID, counterBalance, counterPer = pool.Token0, pool.TotalValueLockedToken0, pool.Token0Price
		default:
			continue
		}

		counter, err := r.Token(ctx, counterID)
		if err != nil {
			return numeric.Zero, fmt.Errorf("load counter token %s: %w", counterID, err)
		}
		ethLocked := counterBalance.Mul(counter.DerivedETH)
		if ethLocked.GreaterThan(largest) && ethLocked.GreaterThan(o.network.MinimumETHLocked) {
			largest = ethLocked
			priceSoFar = counterPer.Mul(counter.DerivedETH)
		}
	}
	return priceSoFar, nil
}

// TokenPrice returns DerivedETH together with its USD conversion.
func (o *Oracle) TokenPrice(ctx context.Context, r Reader, token *model.Token, ethPriceUSD decimal.Decimal) (TokenPrice, error) {
	eth, err := o.DerivedETH(ctx, r, token, ethPriceUSD)
	if err != nil {
		return TokenPrice{}, err
	}
	usd := eth.Mul(ethPriceUSD)
	if o.network.IsStableCoin(token.ID) {
		usd = numeric.One
	}
	return TokenPrice{ETH: eth, USD: usd}, nil
}
