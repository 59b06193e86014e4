package pricing

import (
	"github.com/shopspring/decimal"

	"liquidityLedger/internal/config"
	"liquidityLedger/internal/model"
	"liquidityLedger/internal/numeric"
)

// MinimumDepositsForTracking is the deposit count below which reserves must
// clear the minimum liquidity threshold before volume is tracked.
const MinimumDepositsForTracking = 5

// TrackedVolumeInput is a trade's USD amounts with the pool state that gates them.
type TrackedVolumeInput struct {
	Pool *model.Pool
	// Deposits is nil when the pool never saw a mint.
	Deposits   *model.PoolDeposits
	Token0     string
	Token1     string
	Amount0USD decimal.Decimal
	Amount1USD decimal.Decimal
	Price0USD  decimal.Decimal
	Price1USD  decimal.Decimal
}

// TrackedVolume returns [tracked0USD, tracked1USD, trackedTotalUSD].
func TrackedVolume(in TrackedVolumeInput, network *config.Network) [3]decimal.Decimal {
	zero := [3]decimal.Decimal{numeric.Zero, numeric.Zero, numeric.Zero}

	if network.IsUntrackedPair(in.Pool.ID) {
		return zero
	}
	if in.Deposits == nil {
		return zero
	}

	white0 := network.IsWhitelisted(in.Token0)
	white1 := network.IsWhitelisted(in.Token1)

	if in.Deposits.Count < MinimumDepositsForTracking {
		reserve0USD := in.Pool.TotalValueLockedToken0.Mul(in.Price0USD)
		reserve1USD := in.Pool.TotalValueLockedToken1.Mul(in.Price1USD)
		minimum := network.MinimumLiquidityUSD
		switch {
		case white0 && white1:
			if reserve0USD.Add(reserve1USD).LessThan(minimum) {
				return zero
			}
		case white0:
			if reserve0USD.Mul(numeric.Two).LessThan(minimum) {
				return zero
			}
		case white1:
			if reserve1USD.Mul(numeric.Two).LessThan(minimum) {
				return zero
			}
		}
	}

	switch {
	case white0 && white1:
		return [3]decimal.Decimal{in.Amount0USD, in.Amount1USD, numeric.SafeDiv(in.Amount0USD.Add(in.Amount1USD), numeric.Two)}
	case white0:
		return [3]decimal.Decimal{in.Amount0USD, numeric.Zero, in.Amount0USD}
	case white1:
		return [3]decimal.Decimal{numeric.Zero, in.Amount1USD, in.Amount1USD}
	}
	return zero
}

// TrackedAmountUSD values a trade from its whitelisted sides: both sides are
// summed, a single whitelisted side is doubled, otherwise zero. Callers halve it.
func TrackedAmountUSD(amount0, price0USD decimal.Decimal, token0 string, amount1, price1USD decimal.Decimal, token1 string, network *config.Network) decimal.Decimal {
	white0 := network.IsWhitelisted(token0)
	white1 := network.IsWhitelisted(token1)
	switch {
	case white0 && white1:
		return amount0.Mul(price0USD).Add(amount1.Mul(price1USD))
	case white0:
		return amount0.Mul(price0USD).Mul(numeric.Two)
	case white1:
		return amount1.Mul(price1USD).Mul(numeric.Two)
	}
	return numeric.Zero
}
