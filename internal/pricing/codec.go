package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"

	"liquidityLedger/internal/numeric"
)

// q192 is 2^192, the square of the Q64.96 scale.
var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// SqrtPriceX96ToTokenPrices converts a Q64.96 sqrt price into human-unit spot prices.
// price1 is token1 per token0 and price0 its reciprocal; both come from the same integers.
func SqrtPriceX96ToTokenPrices(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (price0, price1 decimal.Decimal) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return numeric.Zero, numeric.Zero
	}

	num := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	num.Mul(num, numeric.Pow10(int(decimals0)))
	den := new(big.Int).Mul(q192, numeric.Pow10(int(decimals1)))

	numDec := decimal.NewFromBigInt(num, 0)
	denDec := decimal.NewFromBigInt(den, 0)

	price1 = numeric.SafeDiv(numDec, denDec)
	if price1.IsZero() {
		return numeric.Zero, numeric.Zero
	}
	price0 = numeric.SafeDiv(denDec, numDec)
	return price0, price1
}
