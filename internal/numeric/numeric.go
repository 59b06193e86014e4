package numeric

import (
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
)

// DivisionScale is the number of decimal places kept by SafeDiv.
const DivisionScale = 64

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
	Two  = decimal.NewFromInt(2)

	// Million is the fee tier denominator (parts per million).
	Million = decimal.NewFromInt(1_000_000)
)

var (
	pow10Mu    sync.Mutex
	pow10Cache = map[int]*big.Int{
		0: big.NewInt(1),
	}
)

// Pow10 returns 10^exp. The returned value is shared and must not be mutated.
func Pow10(exp int) *big.Int {
	if exp < 0 {
		exp = 0
	}
	pow10Mu.Lock()
	defer pow10Mu.Unlock()
	if val, ok := pow10Cache[exp]; ok {
		return val
	}
	result := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
	pow10Cache[exp] = result
	return result
}

// ToDecimal scales a raw token amount down by 10^decimals without rounding.
func ToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ToRaw is the inverse of ToDecimal. Digits below the token's precision are truncated.
func ToRaw(value decimal.Decimal, decimals uint8) *big.Int {
	return value.Shift(int32(decimals)).BigInt()
}

// SafeDiv returns num/den, or zero when den is zero.
func SafeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return Zero
	}
	return num.DivRound(den, DivisionScale)
}

// FormatTokenAmount renders a raw amount in human units.
func FormatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	return ToDecimal(value, decimals).StringFixed(int32(decimals))
}

// ParseBigInt parses a base-10 integer; the empty string is zero.
func ParseBigInt(value string) (*big.Int, bool) {
	if value == "" {
		return big.NewInt(0), true
	}
	return new(big.Int).SetString(value, 10)
}
