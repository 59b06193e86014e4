package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Swap is an immutable snapshot taken after a swap was applied.
type Swap struct {
	ID             string          `json:"id"`
	Transaction    string          `json:"transaction"`
	Timestamp      uint64          `json:"timestamp"`
	BlockNumber    uint64          `json:"block_number"`
	Pool           string          `json:"pool"`
	Token0         string          `json:"token0"`
	Token1         string          `json:"token1"`
	Sender         string          `json:"sender"`
	Recipient      string          `json:"recipient"`
	Amount0        decimal.Decimal `json:"amount0"`
	Amount1        decimal.Decimal `json:"amount1"`
	AmountUSD      decimal.Decimal `json:"amount_usd"`
	Tick           int32           `json:"tick"`
	SqrtPriceX96   *big.Int        `json:"sqrt_price_x96"`
	LogIndex       uint64          `json:"log_index"`
	Token0PriceUSD decimal.Decimal `json:"token0_price_usd"`
	Token1PriceUSD decimal.Decimal `json:"token1_price_usd"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
}

func (s *Swap) EntityKind() Kind { return KindSwap }
func (s *Swap) EntityID() string { return s.ID }

// LiquidityChange is the shared shape of mint and burn records.
type LiquidityChange struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	BlockNumber uint64          `json:"block_number"`
	LogIndex    uint64          `json:"log_index"`
	Pool        string          `json:"pool"`
	Owner       string          `json:"owner"`
	Sender      string          `json:"sender,omitempty"`
	TickLower   int32           `json:"tick_lower"`
	TickUpper   int32           `json:"tick_upper"`
	Liquidity   *big.Int        `json:"liquidity"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
}

// Deposit records a mint.
type Deposit struct {
	LiquidityChange
}

func (d *Deposit) EntityKind() Kind { return KindDeposit }
func (d *Deposit) EntityID() string { return d.ID }

// Withdraw records a burn.
type Withdraw struct {
	LiquidityChange
}

func (w *Withdraw) EntityKind() Kind { return KindWithdraw }
func (w *Withdraw) EntityID() string { return w.ID }
