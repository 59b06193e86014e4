package model

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Kind names an entity collection in the store.
type Kind string

const (
	KindToken        Kind = "token"
	KindPool         Kind = "pool"
	KindBundle       Kind = "bundle"
	KindFactory      Kind = "factory"
	KindSwap         Kind = "swap"
	KindDeposit      Kind = "deposit"
	KindWithdraw     Kind = "withdraw"
	KindPoolDeposits Kind = "pool_deposits"
	KindCursor       Kind = "cursor"
)

// BundleID is the key of the singleton Bundle.
const BundleID = "1"

// Entity is anything the store can persist.
type Entity interface {
	EntityKind() Kind
	EntityID() string
}

// Token holds running statistics and derived prices for an ERC20.
type Token struct {
	ID                  string           `json:"id"`
	Symbol              string           `json:"symbol"`
	Name                string           `json:"name"`
	Decimals            uint8            `json:"decimals"`
	Volume              decimal.Decimal  `json:"volume"`
	VolumeUSD           decimal.Decimal  `json:"volume_usd"`
	UntrackedVolumeUSD  decimal.Decimal  `json:"untracked_volume_usd"`
	FeesUSD             decimal.Decimal  `json:"fees_usd"`
	TxCount             uint64           `json:"tx_count"`
	TotalValueLocked    decimal.Decimal  `json:"total_value_locked"`
	TotalValueLockedUSD decimal.Decimal  `json:"total_value_locked_usd"`
	DerivedETH          decimal.Decimal  `json:"derived_eth"`
	LastPriceUSD        *decimal.Decimal `json:"last_price_usd,omitempty"`
	WhitelistPools      []string         `json:"whitelist_pools"`
}

func (t *Token) EntityKind() Kind { return KindToken }
func (t *Token) EntityID() string { return t.ID }

// PriceUSD returns the last USD price, or zero if the token was never priced.
func (t *Token) PriceUSD() decimal.Decimal {
	if t.LastPriceUSD == nil {
		return decimal.Zero
	}
	return *t.LastPriceUSD
}

// SetPriceUSD records the latest USD price.
func (t *Token) SetPriceUSD(price decimal.Decimal) {
	t.LastPriceUSD = &price
}

// HasWhitelistPool reports whether pool is already linked for price discovery.
func (t *Token) HasWhitelistPool(pool string) bool {
	for _, id := range t.WhitelistPools {
		if id == pool {
			return true
		}
	}
	return false
}

// Pool is the running state of a concentrated-liquidity pool.
type Pool struct {
	ID                     string          `json:"id"`
	Token0                 string          `json:"token0"`
	Token1                 string          `json:"token1"`
	FeeTier                uint32          `json:"fee_tier"`
	TickSpacing            int32           `json:"tick_spacing"`
	Liquidity              *big.Int        `json:"liquidity"`
	SqrtPrice              *big.Int        `json:"sqrt_price"`
	Tick                   *int32          `json:"tick,omitempty"`
	Token0Price            decimal.Decimal `json:"token0_price"`
	Token1Price            decimal.Decimal `json:"token1_price"`
	VolumeToken0           decimal.Decimal `json:"volume_token0"`
	VolumeToken1           decimal.Decimal `json:"volume_token1"`
	VolumeUSD              decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD     decimal.Decimal `json:"untracked_volume_usd"`
	TrackedVolumeToken0USD decimal.Decimal `json:"tracked_volume_token0_usd"`
	TrackedVolumeToken1USD decimal.Decimal `json:"tracked_volume_token1_usd"`
	TrackedVolumeUSD       decimal.Decimal `json:"tracked_volume_usd"`
	FeesUSD                decimal.Decimal `json:"fees_usd"`
	TxCount                uint64          `json:"tx_count"`
	TotalValueLockedToken0 decimal.Decimal `json:"total_value_locked_token0"`
	TotalValueLockedToken1 decimal.Decimal `json:"total_value_locked_token1"`
	TotalValueLockedETH    decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD    decimal.Decimal `json:"total_value_locked_usd"`
	FeeGrowthGlobal0X128   *uint256.Int    `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128   *uint256.Int    `json:"fee_growth_global1_x128"`
	FeeProtocol0           uint8           `json:"fee_protocol0"`
	FeeProtocol1           uint8           `json:"fee_protocol1"`
	CreatedAtBlock         uint64          `json:"created_at_block"`
	CreatedAtTimestamp     uint64          `json:"created_at_timestamp"`
}

func (p *Pool) EntityKind() Kind { return KindPool }
func (p *Pool) EntityID() string { return p.ID }

// Bundle carries the reference currency price in USD.
type Bundle struct {
	ID          string          `json:"id"`
	EthPriceUSD decimal.Decimal `json:"eth_price_usd"`
}

func (b *Bundle) EntityKind() Kind { return KindBundle }
func (b *Bundle) EntityID() string { return b.ID }

// Factory holds protocol-wide aggregates.
type Factory struct {
	ID                  string          `json:"id"`
	PoolCount           uint64          `json:"pool_count"`
	TxCount             uint64          `json:"tx_count"`
	TotalVolumeETH      decimal.Decimal `json:"total_volume_eth"`
	TotalVolumeUSD      decimal.Decimal `json:"total_volume_usd"`
	UntrackedVolumeUSD  decimal.Decimal `json:"untracked_volume_usd"`
	TotalFeesETH        decimal.Decimal `json:"total_fees_eth"`
	TotalFeesUSD        decimal.Decimal `json:"total_fees_usd"`
	TotalValueLockedETH decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD decimal.Decimal `json:"total_value_locked_usd"`
}

func (f *Factory) EntityKind() Kind { return KindFactory }
func (f *Factory) EntityID() string { return f.ID }

// PoolDeposits counts historical mints into a pool.
type PoolDeposits struct {
	ID    string `json:"id"`
	Count uint64 `json:"count"`
}

func (d *PoolDeposits) EntityKind() Kind { return KindPoolDeposits }
func (d *PoolDeposits) EntityID() string { return d.ID }

// Cursor is the position of the last applied event.
type Cursor struct {
	ID          string `json:"id"`
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

func (c *Cursor) EntityKind() Kind { return KindCursor }
func (c *Cursor) EntityID() string { return c.ID }

// After reports whether (block, logIndex) comes strictly after the cursor.
func (c *Cursor) After(block, logIndex uint64) bool {
	if c == nil {
		return true
	}
	if block != c.BlockNumber {
		return block > c.BlockNumber
	}
	return logIndex > c.LogIndex
}
