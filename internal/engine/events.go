package engine

import "math/big"

// EventMeta locates an event in chain history. Ids are lower-case hex.
type EventMeta struct {
	Pool        string
	BlockNumber uint64
	Timestamp   uint64
	TxHash      string
	LogIndex    uint64
}

// TokenInfo is ERC20 metadata used when a token is first seen.
type TokenInfo struct {
	ID       string
	Symbol   string
	Name     string
	Decimals uint8
}

// PoolCreated registers a pool and its tokens. SqrtPriceX96, Tick and
// Liquidity are optional live state for pools first seen after initialization.
type PoolCreated struct {
	EventMeta
	Token0       TokenInfo
	Token1       TokenInfo
	FeeTier      uint32
	TickSpacing  int32
	SqrtPriceX96 *big.Int
	Tick         *int32
	Liquidity    *big.Int
	// Raw token balances of a pool registered after creation; nil for new pools.
	Balance0 *big.Int
	Balance1 *big.Int
}

type Initialize struct {
	EventMeta
	SqrtPriceX96 *big.Int
	Tick         int32
}

type Swap struct {
	EventMeta
	Sender       string
	Recipient    string
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

type Mint struct {
	EventMeta
	Sender    string
	Owner     string
	TickLower int32
	TickUpper int32
	Amount    *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

type Burn struct {
	EventMeta
	Owner     string
	TickLower int32
	TickUpper int32
	Amount    *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

type SetFeeProtocol struct {
	EventMeta
	FeeProtocol0 uint8
	FeeProtocol1 uint8
}
