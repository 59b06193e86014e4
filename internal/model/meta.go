package model

import "strings"

// PoolMeta describes a pool's immutable parameters. The state fields are
// optional and only filled when a pool is first read from chain.
type PoolMeta struct {
	Token0      string     `json:"token0"`
	Token1      string     `json:"token1"`
	Fee         uint32     `json:"fee"`
	TickSpacing int32      `json:"tick_spacing"`
	Liquidity   string     `json:"liquidity,omitempty"`
	Slot0       *PoolSlot0 `json:"slot0,omitempty"`
	// Raw ERC20 balances held by the pool at the event block.
	Balance0 string `json:"balance0,omitempty"`
	Balance1 string `json:"balance1,omitempty"`
}

// PoolSlot0 includes select slot0 fields.
type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// HasTokens reports whether both token addresses are set.
func (m PoolMeta) HasTokens() bool {
	return m.Token0 != "" && m.Token1 != ""
}

// Immutable strips the block-dependent state.
func (m PoolMeta) Immutable() PoolMeta {
	return PoolMeta{
		Token0:      m.Token0,
		Token1:      m.Token1,
		Fee:         m.Fee,
		TickSpacing: m.TickSpacing,
	}
}

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// Is reports whether t describes address, ignoring checksum case.
func (t TokenMeta) Is(address string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Address), strings.TrimSpace(address))
}

// FindToken returns the entry of tokens describing address.
func FindToken(tokens []TokenMeta, address string) (TokenMeta, bool) {
	for _, token := range tokens {
		if token.Is(address) {
			return token, true
		}
	}
	return TokenMeta{}, false
}

// DecodeError records a raw log the decode command could not turn into an event.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Error       string `json:"error"`
}

// NewDecodeError ties err to the position of record.
func NewDecodeError(record LogRecord, err error) DecodeError {
	out := DecodeError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Error:       err.Error(),
	}
	if len(record.Topics) > 0 {
		out.Topic0 = record.Topics[0]
	}
	return out
}
