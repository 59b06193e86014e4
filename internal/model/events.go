package model

// Event names as emitted by the factory and pool contracts.
const (
	EventPoolCreated    = "PoolCreated"
	EventInitialize     = "Initialize"
	EventSwap           = "Swap"
	EventMint           = "Mint"
	EventBurn           = "Burn"
	EventSetFeeProtocol = "SetFeeProtocol"
)

// PoolCreatedEventData is the decoded factory PoolCreated event payload.
type PoolCreatedEventData struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	Pool        string `json:"pool"`
}

// InitializeEventData is the decoded Initialize event payload.
type InitializeEventData struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// SwapEventData is the decoded Swap event payload.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// MintEventData is the decoded Mint event payload.
type MintEventData struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData is the decoded Burn event payload.
type BurnEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// SetFeeProtocolEventData is the decoded SetFeeProtocol event payload.
type SetFeeProtocolEventData struct {
	FeeProtocol0Old uint8 `json:"fee_protocol0_old"`
	FeeProtocol1Old uint8 `json:"fee_protocol1_old"`
	FeeProtocol0New uint8 `json:"fee_protocol0_new"`
	FeeProtocol1New uint8 `json:"fee_protocol1_new"`
}
