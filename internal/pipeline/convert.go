package pipeline

import (
	"fmt"
	"math/big"

	"liquidityLedger/internal/config"
	"liquidityLedger/internal/engine"
	"liquidityLedger/internal/model"
	"liquidityLedger/internal/numeric"
)

func eventMeta(ev *model.TypedEvent) engine.EventMeta {
	return engine.EventMeta{
		Pool:        config.NormalizeID(ev.Address),
		BlockNumber: ev.BlockNumber,
		Timestamp:   ev.Timestamp,
		TxHash:      config.NormalizeID(ev.TxHash),
		LogIndex:    ev.LogIndex,
	}
}

func parseInt(field, value string) (*big.Int, error) {
	parsed, ok := numeric.ParseBigInt(value)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q", field, value)
	}
	return parsed, nil
}

func toInitialize(meta engine.EventMeta, data model.InitializeEventData) (engine.Initialize, error) {
	sqrtPrice, err := parseInt("sqrt_price_x96", data.SqrtPriceX96)
	if err != nil {
		return engine.Initialize{}, err
	}
	return engine.Initialize{EventMeta: meta, SqrtPriceX96: sqrtPrice, Tick: data.Tick}, nil
}

func toSwap(meta engine.EventMeta, data model.SwapEventData) (engine.Swap, error) {
	var err error
	swap := engine.Swap{
		EventMeta: meta,
		Sender:    config.NormalizeID(data.Sender),
		Recipient: config.NormalizeID(data.Recipient),
		Tick:      data.Tick,
	}
	if swap.Amount0, err = parseInt("amount0", data.Amount0); err != nil {
		return engine.Swap{}, err
	}
	if swap.Amount1, err = parseInt("amount1", data.Amount1); err != nil {
		return engine.Swap{}, err
	}
	if swap.SqrtPriceX96, err = parseInt("sqrt_price_x96", data.SqrtPriceX96); err != nil {
		return engine.Swap{}, err
	}
	if swap.Liquidity, err = parseInt("liquidity", data.Liquidity); err != nil {
		return engine.Swap{}, err
	}
	return swap, nil
}

func toMint(meta engine.EventMeta, data model.MintEventData) (engine.Mint, error) {
	var err error
	mint := engine.Mint{
		EventMeta: meta,
		Sender:    config.NormalizeID(data.Sender),
		Owner:     config.NormalizeID(data.Owner),
		TickLower: data.TickLower,
		TickUpper: data.TickUpper,
	}
	if mint.Amount, err = parseInt("amount", data.Amount); err != nil {
		return engine.Mint{}, err
	}
	if mint.Amount0, err = parseInt("amount0", data.Amount0); err != nil {
		return engine.Mint{}, err
	}
	if mint.Amount1, err = parseInt("amount1", data.Amount1); err != nil {
		return engine.Mint{}, err
	}
	return mint, nil
}

func toBurn(meta engine.EventMeta, data model.BurnEventData) (engine.Burn, error) {
	var err error
	burn := engine.Burn{
		EventMeta: meta,
		Owner:     config.NormalizeID(data.Owner),
		TickLower: data.TickLower,
		TickUpper: data.TickUpper,
	}
	if burn.Amount, err = parseInt("amount", data.Amount); err != nil {
		return engine.Burn{}, err
	}
	if burn.Amount0, err = parseInt("amount0", data.Amount0); err != nil {
		return engine.Burn{}, err
	}
	if burn.Amount1, err = parseInt("amount1", data.Amount1); err != nil {
		return engine.Burn{}, err
	}
	return burn, nil
}

// poolCreated builds a registration from pool metadata. Live slot0 and
// liquidity, when present, seed pools first seen after initialization.
func poolCreated(meta engine.EventMeta, poolMeta model.PoolMeta, token0, token1 model.TokenMeta) (engine.PoolCreated, error) {
	created := engine.PoolCreated{
		EventMeta:   meta,
		Token0:      tokenInfo(token0),
		Token1:      tokenInfo(token1),
		FeeTier:     poolMeta.Fee,
		TickSpacing: poolMeta.TickSpacing,
	}
	if poolMeta.Slot0 != nil {
		sqrtPrice, err := parseInt("slot0 sqrt_price_x96", poolMeta.Slot0.SqrtPriceX96)
		if err != nil {
			return engine.PoolCreated{}, err
		}
		tick := poolMeta.Slot0.Tick
		created.SqrtPriceX96 = sqrtPrice
		created.Tick = &tick
	}
	if poolMeta.Liquidity != "" {
		liquidity, err := parseInt("liquidity", poolMeta.Liquidity)
		if err != nil {
			return engine.PoolCreated{}, err
		}
		created.Liquidity = liquidity
	}
	for _, balance := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"balance0", poolMeta.Balance0, &created.Balance0},
		{"balance1", poolMeta.Balance1, &created.Balance1},
	} {
		if balance.raw == "" {
			continue
		}
		value, err := parseInt(balance.name, balance.raw)
		if err != nil {
			return engine.PoolCreated{}, err
		}
		*balance.dst = value
	}
	return created, nil
}

func tokenInfo(meta model.TokenMeta) engine.TokenInfo {
	return engine.TokenInfo{
		ID:       config.NormalizeID(meta.Address),
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
	}
}
