package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"liquidityLedger/internal/model"
)

// V3FactoryDecoder decodes PoolCreated from a single factory. Pools created by
// other factories sharing the same event signature are ignored.
type V3FactoryDecoder struct {
	factoryABI abi.ABI
	factory    common.Address
	topic0     string
}

func NewV3FactoryDecoder(factory string) (*V3FactoryDecoder, error) {
	if !common.IsHexAddress(factory) {
		return nil, fmt.Errorf("invalid factory address: %s", factory)
	}
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return nil, err
	}
	return &V3FactoryDecoder{
		factoryABI: factoryABI,
		factory:    common.HexToAddress(factory),
		topic0:     strings.ToLower(factoryABI.Events[model.EventPoolCreated].ID.Hex()),
	}, nil
}

func (d *V3FactoryDecoder) CanDecode(log model.LogRecord) bool {
	if len(log.Topics) == 0 || log.Removed {
		return false
	}
	if strings.ToLower(log.Topics[0]) != d.topic0 {
		return false
	}
	return common.IsHexAddress(log.Address) && common.HexToAddress(log.Address) == d.factory
}

// Decode converts PoolCreated into a TypedEvent whose PoolMeta describes the
// new pool. The pool metadata cache is primed so later pool events skip RPC.
func (d *V3FactoryDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	event := d.factoryABI.Events[model.EventPoolCreated]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
		Fee    *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected pool created values: %d", len(values))
	}
	tickSpacing, err := asInt24(values[0])
	if err != nil {
		return nil, err
	}
	pool, err := asAddress(values[1])
	if err != nil {
		return nil, err
	}
	if indexed.Fee == nil || !indexed.Fee.IsUint64() || indexed.Fee.Uint64() > 1<<24-1 {
		return nil, fmt.Errorf("invalid fee tier: %v", indexed.Fee)
	}

	data := model.PoolCreatedEventData{
		Token0:      indexed.Token0.Hex(),
		Token1:      indexed.Token1.Hex(),
		Fee:         uint32(indexed.Fee.Uint64()),
		TickSpacing: tickSpacing,
		Pool:        pool.Hex(),
	}
	meta := model.PoolMeta{
		Token0:      data.Token0,
		Token1:      data.Token1,
		Fee:         data.Fee,
		TickSpacing: data.TickSpacing,
	}
	if ctx.PoolMetaCache != nil {
		ctx.PoolMetaCache.Set(pool, meta)
	}

	primeTokens(ctx, log, indexed.Token0, indexed.Token1)

	typed := buildTypedEvent(log, model.EventPoolCreated, data, meta)
	typed.Tokens = cachedTokens(ctx, data.Token0, data.Token1)
	return typed, nil
}
