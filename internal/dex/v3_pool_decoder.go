package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"liquidityLedger/internal/model"
)

var poolEventNames = []string{
	model.EventInitialize,
	model.EventSwap,
	model.EventMint,
	model.EventBurn,
	model.EventSetFeeProtocol,
}

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	Topic0Map map[string]string
}

// V3PoolDecoder decodes Uniswap V3 pool events.
type V3PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewV3PoolDecoder builds a V3 pool decoder.
func NewV3PoolDecoder(cfg DecoderConfig) (*V3PoolDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, len(poolEventNames))
	for _, name := range poolEventNames {
		topicToName[strings.ToLower(poolABI.Events[name].ID.Hex())] = name
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &V3PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the log's topic0 is a supported pool event.
func (d *V3PoolDecoder) CanDecode(log model.LogRecord) bool {
	if len(log.Topics) == 0 || log.Removed {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *V3PoolDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	// Pool metadata first: events from untracked pools are dropped before
	// their payload is unpacked.
	poolMeta, err := getPoolMeta(ctx, pool, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	switch name {
	case model.EventInitialize:
		decoded, err = d.decodeInitialize(log)
	case model.EventSwap:
		decoded, err = d.decodeSwap(log)
	case model.EventMint:
		decoded, err = d.decodeMint(log)
	case model.EventBurn:
		decoded, err = d.decodeBurn(log)
	case model.EventSetFeeProtocol:
		decoded, err = d.decodeSetFeeProtocol(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}

	event := buildTypedEvent(log, name, decoded, poolMeta)
	event.Tokens = cachedTokens(ctx, poolMeta.Token0, poolMeta.Token1)
	return event, nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "initialize":
		return model.EventInitialize
	case "swap":
		return model.EventSwap
	case "mint":
		return model.EventMint
	case "burn":
		return model.EventBurn
	case "setfeeprotocol":
		return model.EventSetFeeProtocol
	default:
		return ""
	}
}

// getPoolMeta resolves a pool from the cache, then the resolver, then the
// chain. Only pools read from chain carry block state, taken at the parent
// block so the triggering event applies on top of it.
func getPoolMeta(ctx DecodeContext, pool common.Address, blockNumber uint64) (model.PoolMeta, error) {
	if ctx.PoolMetaCache != nil {
		if meta, ok := ctx.PoolMetaCache.Get(pool); ok {
			return meta, nil
		}
	}

	if ctx.Pools != nil {
		meta, ok, err := ctx.Pools.ResolvePool(ctx.context(), pool.Hex())
		if err != nil {
			return model.PoolMeta{}, fmt.Errorf("resolve pool %s: %w", pool.Hex(), err)
		}
		if ok {
			if ctx.PoolMetaCache != nil {
				ctx.PoolMetaCache.Set(pool, meta.Immutable())
			}
			return meta, nil
		}
	}
	if ctx.SkipUnknownPools {
		return model.PoolMeta{}, fmt.Errorf("pool %s: %w", pool.Hex(), ErrUnknownPool)
	}
	if ctx.Chain == nil {
		return model.PoolMeta{}, fmt.Errorf("pool %s: metadata not cached and chain client is nil", pool.Hex())
	}

	meta, err := FetchPoolMeta(ctx.context(), ctx.Chain, pool)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("pool %s: %w", pool.Hex(), err)
	}
	primeTokens(ctx, model.LogRecord{Address: pool.Hex(), BlockNumber: blockNumber},
		common.HexToAddress(meta.Token0), common.HexToAddress(meta.Token1))
	// Without a resolver the cache is the only memory of the pool. With one,
	// a retried first event must read its state again.
	if ctx.PoolMetaCache != nil && ctx.Pools == nil {
		ctx.PoolMetaCache.Set(pool, meta)
	}

	if ctx.IncludeLiveMeta && blockNumber > 0 {
		meta, err = FetchPoolState(ctx.context(), ctx.Chain, pool, meta, blockNumber-1)
		if err != nil {
			return model.PoolMeta{}, fmt.Errorf("pool %s state at %d: %w", pool.Hex(), blockNumber-1, err)
		}
	}
	return meta, nil
}

func cachedTokens(ctx DecodeContext, addresses ...string) []model.TokenMeta {
	if ctx.TokenMetaCache == nil {
		return nil
	}
	out := make([]model.TokenMeta, 0, len(addresses))
	for _, address := range addresses {
		if !common.IsHexAddress(address) {
			continue
		}
		if meta, ok := ctx.TokenMetaCache.Get(common.HexToAddress(address)); ok {
			out = append(out, meta)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}, meta model.PoolMeta) *model.TypedEvent {
	raw := &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PoolMeta:    meta,
		Raw:         raw,
	}
}

func (d *V3PoolDecoder) decodeInitialize(log model.LogRecord) (model.InitializeEventData, error) {
	event := d.poolABI.Events[model.EventInitialize]
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return model.InitializeEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.InitializeEventData{}, err
	}
	if len(values) != 2 {
		return model.InitializeEventData{}, fmt.Errorf("unexpected initialize values: %d", len(values))
	}

	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tick, err := asInt24(values[1])
	if err != nil {
		return model.InitializeEventData{}, err
	}

	return model.InitializeEventData{
		SqrtPriceX96: sqrtPrice.String(),
		Tick:         tick,
	}, nil
}

func (d *V3PoolDecoder) decodeSwap(log model.LogRecord) (model.SwapEventData, error) {
	event := d.poolABI.Events[model.EventSwap]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.SwapEventData{}, err
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.SwapEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SwapEventData{}, err
	}
	if len(values) != 5 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	ints := make([]*big.Int, len(values))
	for i, value := range values {
		if ints[i], err = asBigInt(value); err != nil {
			return model.SwapEventData{}, err
		}
	}
	tick, err := int24FromBig(ints[4])
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		Sender:       indexed.Sender.Hex(),
		Recipient:    indexed.Recipient.Hex(),
		Amount0:      ints[0].String(),
		Amount1:      ints[1].String(),
		SqrtPriceX96: ints[2].String(),
		Liquidity:    ints[3].String(),
		Tick:         tick,
	}, nil
}

type positionTopics struct {
	Owner     common.Address
	TickLower *big.Int
	TickUpper *big.Int
}

func (d *V3PoolDecoder) parsePositionTopics(event abi.Event, topics []string) (common.Address, int32, int32, error) {
	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return common.Address{}, 0, 0, err
	}
	var indexed positionTopics
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return common.Address{}, 0, 0, fmt.Errorf("parse topics: %w", err)
	}
	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return common.Address{}, 0, 0, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return common.Address{}, 0, 0, err
	}
	return indexed.Owner, tickLower, tickUpper, nil
}

func (d *V3PoolDecoder) decodeMint(log model.LogRecord) (model.MintEventData, error) {
	event := d.poolABI.Events[model.EventMint]
	owner, tickLower, tickUpper, err := d.parsePositionTopics(event, log.Topics)
	if err != nil {
		return model.MintEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.MintEventData{}, err
	}
	if len(values) != 4 {
		return model.MintEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}

	sender, err := asAddress(values[0])
	if err != nil {
		return model.MintEventData{}, err
	}
	amount, err := asBigInt(values[1])
	if err != nil {
		return model.MintEventData{}, err
	}
	amount0, err := asBigInt(values[2])
	if err != nil {
		return model.MintEventData{}, err
	}
	amount1, err := asBigInt(values[3])
	if err != nil {
		return model.MintEventData{}, err
	}

	return model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount.String(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

func (d *V3PoolDecoder) decodeBurn(log model.LogRecord) (model.BurnEventData, error) {
	event := d.poolABI.Events[model.EventBurn]
	owner, tickLower, tickUpper, err := d.parsePositionTopics(event, log.Topics)
	if err != nil {
		return model.BurnEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.BurnEventData{}, err
	}
	if len(values) != 3 {
		return model.BurnEventData{}, fmt.Errorf("unexpected burn values: %d", len(values))
	}

	amount, err := asBigInt(values[0])
	if err != nil {
		return model.BurnEventData{}, err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return model.BurnEventData{}, err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return model.BurnEventData{}, err
	}

	return model.BurnEventData{
		Owner:     owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount.String(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

func (d *V3PoolDecoder) decodeSetFeeProtocol(log model.LogRecord) (model.SetFeeProtocolEventData, error) {
	event := d.poolABI.Events[model.EventSetFeeProtocol]
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return model.SetFeeProtocolEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SetFeeProtocolEventData{}, err
	}
	if len(values) != 4 {
		return model.SetFeeProtocolEventData{}, fmt.Errorf("unexpected set fee protocol values: %d", len(values))
	}

	fractions := make([]uint8, len(values))
	for i, value := range values {
		if fractions[i], err = asUint8(value); err != nil {
			return model.SetFeeProtocolEventData{}, err
		}
	}

	return model.SetFeeProtocolEventData{
		FeeProtocol0Old: fractions[0],
		FeeProtocol1Old: fractions[1],
		FeeProtocol0New: fractions[2],
		FeeProtocol1New: fractions[3],
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func logFields(log model.LogRecord) []zap.Field {
	return []zap.Field{
		zap.String("address", log.Address),
		zap.String("tx_hash", log.TxHash),
		zap.Uint64("log_index", log.LogIndex),
	}
}
