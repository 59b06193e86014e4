package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityLedger/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(log model.LogRecord) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// ContractCaller performs read-only contract calls. chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ErrUnknownPool marks a pool event whose emitter is not tracked.
var ErrUnknownPool = errors.New("unknown pool")

// PoolResolver looks up metadata for pools that are already tracked.
type PoolResolver interface {
	ResolvePool(ctx context.Context, address string) (model.PoolMeta, bool, error)
}

// DecodeContext provides shared dependencies for decoders.
type DecodeContext struct {
	Context        context.Context
	Chain          ContractCaller
	PoolMetaCache  *PoolMetaCache
	TokenMetaCache *TokenMetaCache
	// Pools is consulted after the cache and before any RPC.
	Pools PoolResolver
	// SkipUnknownPools fails pools missing from the cache and Pools with
	// ErrUnknownPool instead of reading them from chain.
	SkipUnknownPools bool
	Logger           *zap.Logger
	// IncludeLiveMeta reads liquidity, slot0 and balances for pools
	// fetched from chain. Historical blocks need an archive RPC.
	IncludeLiveMeta bool
}

func (c DecodeContext) context() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

func (c DecodeContext) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Decoders tries each decoder in order.
type Decoders []Decoder

func (d Decoders) CanDecode(log model.LogRecord) bool {
	for _, decoder := range d {
		if decoder.CanDecode(log) {
			return true
		}
	}
	return false
}

func (d Decoders) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	for _, decoder := range d {
		if decoder.CanDecode(log) {
			return decoder.Decode(log, ctx)
		}
	}
	return nil, fmt.Errorf("no decoder for log %s#%d", log.TxHash, log.LogIndex)
}

// primeTokens loads missing token metadata into the cache. Failures are
// logged and left uncached so a later event retries them.
func primeTokens(ctx DecodeContext, log model.LogRecord, tokens ...common.Address) {
	if ctx.TokenMetaCache == nil || ctx.Chain == nil {
		return
	}
	for _, token := range tokens {
		if _, ok := ctx.TokenMetaCache.Get(token); ok {
			continue
		}
		meta, err := FetchTokenMeta(ctx.context(), ctx.Chain, token, ctx.logger())
		if err != nil {
			ctx.logger().Warn("token metadata fetch failed",
				append(logFields(log), zap.String("token", token.Hex()), zap.Error(err))...)
			continue
		}
		ctx.TokenMetaCache.Set(token, meta)
	}
}
