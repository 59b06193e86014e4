// Package pipeline feeds decoded chain events through the engine, one
// committed unit of work per event, tracking progress in a stored cursor.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityLedger/internal/config"
	"liquidityLedger/internal/dex"
	"liquidityLedger/internal/engine"
	"liquidityLedger/internal/metrics"
	"liquidityLedger/internal/model"
	"liquidityLedger/internal/storage"
	"liquidityLedger/internal/store"
)

// Skip reasons recorded in metrics.
const (
	SkipReplayed    = "replayed"
	SkipUnknownPool = "unknown_pool"
	SkipUndecodable = "undecodable"
	SkipDecodeError = "decode_error"
)

// DefaultCursor names the cursor used when none is configured.
const DefaultCursor = "default"

// Config wires a Processor.
type Config struct {
	Engine  *engine.Engine
	Backend store.Backend
	// Decoder and DecodeContext are needed only for raw logs.
	Decoder       dex.Decoder
	DecodeContext dex.DecodeContext
	Metrics       *metrics.Metrics
	CursorName    string
	// RegisterUnknownPools registers pools on their first event from
	// PoolMeta; otherwise only factory PoolCreated registers pools.
	RegisterUnknownPools bool
}

// Stats counts what a Processor did.
type Stats struct {
	Total   int
	Applied int
	Skipped int
	Failed  int
}

// Processor applies events in chain order. It is not safe for concurrent use.
type Processor struct {
	cfg          Config
	logger       *zap.Logger
	cursor       *model.Cursor
	cursorLoaded bool
	stats        Stats
}

func NewProcessor(cfg Config, logger *zap.Logger) (*Processor, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	if cfg.CursorName == "" {
		cfg.CursorName = DefaultCursor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{cfg: cfg, logger: logger}, nil
}

// Stats returns counters accumulated so far.
func (p *Processor) Stats() Stats {
	return p.stats
}

// Cursor returns the last applied position, or nil before the first event.
func (p *Processor) Cursor(ctx context.Context) (*model.Cursor, error) {
	if p.cursorLoaded {
		return p.cursor, nil
	}
	cursor, ok, err := store.NewUnit(p.cfg.Backend).Cursor(ctx, p.cfg.CursorName)
	if err != nil {
		return nil, fmt.Errorf("load cursor %s: %w", p.cfg.CursorName, err)
	}
	if ok {
		p.cursor = cursor
	}
	p.cursorLoaded = true
	return p.cursor, nil
}

// PutLogBatch decodes and applies raw logs, so a Processor can sit behind
// the indexer runner as a storage sink. A log that fails to decode stops the
// batch before the cursor passes it; the runner retries from the cursor.
func (p *Processor) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if p.cfg.Decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	decodeCtx := p.cfg.DecodeContext
	decodeCtx.Context = ctx
	decodeCtx.Pools = p
	decodeCtx.SkipUnknownPools = !p.cfg.RegisterUnknownPools

	cursor, err := p.Cursor(ctx)
	if err != nil {
		return err
	}
	for _, log := range logs {
		// Replayed logs are not decoded again.
		if !cursor.After(log.BlockNumber, log.LogIndex) {
			p.stats.Total++
			p.stats.Skipped++
			p.cfg.Metrics.EventSkipped(SkipReplayed)
			continue
		}
		if !p.cfg.Decoder.CanDecode(log) {
			p.cfg.Metrics.EventSkipped(SkipUndecodable)
			continue
		}
		event, err := p.cfg.Decoder.Decode(log, decodeCtx)
		if errors.Is(err, dex.ErrUnknownPool) {
			p.stats.Total++
			p.stats.Skipped++
			p.cfg.Metrics.EventSkipped(SkipUnknownPool)
			continue
		}
		if err != nil {
			p.stats.Failed++
			p.cfg.Metrics.EventSkipped(SkipDecodeError)
			return fmt.Errorf("decode %s#%d at block %d: %w", log.TxHash, log.LogIndex, log.BlockNumber, err)
		}
		if err := p.Apply(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// ResolvePool serves metadata of tracked pools from the store, so decoding
// their events needs no RPC.
func (p *Processor) ResolvePool(ctx context.Context, address string) (model.PoolMeta, bool, error) {
	pool, ok, err := store.NewUnit(p.cfg.Backend).FindPool(ctx, config.NormalizeID(address))
	if err != nil || !ok {
		return model.PoolMeta{}, false, err
	}
	return model.PoolMeta{
		Token0:      pool.Token0,
		Token1:      pool.Token1,
		Fee:         pool.FeeTier,
		TickSpacing: pool.TickSpacing,
	}, true, nil
}

// ProcessFile applies a typed events JSONL file written by the decode
// command. Malformed lines are counted and skipped.
func (p *Processor) ProcessFile(ctx context.Context, path string) error {
	return storage.ReadJSONL(ctx, path, func(line []byte) error {
		event := &model.TypedEvent{}
		if err := json.Unmarshal(line, event); err != nil {
			p.stats.Failed++
			p.logger.Warn("decode typed event", zap.Error(err), zap.String("tx_hash", event.TxHash))
			return nil
		}
		return p.Apply(ctx, event)
	})
}

// Apply runs one event through the engine and commits its entities together
// with the advanced cursor. Events at or before the cursor are skipped.
func (p *Processor) Apply(ctx context.Context, ev *model.TypedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.stats.Total++

	cursor, err := p.Cursor(ctx)
	if err != nil {
		return err
	}
	if !cursor.After(ev.BlockNumber, ev.LogIndex) {
		p.stats.Skipped++
		p.cfg.Metrics.EventSkipped(SkipReplayed)
		return nil
	}

	u := store.NewUnit(p.cfg.Backend)
	applied, err := p.dispatch(ctx, u, ev)
	if err != nil {
		return fmt.Errorf("%s %s#%d: %w", ev.EventName, ev.TxHash, ev.LogIndex, err)
	}

	next := &model.Cursor{ID: p.cfg.CursorName, BlockNumber: ev.BlockNumber, LogIndex: ev.LogIndex}
	u.Save(next)

	started := time.Now()
	pending := u.Pending()
	if err := u.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s#%d: %w", ev.TxHash, ev.LogIndex, err)
	}
	p.cfg.Metrics.ObserveCommit(started, pending)
	p.cfg.Metrics.SetLastBlock(ev.BlockNumber)
	p.cursor = next

	if applied {
		p.stats.Applied++
	} else {
		p.stats.Skipped++
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, u *store.Unit, ev *model.TypedEvent) (bool, error) {
	meta := eventMeta(ev)
	eng := p.cfg.Engine

	if data, ok := ev.Decoded.(model.PoolCreatedEventData); ok {
		meta.Pool = config.NormalizeID(data.Pool)
		poolMeta := model.PoolMeta{Token0: data.Token0, Token1: data.Token1, Fee: data.Fee, TickSpacing: data.TickSpacing}
		created, err := p.registration(ctx, meta, poolMeta, ev.Tokens)
		if err != nil {
			return false, err
		}
		if err := eng.RegisterPool(ctx, u, created); err != nil {
			return false, err
		}
		return true, nil
	}

	known, err := p.ensurePool(ctx, u, meta, ev)
	if err != nil || !known {
		return false, err
	}

	switch data := ev.Decoded.(type) {
	case model.InitializeEventData:
		initialize, err := toInitialize(meta, data)
		if err != nil {
			return false, err
		}
		return true, eng.HandleInitialize(ctx, u, initialize)
	case model.SwapEventData:
		swap, err := toSwap(meta, data)
		if err != nil {
			return false, err
		}
		return true, eng.HandleSwap(ctx, u, swap)
	case model.MintEventData:
		mint, err := toMint(meta, data)
		if err != nil {
			return false, err
		}
		return true, eng.HandleMint(ctx, u, mint)
	case model.BurnEventData:
		burn, err := toBurn(meta, data)
		if err != nil {
			return false, err
		}
		return true, eng.HandleBurn(ctx, u, burn)
	case model.SetFeeProtocolEventData:
		return true, eng.HandleSetFeeProtocol(ctx, u, engine.SetFeeProtocol{
			EventMeta:    meta,
			FeeProtocol0: data.FeeProtocol0New,
			FeeProtocol1: data.FeeProtocol1New,
		})
	default:
		return false, fmt.Errorf("unsupported payload %T", ev.Decoded)
	}
}

// ensurePool reports whether the event's pool is tracked, registering it from
// the event's PoolMeta when unknown pools are accepted.
func (p *Processor) ensurePool(ctx context.Context, u *store.Unit, meta engine.EventMeta, ev *model.TypedEvent) (bool, error) {
	if _, ok, err := u.FindPool(ctx, meta.Pool); err != nil || ok {
		return ok, err
	}
	if !p.cfg.RegisterUnknownPools || !ev.PoolMeta.HasTokens() {
		p.cfg.Metrics.EventSkipped(SkipUnknownPool)
		p.logger.Debug("skip event for unknown pool",
			zap.String("pool", meta.Pool),
			zap.String("event", ev.EventName),
			zap.String("tx_hash", meta.TxHash),
		)
		return false, nil
	}

	created, err := p.registration(ctx, meta, ev.PoolMeta, ev.Tokens)
	if err != nil {
		return false, err
	}
	if err := p.cfg.Engine.RegisterPool(ctx, u, created); err != nil {
		return false, err
	}
	p.logger.Info("registered pool on first event",
		zap.String("pool", meta.Pool),
		zap.String("event", ev.EventName),
		zap.Uint64("block", meta.BlockNumber),
	)
	return true, nil
}

func (p *Processor) registration(ctx context.Context, meta engine.EventMeta, poolMeta model.PoolMeta, tokens []model.TokenMeta) (engine.PoolCreated, error) {
	token0, err := p.tokenMeta(ctx, poolMeta.Token0, tokens)
	if err != nil {
		return engine.PoolCreated{}, err
	}
	token1, err := p.tokenMeta(ctx, poolMeta.Token1, tokens)
	if err != nil {
		return engine.PoolCreated{}, err
	}
	return poolCreated(meta, poolMeta, token0, token1)
}

// tokenMeta resolves ERC20 metadata from the event, then the decode cache,
// then the chain.
func (p *Processor) tokenMeta(ctx context.Context, address string, tokens []model.TokenMeta) (model.TokenMeta, error) {
	id := config.NormalizeID(address)
	if token, ok := model.FindToken(tokens, address); ok {
		return token, nil
	}
	if !common.IsHexAddress(address) {
		return model.TokenMeta{}, fmt.Errorf("invalid token address: %s", address)
	}
	addr := common.HexToAddress(address)

	cache := p.cfg.DecodeContext.TokenMetaCache
	if cache != nil {
		if meta, ok := cache.Get(addr); ok {
			return meta, nil
		}
	}
	if p.cfg.DecodeContext.Chain == nil {
		return model.TokenMeta{}, fmt.Errorf("token %s: metadata unavailable", id)
	}
	meta, err := dex.FetchTokenMeta(ctx, p.cfg.DecodeContext.Chain, addr, p.logger)
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("token %s: %w", id, err)
	}
	if cache != nil {
		cache.Set(addr, meta)
	}
	return meta, nil
}
