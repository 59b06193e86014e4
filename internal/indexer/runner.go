package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityLedger/internal/model"
	"liquidityLedger/internal/storage"
)

// RunConfig holds runtime settings for the indexer. Empty Addresses match
// every contract emitting one of Topic0.
type RunConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	Addresses    []common.Address
	Topic0       []common.Hash
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// CursorSource reports the last applied event, or nil before the first one.
type CursorSource interface {
	Cursor(ctx context.Context) (*model.Cursor, error)
}

// LogSource is the subset of the chain client the runner reads from.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Runner streams logs from the chain and writes them to storage.
type Runner struct {
	cfg     RunConfig
	chain   LogSource
	storage storage.Storage
	cursor  CursorSource
	logger  *zap.Logger
	retry   retrier
	seen    map[string]struct{}
}

// NewRunner builds a Runner with its dependencies. cursor may be nil.
func NewRunner(cfg RunConfig, chainClient LogSource, storageSink storage.Storage, cursor CursorSource, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		chain:   chainClient,
		storage: storageSink,
		cursor:  cursor,
		logger:  logger,
		retry:   newRetrier(cfg.MaxRetries, cfg.RetryBackoff, logger),
		seen:    make(map[string]struct{}),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 && len(r.cfg.Topic0) == 0 {
		return fmt.Errorf("an address or topic0 filter is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	// The cursor block is fetched again; its applied logs are skipped downstream.
	if r.cursor != nil {
		cursor, err := r.cursor.Cursor(ctx)
		if err != nil {
			return err
		}
		if cursor != nil && cursor.BlockNumber >= from {
			from = cursor.BlockNumber
			r.logger.Info("resume from cursor",
				zap.Uint64("block", cursor.BlockNumber),
				zap.Uint64("log_index", cursor.LogIndex),
				zap.Uint64("from", from),
			)
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	for blockRange := range blockRanges(from, to, r.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		rangeFields := []zap.Field{zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To)}
		r.logger.Info("fetch logs", rangeFields...)

		var logs []types.Log
		err := r.retry.do(ctx, "filter logs", func(ctx context.Context) error {
			var err error
			logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Addresses, r.cfg.Topic0)
			return err
		}, rangeFields...)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		records, err := r.buildBatch(ctx, chainIDValue, logs)
		if err != nil {
			return err
		}

		// The sink resumes from its cursor, so a retried batch is not applied twice.
		err = r.retry.do(ctx, "store logs", func(ctx context.Context) error {
			return r.storage.PutLogBatch(ctx, records)
		}, rangeFields...)
		if err != nil {
			return fmt.Errorf("store logs: %w", err)
		}

		r.logger.Info("batch complete", append(rangeFields, zap.Int("logs", len(records)))...)
	}

	return nil
}
