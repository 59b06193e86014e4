package indexer

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"liquidityLedger/internal/model"
)

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// blockRanges walks [from, to] in windows of at most size blocks.
func blockRanges(from, to, size uint64) iter.Seq[BlockRange] {
	return func(yield func(BlockRange) bool) {
		if size == 0 {
			return
		}
		for start := from; start <= to; {
			end := to
			if to-start >= size {
				end = start + size - 1
			}
			if !yield(BlockRange{From: start, To: end}) || end == to {
				return
			}
			start = end + 1
		}
	}
}

// buildBatch drops logs already delivered, stamps block timestamps and
// returns the rest in (block, log index) order; handlers rely on it.
func (r *Runner) buildBatch(ctx context.Context, chainID uint64, logs []types.Log) ([]model.LogRecord, error) {
	ingestedAt := time.Now().UTC().Format(time.RFC3339Nano)
	timestamps := make(map[uint64]uint64)
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if r.isDuplicate(log) {
			continue
		}

		ts, ok := timestamps[log.BlockNumber]
		if !ok {
			err := r.retry.do(ctx, "block timestamp", func(ctx context.Context) error {
				var err error
				ts, err = r.chain.BlockTimestamp(ctx, log.BlockNumber)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			timestamps[log.BlockNumber] = ts
		}

		topics := make([]string, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, topic.Hex())
		}
		records = append(records, model.LogRecord{
			ChainID:     chainID,
			BlockNumber: log.BlockNumber,
			BlockHash:   log.BlockHash.Hex(),
			TxHash:      log.TxHash.Hex(),
			TxIndex:     uint64(log.TxIndex),
			LogIndex:    uint64(log.Index),
			Address:     log.Address.Hex(),
			Topics:      topics,
			Data:        hexutil.Encode(log.Data),
			Removed:     log.Removed,
			Timestamp:   ts,
			IngestedAt:  ingestedAt,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber < records[j].BlockNumber
		}
		return records[i].LogIndex < records[j].LogIndex
	})
	return records, nil
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
