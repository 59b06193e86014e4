package storage

import (
	"context"

	"liquidityLedger/internal/model"
)

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// Fanout delivers each batch to every sink in order and stops at the first error.
type Fanout []Storage

func (f Fanout) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.PutLogBatch(ctx, logs); err != nil {
			return err
		}
	}
	return nil
}
