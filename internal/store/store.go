package store

import (
	"context"
	"errors"

	"liquidityLedger/internal/model"
)

// ErrNotFound is returned when a required entity is absent.
var ErrNotFound = errors.New("entity not found")

// Record is one serialised entity.
type Record struct {
	Kind model.Kind
	ID   string
	Data []byte
}

// Backend is durable key-value storage for entities.
// Put must apply all records atomically.
type Backend interface {
	Get(ctx context.Context, kind model.Kind, id string) ([]byte, bool, error)
	Put(ctx context.Context, records []Record) error
}
