package store

import (
	"context"
	"sync"

	"liquidityLedger/internal/model"
)

type key struct {
	kind model.Kind
	id   string
}

// Memory keeps entities in a map. It is used by tests and dry runs.
type Memory struct {
	mu   sync.RWMutex
	data map[key][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[key][]byte)}
}

func (m *Memory) Get(_ context.Context, kind model.Kind, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key{kind, id}]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (m *Memory) Put(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		data := make([]byte, len(rec.Data))
		copy(data, rec.Data)
		m.data[key{rec.Kind, rec.ID}] = data
	}
	return nil
}

// Count returns the number of stored entities of a kind.
func (m *Memory) Count(kind model.Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for k := range m.data {
		if k.kind == kind {
			n++
		}
	}
	return n
}
