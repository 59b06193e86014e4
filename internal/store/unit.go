package store

import (
	"context"
	"encoding/json"
	"fmt"

	"liquidityLedger/internal/model"
)

// Unit is the working set of one event. Entities are loaded once and shared
// by every read in the unit; saved entities are written together on Commit.
type Unit struct {
	backend  Backend
	entities map[key]model.Entity
	dirty    []key
	marked   map[key]struct{}
}

func NewUnit(backend Backend) *Unit {
	return &Unit{
		backend:  backend,
		entities: make(map[key]model.Entity),
		marked:   make(map[key]struct{}),
	}
}

type entityPtr[T any] interface {
	*T
	model.Entity
}

func find[T any, P entityPtr[T]](ctx context.Context, u *Unit, kind model.Kind, id string) (P, bool, error) {
	k := key{kind, id}
	if cached, ok := u.entities[k]; ok {
		typed, ok := cached.(P)
		if !ok {
			return nil, false, fmt.Errorf("%s %s: cached as %T", kind, id, cached)
		}
		return typed, true, nil
	}

	data, ok, err := u.backend.Get(ctx, kind, id)
	if err != nil {
		return nil, false, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	if !ok {
		return nil, false, nil
	}
	var value T
	entity := P(&value)
	if err := json.Unmarshal(data, entity); err != nil {
		return nil, false, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	u.entities[k] = entity
	return entity, true, nil
}

func mustFind[T any, P entityPtr[T]](ctx context.Context, u *Unit, kind model.Kind, id string) (P, error) {
	entity, ok, err := find[T, P](ctx, u, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return entity, nil
}

func (u *Unit) Token(ctx context.Context, id string) (*model.Token, error) {
	return mustFind[model.Token](ctx, u, model.KindToken, id)
}

func (u *Unit) FindToken(ctx context.Context, id string) (*model.Token, bool, error) {
	return find[model.Token](ctx, u, model.KindToken, id)
}

func (u *Unit) Pool(ctx context.Context, id string) (*model.Pool, error) {
	return mustFind[model.Pool](ctx, u, model.KindPool, id)
}

func (u *Unit) FindPool(ctx context.Context, id string) (*model.Pool, bool, error) {
	return find[model.Pool](ctx, u, model.KindPool, id)
}

func (u *Unit) Bundle(ctx context.Context) (*model.Bundle, error) {
	return mustFind[model.Bundle](ctx, u, model.KindBundle, model.BundleID)
}

func (u *Unit) FindBundle(ctx context.Context) (*model.Bundle, bool, error) {
	return find[model.Bundle](ctx, u, model.KindBundle, model.BundleID)
}

func (u *Unit) Factory(ctx context.Context, id string) (*model.Factory, error) {
	return mustFind[model.Factory](ctx, u, model.KindFactory, id)
}

func (u *Unit) FindFactory(ctx context.Context, id string) (*model.Factory, bool, error) {
	return find[model.Factory](ctx, u, model.KindFactory, id)
}

// PoolDeposits returns the deposit counter of a pool, if any mint was seen.
func (u *Unit) PoolDeposits(ctx context.Context, pool string) (*model.PoolDeposits, bool, error) {
	return find[model.PoolDeposits](ctx, u, model.KindPoolDeposits, pool)
}

func (u *Unit) FindSwap(ctx context.Context, id string) (*model.Swap, bool, error) {
	return find[model.Swap](ctx, u, model.KindSwap, id)
}

func (u *Unit) Cursor(ctx context.Context, name string) (*model.Cursor, bool, error) {
	return find[model.Cursor](ctx, u, model.KindCursor, name)
}

// Save stages an entity for the next Commit.
func (u *Unit) Save(entity model.Entity) {
	k := key{entity.EntityKind(), entity.EntityID()}
	u.entities[k] = entity
	if _, ok := u.marked[k]; ok {
		return
	}
	u.marked[k] = struct{}{}
	u.dirty = append(u.dirty, k)
}

// Pending returns the number of staged entities.
func (u *Unit) Pending() int {
	return len(u.dirty)
}

// Commit writes every staged entity in one backend call.
func (u *Unit) Commit(ctx context.Context) error {
	if len(u.dirty) == 0 {
		return nil
	}
	records := make([]Record, 0, len(u.dirty))
	for _, k := range u.dirty {
		data, err := json.Marshal(u.entities[k])
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", k.kind, k.id, err)
		}
		records = append(records, Record{Kind: k.kind, ID: k.id, Data: data})
	}
	if err := u.backend.Put(ctx, records); err != nil {
		return fmt.Errorf("commit %d entities: %w", len(records), err)
	}
	u.dirty = u.dirty[:0]
	u.marked = make(map[key]struct{})
	return nil
}
