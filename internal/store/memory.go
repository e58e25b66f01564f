package store

import (
	"context"
	"sync"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
)

// Memory is an in-process keyed store safe for concurrent use. It satisfies
// both the Primary and Shadow contracts, which makes it the reference shadow
// backend and the stand-in primary for tests and stub mode.
type Memory struct {
	mu    sync.RWMutex
	items map[string]domain.Entity
	order []string // creation order, for stable pagination
}

var (
	_ Primary = (*Memory)(nil)
	_ Shadow  = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]domain.Entity)}
}

func (m *Memory) Create(_ context.Context, e domain.Entity) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.items[e.ID] = e.Clone()
	return e, nil
}

func (m *Memory) Update(_ context.Context, id string, fields map[string]any) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok {
		return domain.Entity{}, ErrNotFound
	}
	next := cur.Clone()
	for k, v := range fields {
		next.Fields[k] = v
	}
	m.items[id] = next
	return next.Clone(), nil
}

// Delete removes the entity and reports whether it existed. A missing ID is
// not an error; delete is idempotent under both contracts.
func (m *Memory) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*domain.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	c := e.Clone()
	return &c, nil
}

func (m *Memory) FindAll(_ context.Context, limit, offset int) ([]domain.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset >= len(m.order) || limit <= 0 {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.order) {
		end = len(m.order)
	}
	out := make([]domain.Entity, 0, end-offset)
	for _, id := range m.order[offset:end] {
		out = append(out, m.items[id].Clone())
	}
	return out, nil
}

// List is FindAll under the Primary contract's name.
func (m *Memory) List(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	return m.FindAll(ctx, limit, offset)
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *Memory) AllIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids, nil
}

// Reset clears all contents. Test isolation hook.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]domain.Entity)
	m.order = nil
}
