package store

import (
	"context"
	"sync"
	"time"

	"github.com/theapemachine/busrpc/entity"
)

// Memory is a concurrency-safe in-memory Store, grounded on the teacher's
// pkg/stores/task_store.go InMemoryTaskStore: a mutex-guarded map keyed by
// id, with a monotonically increasing id counter.
//
// FindByID and Enumerate return the stored values themselves, not copies:
// for pointer entity types, mutating a returned entity changes the stored
// one without a call to Update.
type Memory[T entity.Keyed] struct {
	mu     sync.RWMutex
	lastID int64
	data   map[int64]T
}

// NewMemory constructs an empty in-memory store.
func NewMemory[T entity.Keyed]() *Memory[T] {
	return &Memory[T]{data: make(map[int64]T)}
}

func (m *Memory[T]) Add(_ context.Context, e T) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	e.SetID(m.lastID)
	e.Touch(time.Now().UTC())
	m.data[m.lastID] = e
	return m.lastID, nil
}

func (m *Memory[T]) FindByID(_ context.Context, id int64) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[id]
	return e, ok, nil
}

func (m *Memory[T]) Enumerate(_ context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, 0, len(m.data))
	for _, e := range m.data {
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory[T]) Update(_ context.Context, e T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Touch(time.Now().UTC())
	m.data[e.GetID()] = e
	return nil
}

func (m *Memory[T]) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	return nil
}

func (m *Memory[T]) Ping(_ context.Context) error {
	return nil
}
