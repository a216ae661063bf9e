// Package store defines the set-of-entity persistence contract assumed by
// the CRUD handler and provides two implementations: an in-memory map
// (modeled on the teacher's InMemoryTaskStore) and a bbolt-backed variant
// for callers that need the set to survive a process restart.
package store

import "context"

// Store is the persistence contract spec §1 names as an external
// collaborator: add, find-by-id, enumerate, update, remove, plus a
// connectivity ping — keyed by an integer id assigned on insert. There is
// no separate save step: each write is persisted before its call returns.
type Store[T any] interface {
	// Add inserts a new entity, assigns it a positive id, and returns the
	// assigned id. The write must be durable before Add returns.
	Add(ctx context.Context, entity T) (int64, error)

	// FindByID performs a non-tracking (no implicit write-back) lookup.
	// The second return value is false when no entity has that id.
	FindByID(ctx context.Context, id int64) (T, bool, error)

	// Enumerate returns a snapshot of the entire set. Read-only.
	Enumerate(ctx context.Context) ([]T, error)

	// Update persists entity, whose id must already be assigned.
	Update(ctx context.Context, entity T) error

	// Remove deletes the entity with the given id. Removing an id that is
	// not present is a no-op and returns nil; callers are expected to load-
	// then-remove so NotFound is observed before the mutation per spec §4.4.
	Remove(ctx context.Context, id int64) error

	// Ping verifies connectivity to the underlying storage medium.
	Ping(ctx context.Context) error
}
