// Package entity defines the keyed-entity contract assumed by the generic
// CRUD handler: a mutable integer id plus created/updated timestamps.
package entity

import "time"

// Keyed is implemented by any entity managed by the CRUD handler. id==0
// denotes "unassigned"; the store assigns a positive id on insert.
type Keyed interface {
	GetID() int64
	SetID(id int64)
	Touch(now time.Time)
}

// Base is embedded by concrete entity types to satisfy Keyed without
// repeating the bookkeeping fields on every resource.
type Base struct {
	ID        int64     `json:"id,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func (b *Base) GetID() int64     { return b.ID }
func (b *Base) SetID(id int64)   { b.ID = id }

// Touch stamps UpdatedAt, and CreatedAt the first time it is called.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}
