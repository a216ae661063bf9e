// Package health defines the connectivity-probe contract and the three-state
// snapshot returned by the health handler.
package health

import (
	"context"
	"errors"
)

// ErrCannotConnect is returned by a Prober when it cleanly determined the
// store is unreachable (as opposed to an unexpected failure while probing).
var ErrCannotConnect = errors.New("health: cannot connect to store")

// Status is a closed three-state health enum.
type Status string

const (
	Healthy   Status = "Healthy"
	Degraded  Status = "Degraded"
	Unhealthy Status = "Unhealthy"
)

// Snapshot is the payload returned by the Health/CHECK action.
type Snapshot struct {
	Status Status `json:"status"`
	DB     Status `json:"db,omitempty"`
}

// Prober is implemented by any store backend so the health handler never
// needs to import a concrete storage package.
type Prober interface {
	Ping(ctx context.Context) error
}
