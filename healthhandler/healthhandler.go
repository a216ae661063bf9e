// Package healthhandler implements the INFRA/Health bus handler: a single
// CHECK action that probes store connectivity and never propagates errors
// to the caller (spec §4.5).
package healthhandler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/health"
	"github.com/theapemachine/busrpc/wire"
)

const Resource = "Health"

// Handler is the INFRA/Health bus handler.
type Handler struct {
	prober health.Prober
}

// New binds a Handler to the given connectivity probe.
func New(prober health.Prober) *Handler {
	return &Handler{prober: prober}
}

func (h *Handler) Type() wire.MessageType { return wire.Infra }
func (h *Handler) Resource() string       { return Resource }

// Handle dispatches CHECK; any other action is ACTION_NOT_IMPLEMENTED.
func (h *Handler) Handle(ctx context.Context, msg *wire.BusMessage) (string, error) {
	if msg.UpperAction() != "CHECK" {
		return "", apperr.New(apperr.InternalServerError, "ACTION_NOT_IMPLEMENTED", "unknown action").WithDetails(msg.Action)
	}

	snap := h.probe(ctx)

	data, err := json.Marshal(snap)
	if err != nil {
		return "", apperr.Wrap(apperr.InternalServerError, "ENCODE_ERROR", "failed to encode health snapshot", err)
	}
	return string(data), nil
}

func (h *Handler) probe(ctx context.Context) health.Snapshot {
	err := h.prober.Ping(ctx)
	switch {
	case err == nil:
		return health.Snapshot{Status: health.Healthy, DB: health.Healthy}
	case errors.Is(err, health.ErrCannotConnect):
		return health.Snapshot{Status: health.Healthy, DB: health.Degraded}
	default:
		return health.Snapshot{Status: health.Unhealthy, DB: health.Unhealthy}
	}
}
