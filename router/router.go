// Package router matches an incoming BusMessage to exactly one registered
// handler by (type, resource), per spec §4.6.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/wire"
)

// Handler is satisfied by every bus handler (crudhandler.Handler,
// healthhandler.Handler, and any custom APP handler).
type Handler interface {
	Type() wire.MessageType
	Resource() string
	Handle(ctx context.Context, msg *wire.BusMessage) (string, error)
}

type key struct {
	typ      wire.MessageType
	resource string
}

func keyOf(typ wire.MessageType, resource string) key {
	return key{typ: typ, resource: strings.ToUpper(resource)}
}

// Router selects a handler for an incoming message. Grounded on the
// teacher's pkg/service/jsonrpc.go method-name map, generalized from a
// single string key to the (type, resource) pair.
type Router struct {
	handlers map[key]Handler
}

// New constructs a Router from a finite set of handlers. Duplicate
// (type, resource) registrations are a startup misconfiguration and fail
// fast here rather than being discovered at request time.
func New(handlers ...Handler) (*Router, error) {
	m := make(map[key]Handler, len(handlers))
	for _, h := range handlers {
		k := keyOf(h.Type(), h.Resource())
		if _, exists := m[k]; exists {
			return nil, fmt.Errorf("router: duplicate handler registered for type=%s resource=%s", h.Type(), h.Resource())
		}
		m[k] = h
	}
	return &Router{handlers: m}, nil
}

// Route forwards msg unchanged to the uniquely matching handler and
// returns its JSON string result verbatim. The router does not interpret
// action.
func (r *Router) Route(ctx context.Context, msg *wire.BusMessage) (string, error) {
	h, ok := r.handlers[keyOf(msg.Type, msg.Resource)]
	if !ok {
		return "", apperr.New(apperr.NotFound, "SERVICE_NOT_FOUND", "no handler registered for this resource")
	}
	return h.Handle(ctx, msg)
}
