// Package crudhandler implements the generic DATA bus handler bound to a
// (store, entity type, resource-name) triple, per spec §4.4.
package crudhandler

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/entity"
	"github.com/theapemachine/busrpc/params"
	"github.com/theapemachine/busrpc/store"
	"github.com/theapemachine/busrpc/wire"
)

// Handler is a polymorphic CRUD bus handler, parameterised by capability
// rather than inheritance (spec §9's "interface + factory" design note):
// the store supplies persistence, T supplies the codec via encoding/json.
type Handler[T entity.Keyed] struct {
	resource string
	store    store.Store[T]
}

// New registers one Handler instance per resource, bound to store.
func New[T entity.Keyed](resource string, st store.Store[T]) *Handler[T] {
	return &Handler[T]{resource: resource, store: st}
}

func (h *Handler[T]) Type() wire.MessageType { return wire.Data }
func (h *Handler[T]) Resource() string       { return h.resource }

// Handle dispatches on upper(action). See spec §4.4 for the action table.
func (h *Handler[T]) Handle(ctx context.Context, msg *wire.BusMessage) (string, error) {
	switch msg.UpperAction() {
	case "CREATE":
		return h.create(ctx, msg)
	case "GET":
		return h.get(ctx, msg)
	case "LIST":
		return h.list(ctx)
	case "UPDATE":
		return h.update(ctx, msg)
	case "DELETE":
		return h.delete(ctx, msg)
	default:
		return "", apperr.New(apperr.InternalServerError, "ACTION_NOT_IMPLEMENTED", "unknown action").WithDetails(msg.Action)
	}
}

func (h *Handler[T]) create(ctx context.Context, msg *wire.BusMessage) (string, error) {
	if msg.Data == nil || *msg.Data == "" {
		return "", apperr.New(apperr.BadRequest, "DATA_MANDATORY", "data is required for CREATE")
	}

	e, err := params.ToObject[T](msg.Data)
	if err != nil {
		return "", err
	}

	id, err := h.store.Add(ctx, e)
	if err != nil {
		return "", asInternal(err)
	}

	return strconv.FormatInt(id, 10), nil
}

func (h *Handler[T]) get(ctx context.Context, msg *wire.BusMessage) (string, error) {
	if msg.ID == nil {
		return "", apperr.New(apperr.BadRequest, "ID_MANDATORY", "id is required for GET")
	}

	e, ok, err := h.store.FindByID(ctx, *msg.ID)
	if err != nil {
		return "", asInternal(err)
	}
	if !ok {
		return "", apperr.New(apperr.NotFound, "NOT_FOUND", "Cannot find ressource")
	}

	return encode(e)
}

func (h *Handler[T]) list(ctx context.Context) (string, error) {
	all, err := h.store.Enumerate(ctx)
	if err != nil {
		return "", asInternal(err)
	}
	return encode(all)
}

func (h *Handler[T]) update(ctx context.Context, msg *wire.BusMessage) (string, error) {
	if msg.ID == nil {
		return "", apperr.New(apperr.BadRequest, "ID_MANDATORY", "id is required for UPDATE")
	}
	if msg.Data == nil || *msg.Data == "" {
		return "", apperr.New(apperr.BadRequest, "DATA_MANDATORY", "data is required for UPDATE")
	}

	e, err := params.ToObject[T](msg.Data)
	if err != nil {
		return "", err
	}

	// The message's id parameter wins over whatever id the decoded body
	// carries, per spec §9 Open Question 2: UPDATE addresses the same
	// resource GET/DELETE address, by the same parameter.
	e.SetID(*msg.ID)

	if err := h.store.Update(ctx, e); err != nil {
		return "", asInternal(err)
	}

	return "true", nil
}

func (h *Handler[T]) delete(ctx context.Context, msg *wire.BusMessage) (string, error) {
	if msg.ID == nil {
		return "", apperr.New(apperr.BadRequest, "ID_MANDATORY", "id is required for DELETE")
	}

	// Load-then-remove so NotFound surfaces before any mutation.
	_, ok, err := h.store.FindByID(ctx, *msg.ID)
	if err != nil {
		return "", asInternal(err)
	}
	if !ok {
		return "", apperr.New(apperr.NotFound, "NOT_FOUND", "Cannot find ressource")
	}

	if err := h.store.Remove(ctx, *msg.ID); err != nil {
		return "", asInternal(err)
	}

	return "true", nil
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", asInternal(err)
	}
	return string(data), nil
}

func asInternal(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(apperr.InternalServerError, "STORE_ERROR", "storage operation failed", err)
}
