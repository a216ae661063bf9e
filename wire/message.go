// Package wire defines the on-wire JSON envelopes that turn a broker queue
// into an RPC endpoint: BusMessage on the request path, RpcEnvelope/RpcError
// on the reply path.
package wire

import (
	"encoding/json"
	"strings"

	"github.com/theapemachine/busrpc/apperr"
)

// MessageType is the coarse handler category addressed by a BusMessage.
type MessageType string

const (
	Data  MessageType = "DATA"
	App   MessageType = "APP"
	Infra MessageType = "INFRA"
)

func (t MessageType) valid() bool {
	switch t {
	case Data, App, Infra:
		return true
	default:
		return false
	}
}

// BusMessage is the request envelope placed on a broker queue.
type BusMessage struct {
	Type     MessageType `json:"type"`
	Resource string      `json:"resource"`
	Action   string      `json:"action"`
	ID       *int64      `json:"id,omitempty"`
	Data     *string     `json:"data,omitempty"`
}

// UpperAction returns the action compared case-insensitively, per spec §3.
func (m *BusMessage) UpperAction() string {
	return strings.ToUpper(m.Action)
}

// DecodeBusMessage strictly decodes body into a BusMessage. Unparsable
// payloads surface as BadRequest{DATA_INVALID}; unknown message types are
// rejected at this boundary rather than silently accepted.
func DecodeBusMessage(body []byte) (*BusMessage, error) {
	var msg BusMessage
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		return nil, apperr.New(apperr.BadRequest, "DATA_INVALID", "invalid payload").WithDetails(err.Error())
	}

	if msg.Resource == "" {
		return nil, apperr.New(apperr.BadRequest, "DATA_INVALID", "resource is required")
	}
	if msg.Action == "" {
		return nil, apperr.New(apperr.BadRequest, "DATA_INVALID", "action is required")
	}
	if !msg.Type.valid() {
		return nil, apperr.New(apperr.BadRequest, "DATA_INVALID", "unknown message type").WithDetails(string(msg.Type))
	}

	return &msg, nil
}
