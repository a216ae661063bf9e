package wire

import (
	"encoding/json"

	"github.com/theapemachine/busrpc/apperr"
)

// RpcError is the wire shape of a remote failure, carried inside an
// RpcEnvelope whose ok field is false.
type RpcError struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// RpcEnvelope is the reply envelope published to a producer's reply queue.
// Exactly one of Data/Error is meaningful, selected by OK.
type RpcEnvelope struct {
	OK    bool      `json:"ok"`
	Data  *string   `json:"data,omitempty"`
	Error *RpcError `json:"error,omitempty"`
}

// Success builds an ok=true envelope carrying the handler's string result.
func Success(data string) *RpcEnvelope {
	return &RpcEnvelope{OK: true, Data: &data}
}

// Failure builds an ok=false envelope from an AppError.
func Failure(err *apperr.Error) *RpcEnvelope {
	e := &RpcError{
		Code:    err.Code(),
		Message: err.Message(),
	}
	if d := err.Details(); d != "" {
		e.Details = &d
	}
	return &RpcEnvelope{OK: false, Error: e}
}

// Marshal encodes env as JSON, per the wire format in spec §6.
func (e *RpcEnvelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope decodes body into an RpcEnvelope.
func DecodeEnvelope(body []byte) (*RpcEnvelope, error) {
	var env RpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// AsAppError reconstructs a typed failure from a remote envelope so that
// end-to-end callers observe one consistent error abstraction regardless of
// where the fault originated (spec §7).
func (e *RpcEnvelope) AsAppError() *apperr.Error {
	if e.OK || e.Error == nil {
		return nil
	}
	ae := apperr.New(apperr.Rpc, e.Error.Code, e.Error.Message)
	if e.Error.Details != nil {
		return ae.WithDetails(*e.Error.Details)
	}
	return ae
}
