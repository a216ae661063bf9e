// Package params converts the opaque JSON payload carried in a BusMessage's
// Data field into typed values, per spec §4.3.
package params

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/theapemachine/busrpc/apperr"
)

func parseErr(raw string) *apperr.Error {
	return apperr.New(apperr.BadRequest, "PARSE_ERROR", "not a canonical base-10 integer").WithDetails(raw)
}

// ToInt parses raw as a base-10 int32.
func ToInt(raw string) (int32, error) {
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, parseErr(raw)
	}
	return int32(n), nil
}

// ToShort parses raw as a base-10 int16.
func ToShort(raw string) (int16, error) {
	n, err := strconv.ParseInt(raw, 10, 16)
	if err != nil {
		return 0, parseErr(raw)
	}
	return int16(n), nil
}

// ToLong parses raw as a base-10 int64.
func ToLong(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, parseErr(raw)
	}
	return n, nil
}

func dataInvalid(details string) *apperr.Error {
	e := apperr.New(apperr.BadRequest, "DATA_INVALID", "payload is missing or malformed")
	if details != "" {
		return e.WithDetails(details)
	}
	return e
}

// ToObject decodes raw JSON into T. It fails when raw is nil, decodes to
// JSON null, or does not parse as valid JSON for T.
func ToObject[T any](raw *string) (T, error) {
	var zero T
	if raw == nil {
		return zero, dataInvalid("data is absent")
	}

	if strings.TrimSpace(*raw) == "null" {
		return zero, dataInvalid("data is null")
	}

	var out T
	if err := json.Unmarshal([]byte(*raw), &out); err != nil {
		return zero, dataInvalid(err.Error())
	}

	return out, nil
}

// ToNullableObject decodes raw JSON into T, but treats an absent payload, an
// empty string or a JSON null as "absent" (present=false, err=nil) rather
// than a failure.
func ToNullableObject[T any](raw *string) (value T, present bool, err error) {
	if raw == nil {
		return value, false, nil
	}

	trimmed := *raw
	if trimmed == "null" || trimmed == "" {
		return value, false, nil
	}

	if decodeErr := json.Unmarshal([]byte(trimmed), &value); decodeErr != nil {
		return value, false, dataInvalid(decodeErr.Error())
	}

	return value, true, nil
}

// ToListObject decodes raw JSON into a slice of T. It fails on decode
// failure, an absent result, or — when requireNonEmpty is set — an empty
// sequence.
func ToListObject[T any](raw *string, requireNonEmpty bool) ([]T, error) {
	if raw == nil {
		return nil, dataInvalid("data is absent")
	}

	var out []T
	if err := json.Unmarshal([]byte(*raw), &out); err != nil {
		return nil, dataInvalid(err.Error())
	}

	if out == nil {
		return nil, dataInvalid("data decoded to an absent sequence")
	}

	if requireNonEmpty && len(out) == 0 {
		return nil, dataInvalid("sequence must not be empty")
	}

	return out, nil
}
