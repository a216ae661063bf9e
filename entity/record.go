package entity

import "encoding/json"

// Record is a schema-free entity.Keyed implementation used to back
// resources registered purely from configuration (busrpcd has no
// compile-time knowledge of a config-driven resource's domain fields).
// It flattens Base's id/timestamps alongside an arbitrary field bag on
// the wire, so a caller sees one ordinary JSON object rather than a
// nested "fields" wrapper.
type Record struct {
	Base
	Fields map[string]any
}

// NewRecord returns a Record ready to receive json.Unmarshal, matching the
// newT factory signature store.Bolt requires.
func NewRecord() *Record {
	return &Record{Fields: map[string]any{}}
}

func (r *Record) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	if !r.CreatedAt.IsZero() {
		out["createdAt"] = r.CreatedAt
	}
	if !r.UpdatedAt.IsZero() {
		out["updatedAt"] = r.UpdatedAt
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if idVal, ok := raw["id"]; ok {
		if f, ok := idVal.(float64); ok {
			r.ID = int64(f)
		}
		delete(raw, "id")
	}
	delete(raw, "createdAt")
	delete(raw, "updatedAt")

	r.Fields = raw
	return nil
}
