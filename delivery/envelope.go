package delivery

import (
	"encoding/json"
	"maps"
	"slices"
)

// Common envelope fields carried by every request.
const (
	FieldID    = "id"
	FieldUser  = "user"
	FieldToken = "token"
)

// Envelope is the immutable field mapping sent as the JSON body of one request.
type Envelope struct {
	fields map[string]any
}

// NewEnvelope copies fields into a new envelope. Later changes to fields are not visible.
func NewEnvelope(fields map[string]any) Envelope {
	return Envelope{fields: copyFields(fields)}
}

// WithCommon returns a new envelope carrying the correlation id and the caller
// identity. Common fields replace event fields with the same name.
func (e Envelope) WithCommon(id, user, token string) Envelope {
	merged := copyFields(e.fields)
	merged[FieldID] = id
	merged[FieldUser] = user
	merged[FieldToken] = token
	return Envelope{fields: merged}
}

// Get returns the value stored under key.
func (e Envelope) Get(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (e Envelope) Has(key string) bool {
	_, ok := e.fields[key]
	return ok
}

// ID returns the correlation id, empty before WithCommon.
func (e Envelope) ID() string {
	id, _ := e.fields[FieldID].(string)
	return id
}

// Fields returns a copy of the envelope contents.
func (e Envelope) Fields() map[string]any {
	return copyFields(e.fields)
}

// Keys returns the field names in sorted order.
func (e Envelope) Keys() []string {
	return slices.Sorted(maps.Keys(e.fields))
}

// Len returns the number of fields.
func (e Envelope) Len() int {
	return len(e.fields)
}

// MarshalJSON encodes the envelope as a JSON object.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.fields)
}

// copyFields clones the map and its []string values. A nil []string becomes empty.
func copyFields(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+3)
	for k, v := range src {
		if tags, ok := v.([]string); ok {
			cloned := make([]string, len(tags))
			copy(cloned, tags)
			v = cloned
		}
		dst[k] = v
	}
	return dst
}
