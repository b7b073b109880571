package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/apiforge/console-core/pkg/apierr"
)

// SchemaField describes one generated field.
type SchemaField struct {
	Name string `json:"name"`

	// Type is the generator type for the field (string, number, email, ...).
	Type string `json:"type"`

	// Example is an optional sample value.
	Example any `json:"example,omitempty"`
}

// Schema is the canonical in-memory shape of a job schema. The backend has
// stored schemas in two wire shapes over time: an ordered array of field
// objects, and an object keyed by field name whose values are either a type
// string or a field object. UnmarshalJSON recognizes both and normalizes to
// the array form; any other shape fails with apierr.ParseError instead of
// guessing. Marshal always emits the canonical array form.
type Schema struct {
	Fields []SchemaField
}

// MarshalJSON emits the canonical array form.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields)
}

// UnmarshalJSON accepts both known wire shapes.
func (s *Schema) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		s.Fields = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var fields []SchemaField
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return &apierr.ParseError{Detail: "decoding schema field array", Err: err}
		}
		s.Fields = fields
		return nil
	case '{':
		return s.unmarshalKeyed(trimmed)
	default:
		return &apierr.ParseError{
			Detail: fmt.Sprintf("schema is neither an array nor an object (starts with %q)", trimmed[0]),
		}
	}
}

// unmarshalKeyed normalizes the name-keyed object variant. Keys are sorted
// so the canonical form is deterministic; the object shape carries no order.
func (s *Schema) unmarshalKeyed(data []byte) error {
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(data, &keyed); err != nil {
		return &apierr.ParseError{Detail: "decoding keyed schema object", Err: err}
	}

	names := make([]string, 0, len(keyed))
	for name := range keyed {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]SchemaField, 0, len(keyed))
	for _, name := range names {
		raw := bytes.TrimSpace(keyed[name])
		if len(raw) == 0 {
			return &apierr.ParseError{Detail: "schema field " + name + " has no value"}
		}
		switch raw[0] {
		case '"':
			var typ string
			if err := json.Unmarshal(raw, &typ); err != nil {
				return &apierr.ParseError{Detail: "decoding schema field " + name, Err: err}
			}
			fields = append(fields, SchemaField{Name: name, Type: typ})
		case '{':
			var field SchemaField
			if err := json.Unmarshal(raw, &field); err != nil {
				return &apierr.ParseError{Detail: "decoding schema field " + name, Err: err}
			}
			field.Name = name
			fields = append(fields, field)
		default:
			return &apierr.ParseError{
				Detail: fmt.Sprintf("schema field %s is neither a type string nor a field object", name),
			}
		}
	}
	s.Fields = fields
	return nil
}
