package generate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/console-core/pkg/apierr"
)

func TestSchema_ArrayForm(t *testing.T) {
	var s Schema
	err := json.Unmarshal([]byte(`[
		{"name":"email","type":"email"},
		{"name":"age","type":"number","example":42}
	]`), &s)
	require.NoError(t, err)

	require.Len(t, s.Fields, 2)
	assert.Equal(t, "email", s.Fields[0].Name)
	assert.Equal(t, "number", s.Fields[1].Type)
	assert.EqualValues(t, 42, s.Fields[1].Example)
}

func TestSchema_KeyedFormWithTypeStrings(t *testing.T) {
	var s Schema
	err := json.Unmarshal([]byte(`{"name":"string","email":"email","age":"number"}`), &s)
	require.NoError(t, err)

	// Object keys carry no order; fields come back sorted by name.
	require.Len(t, s.Fields, 3)
	assert.Equal(t, "age", s.Fields[0].Name)
	assert.Equal(t, "email", s.Fields[1].Name)
	assert.Equal(t, "name", s.Fields[2].Name)
	assert.Equal(t, "number", s.Fields[0].Type)
}

func TestSchema_KeyedFormWithFieldObjects(t *testing.T) {
	var s Schema
	err := json.Unmarshal([]byte(`{"email":{"type":"email","example":"a@b.c"}}`), &s)
	require.NoError(t, err)

	require.Len(t, s.Fields, 1)
	assert.Equal(t, "email", s.Fields[0].Name)
	assert.Equal(t, "email", s.Fields[0].Type)
	assert.Equal(t, "a@b.c", s.Fields[0].Example)
}

func TestSchema_NullAndEmpty(t *testing.T) {
	var s Schema
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Nil(t, s.Fields)
}

func TestSchema_UnrecognizedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"scalar", `42`},
		{"string", `"flat"`},
		{"keyed with numeric value", `{"age":42}`},
		{"keyed with array value", `{"tags":["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Schema
			err := json.Unmarshal([]byte(tt.body), &s)
			var perr *apierr.ParseError
			require.ErrorAs(t, err, &perr, "unknown shapes fail instead of guessing")
		})
	}
}

func TestSchema_MarshalCanonicalForm(t *testing.T) {
	var s Schema
	require.NoError(t, json.Unmarshal([]byte(`{"b":"string","a":"number"}`), &s))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"a","type":"number"},{"name":"b","type":"string"}]`, string(out))
}

func TestGenerationRoundTripsSchemaVariants(t *testing.T) {
	var g Generation
	err := json.Unmarshal([]byte(`{
		"id":"g-1","name":"leads","data_type":"json","count":100,
		"user_id":"uid-1",
		"schema":{"email":"email","name":"string"}
	}`), &g)
	require.NoError(t, err)
	require.NotNil(t, g.Schema)
	assert.Len(t, g.Schema.Fields, 2)
}
