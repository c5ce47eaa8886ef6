package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "location": {"type": "string", "minLength": 1},
    "result": {
      "type": "object",
      "properties": {
        "day1": {"type": "string"},
        "day2": {"type": "string"}
      },
      "required": ["day1", "day2"],
      "additionalProperties": false
    }
  },
  "required": ["location"],
  "additionalProperties": false
}`

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func validationError(t *testing.T, err error) *SchemaValidationError {
	t.Helper()
	require.Error(t, err)
	sve, ok := err.(*SchemaValidationError)
	require.True(t, ok, "expected *SchemaValidationError, got %T", err)
	require.NotEmpty(t, sve.Violations)
	return sve
}

func TestSchema_Validate(t *testing.T) {
	schema := MustSchema("test", testSchema)

	tests := []struct {
		name      string
		doc       string
		wantField string
		wantCode  string
	}{
		{name: "missing required field", doc: `{}`, wantField: "location", wantCode: "required"},
		{name: "wrong type", doc: `{"location": 42}`, wantField: "location", wantCode: "invalid_type"},
		{name: "empty string", doc: `{"location": ""}`, wantField: "location", wantCode: "string_gte"},
		{name: "extra field", doc: `{"location": "Kyoto", "units": "metric"}`, wantField: "units", wantCode: "additional_property_not_allowed"},
		{name: "nested required field", doc: `{"location": "Kyoto", "result": {"day1": "sun"}}`, wantField: "result.day2", wantCode: "required"},
		{name: "nested wrong type", doc: `{"location": "Kyoto", "result": {"day1": "sun", "day2": 3}}`, wantField: "result.day2", wantCode: "invalid_type"},
		{name: "not an object", doc: `["Kyoto"]`, wantField: "(root)", wantCode: "invalid_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sve := validationError(t, schema.Validate(decode(t, tt.doc)))
			assert.Equal(t, "test", sve.Schema)
			assert.True(t, sve.HasErrors(tt.wantField), "violations: %+v", sve.Violations)

			found := false
			for _, v := range sve.Violations {
				if v.Field == tt.wantField && v.Code == tt.wantCode {
					found = true
					assert.NotEmpty(t, v.Message)
				}
			}
			assert.True(t, found, "no %s violation on %s in %+v", tt.wantCode, tt.wantField, sve.Violations)
		})
	}
}

func TestSchema_Validate_Valid(t *testing.T) {
	schema := MustSchema("test", testSchema)

	assert.NoError(t, schema.Validate(decode(t, `{"location": "Kyoto"}`)))
	assert.NoError(t, schema.Validate(decode(t, `{"location": "Kyoto", "result": {"day1": "a", "day2": "b"}}`)))
}

func TestSchema_Validate_DoesNotMutateInput(t *testing.T) {
	schema := MustSchema("test", testSchema)

	doc := map[string]interface{}{
		"location": 7,
		"result":   map[string]interface{}{"day1": "a"},
	}
	before, err := json.Marshal(doc)
	require.NoError(t, err)

	_ = schema.Validate(doc)

	after, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestSchemaValidationError_Helpers(t *testing.T) {
	schema := MustSchema("test", testSchema)
	sve := validationError(t, schema.Validate(decode(t, `{"location": 1, "result": {}}`)))

	assert.Len(t, sve.GetErrorsForField("result"), 2)
	assert.Len(t, sve.GetErrorMessages(), len(sve.Violations))
	assert.Contains(t, sve.Error(), "location")
}

func TestNewSchema_InvalidDocument(t *testing.T) {
	_, err := NewSchema("broken", `not a schema`)
	assert.Error(t, err)

	assert.Panics(t, func() { MustSchema("broken", `not a schema`) })
}
