package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

// Violation is one field-level schema problem.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SchemaValidationError carries every violation found in a document.
type SchemaValidationError struct {
	Schema     string      `json:"schema"`
	Violations []Violation `json:"violations"`
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s: schema validation failed: %s", e.Schema, strings.Join(e.GetErrorMessages(), "; "))
}

// GetErrorMessages returns a simple list of error messages
func (e *SchemaValidationError) GetErrorMessages() []string {
	messages := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		messages[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (e *SchemaValidationError) HasErrors(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns violations for a field and everything nested under it.
func (e *SchemaValidationError) GetErrorsForField(field string) []Violation {
	var out []Violation
	for _, v := range e.Violations {
		if v.Field == field || strings.HasPrefix(v.Field, field+".") {
			out = append(out, v)
		}
	}
	return out
}

// Schema is a compiled JSON Schema document. It is safe for concurrent use.
type Schema struct {
	name     string
	compiled *gojsonschema.Schema
}

// NewSchema compiles a JSON Schema document.
func NewSchema(name, document string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustSchema is like NewSchema but panics on an invalid document.
func MustSchema(name, document string) *Schema {
	s, err := NewSchema(name, document)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks doc, a value as produced by encoding/json (maps, slices,
// strings, numbers, bools, nil), against the schema. It returns nil or a
// *SchemaValidationError. doc is never modified.
func (s *Schema) Validate(doc interface{}) error {
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &SchemaValidationError{
			Schema: s.name,
			Violations: []Violation{{
				Field:   rootField,
				Message: fmt.Sprintf("document could not be validated: %v", err),
				Code:    "invalid_document",
			}},
		}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, toViolation(re))
	}
	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Field != violations[j].Field {
			return violations[i].Field < violations[j].Field
		}
		return violations[i].Code < violations[j].Code
	})

	return &SchemaValidationError{Schema: s.name, Violations: violations}
}

// toViolation points "required" and "additional property" errors at the
// offending property instead of its parent object.
func toViolation(re gojsonschema.ResultError) Violation {
	field := re.Field()
	switch re.Type() {
	case "required", "additional_property_not_allowed":
		if prop, ok := re.Details()["property"].(string); ok && prop != "" {
			if field == rootField || field == "" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
	}
	return Violation{
		Field:   field,
		Message: re.Description(),
		Code:    re.Type(),
	}
}

// RootViolation builds a violation that applies to the whole document.
func RootViolation(message, code string) Violation {
	return Violation{Field: rootField, Message: message, Code: code}
}
