// internal/forecast/parser.go
package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "forecast-narrator/internal/common/errors"
	"forecast-narrator/internal/common/validation"
)

const snippetLength = 200

// Parser turns raw model text into a ForecastResult. Text that holds no JSON is
// a parse error; JSON of the wrong shape is a format error.
type Parser struct {
	schema *validation.Schema
}

// NewParser creates a Parser that checks output against ResultSchema.
func NewParser() *Parser {
	return &Parser{schema: ResultSchema}
}

// Parse extracts and validates the forecast held in raw model text.
func (p *Parser) Parse(raw string) (*ForecastResult, error) {
	candidate, doc, ok := extractJSON(raw)
	if !ok {
		return nil, apperrors.NewResponseParseError(
			fmt.Sprintf("no JSON value found in model output: %q", snippet(raw)),
			nil,
		)
	}

	if err := p.schema.Validate(doc); err != nil {
		var sve *validation.SchemaValidationError
		if errors.As(err, &sve) {
			return nil, apperrors.NewResponseFormatError(sve.Violations, err)
		}
		return nil, apperrors.NewResponseFormatError(nil, err)
	}

	var result ForecastResult
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, apperrors.NewResponseParseError("decode validated model output", err)
	}
	return &result, nil
}

// extractJSON tries, in order, the whole text, a fenced code block and then
// every '{' in the text, decoding one JSON value from that point and ignoring
// whatever follows it.
func extractJSON(raw string) (string, interface{}, bool) {
	text := strings.TrimSpace(raw)

	candidates := []string{text}
	if fenced, ok := fencedBlock(text); ok {
		candidates = append(candidates, fenced)
	}
	for _, candidate := range candidates {
		var doc interface{}
		if err := json.Unmarshal([]byte(candidate), &doc); err == nil {
			return candidate, doc, true
		}
	}

	for i := strings.IndexByte(text, '{'); i >= 0; {
		if candidate, doc, ok := decodeObjectAt(text[i:]); ok {
			return candidate, doc, true
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return "", nil, false
}

// decodeObjectAt decodes the first JSON value at the start of text.
func decodeObjectAt(text string) (string, interface{}, bool) {
	var value json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&value); err != nil {
		return "", nil, false
	}
	var doc interface{}
	if err := json.Unmarshal(value, &doc); err != nil {
		return "", nil, false
	}
	return string(value), doc, true
}

func fencedBlock(text string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		idx := strings.Index(text, marker)
		if idx < 0 {
			continue
		}
		after := text[idx+len(marker):]
		if end := strings.Index(after, "```"); end >= 0 {
			return strings.TrimSpace(after[:end]), true
		}
	}
	return "", false
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLength {
		return s[:snippetLength] + "..."
	}
	return s
}
