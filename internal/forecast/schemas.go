// internal/forecast/schemas.go
package forecast

import "forecast-narrator/internal/common/validation"

const requestSchemaDocument = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ForecastRequest",
  "type": "object",
  "properties": {
    "location": {
      "type": "string",
      "minLength": 1,
      "maxLength": 256,
      "pattern": "\\S"
    }
  },
  "required": ["location"],
  "additionalProperties": false
}`

const resultSchemaDocument = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ForecastResult",
  "type": "object",
  "properties": {
    "result": {
      "type": "object",
      "properties": {
        "day1": {"type": "string"},
        "day2": {"type": "string"},
        "day3": {"type": "string"},
        "day4": {"type": "string"},
        "day5": {"type": "string"}
      },
      "required": ["day1", "day2", "day3", "day4", "day5"],
      "additionalProperties": false
    }
  },
  "required": ["result"],
  "additionalProperties": false
}`

// FormatInstructions is the output shape shown to the model inside the prompt.
const FormatInstructions = `{
  "result": {
    "day1": "string",
    "day2": "string",
    "day3": "string",
    "day4": "string",
    "day5": "string"
  }
}`

var (
	RequestSchema = validation.MustSchema("forecast_request", requestSchemaDocument)
	ResultSchema  = validation.MustSchema("forecast_result", resultSchemaDocument)
)
