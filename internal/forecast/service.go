// internal/forecast/service.go
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "forecast-narrator/internal/common/errors"
	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/common/metrics"
	"forecast-narrator/internal/common/validation"
	"forecast-narrator/internal/provider"
)

// Request lifecycle states, logged as the request moves through the pipeline.
const (
	StateReceived  = "RECEIVED"
	StateValidated = "VALIDATED"
	StatePrompted  = "PROMPTED"
	StateInvoked   = "INVOKED"
	StateParsed    = "PARSED"
	StateFailed    = "FAILED"
)

type requestIDKey struct{}

// WithRequestID attaches the inbound request id to ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Service validates forecast requests, asks the model for a narration and
// parses the answer. It holds no per-request state.
type Service struct {
	invoker provider.Invoker
	prompts *PromptBuilder
	parser  *Parser
	schema  *validation.Schema
	logger  logger.Logger
}

// NewService creates a Service. Nil prompt builder, parser or logger get defaults.
func NewService(invoker provider.Invoker, prompts *PromptBuilder, parser *Parser, log logger.Logger) *Service {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	if parser == nil {
		parser = NewParser()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		invoker: invoker,
		prompts: prompts,
		parser:  parser,
		schema:  RequestSchema,
		logger:  log.With(map[string]interface{}{"component": "forecast"}),
	}
}

// ParseRequest decodes and validates a raw request body.
func (s *Service) ParseRequest(body []byte) (*ForecastRequest, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.NewRequestValidationError(
			[]validation.Violation{validation.RootViolation("request body must be a JSON object", "invalid_json")},
			err,
		)
	}

	if err := s.schema.Validate(doc); err != nil {
		var sve *validation.SchemaValidationError
		if errors.As(err, &sve) {
			return nil, apperrors.NewRequestValidationError(sve.Violations, err)
		}
		return nil, apperrors.NewRequestValidationError(
			[]validation.Violation{validation.RootViolation(err.Error(), "invalid_document")},
			err,
		)
	}

	var req ForecastRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("decode validated request: %w", err))
	}
	return &req, nil
}

// Forecast runs one validated request through prompt, model and parser. The
// model is called exactly once per request.
func (s *Service) Forecast(ctx context.Context, req *ForecastRequest) (*ForecastResult, error) {
	start := time.Now()
	log := s.logger.With(map[string]interface{}{
		"requestId": requestIDFrom(ctx),
		"location":  req.Location,
	})
	log.Debug("forecast state", map[string]interface{}{"state": StateValidated})

	prompt, err := s.prompts.Build(req.Location)
	if err != nil {
		return nil, s.fail(log, StatePrompted, apperrors.NewInternalError(err))
	}
	log.Debug("forecast state", map[string]interface{}{"state": StatePrompted, "promptLength": len(prompt)})

	raw, err := s.invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, s.fail(log, StateInvoked, err)
	}
	log.Debug("forecast state", map[string]interface{}{"state": StateInvoked, "responseLength": len(raw)})

	result, err := s.parser.Parse(raw)
	if err != nil {
		return nil, s.fail(log, StateParsed, err)
	}

	log.Info("forecast completed", map[string]interface{}{
		"state":    StateParsed,
		"duration": time.Since(start).String(),
	})
	return result, nil
}

func (s *Service) fail(log logger.Logger, stage string, err error) error {
	stdErr := apperrors.Normalize(err)
	metrics.ForecastFailures.WithLabelValues(string(stdErr.Code)).Inc()

	fields := map[string]interface{}{
		"state":     StateFailed,
		"stage":     stage,
		"errorCode": stdErr.Code,
		"details":   stdErr.Details,
	}
	if len(stdErr.Violations) > 0 {
		fields["violations"] = stdErr.Violations
	}
	log.Error("forecast failed", fields)
	return stdErr
}
