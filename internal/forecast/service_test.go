package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "forecast-narrator/internal/common/errors"
	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/provider"
)

type stubInvoker struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (s *stubInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func newTestService(t *testing.T, invoker provider.Invoker) *Service {
	t.Helper()
	return NewService(invoker, NewPromptBuilder(), NewParser(), logger.NewTestLogger(t))
}

func TestService_ParseRequest(t *testing.T) {
	svc := newTestService(t, &stubInvoker{})

	tests := []struct {
		name      string
		body      string
		wantField string
		wantCode  string
	}{
		{name: "empty object", body: `{}`, wantField: "location", wantCode: "required"},
		{name: "number", body: `{"location": 42}`, wantField: "location", wantCode: "invalid_type"},
		{name: "null", body: `{"location": null}`, wantField: "location", wantCode: "invalid_type"},
		{name: "empty string", body: `{"location": ""}`, wantField: "location", wantCode: "string_gte"},
		{name: "blank string", body: `{"location": "   "}`, wantField: "location", wantCode: "pattern"},
		{name: "unknown field", body: `{"location": "Kyoto", "days": 7}`, wantField: "days", wantCode: "additional_property_not_allowed"},
		{name: "array body", body: `["Kyoto"]`, wantField: "(root)", wantCode: "invalid_type"},
		{name: "not json", body: `location=Kyoto`, wantField: "(root)", wantCode: "invalid_json"},
		{name: "empty body", body: ``, wantField: "(root)", wantCode: "invalid_json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := svc.ParseRequest([]byte(tt.body))
			require.Error(t, err)
			assert.Nil(t, req)

			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeRequestValidationFailed, stdErr.Code)
			require.NotEmpty(t, stdErr.Violations)

			found := false
			for _, v := range stdErr.Violations {
				if v.Field == tt.wantField && v.Code == tt.wantCode {
					found = true
				}
			}
			assert.True(t, found, "violations: %+v", stdErr.Violations)
		})
	}
}

func TestService_ParseRequest_Valid(t *testing.T) {
	svc := newTestService(t, &stubInvoker{})

	req, err := svc.ParseRequest([]byte(`{"location": "Kyoto"}`))
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", req.Location)
}

func TestService_Forecast_Success(t *testing.T) {
	invoker := &stubInvoker{response: wellFormed}
	svc := newTestService(t, invoker)

	result, err := svc.Forecast(WithRequestID(context.Background(), "req-1"), &ForecastRequest{Location: "Kyoto"})
	require.NoError(t, err)
	assert.Equal(t, wellFormedResult, result)

	assert.Equal(t, 1, invoker.calls)
	require.Len(t, invoker.prompts, 1)
	assert.Contains(t, invoker.prompts[0], "forecast for Kyoto day-by-day")
}

func TestService_Forecast_Failures(t *testing.T) {
	tests := []struct {
		name     string
		invoker  *stubInvoker
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "provider error",
			invoker:  &stubInvoker{err: apperrors.NewExternalModelError(errors.New("connection reset"), true)},
			wantCode: apperrors.ErrCodeExternalModelError,
		},
		{
			name:     "unclassified invoker error",
			invoker:  &stubInvoker{err: errors.New("boom")},
			wantCode: apperrors.ErrCodeInternal,
		},
		{
			name:     "model text is not json",
			invoker:  &stubInvoker{response: "The weather will be lovely."},
			wantCode: apperrors.ErrCodeResponseParseError,
		},
		{
			name:     "partial forecast",
			invoker:  &stubInvoker{response: `{"result":{"day1":"a","day2":"b","day3":"c","day4":"d"}}`},
			wantCode: apperrors.ErrCodeResponseFormatError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.invoker)

			result, err := svc.Forecast(context.Background(), &ForecastRequest{Location: "Kyoto"})
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Equal(t, 1, tt.invoker.calls)
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	assert.Equal(t, "", requestIDFrom(context.Background()))
	assert.Equal(t, "abc", requestIDFrom(WithRequestID(context.Background(), "abc")))
}
