// internal/provider/openai.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "forecast-narrator/internal/common/errors"
	commonhttp "forecast-narrator/internal/common/http"
	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/common/observability"
)

const (
	chatCompletionsPath = "/chat/completions"
	maxResponseBytes    = 1 << 20
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
	obs    *observability.Observability
}

// NewOpenAIClient creates a client. It fails with CONFIGURATION_ERROR when no API key is set.
func NewOpenAIClient(cfg *Config, log logger.Logger, obs *observability.Observability) (*OpenAIClient, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.NewConfigurationError("OPENAI_API_KEY is not defined")
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &OpenAIClient{
		config: cfg,
		// per-call deadline comes from the context built in invoke
		client: commonhttp.NewClient(0),
		logger: log.With(map[string]interface{}{
			"component": "openai",
			"model":     cfg.Model,
		}),
		obs: obs,
	}, nil
}

// Invoke sends prompt as a single user message and returns the model text.
func (c *OpenAIClient) Invoke(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.invoke(ctx, prompt)

	outcome := "success"
	if err != nil {
		outcome = string(apperrors.CodeOf(err))
	}
	c.obs.RecordModelCall(ctx, c.config.Model, outcome, time.Since(start))

	return text, err
}

func (c *OpenAIClient) invoke(ctx context.Context, prompt string) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return "", apperrors.NewInternalError(fmt.Errorf("marshal chat request: %w", err))
	}

	var lastErr *apperrors.StandardError
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryDelay * time.Duration(1<<(attempt-1))
			c.logger.Warn("retrying model call", map[string]interface{}{
				"attempt": attempt + 1,
				"backoff": backoff.String(),
				"error":   lastErr.Details,
			})
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", c.contextError(ctx)
			}
		}

		text, attemptErr := c.attempt(ctx, body)
		if attemptErr == nil {
			return text, nil
		}
		lastErr = attemptErr

		if ctx.Err() != nil {
			return "", c.contextError(ctx)
		}
		if !attemptErr.Retryable {
			return "", attemptErr
		}
	}

	c.logger.Error("model call failed after retries", map[string]interface{}{
		"attempts": c.config.MaxRetries + 1,
		"error":    lastErr.Details,
	})
	return "", lastErr
}

func (c *OpenAIClient) buildRequest(prompt string) chatCompletionRequest {
	req := chatCompletionRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if c.config.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return req
}

// attempt performs one round trip. The request is rebuilt every time so the body reader is fresh.
func (c *OpenAIClient) attempt(ctx context.Context, body []byte) (string, *apperrors.StandardError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewExternalModelError(fmt.Errorf("create request: %w", err), false)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.obs.RecordAttempt(ctx, c.config.Model, 0)
		return "", apperrors.NewExternalModelError(fmt.Errorf("request failed: %w", err), true)
	}
	defer resp.Body.Close()
	c.obs.RecordAttempt(ctx, c.config.Model, resp.StatusCode)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", apperrors.NewExternalModelError(fmt.Errorf("read response: %w", err), true)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", apperrors.NewExternalModelError(
			fmt.Errorf("provider returned status %d: %s", resp.StatusCode, apiErrorMessage(respBody)),
			retryable,
		)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", apperrors.NewExternalModelError(fmt.Errorf("decode response: %w", err), false)
	}
	if completion.Error != nil {
		return "", apperrors.NewExternalModelError(fmt.Errorf("provider error: %s", completion.Error.Message), false)
	}
	if len(completion.Choices) == 0 {
		return "", apperrors.NewExternalModelError(errors.New("provider returned no choices"), false)
	}

	choice := completion.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", apperrors.NewExternalModelError(errors.New("provider returned empty content"), false)
	}
	if choice.FinishReason == "length" {
		c.logger.Warn("model output truncated at max_tokens", map[string]interface{}{
			"maxTokens": c.config.MaxTokens,
		})
	}

	c.logger.Debug("model call succeeded", map[string]interface{}{
		"promptTokens":     completion.Usage.PromptTokens,
		"completionTokens": completion.Usage.CompletionTokens,
		"finishReason":     choice.FinishReason,
	})

	return choice.Message.Content, nil
}

func (c *OpenAIClient) contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewModelTimeoutError(c.config.Timeout, ctx.Err())
	}
	return apperrors.NewExternalModelError(fmt.Errorf("model call canceled: %w", ctx.Err()), false)
}

func apiErrorMessage(body []byte) string {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
