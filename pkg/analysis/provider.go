// Package analysis turns normalized meetings into LLM analyses: provider
// transport, versioned prompt templates, prompt assembly and the Analyzer
// service that ties store, parser and generator together.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

// Generator produces analysis text for a prompt.
type Generator interface {
	// Name returns the model identifier recorded as model_used.
	Name() string

	// Generate sends prompt and returns the response text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// CompletionRequest represents a request to the LLM.
type CompletionRequest struct {
	// Prompt is the full prompt text to send to the LLM.
	Prompt string `json:"prompt"`

	// SystemPrompt is an optional system-level instruction.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// JSONMode asks the provider for a JSON response.
	JSONMode bool `json:"json_mode"`

	// MaxTokens limits response length (0 = provider default).
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0 = provider default).
	Temperature float32 `json:"temperature,omitempty"`

	TraceID string `json:"trace_id,omitempty"`
}

// CompletionResponse represents a response from the LLM.
type CompletionResponse struct {
	Content    string     `json:"content"`
	TokensUsed TokenUsage `json:"tokens_used"`
	LatencyMs  int        `json:"latency_ms"`

	// Model is the model reported by the provider, which may differ from the one requested.
	Model string `json:"model"`

	// FinishReason indicates why the model stopped generating.
	FinishReason string `json:"finish_reason,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// LLMError is a provider failure classified with a pipeline error code.
type LLMError struct {
	Code       mtaerrors.ErrorCode
	StatusCode int
	Message    string
	Details    string
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode implements mtaerrors.Coded.
func (e *LLMError) ErrorCode() mtaerrors.ErrorCode {
	return e.Code
}

// Retryable reports whether another attempt may succeed.
func (e *LLMError) Retryable() bool {
	return mtaerrors.IsRetryable(e.Code)
}

// statusError maps a non-200 HTTP response to an LLMError.
func statusError(status int, body []byte) *LLMError {
	code := mtaerrors.ErrModelUnavailable
	switch {
	case status == http.StatusTooManyRequests:
		code = mtaerrors.ErrRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = mtaerrors.ErrAuthFailed
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = mtaerrors.ErrTimeout
	case status >= 400 && status < 500:
		code = mtaerrors.ErrProcessingError
	}
	return &LLMError{
		Code:       code,
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP %d: %s", status, truncate(string(body), 500)),
	}
}

// transportError maps an http.Client failure to an LLMError.
func transportError(ctx context.Context, err error) *LLMError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &LLMError{Code: mtaerrors.ErrTimeout, Message: "request timeout"}
	case errors.Is(ctx.Err(), context.Canceled):
		return &LLMError{Code: mtaerrors.ErrContextCancelled, Message: "request canceled"}
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return &LLMError{Code: mtaerrors.ErrTimeout, Message: fmt.Sprintf("request failed: %v", err)}
	}
	return &LLMError{Code: mtaerrors.ErrModelUnavailable, Message: fmt.Sprintf("request failed: %v", err)}
}

// completeFunc is one provider round trip.
type completeFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// withRetry runs complete up to maxRetries+1 times, retrying only retryable
// LLM errors. backoff grows linearly with the attempt number.
func withRetry(ctx context.Context, maxRetries int, backoff time.Duration, req CompletionRequest, complete completeFunc) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, transportError(ctx, ctx.Err())
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}

		resp, err := complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}
		var llmErr *LLMError
		if !errors.As(err, &llmErr) || !llmErr.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

// ProviderConfig configures an HTTP LLM provider.
type ProviderConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float32

	// RetryBackoff is the delay before the first retry (default 2s).
	RetryBackoff time.Duration
}

// Provider is a Generator that also exposes the full completion round trip.
type Provider interface {
	Generator

	// ProviderName returns the backend name ("gemini", "openai").
	ProviderName() string

	// Complete sends one request without retries.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// GenerateCompletion is Generate with token usage and latency.
	GenerateCompletion(ctx context.Context, prompt string) (*CompletionResponse, error)
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		return NewGeminiProvider(cfg)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q: %w", cfg.Provider, mtaerrors.ErrValidation)
	}
}

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
