package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

const geminiOK = `{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "분석 "}, {"text": "결과"}]}, "finishReason": "STOP"}],
  "usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 30, "totalTokenCount": 150},
  "modelVersion": "gemini-2.0-flash-001"
}`

func newGemini(t *testing.T, url string, retries int) *GeminiProvider {
	t.Helper()
	p, err := NewGeminiProvider(ProviderConfig{
		Model:      "gemini-2.0-flash",
		APIKey:     "test-key",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	})
	require.NoError(t, err)
	return p
}

func TestGeminiProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "user", body.Contents[0].Role)
		assert.Equal(t, "hello", body.Contents[0].Parts[0].Text)
		require.NotNil(t, body.GenerationConfig)
		assert.Equal(t, "application/json", body.GenerationConfig.ResponseMIMEType)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiOK))
	}))
	defer server.Close()

	p := newGemini(t, server.URL+"/", 0)
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hello", JSONMode: true})
	require.NoError(t, err)

	assert.Equal(t, "분석 결과", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, TokenUsage{Prompt: 120, Completion: 30, Total: 150}, resp.TokensUsed)
	assert.Equal(t, "gemini-2.0-flash", p.Name())
	assert.Equal(t, ProviderGemini, p.ProviderName())
}

func TestGeminiProvider_RetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		_, _ = w.Write([]byte(geminiOK))
	}))
	defer server.Close()

	text, err := newGemini(t, server.URL, 2).Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "분석 결과", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGeminiProvider_StatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retries   int
		wantCode  mtaerrors.ErrorCode
		wantCalls int32
	}{
		{"auth not retried", http.StatusUnauthorized, 2, mtaerrors.ErrAuthFailed, 1},
		{"bad request not retried", http.StatusBadRequest, 2, mtaerrors.ErrProcessingError, 1},
		{"server error retried", http.StatusServiceUnavailable, 2, mtaerrors.ErrModelUnavailable, 3},
		{"gateway timeout retried", http.StatusGatewayTimeout, 1, mtaerrors.ErrTimeout, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newGemini(t, server.URL, tt.retries).Generate(context.Background(), "hello")
			require.Error(t, err)

			var llmErr *LLMError
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.status, llmErr.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			assert.Equal(t, tt.wantCode, mtaerrors.CodeOf(err))
		})
	}
}

func TestGeminiProvider_BlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [], "promptFeedback": {"blockReason": "SAFETY"}}`))
	}))
	defer server.Close()

	_, err := newGemini(t, server.URL, 0).Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGeminiProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(geminiOK))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(ProviderConfig{Model: "m", APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, mtaerrors.ErrTimeout, mtaerrors.CodeOf(err))
}

func TestGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(ProviderConfig{Model: "gemini-2.0-flash"})
	assert.True(t, mtaerrors.IsNotConfigured(err))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "hello", body.Messages[1].Content)
		assert.InDelta(t, 0.3, body.Temperature, 0.001)

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "model": "gpt-4o-mini-2024-07-18",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(ProviderConfig{
		Model:       "gpt-4o-mini",
		APIKey:      "sk-test",
		BaseURL:     server.URL + "/v1/",
		Timeout:     5 * time.Second,
		Temperature: 0.3,
	})
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hello", SystemPrompt: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", resp.Model)
	assert.Equal(t, 12, resp.TokensUsed.Total)
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(ProviderConfig{Model: "local", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, 3, time.Hour, CompletionRequest{}, func(context.Context, CompletionRequest) (*CompletionResponse, error) {
		calls++
		cancel()
		return nil, &LLMError{Code: mtaerrors.ErrModelUnavailable, Message: "down"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "OpenAI", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.ProviderName())

	p, err = NewProvider(ProviderConfig{Model: "gemini-2.0-flash", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.ProviderName())

	_, err = NewProvider(ProviderConfig{Provider: "bard", Model: "x"})
	assert.True(t, mtaerrors.IsValidation(err))
}
