package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

// DefaultGeminiBaseURL is the public Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider calls the Gemini generateContent REST API.
type GeminiProvider struct {
	config     ProviderConfig
	httpClient *http.Client
}

// NewGeminiProvider creates a Gemini provider. An API key is required.
func NewGeminiProvider(cfg ProviderConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini provider: api key: %w", mtaerrors.ErrNotConfigured)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini provider: model: %w", mtaerrors.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &GeminiProvider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the model name.
func (p *GeminiProvider) Name() string {
	return p.config.Model
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	UsageMetadata  geminiUsage       `json:"usageMetadata"`
	ModelVersion   string            `json:"modelVersion"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// ProviderName returns ProviderGemini.
func (p *GeminiProvider) ProviderName() string {
	return ProviderGemini
}

// Generate implements Generator with retries.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.GenerateCompletion(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateCompletion sends prompt, retrying retryable failures.
func (p *GeminiProvider) GenerateCompletion(ctx context.Context, prompt string) (*CompletionResponse, error) {
	req := CompletionRequest{Prompt: prompt, Temperature: p.config.Temperature}
	return withRetry(ctx, p.config.MaxRetries, p.config.RetryBackoff, req, p.Complete)
}

// Complete sends a single generateContent request.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	gReq := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.SystemPrompt != "" {
		gReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	gen := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
	temp := req.Temperature
	if temp == 0 {
		temp = p.config.Temperature
	}
	if temp > 0 {
		gen.Temperature = &temp
	}
	if req.JSONMode {
		gen.ResponseMIMEType = "application/json"
	}
	if gen.Temperature != nil || gen.MaxOutputTokens > 0 || gen.ResponseMIMEType != "" {
		gReq.GenerationConfig = gen
	}

	body, err := json.Marshal(gReq)
	if err != nil {
		return nil, &LLMError{Code: mtaerrors.ErrProcessingError, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?%s",
		p.config.BaseURL, url.PathEscape(p.config.Model), url.Values{"key": {p.config.APIKey}}.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &LLMError{Code: mtaerrors.ErrModelUnavailable, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LLMError{Code: mtaerrors.ErrProcessingError, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var gResp geminiResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return nil, &LLMError{Code: mtaerrors.ErrProcessingError, Message: fmt.Sprintf("parse response: %v", err)}
	}

	if len(gResp.Candidates) == 0 {
		msg := "no candidates in response"
		if gResp.PromptFeedback != nil && gResp.PromptFeedback.BlockReason != "" {
			msg = "prompt blocked: " + gResp.PromptFeedback.BlockReason
		}
		return nil, &LLMError{Code: mtaerrors.ErrProcessingError, Message: msg}
	}

	cand := gResp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}

	model := gResp.ModelVersion
	if model == "" {
		model = p.config.Model
	}
	return &CompletionResponse{
		Content:      text.String(),
		FinishReason: strings.ToLower(cand.FinishReason),
		LatencyMs:    int(time.Since(start).Milliseconds()),
		Model:        model,
		TokensUsed: TokenUsage{
			Prompt:     gResp.UsageMetadata.PromptTokenCount,
			Completion: gResp.UsageMetadata.CandidatesTokenCount,
			Total:      gResp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
