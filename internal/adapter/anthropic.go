package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/scramble-ai/scramble/internal/apperr"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicAdapter connects to the Anthropic Messages API. The system
// instruction travels in the top-level system field.
type AnthropicAdapter struct {
	// BaseURL replaces the public API host; a request Endpoint takes precedence.
	BaseURL string
	Client  *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicContentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

type anthropicMessagesResponse struct {
	Content []anthropicContentBlock `json:"content"`
}

func (a *AnthropicAdapter) Name() string { return Anthropic.DisplayName() }

func (a *AnthropicAdapter) Kind() ProviderKind { return Anthropic }

func (a *AnthropicAdapter) Invoke(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if req.APIKey == "" {
		return GenerationResult{}, apperr.Configuration(a.Name(), "Anthropic API key not set. Please configure it in Scramble settings.")
	}

	model := req.Model
	if model == "" {
		model = Anthropic.DefaultModel()
	}
	body := anthropicMessagesRequest{
		Model:  model,
		System: req.SystemInstruction,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.FullPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	status, raw, err := postJSON(ctx, a.Client, Anthropic, a.endpoint(req), map[string]string{
		"x-api-key":         req.APIKey,
		"anthropic-version": anthropicVersion,
	}, body)
	if err != nil {
		return GenerationResult{}, err
	}
	if !isSuccess(status) {
		return GenerationResult{}, apperr.HTTP(a.Name(), status, errorDetail(raw, false))
	}

	var msgResp anthropicMessagesResponse
	if err := json.Unmarshal(raw, &msgResp); err != nil {
		return GenerationResult{}, apperr.Protocol(a.Name(), status, fmt.Sprintf("decode response: %v", err))
	}
	if len(msgResp.Content) == 0 {
		return GenerationResult{}, apperr.Protocol(a.Name(), status, "empty response content")
	}

	var result strings.Builder
	found := false
	for _, block := range msgResp.Content {
		if block.Type == "text" && block.Text != nil {
			found = true
			result.WriteString(*block.Text)
		}
	}
	if !found {
		return GenerationResult{}, apperr.Protocol(a.Name(), status, `missing "content[].text" field`)
	}

	text := strings.TrimSpace(result.String())
	if text == "" {
		return GenerationResult{}, apperr.Protocol(a.Name(), status, "empty text")
	}
	return GenerationResult{Text: text}, nil
}

func (a *AnthropicAdapter) endpoint(req GenerationRequest) string {
	if req.Endpoint != "" {
		return req.Endpoint
	}
	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/v1/messages"
}

func (a *AnthropicAdapter) Check(ctx context.Context, req GenerationRequest) error {
	if req.APIKey == "" {
		return apperr.Configuration(a.Name(), "no API key")
	}
	return nil
}
