package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scramble-ai/scramble/internal/apperr"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// OllamaAdapter connects to a local Ollama instance via /api/generate, which
// takes a single prompt plus a separate system field.
type OllamaAdapter struct {
	BaseURL string
	Client  *http.Client
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
}

func (o *OllamaAdapter) Name() string { return Ollama.DisplayName() }

func (o *OllamaAdapter) Kind() ProviderKind { return Ollama }

func (o *OllamaAdapter) Invoke(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if req.Model == "" {
		return GenerationResult{}, apperr.Configuration(o.Name(), "Model not set for Ollama. Please configure it in Scramble settings.")
	}

	body := ollamaGenerateRequest{
		Model:  req.Model,
		System: req.SystemInstruction,
		Prompt: req.FullPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			TopP:        0.9,
			TopK:        40,
		},
	}

	headers := map[string]string{}
	if req.APIKey != "" {
		headers["Authorization"] = "Bearer " + req.APIKey
	}

	status, raw, err := postJSON(ctx, o.Client, Ollama, o.endpoint(req), headers, body)
	if err != nil {
		return GenerationResult{}, err
	}
	if !isSuccess(status) {
		return GenerationResult{}, apperr.HTTP(o.Name(), status, errorDetail(raw, true))
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(raw, &genResp); err != nil {
		return GenerationResult{}, apperr.Protocol(o.Name(), status, fmt.Sprintf("decode response: %v", err))
	}
	if genResp.Response == nil {
		return GenerationResult{}, apperr.Protocol(o.Name(), status, `missing "response" field`)
	}

	text := strings.TrimSpace(*genResp.Response)
	if text == "" {
		return GenerationResult{}, apperr.Protocol(o.Name(), status, "empty text")
	}
	return GenerationResult{Text: text}, nil
}

func (o *OllamaAdapter) endpoint(req GenerationRequest) string {
	if req.Endpoint != "" {
		return req.Endpoint
	}
	return strings.TrimRight(o.baseURL(), "/") + "/api/generate"
}

func (o *OllamaAdapter) baseURL() string {
	if o.BaseURL == "" {
		return ollamaDefaultBaseURL
	}
	return o.BaseURL
}

// Check probes the Ollama root, which answers 200 "Ollama is running".
func (o *OllamaAdapter) Check(ctx context.Context, req GenerationRequest) error {
	if req.Model == "" {
		return apperr.Configuration(o.Name(), "no model configured")
	}
	root := o.baseURL()
	if req.Endpoint != "" {
		root = originOf(req.Endpoint)
	}
	if err := probe(ctx, o.Client, strings.TrimRight(root, "/")+"/"); err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	return nil
}

// probe issues a short GET and expects a 200.
func probe(ctx context.Context, client *http.Client, target string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// originOf reduces an endpoint URL to scheme://host.
func originOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Scheme + "://" + u.Host
}
