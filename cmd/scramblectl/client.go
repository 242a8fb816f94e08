package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/apperr"
	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/prompt"
)

type enhanceRequest struct {
	PromptID string `json:"prompt_id"`
	Text     string `json:"text"`
}

type enhanceResponse struct {
	Enhanced  string `json:"enhanced"`
	PromptID  string `json:"prompt_id"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Adapters map[string]struct {
		Available bool   `json:"available"`
		Selected  bool   `json:"selected"`
		Reason    string `json:"reason"`
	} `json:"adapters"`
}

// apiClient talks to a scramble server. It satisfies dispatch.Enhancer so the
// capture engine can run against a remote server.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newClient(c *cli.Context) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(c.String("url"), "/"),
		apiKey:  c.String("api-key"),
		http:    &http.Client{Timeout: c.Duration("timeout")},
	}
}

func (a *apiClient) Enhance(ctx context.Context, promptID, text string) (dispatch.Result, error) {
	var er enhanceResponse
	if err := a.do(ctx, http.MethodPost, "/api/enhance", enhanceRequest{PromptID: promptID, Text: text}, &er); err != nil {
		return dispatch.Result{PromptID: promptID}, err
	}
	return dispatch.Result{
		GenerationResult: adapter.GenerationResult{Text: er.Enhanced},
		PromptID:         er.PromptID,
		Provider:         adapter.ProviderKind(er.Provider),
		Model:            er.Model,
		Elapsed:          time.Duration(er.ElapsedMs) * time.Millisecond,
	}, nil
}

func (a *apiClient) Prompts(ctx context.Context) ([]prompt.Template, error) {
	var out []prompt.Template
	err := a.do(ctx, http.MethodGet, "/api/prompts", nil, &out)
	return out, err
}

func (a *apiClient) Providers(ctx context.Context) ([]adapter.ProviderInfo, error) {
	var out []adapter.ProviderInfo
	err := a.do(ctx, http.MethodGet, "/api/providers", nil, &out)
	return out, err
}

func (a *apiClient) Health(ctx context.Context) (healthResponse, error) {
	var out healthResponse
	err := a.do(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}

// do sends one request and decodes a 200 body into out. Error bodies that
// carry a kind are turned back into *apperr.Error so callers can match on
// the sentinels.
func (a *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			if er.Kind != "" {
				return &apperr.Error{Kind: apperr.ParseKind(er.Kind), Message: er.Error}
			}
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, er.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
