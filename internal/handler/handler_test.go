package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/apperr"
	"github.com/scramble-ai/scramble/internal/config"
	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/prompt"
)

func mockStore() *config.Store {
	cfg := config.Default()
	cfg.Provider = adapter.Mock
	cfg.Model = "mock"
	return config.NewStore(cfg)
}

func mockEnhancer(store *config.Store) dispatch.Enhancer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dispatch.New(store, adapter.NewRegistry(nil, true), logger)
}

type failingEnhancer struct{ err error }

func (f failingEnhancer) Enhance(ctx context.Context, promptID, text string) (dispatch.Result, error) {
	return dispatch.Result{}, f.err
}

func postEnhance(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/enhance", bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	store := mockStore()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	Health(store, adapter.NewRegistry(nil, true)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.Provider != "mock" {
		t.Errorf("provider: got %q, want %q", resp.Provider, "mock")
	}
	mockStatus, ok := resp.Adapters["mock"]
	if !ok {
		t.Fatal("adapters: missing mock")
	}
	if !mockStatus.Available || !mockStatus.Selected {
		t.Errorf("mock adapter: got %+v, want available and selected", mockStatus)
	}
}

func TestHandleHealthCredentialGating(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = adapter.Anthropic
	cfg.Model = adapter.Anthropic.DefaultModel()
	cfg.Credential = "sk-ant-test"
	store := config.NewStore(cfg)

	reg := adapter.Registry{
		adapter.Anthropic: &adapter.AnthropicAdapter{},
		adapter.OpenAI:    &adapter.OpenAIAdapter{Provider: adapter.OpenAI},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	Health(store, reg).ServeHTTP(w, req)

	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Adapters) != 2 {
		t.Fatalf("adapters count: got %d, want 2", len(resp.Adapters))
	}
	if !resp.Adapters["anthropic"].Available {
		t.Errorf("anthropic: got %+v, want available", resp.Adapters["anthropic"])
	}
	openai := resp.Adapters["openai"]
	if openai.Available {
		t.Error("openai: got available without a credential")
	}
	if !strings.Contains(openai.Reason, "API key not set") {
		t.Errorf("openai reason: got %q", openai.Reason)
	}
}

func TestHandlePrompts(t *testing.T) {
	reg := prompt.NewRegistry([]prompt.Template{{ID: "pirate", Title: "Pirate", Body: "Talk like a pirate:"}})

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	w := httptest.NewRecorder()
	Prompts(reg).ServeHTTP(w, req)

	var resp []prompt.Template
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 11 {
		t.Fatalf("prompts count: got %d, want 11", len(resp))
	}
	if resp[0].ID != "fix_grammar" {
		t.Errorf("first prompt: got %q, want %q", resp[0].ID, "fix_grammar")
	}
	if resp[10].ID != "pirate" {
		t.Errorf("last prompt: got %q, want %q", resp[10].ID, "pirate")
	}
}

func TestHandleConfigRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Credential = "sk-very-secret"
	cfg.APIKey = "server-secret"
	store := config.NewStore(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	Config(store).ServeHTTP(w, req)

	body := w.Body.String()
	if strings.Contains(body, "sk-very-secret") || strings.Contains(body, "server-secret") {
		t.Fatalf("secret leaked: %s", body)
	}
	var resp map[string]any
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["credential_set"] != true {
		t.Errorf("credential_set: got %v, want true", resp["credential_set"])
	}
	if resp["provider"] != "openai" {
		t.Errorf("provider: got %v, want openai", resp["provider"])
	}
}

func TestHandleProviders(t *testing.T) {
	store := mockStore()
	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	w := httptest.NewRecorder()
	Providers(store, adapter.NewRegistry(nil, true)).ServeHTTP(w, req)

	var resp []adapter.ProviderInfo
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != "mock" || !resp[0].Selected {
		t.Errorf("providers: got %+v", resp)
	}
}

func TestHandleEnhance(t *testing.T) {
	h := Enhance(mockEnhancer(mockStore()))

	tests := []struct {
		name      string
		method    string
		body      any
		wantCode  int
		wantField string
		wantValue string
	}{
		{
			name:      "success",
			method:    http.MethodPost,
			body:      enhanceRequest{PromptID: "fix_grammar", Text: "hello world"},
			wantCode:  http.StatusOK,
			wantField: "enhanced",
			wantValue: "Hello world",
		},
		{
			name:      "wrong method",
			method:    http.MethodGet,
			body:      nil,
			wantCode:  http.StatusMethodNotAllowed,
			wantField: "error",
			wantValue: "method not allowed",
		},
		{
			name:      "empty text",
			method:    http.MethodPost,
			body:      enhanceRequest{PromptID: "fix_grammar", Text: "   "},
			wantCode:  http.StatusBadRequest,
			wantField: "error",
			wantValue: "text is required",
		},
		{
			name:      "empty prompt_id",
			method:    http.MethodPost,
			body:      enhanceRequest{Text: "hello"},
			wantCode:  http.StatusBadRequest,
			wantField: "error",
			wantValue: "prompt_id is required",
		},
		{
			name:      "unknown prompt",
			method:    http.MethodPost,
			body:      enhanceRequest{PromptID: "nonexistent", Text: "hello"},
			wantCode:  http.StatusBadRequest,
			wantField: "kind",
			wantValue: "invalid_prompt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bodyBytes []byte
			if tt.body != nil {
				var err error
				bodyBytes, err = json.Marshal(tt.body)
				if err != nil {
					t.Fatalf("marshal: %v", err)
				}
			}

			req := httptest.NewRequest(tt.method, "/api/enhance", bytes.NewReader(bodyBytes))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", w.Code, tt.wantCode)
			}

			var resp map[string]any
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}

			got, ok := resp[tt.wantField]
			if !ok {
				t.Fatalf("response missing field %q: %v", tt.wantField, resp)
			}
			if got != tt.wantValue {
				t.Errorf("%s: got %q, want %q", tt.wantField, got, tt.wantValue)
			}
		})
	}
}

func TestHandleEnhanceTextTooLong(t *testing.T) {
	h := Enhance(mockEnhancer(mockStore()))

	t.Run("over limit", func(t *testing.T) {
		w := postEnhance(t, h, enhanceRequest{PromptID: "fix_grammar", Text: strings.Repeat("a", maxTextLength+1)})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want %d", w.Code, http.StatusBadRequest)
		}
		var resp errorResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if !strings.Contains(resp.Error, "too long") {
			t.Errorf("error: got %q, want to contain 'too long'", resp.Error)
		}
	})

	t.Run("at limit counts characters not bytes", func(t *testing.T) {
		w := postEnhance(t, h, enhanceRequest{PromptID: "fix_grammar", Text: strings.Repeat("é", maxTextLength)})
		if w.Code != http.StatusOK {
			t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestHandleEnhanceInvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/enhance", bytes.NewReader([]byte("{invalid")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	Enhance(mockEnhancer(mockStore())).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleEnhanceResponseFields(t *testing.T) {
	w := postEnhance(t, Enhance(mockEnhancer(mockStore())), enhanceRequest{PromptID: "summarize", Text: "hello"})

	var resp enhanceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Provider != "mock" || resp.Model != "mock" || resp.PromptID != "summarize" {
		t.Errorf("response: got %+v", resp)
	}
	if resp.ElapsedMs < 0 {
		t.Errorf("elapsed_ms should be >= 0, got %d", resp.ElapsedMs)
	}
}

func TestHandleEnhanceErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"configuration", apperr.Configuration("OpenAI", "OpenAI API key not set."), http.StatusUnprocessableEntity, "configuration"},
		{"unsupported provider", apperr.UnsupportedProvider("ollama"), http.StatusBadRequest, "unsupported_provider"},
		{"provider http", apperr.HTTP("Groq", 429, "slow down"), http.StatusBadGateway, "provider_http"},
		{"provider protocol", apperr.Protocol("Ollama", 200, "no response field"), http.StatusBadGateway, "provider_protocol"},
		{"timeout", apperr.Timeout("OpenAI", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postEnhance(t, Enhance(failingEnhancer{tt.err}), enhanceRequest{PromptID: "fix_grammar", Text: "hello"})

			if w.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", w.Code, tt.wantCode)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Kind != tt.wantKind {
				t.Errorf("kind: got %q, want %q", resp.Kind, tt.wantKind)
			}
			if resp.Error != tt.err.Error() {
				t.Errorf("error: got %q, want %q", resp.Error, tt.err.Error())
			}
		})
	}
}
