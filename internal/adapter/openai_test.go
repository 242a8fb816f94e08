package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scramble-ai/scramble/internal/apperr"
)

const chatCompletionOK = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "  Hello.  "}, "finish_reason": "stop"}
  ]
}`

type capturedChat struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestOpenAIAdapterInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body capturedChat
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Equal(t, 512, body.MaxTokens)
		assert.InDelta(t, 0.3, body.Temperature, 1e-9)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "Be helpful.", body.Messages[0].Content)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "Fix.\n\nteh cat", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionOK))
	}))
	defer srv.Close()

	a := &OpenAIAdapter{Provider: OpenAI, BaseURL: srv.URL + "/v1/", Client: srv.Client()}
	got, err := a.Invoke(context.Background(), GenerationRequest{
		FullPrompt:        "Fix.\n\nteh cat",
		SystemInstruction: "Be helpful.",
		Temperature:       0.3,
		MaxTokens:         512,
		APIKey:            "sk-test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello.", got.Text)
}

func TestOpenAIAdapterMissingContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant"}}]}`))
	}))
	defer srv.Close()

	a := &OpenAIAdapter{Provider: Groq, BaseURL: srv.URL, Client: srv.Client()}
	_, err := a.Invoke(context.Background(), GenerationRequest{FullPrompt: "p", APIKey: "k"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrProviderProtocol), "got %v", err)
	assert.Contains(t, err.Error(), "Groq")
}

func TestOpenAIAdapterHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	a := &OpenAIAdapter{Provider: OpenAI, BaseURL: srv.URL, Client: srv.Client()}
	_, err := a.Invoke(context.Background(), GenerationRequest{FullPrompt: "p", APIKey: "bad"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrProviderHTTP), "got %v", err)
	assert.Contains(t, err.Error(), "(401)")

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestOpenAIAdapterCredentialGating(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	for _, kind := range []ProviderKind{OpenAI, Groq, OpenRouter} {
		t.Run(string(kind), func(t *testing.T) {
			a := &OpenAIAdapter{Provider: kind, BaseURL: srv.URL, Client: srv.Client()}
			_, err := a.Invoke(context.Background(), GenerationRequest{FullPrompt: "p"})
			assert.True(t, errors.Is(err, apperr.ErrConfiguration), "got %v", err)
			assert.Contains(t, err.Error(), "API key not set")
		})
	}
	assert.Zero(t, calls.Load())
}

func TestOpenAIAdapterLocalNeedsModel(t *testing.T) {
	a := &OpenAIAdapter{Provider: LMStudio, BaseURL: "http://127.0.0.1:1/v1/"}
	_, err := a.Invoke(context.Background(), GenerationRequest{FullPrompt: "p"})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration), "got %v", err)
	assert.Contains(t, err.Error(), "Model not set for LM Studio")
}

func TestOpenAIAdapterLocalWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom/v1/chat/completions", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionOK))
	}))
	defer srv.Close()

	a := &OpenAIAdapter{Provider: LMStudio, Client: srv.Client()}
	got, err := a.Invoke(context.Background(), GenerationRequest{
		FullPrompt: "p",
		Model:      "qwen2.5-7b-instruct",
		Endpoint:   srv.URL + "/custom/v1/chat/completions",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello.", got.Text)
}

func TestOpenAIAdapterEndpointUsedAsGiven(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantPath  string
		wantQuery string
	}{
		{"query string", "/openai/deployments/d/chat/completions?api-version=2024-02-01", "/openai/deployments/d/chat/completions", "api-version=2024-02-01"},
		{"non-standard path", "/proxy/generate", "/proxy/generate", ""},
		{"trailing slash", "/v1/chat/completions/", "/v1/chat/completions/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, tt.wantQuery, r.URL.RawQuery)
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(chatCompletionOK))
			}))
			defer srv.Close()

			a := &OpenAIAdapter{Provider: OpenAI, Client: srv.Client()}
			got, err := a.Invoke(context.Background(), GenerationRequest{
				FullPrompt: "p",
				APIKey:     "sk-test",
				Endpoint:   srv.URL + tt.path,
			})
			require.NoError(t, err)
			assert.Equal(t, "Hello.", got.Text)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestOpenAIAdapterInvalidEndpoint(t *testing.T) {
	a := &OpenAIAdapter{Provider: LMStudio}
	_, err := a.Invoke(context.Background(), GenerationRequest{FullPrompt: "p", Model: "m", Endpoint: "localhost:1234"})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration), "got %v", err)
}

func TestOpenAIAdapterCheckFollowsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom/v1/models", r.URL.Path)
		assert.Equal(t, "key=1", r.URL.RawQuery)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	a := &OpenAIAdapter{Provider: LMStudio, Client: srv.Client()}
	assert.NoError(t, a.Check(context.Background(), GenerationRequest{
		Model:    "local",
		Endpoint: srv.URL + "/custom/v1/chat/completions?key=1",
	}))

	// No model list can be located next to a non-standard path.
	assert.NoError(t, a.Check(context.Background(), GenerationRequest{
		Model:    "local",
		Endpoint: "http://127.0.0.1:1/proxy/generate",
	}))
}

func TestOpenAIAdapterOpenRouterHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Title"))
		assert.NotEmpty(t, r.Header.Get("HTTP-Referer"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionOK))
	}))
	defer srv.Close()

	a := &OpenAIAdapter{Provider: OpenRouter, BaseURL: srv.URL, Client: srv.Client()}
	_, err := a.Invoke(context.Background(), GenerationRequest{FullPrompt: "p", APIKey: "or-key"})
	require.NoError(t, err)
}

func TestOpenAIAdapterCheckProbesLocalModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	a := &OpenAIAdapter{Provider: LMStudio, BaseURL: srv.URL + "/v1", Client: srv.Client()}
	assert.NoError(t, a.Check(context.Background(), GenerationRequest{Model: "local"}))
}
