package adapter

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ProviderKind names one of the fixed provider backends.
type ProviderKind string

const (
	OpenAI     ProviderKind = "openai"
	Anthropic  ProviderKind = "anthropic"
	Ollama     ProviderKind = "ollama"
	LMStudio   ProviderKind = "lmstudio"
	Groq       ProviderKind = "groq"
	OpenRouter ProviderKind = "openrouter"
	Mock       ProviderKind = "mock"
)

var knownKinds = []ProviderKind{OpenAI, Anthropic, Ollama, LMStudio, Groq, OpenRouter, Mock}

// ParseProviderKind validates a configured provider name.
func ParseProviderKind(s string) (ProviderKind, error) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range knownKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Hosted reports whether the provider is a remote service that requires a
// credential. Local inference servers accept an optional one.
func (k ProviderKind) Hosted() bool {
	switch k {
	case OpenAI, Anthropic, Groq, OpenRouter:
		return true
	default:
		return false
	}
}

// DisplayName is used in user-facing error messages.
func (k ProviderKind) DisplayName() string {
	switch k {
	case OpenAI:
		return "OpenAI"
	case Anthropic:
		return "Anthropic"
	case Ollama:
		return "Ollama"
	case LMStudio:
		return "LM Studio"
	case Groq:
		return "Groq"
	case OpenRouter:
		return "OpenRouter"
	case Mock:
		return "Mock"
	default:
		return string(k)
	}
}

// DefaultModel is applied when no model is configured. Local providers have
// no default because the installed models vary per machine.
func (k ProviderKind) DefaultModel() string {
	switch k {
	case OpenAI:
		return "gpt-4o-mini"
	case Anthropic:
		return "claude-3-5-sonnet-20241022"
	case Groq:
		return "llama-3.3-70b-versatile"
	case OpenRouter:
		return "openai/gpt-4o-mini"
	case Mock:
		return "mock"
	default:
		return ""
	}
}

// GenerationRequest is built fresh for every enhancement and consumed by
// exactly one adapter invocation.
type GenerationRequest struct {
	FullPrompt        string
	SystemInstruction string
	Temperature       float64
	MaxTokens         int
	Provider          ProviderKind
	Model             string
	// Endpoint overrides the provider's default URL when non-empty.
	Endpoint string
	APIKey   string
}

// GenerationResult holds the trimmed plain text extracted from a provider response.
type GenerationResult struct {
	Text string
}

// Adapter normalizes a GenerationRequest into one provider's wire protocol.
// Implementations are stateless and safe for concurrent use.
type Adapter interface {
	Name() string
	Kind() ProviderKind
	Invoke(ctx context.Context, req GenerationRequest) (GenerationResult, error)
	// Check reports whether req could be served right now without sending
	// it: credential gating for hosted providers, a reachability probe for
	// local ones.
	Check(ctx context.Context, req GenerationRequest) error
}

// ProviderInfo is exposed via GET /api/providers.
type ProviderInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Hosted   bool   `json:"hosted"`
	Selected bool   `json:"selected"`
}

// Registry maps provider kinds to their adapters.
type Registry map[ProviderKind]Adapter

// NewRegistry builds the full adapter set around one shared HTTP client.
// When mock is true only the mock adapter is registered.
func NewRegistry(client *http.Client, mock bool) Registry {
	if mock {
		return Registry{Mock: &MockAdapter{}}
	}
	return Registry{
		OpenAI:     &OpenAIAdapter{Provider: OpenAI, Client: client},
		Groq:       &OpenAIAdapter{Provider: Groq, Client: client},
		OpenRouter: &OpenAIAdapter{Provider: OpenRouter, Client: client},
		LMStudio:   &OpenAIAdapter{Provider: LMStudio, Client: client},
		Anthropic:  &AnthropicAdapter{Client: client},
		Ollama:     &OllamaAdapter{Client: client},
	}
}

// Lookup returns the adapter registered for kind.
func (r Registry) Lookup(kind ProviderKind) (Adapter, bool) {
	a, ok := r[kind]
	return a, ok
}

// Providers lists the registered kinds in a stable order.
func (r Registry) Providers(selected ProviderKind) []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(r))
	for kind, a := range r {
		infos = append(infos, ProviderInfo{
			ID:       string(kind),
			Name:     a.Name(),
			Hosted:   kind.Hosted(),
			Selected: kind == selected,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
