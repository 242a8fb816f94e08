package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockAdapter returns simulated responses with a configurable delay.
// Used for development and testing without a real LLM backend.
type MockAdapter struct {
	Delay time.Duration
}

func (m *MockAdapter) Name() string { return "Mock" }

func (m *MockAdapter) Kind() ProviderKind { return Mock }

// Invoke capitalizes the text that follows the prompt body, so the result
// mirrors what a grammar fix of the user's selection would look like.
func (m *MockAdapter) Invoke(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return GenerationResult{}, fmt.Errorf("mock: %w", ctx.Err())
		}
	}

	text := req.FullPrompt
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[i+2:]
	}
	out := strings.TrimSpace(text)
	if len(out) > 0 && out[0] >= 'a' && out[0] <= 'z' {
		out = strings.ToUpper(out[:1]) + out[1:]
	}
	return GenerationResult{Text: out}, nil
}

func (m *MockAdapter) Check(ctx context.Context, req GenerationRequest) error { return nil }
