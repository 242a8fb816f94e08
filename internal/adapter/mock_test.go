package adapter

import (
	"context"
	"testing"
	"time"
)

func TestMockAdapterInvoke(t *testing.T) {
	m := &MockAdapter{}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"capitalizes first letter", "hello world", "Hello world"},
		{"trims whitespace", "  hello world  ", "Hello world"},
		{"already capitalized", "Hello world", "Hello world"},
		{"strips prompt body", "Fix grammar.\n\nteh cat", "Teh cat"},
		{"keeps paragraphs of the text", "Fix.\n\na.\n\nb.", "A.\n\nb."},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Invoke(context.Background(), GenerationRequest{FullPrompt: tt.input})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Text != tt.want {
				t.Errorf("got %q, want %q", got.Text, tt.want)
			}
		})
	}
}

func TestMockAdapterContextCancel(t *testing.T) {
	m := &MockAdapter{Delay: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Invoke(ctx, GenerationRequest{FullPrompt: "hello"})
	if err == nil {
		t.Error("expected error on cancelled context, got nil")
	}
}

func TestMockAdapterCheck(t *testing.T) {
	m := &MockAdapter{}
	if err := m.Check(context.Background(), GenerationRequest{}); err != nil {
		t.Errorf("mock adapter should always be available, got %v", err)
	}
	if m.Name() != "Mock" {
		t.Errorf("got %q, want %q", m.Name(), "Mock")
	}
}
