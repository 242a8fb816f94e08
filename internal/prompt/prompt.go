// Package prompt holds the prompt templates offered to the user: a fixed set
// of built-ins followed by any custom prompts from configuration.
package prompt

import (
	"strings"
	"sync"
)

// Template is a named instruction that is prepended to the selected text.
type Template struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"prompt" json:"prompt"`
}

var builtins = []Template{
	{ID: "fix_grammar", Title: "Fix spelling & grammar", Body: "Fix the spelling and grammar. Return only the corrected text without quotes, explanations, or additional text:"},
	{ID: "improve_writing", Title: "Improve writing", Body: "Enhance the following text to improve clarity, flow, and readability. Return only the improved text without quotes, explanations, or additional text:"},
	{ID: "make_professional", Title: "Make professional", Body: "Rewrite the text in a formal, professional tone suitable for business communication. Return only the rewritten text without quotes, explanations, or additional text:"},
	{ID: "simplify", Title: "Simplify text", Body: "Simplify this text using simpler words and shorter sentences while preserving all key information. Return only the simplified text without quotes, explanations, or additional text:"},
	{ID: "summarize", Title: "Summarize", Body: "Provide a concise summary capturing all key points. Return only the summary without quotes, explanations, or additional text:"},
	{ID: "expand", Title: "Expand text", Body: "Elaborate on this text with more details, examples, and supporting points. Return only the expanded text without quotes, explanations, or additional text:"},
	{ID: "bullet_points", Title: "To bullet points", Body: "Convert this text into clear, organized bullet points. Return only the bullet-point list without quotes, explanations, or additional text:"},
	{ID: "make_friendly", Title: "Make friendly & casual", Body: "Rewrite this text in a warm, friendly, and casual tone. Return only the rewritten text without quotes, explanations, or additional text:"},
	{ID: "make_concise", Title: "Make concise", Body: "Shorten this text to be as concise as possible while preserving the core message. Remove filler words and redundancy. Return only the concise text without quotes, explanations, or additional text:"},
	{ID: "translate_english", Title: "Translate to English", Body: "Translate the following text to English. Return only the translated text without quotes, explanations, or additional text:"},
}

// DefaultSystemInstruction is sent with every request unless configuration
// replaces it.
const DefaultSystemInstruction = "You are a helpful writing assistant. You enhance, correct, and improve text while preserving the author's voice and intent. Always return only the processed text without any additional commentary, quotes, or explanation."

// Builtins returns a copy of the built-in templates.
func Builtins() []Template {
	out := make([]Template, len(builtins))
	copy(out, builtins)
	return out
}

// All returns the built-ins followed by custom, in that order.
func All(custom []Template) []Template {
	out := make([]Template, 0, len(builtins)+len(custom))
	out = append(out, builtins...)
	return append(out, custom...)
}

// Find returns the first template in all with the given id.
func Find(all []Template, id string) (Template, bool) {
	for _, t := range all {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Compose builds the full prompt sent to a provider.
func (t Template) Compose(text string) string {
	return t.Body + "\n\n" + text
}

// IDFromTitle derives a custom prompt id in snake case: runs of anything
// other than ASCII letters and digits become a single underscore, with no
// leading or trailing underscore.
func IDFromTitle(title string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}

// Registry caches the combined prompt list and is refreshed whenever the
// custom prompts in configuration change.
type Registry struct {
	mu  sync.RWMutex
	all []Template
}

func NewRegistry(custom []Template) *Registry {
	return &Registry{all: All(custom)}
}

// Refresh replaces the custom portion of the list.
func (r *Registry) Refresh(custom []Template) {
	all := All(custom)
	r.mu.Lock()
	r.all = all
	r.mu.Unlock()
}

// List returns a copy of the current prompt list.
func (r *Registry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, len(r.all))
	copy(out, r.all)
	return out
}

func (r *Registry) Find(id string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Find(r.all, id)
}
