package handler

import (
	"net/http"

	"github.com/scramble-ai/scramble/internal/prompt"
)

// Prompts lists built-in prompts followed by custom ones.
func Prompts(reg *prompt.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reg.List())
	}
}
