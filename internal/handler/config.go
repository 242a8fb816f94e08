package handler

import (
	"net/http"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/dispatch"
)

// Config returns the current settings with credentials replaced by flags.
func Config(settings dispatch.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, settings.Current().Redacted())
	}
}

// Providers lists the registered provider backends and marks the selected one.
func Providers(settings dispatch.Settings, adapters adapter.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, adapters.Providers(settings.Current().Provider))
	}
}
