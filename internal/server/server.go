package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/config"
	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/handler"
	"github.com/scramble-ai/scramble/internal/middleware"
	"github.com/scramble-ai/scramble/internal/prompt"
)

// Deps are the long-lived components the HTTP surface serves.
type Deps struct {
	Store    *config.Store
	Adapters adapter.Registry
	Enhancer dispatch.Enhancer
	Prompts  *prompt.Registry
	Logger   *slog.Logger
}

// SetupMux wires handlers with the full middleware chain. The API key and the
// handler timeout follow config reloads; the per-client rate limit is read
// once from the current snapshot.
func SetupMux(d Deps) http.Handler {
	cfg := d.Store.Current()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handler.Health(d.Store, d.Adapters))
	mux.HandleFunc("/api/providers", handler.Providers(d.Store, d.Adapters))
	mux.HandleFunc("/api/prompts", handler.Prompts(d.Prompts))
	mux.HandleFunc("/api/config", handler.Config(d.Store))
	mux.HandleFunc("/api/enhance", handler.Enhance(d.Enhancer))
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Chain(mux, middleware.Options{
		RateLimiter: middleware.NewRateLimiter(cfg.HTTPRateLimit, time.Minute),
		APIKey:      func() string { return d.Store.Current().APIKey },
		Timeout:     func() time.Duration { return HandlerTimeout(d.Store.Current()) },
		Logger:      d.Logger,
	})
}

// HandlerTimeout leaves room for a full queue window on top of the provider
// deadline.
func HandlerTimeout(cfg config.Config) time.Duration {
	return cfg.RequestTimeout + cfg.RateLimit.Window + 5*time.Second
}
