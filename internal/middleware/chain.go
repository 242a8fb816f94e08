package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultMaxBody caps request bodies; the text limit is far below it.
const DefaultMaxBody = 64 * 1024

// Options configures Chain.
type Options struct {
	RateLimiter *RateLimiter
	APIKey      KeySource
	// Timeout must cover the provider deadline plus the longest queue wait.
	// It is read on every request so reloaded deadlines apply.
	Timeout DurationSource
	MaxBody int64
	Logger  *slog.Logger
}

// Chain wraps the handler with the full middleware stack.
// Order: CORS → RequestID → Logging → Metrics → RateLimit → APIKey → MaxBytes → Timeout → mux
func Chain(handler http.Handler, opts Options) http.Handler {
	if opts.APIKey == nil {
		opts.APIKey = StaticKey("")
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}

	h := handler
	if opts.Timeout != nil {
		h = Timeout(opts.Timeout)(h)
	}
	h = MaxBytes(opts.MaxBody)(h)
	h = APIKey(opts.APIKey)(h)
	if opts.RateLimiter != nil {
		h = RateLimit(opts.RateLimiter)(h)
	}
	h = Metrics(h)
	h = Logging(opts.Logger)(h)
	h = RequestID(h)
	h = CORS(h)
	return h
}

// DurationSource returns the current value of a reloadable duration.
type DurationSource func() time.Duration

// StaticTimeout returns a DurationSource that always yields d.
func StaticTimeout(d time.Duration) DurationSource {
	return func() time.Duration { return d }
}

const timeoutBody = `{"error":"request timeout","kind":"timeout"}`

// Timeout bounds each request by the duration current when it arrives. A
// non-positive duration disables the bound.
func Timeout(d DurationSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := d()
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			http.TimeoutHandler(next, limit, timeoutBody).ServeHTTP(w, r)
		})
	}
}
