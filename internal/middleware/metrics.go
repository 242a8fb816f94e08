package middleware

import (
	"net/http"
	"strconv"

	"github.com/scramble-ai/scramble/internal/metrics"
)

// routes bounds the path label. Anything else is counted as "other".
var routes = map[string]bool{
	"/api/enhance":   true,
	"/api/prompts":   true,
	"/api/config":    true,
	"/api/providers": true,
	"/api/health":    true,
	"/metrics":       true,
}

func routeLabel(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}

// Metrics counts requests by method, route and status code.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		metrics.RequestsTotal.WithLabelValues(r.Method, routeLabel(r.URL.Path), strconv.Itoa(sw.status)).Inc()
	})
}
