package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// KeySource returns the API key currently required. It is consulted on every
// request so a reloaded key takes effect without a restart.
type KeySource func() string

// StaticKey is a KeySource for a fixed key.
func StaticKey(key string) KeySource {
	return func() string { return key }
}

// publicPaths skip authentication and rate limiting so monitoring keeps working.
var publicPaths = map[string]bool{
	"/api/health": true,
	"/metrics":    true,
}

// APIKey requires a matching X-API-Key header. An empty key disables the check.
func APIKey(key KeySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			expected := key()
			if expected == "" || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			switch {
			case provided == "":
				unauthorized(w, "missing API key")
			case subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1:
				unauthorized(w, "invalid API key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
