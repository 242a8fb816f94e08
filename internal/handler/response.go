package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scramble-ai/scramble/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// writeKindError maps a classified failure to a status code. The message is
// passed through verbatim so clients can show it to the user.
func writeKindError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrConfiguration):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrInvalidPrompt), errors.Is(err, apperr.ErrUnsupportedProvider):
		code = http.StatusBadRequest
	case errors.Is(err, apperr.ErrProviderProtocol), errors.Is(err, apperr.ErrProviderHTTP):
		code = http.StatusBadGateway
	case errors.Is(err, apperr.ErrTimeout):
		code = http.StatusGatewayTimeout
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), Kind: kind.String()})
}
