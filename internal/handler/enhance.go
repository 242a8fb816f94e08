package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/metrics"
)

const maxTextLength = 10000

type enhanceRequest struct {
	PromptID string `json:"prompt_id"`
	Text     string `json:"text"`
}

type enhanceResponse struct {
	Enhanced  string `json:"enhanced"`
	PromptID  string `json:"prompt_id"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

func Enhance(enhancer dispatch.Enhancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req enhanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		n := utf8.RuneCountInString(req.Text)
		if n > maxTextLength {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("text too long: %d characters (max %d)", n, maxTextLength))
			return
		}
		if req.PromptID == "" {
			writeError(w, http.StatusBadRequest, "prompt_id is required")
			return
		}

		metrics.InputChars.Observe(float64(n))

		res, err := enhancer.Enhance(r.Context(), req.PromptID, req.Text)
		if err != nil {
			writeKindError(w, err)
			return
		}

		writeJSON(w, enhanceResponse{
			Enhanced:  res.Text,
			PromptID:  res.PromptID,
			Provider:  string(res.Provider),
			Model:     res.Model,
			ElapsedMs: res.Elapsed.Milliseconds(),
		})
	}
}
