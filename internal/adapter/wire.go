package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/scramble-ai/scramble/internal/apperr"
)

// maxResponseBytes caps how much of a provider body is read.
const maxResponseBytes = 4 << 20

// postJSON sends body to url and returns the status and raw response bytes.
// Transport failures caused by ctx ending are reported as timeouts.
func postJSON(ctx context.Context, client *http.Client, kind ProviderKind, url string, headers map[string]string, body any) (int, []byte, error) {
	name := kind.DisplayName()
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: marshal request: %w", kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("%s: create request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, apperr.Timeout(name, err)
		}
		return 0, nil, fmt.Errorf("%s: request: %w", kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, apperr.Timeout(name, err)
		}
		return resp.StatusCode, nil, fmt.Errorf("%s: read response: %w", kind, err)
	}
	return resp.StatusCode, raw, nil
}

// errorDetail extracts provider error text from a non-success body. Hosted
// providers use {"error":{"message":...}}; local servers often return
// {"error":"..."} or plain text.
func errorDetail(raw []byte, allowPlainText bool) string {
	if gjson.ValidBytes(raw) {
		if msg := gjson.GetBytes(raw, "error.message"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
		if msg := gjson.GetBytes(raw, "error"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
		if msg := gjson.GetBytes(raw, "message"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
	}
	if allowPlainText {
		return strings.TrimSpace(string(raw))
	}
	return ""
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
