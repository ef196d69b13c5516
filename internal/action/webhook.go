package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// DefaultWebhookTimeout bounds a single webhook call. A timeout is a failed
// action result, not a crash.
const DefaultWebhookTimeout = 10 * time.Second

// maxWebhookResponseBytes caps how much of a response body is captured into
// the action result.
const maxWebhookResponseBytes = 64 << 10

// HTTPWebhook calls outbound webhooks over net/http with a bounded timeout.
type HTTPWebhook struct {
	client *http.Client
}

// NewHTTPWebhook creates a webhook caller. A zero timeout falls back to
// DefaultWebhookTimeout.
func NewHTTPWebhook(timeout time.Duration) *HTTPWebhook {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &HTTPWebhook{
		client: &http.Client{Timeout: timeout},
	}
}

// CallWebhook performs the HTTP request and captures the outcome. Non-2xx
// statuses and transport errors (including timeouts) are returned as errors
// so the executor records them as failed results.
func (w *HTTPWebhook) CallWebhook(
	ctx context.Context,
	rawURL string,
	method playbook.HTTPMethod,
	headers map[string]string,
	body json.RawMessage,
) (json.RawMessage, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL %q: unsupported scheme %q", rawURL, parsed.Scheme)
	}

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), parsed.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	durationMS := time.Since(start).Milliseconds()

	// Body is captured best-effort; an unreadable body does not fail the call.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponseBytes))

	result, err := json.Marshal(map[string]any{
		"url":         rawURL,
		"method":      string(method),
		"status_code": resp.StatusCode,
		"duration_ms": durationMS,
		"response":    string(respBody),
	})
	if err != nil {
		return nil, fmt.Errorf("encode webhook result: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("webhook returned error status",
			"url", rawURL,
			"status", resp.StatusCode,
		)
		return result, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	slog.Debug("webhook call succeeded",
		"url", rawURL,
		"status", resp.StatusCode,
		"duration_ms", durationMS,
	)
	return result, nil
}
