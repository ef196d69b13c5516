package action

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflexhq/reflex/internal/playbook"
)

func TestCallWebhook_Success(t *testing.T) {
	var gotMethod, gotContentType, gotToken string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotToken = r.Header.Get("X-Token")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	w := NewHTTPWebhook(5 * time.Second)
	result, err := w.CallWebhook(context.Background(), srv.URL, playbook.MethodPost,
		map[string]string{"X-Token": "abc"}, json.RawMessage(`{"event":"done"}`))
	require.NoError(t, err)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "abc", gotToken)
	assert.JSONEq(t, `{"event":"done"}`, string(gotBody))

	var payload struct {
		URL        string `json:"url"`
		Method     string `json:"method"`
		StatusCode int    `json:"status_code"`
		DurationMS int64  `json:"duration_ms"`
		Response   string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(result, &payload))
	assert.Equal(t, srv.URL, payload.URL)
	assert.Equal(t, "POST", payload.Method)
	assert.Equal(t, http.StatusOK, payload.StatusCode)
	assert.Equal(t, `{"ok":true}`, payload.Response)
}

func TestCallWebhook_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	w := NewHTTPWebhook(5 * time.Second)
	result, err := w.CallWebhook(context.Background(), srv.URL, playbook.MethodGet, nil, nil)

	// The result payload is still produced so the failure is auditable.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	var payload struct {
		StatusCode int    `json:"status_code"`
		Response   string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(result, &payload))
	assert.Equal(t, http.StatusBadGateway, payload.StatusCode)
	assert.Equal(t, "upstream down", payload.Response)
}

func TestCallWebhook_RejectsNonHTTPSchemes(t *testing.T) {
	w := NewHTTPWebhook(time.Second)

	_, err := w.CallWebhook(context.Background(), "file:///etc/passwd", playbook.MethodGet, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestCallWebhook_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	w := NewHTTPWebhook(50 * time.Millisecond)
	_, err := w.CallWebhook(context.Background(), srv.URL, playbook.MethodGet, nil, nil)
	require.Error(t, err)
}

func TestCallWebhook_GetOmitsContentType(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	w := NewHTTPWebhook(time.Second)
	_, err := w.CallWebhook(context.Background(), srv.URL, playbook.MethodGet, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, gotContentType)
}

func TestCallWebhook_TruncatesHugeResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		big := make([]byte, maxWebhookResponseBytes*2)
		for i := range big {
			big[i] = 'x'
		}
		w.Write(big)
	}))
	defer srv.Close()

	w := NewHTTPWebhook(5 * time.Second)
	result, err := w.CallWebhook(context.Background(), srv.URL, playbook.MethodGet, nil, nil)
	require.NoError(t, err)

	var payload struct {
		Response string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(result, &payload))
	assert.Len(t, payload.Response, maxWebhookResponseBytes)
}
