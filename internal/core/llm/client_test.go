package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/new20/newsai/internal/core/errors"
)

func completionServer(t *testing.T, content string, status int, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://news.example.com", r.Header.Get(headerReferer))
		assert.Equal(t, "News Test", r.Header.Get(headerTitle))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])

		w.Header().Set("Content-Type", "application/json")

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))

			return
		}

		resp := map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(url string) *Client {
	return New(Config{
		APIKey:  "test-key",
		BaseURL: url + "/",
		Model:   "test-model",
		Referer: "https://news.example.com",
		Title:   "News Test",
	}, nil)
}

func TestClient_CompleteText(t *testing.T) {
	var hits atomic.Int32

	srv := completionServer(t, "  hello world \n", http.StatusOK, &hits)
	defer srv.Close()

	got, err := newTestClient(srv.URL).CompleteText(context.Background(), Request{System: "sys", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_EmptyCompletion(t *testing.T) {
	var hits atomic.Int32

	srv := completionServer(t, "   ", http.StatusOK, &hits)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CompleteText(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrEmptyResponse)
}

func TestClient_CircuitBreaker(t *testing.T) {
	var hits atomic.Int32

	srv := completionServer(t, "", http.StatusBadRequest, &hits)
	defer srv.Close()

	c := newTestClient(srv.URL)

	for i := 0; i < circuitBreakerThreshold; i++ {
		_, err := c.CompleteText(context.Background(), Request{Prompt: "hi"})
		require.Error(t, err)
	}

	_, err := c.CompleteText(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, coreerrors.ErrCircuitBreakerOpen)
	assert.Equal(t, int32(circuitBreakerThreshold), hits.Load())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "pure object", input: `{"key":"value"}`, want: `{"key":"value"}`},
		{name: "object with preamble", input: `Here: {"key":"value"} done.`, want: `{"key":"value"}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", input: "Sure!\n```\n{\"a\":{\"b\":2}}\n```\nThanks", want: `{"a":{"b":2}}`},
		{name: "no json", input: "just some text", want: "just some text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}
