package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/core/ports/mocks"
	"github.com/new20/newsai/internal/process/pipeline"
)

const testKey = "admin-secret"

type fakeRunner struct {
	mu    sync.Mutex
	calls []pipeline.Options
	res   pipeline.Result
	err   error
}

func (r *fakeRunner) Run(_ context.Context, opts pipeline.Options) (pipeline.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, opts)

	return r.res, r.err
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}

func newSubscribers() *mocks.SubscriberRepository {
	subs := mocks.NewSubscriberRepository()
	subs.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	return subs
}

func testOptions() Options {
	return Options{
		AdminAPIKey:              testKey,
		AllowedOrigins:           []string{"https://news.example.com"},
		AdminRateLimitMax:        5,
		AdminRateLimitWindow:     time.Minute,
		SubscribeRateLimitMax:    3,
		SubscribeRateLimitWindow: 5 * time.Minute,
		DatabaseName:             "newsai",
		SourcesLoaded:            40,
		CategoriesLoaded:         8,
	}
}

func newTestServer(runner Runner, subs Subscribers) *Server {
	return New(testOptions(), runner, subs, nil, nil)
}

func doRequest(t *testing.T, s *Server, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}

	return resp.StatusCode, out
}

func adminRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(headerAPIKey, testKey)

	return req
}

func subscribeRequestFor(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, RouteSubscribe, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestFetchNews(t *testing.T) {
	runner := &fakeRunner{res: pipeline.Result{
		RunID:            "run-1",
		Message:          "Upserted 1 news articles",
		SourcesLoaded:    12,
		CategoriesLoaded: 9,
		RewriterEnabled:  true,
		Metrics:          pipeline.RunMetrics{ArticlesFetched: 7, ArticlesSummarized: 3, Upserted: 1},
		Articles: []domain.StoredArticle{{
			ID:      "a1",
			Article: domain.Article{Title: "New model", SourceURL: "https://lab.example.com/post"},
		}},
	}}

	s := newTestServer(runner, newSubscribers())

	req := adminRequest(http.MethodPost, RouteFetchNews)
	req.Header.Set(headerSelfTest, "true")

	code, body := doRequest(t, s, req)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Upserted 1 news articles", body["message"])
	assert.EqualValues(t, 1, body["count"])

	debug := body["debug"].(map[string]any)
	assert.Equal(t, "run-1", debug["runId"])
	assert.Equal(t, "newsai", debug["databaseName"])
	assert.EqualValues(t, 12, debug["sourcesLoadedCount"])
	assert.EqualValues(t, 9, debug["categoriesLoadedCount"])
	assert.Equal(t, true, debug["openrouterEnabled"])
	assert.EqualValues(t, 7, debug["articlesFetchedCount"])
	assert.EqualValues(t, 3, debug["articlesSummarizedCount"])
	assert.EqualValues(t, 1, debug["upsertedCount"])

	articles := body["articles"].([]any)
	require.Len(t, articles, 1)
	assert.Equal(t, "https://lab.example.com/post", articles[0].(map[string]any)["source_url"])

	require.Equal(t, 1, runner.callCount())
	assert.True(t, runner.calls[0].SelfTest)
}

func TestFetchNews_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "run in progress", err: coreerrors.ErrRunInProgress, want: http.StatusConflict},
		{name: "run failure", err: errors.New("upsert: connection refused"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeRunner{err: tt.err}, newSubscribers())

			code, body := doRequest(t, s, adminRequest(http.MethodPost, RouteFetchNews))

			assert.Equal(t, tt.want, code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.err.Error(), body["error"])

			debug := body["debug"].(map[string]any)
			assert.EqualValues(t, 40, debug["sourcesLoadedCount"])
			assert.EqualValues(t, 0, debug["upsertedCount"])
		})
	}
}

func TestAdminKey(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner, newSubscribers())

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, RouteFetchNews, nil)
		if key != "" {
			req.Header.Set(headerAPIKey, key)
		}

		code, body := doRequest(t, s, req)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, msgUnauthorized, body["error"])
	}

	assert.Zero(t, runner.callCount())

	code, body := doRequest(t, s, adminRequest(http.MethodPost, RouteAuthenticate))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

func TestAdminRateLimit(t *testing.T) {
	s := newTestServer(&fakeRunner{}, newSubscribers())

	for i := 0; i < 5; i++ {
		code, _ := doRequest(t, s, adminRequest(http.MethodPost, RouteAuthenticate))
		require.Equal(t, http.StatusOK, code, "request %d", i)
	}

	code, body := doRequest(t, s, adminRequest(http.MethodPost, RouteAuthenticate))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, msgAdminRateLimited, body["error"])

	// A different forwarded client has its own window.
	req := adminRequest(http.MethodPost, RouteAuthenticate)
	req.Header.Set(headerForwardedFor, "203.0.113.9, 10.0.0.1")

	code, _ = doRequest(t, s, req)
	assert.Equal(t, http.StatusOK, code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeRunner{}, newSubscribers())

	req := adminRequest(http.MethodPost, RouteAuthenticate)
	req.Header.Set("Origin", "https://evil.example.org")

	code, body := doRequest(t, s, req)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, msgOriginNotAllowed, body["error"])

	req = adminRequest(http.MethodPost, RouteAuthenticate)
	req.Header.Set("Origin", "https://news.example.com")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://news.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSubscribe(t *testing.T) {
	subs := newSubscribers()
	s := newTestServer(&fakeRunner{}, subs)

	code, body := doRequest(t, s, subscribeRequestFor(`{"email":"  Reader@Example.COM ","source":"footer<script>\r\nform"}`))
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, msgSubscribed, body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "sub-1", data["id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", data["created_at"])

	stored, ok := subs.Get("reader@example.com")
	require.True(t, ok)
	assert.Equal(t, "footerscript form", stored.Source)

	code, body = doRequest(t, s, subscribeRequestFor(`{"email":"reader@example.com"}`))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, msgAlreadySubscribed, body["error"])
}

func TestSubscribe_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: msgEmailRequired},
		{name: "blank email", body: `{"email":"   "}`, want: msgEmailRequired},
		{name: "malformed json", body: `{"email":`, want: msgEmailRequired},
		{name: "bad format", body: `{"email":"not-an-email"}`, want: msgEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeRunner{}, newSubscribers())

			code, body := doRequest(t, s, subscribeRequestFor(tt.body))
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.want, body["error"])
		})
	}
}

func TestSubscribe_RateLimitAndFailure(t *testing.T) {
	subs := newSubscribers()
	subs.AddSubscriberFn = func(context.Context, string, string) (domain.Subscriber, error) {
		return domain.Subscriber{}, errors.New("db down")
	}

	s := newTestServer(&fakeRunner{}, subs)

	for i := 0; i < 3; i++ {
		code, body := doRequest(t, s, subscribeRequestFor(`{"email":"a@example.com"}`))
		require.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, msgSubscribeFailed, body["error"])
	}

	code, body := doRequest(t, s, subscribeRequestFor(`{"email":"a@example.com"}`))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, msgSubscribeRateLimited, body["error"])
}

func TestStats(t *testing.T) {
	subs := newSubscribers()
	for i := range 42 {
		_, err := subs.AddSubscriber(context.Background(), fmt.Sprintf("r%d@example.com", i), "")
		require.NoError(t, err)
	}

	s := newTestServer(&fakeRunner{}, subs)

	code, body := doRequest(t, s, adminRequest(http.MethodGet, RouteStats))
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 42, body["data"].(map[string]any)["subscriberCount"])

	failing := newSubscribers()
	failing.SubscriberCountFn = func(context.Context) (int64, error) { return 0, errors.New("timeout") }

	s = newTestServer(&fakeRunner{}, failing)

	code, body = doRequest(t, s, adminRequest(http.MethodGet, RouteStats))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, msgStatsFailed, body["error"])
}

func TestHealthRoutes(t *testing.T) {
	health := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	})

	s := New(testOptions(), &fakeRunner{}, newSubscribers(), health, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, path, string(body))
	}
}

func TestRateLimit_SharedBudgetAndDisabled(t *testing.T) {
	s := newTestServer(&fakeRunner{}, newSubscribers())

	// Admin routes draw from one budget per client.
	for i := 0; i < 5; i++ {
		req := adminRequest(http.MethodPost, RouteAuthenticate)
		if i%2 == 1 {
			req = adminRequest(http.MethodGet, RouteStats)
		}

		code, _ := doRequest(t, s, req)
		require.Equal(t, http.StatusOK, code, "request %d", i)
	}

	code, body := doRequest(t, s, adminRequest(http.MethodGet, RouteStats))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, msgAdminRateLimited, body["error"])

	// Every server keeps its own counters.
	code, _ = doRequest(t, newTestServer(&fakeRunner{}, newSubscribers()), adminRequest(http.MethodPost, RouteAuthenticate))
	assert.Equal(t, http.StatusOK, code)

	opts := testOptions()
	opts.AdminRateLimitMax = 0
	unlimited := New(opts, &fakeRunner{}, newSubscribers(), nil, nil)

	for i := 0; i < 10; i++ {
		code, _ := doRequest(t, unlimited, adminRequest(http.MethodPost, RouteAuthenticate))
		require.Equal(t, http.StatusOK, code, "request %d", i)
	}
}

func TestSanitizeSourceTag(t *testing.T) {
	assert.Equal(t, "hero form", SanitizeSourceTag(" hero\r\n\nform "))
	assert.Equal(t, "ab", SanitizeSourceTag(`<a>"b'`+"`"))
	assert.Len(t, SanitizeSourceTag(strings.Repeat("x", 150)), maxSourceTagLength)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("user.name+tag@sub.example.io"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("user@example"))
	assert.False(t, ValidEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestAutoFetch(t *testing.T) {
	runner := &fakeRunner{err: coreerrors.ErrRunInProgress}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- AutoFetch(ctx, runner, 10*time.Millisecond, nil) }()

	require.Eventually(t, func() bool { return runner.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestClient(t *testing.T) {
	runner := &fakeRunner{res: pipeline.Result{RunID: "run-9", Message: "Upserted 2 news articles", Metrics: pipeline.RunMetrics{Upserted: 2}}}
	s := newTestServer(runner, newSubscribers())

	srv := httptest.NewServer(adaptor.FiberApp(s.App()))
	defer srv.Close()

	c := NewClient(srv.URL+"/", testKey, srv.Client())
	require.NoError(t, c.Authenticate(context.Background()))

	out, err := c.FetchNews(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "run-9", out.Debug.RunID)
	assert.Equal(t, 2, out.Debug.Upserted)
	assert.True(t, runner.calls[0].SelfTest)

	bad := NewClient(srv.URL, "wrong", srv.Client())
	err = bad.Authenticate(context.Background())
	assert.ErrorIs(t, err, coreerrors.ErrHTTPStatusNotOK)

	runner.err = coreerrors.ErrRunInProgress
	out, err = c.FetchNews(context.Background(), false)
	assert.ErrorIs(t, err, coreerrors.ErrHTTPStatusNotOK)
	assert.Equal(t, coreerrors.ErrRunInProgress.Error(), out.Error)
}
