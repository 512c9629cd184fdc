package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/retry"
)

const (
	clientTimeout     = 20 * time.Minute
	clientMaxAttempts = 3
	clientRetryDelay  = 2 * time.Second
)

// Client calls the admin endpoints of a running server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	policy  retry.Policy
}

// NewClient returns a client for baseURL. A nil httpClient gets a long timeout since
// fetch-news blocks for a whole run.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: clientTimeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		policy:  retry.Policy{MaxAttempts: clientMaxAttempts, BaseDelay: clientRetryDelay},
	}
}

// Authenticate checks the admin key against the server.
func (c *Client) Authenticate(ctx context.Context) error {
	var out FetchResponse

	if err := c.post(ctx, RouteAuthenticate, nil, &out); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	return nil
}

// FetchNews triggers a run and returns the decoded response, including failures the server reported.
func (c *Client) FetchNews(ctx context.Context, selfTest bool) (FetchResponse, error) {
	var headers map[string]string
	if selfTest {
		headers = map[string]string{headerSelfTest: "true"}
	}

	var out FetchResponse

	if err := c.post(ctx, RouteFetchNews, headers, &out); err != nil {
		return out, fmt.Errorf("fetch news: %w", err)
	}

	return out, nil
}

// post retries only transport errors; any HTTP response is final.
func (c *Client) post(ctx context.Context, path string, headers map[string]string, target any) error {
	_, err := retry.Do(ctx, c.policy, func(ctx context.Context, _ int) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, http.NoBody)
		if err != nil {
			return struct{}{}, retry.Permanent(err)
		}

		req.Header.Set(headerAPIKey, c.apiKey)

		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return struct{}{}, retry.Permanent(err)
			}

			return struct{}{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, err
		}

		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, target); err != nil {
				return struct{}{}, retry.Permanent(fmt.Errorf("%w: %w", coreerrors.ErrInvalidPayload, err))
			}
		}

		if resp.StatusCode != http.StatusOK {
			return struct{}{}, retry.Permanent(fmt.Errorf("%w: %d", coreerrors.ErrHTTPStatusNotOK, resp.StatusCode))
		}

		return struct{}{}, nil
	})

	return err
}
