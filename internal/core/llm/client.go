// Package llm talks to an OpenAI-compatible chat completion gateway (OpenRouter by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/observability"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
	rateLimiterBurst        = 2
	defaultTimeout          = 20 * time.Second

	headerReferer  = "HTTP-Referer"
	headerTitle    = "X-Title"
	errRateLimiter = "rate limiter: %w"
)

// ErrEmptyCompletion indicates the gateway answered without any text.
var ErrEmptyCompletion = fmt.Errorf("%w: completion has no text", coreerrors.ErrEmptyResponse)

// Request is a single system plus user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
	JSON        bool
}

// Completer produces text for a prompt.
type Completer interface {
	CompleteText(ctx context.Context, req Request) (string, error)
}

// Config configures the gateway client.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Referer      string
	Title        string
	Timeout      time.Duration
	RateLimitRPS float64
	HTTPClient   *http.Client
}

// Client is a Completer backed by go-openai with a rate limiter and a circuit breaker.
type Client struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// headerTransport adds the attribution headers OpenRouter uses for app rankings.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if t.referer != "" {
		req.Header.Set(headerReferer, t.referer)
	}

	if t.title != "" {
		req.Header.Set(headerTitle, t.title)
	}

	return t.base.RoundTrip(req)
}

// New creates a gateway client.
func New(cfg Config, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}

	ocfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		ocfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	ocfg.HTTPClient = &http.Client{
		Transport: &headerTransport{base: base, referer: cfg.Referer, title: cfg.Title},
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}

	return &Client{
		client:      openai.NewClientWithConfig(ocfg),
		model:       cfg.Model,
		timeout:     timeout,
		logger:      logger,
		rateLimiter: rate.NewLimiter(limit, rateLimiterBurst),
	}
}

// CompleteText sends req and returns the trimmed text of the first choice.
func (c *Client) CompleteText(ctx context.Context, req Request) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}

	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)

	observability.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordFailure()

		return "", fmt.Errorf("chat completion: %w", describeAPIError(err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.recordFailure()

		return "", ErrEmptyCompletion
	}

	c.recordSuccess()

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// describeAPIError keeps the gateway's status code and message in the error chain.
func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", err, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d", err, reqErr.HTTPStatusCode)
	}

	return err
}

func (c *Client) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", coreerrors.ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}
