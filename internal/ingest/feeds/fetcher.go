// Package feeds downloads RSS/Atom documents and JSON model listings and normalizes them into feed items.
package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/htmlutils"
)

const (
	defaultTimeout     = 20 * time.Second
	defaultRPS         = 5
	globalLimiterBurst = 5
	hostLimiterRate    = 1
	hostLimiterBurst   = 2
	maxFeedBytes       = 10 << 20
	errBodyPrefix      = 180
	nonXMLPrefix       = 120

	feedAccept = "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, text/html;q=0.8"

	// DefaultHuggingFaceModelsURL lists the most recently modified public models.
	DefaultHuggingFaceModelsURL = "https://huggingface.co/api/models?sort=lastModified&direction=-1&limit=20"
	huggingFaceBaseURL          = "https://huggingface.co/"
	maxModelItems               = 15
	maxModelTags                = 6
)

// Options configure a Fetcher. Zero values select defaults.
type Options struct {
	Timeout       time.Duration
	RateLimitRPS  float64
	UserAgent     string
	ModelsURL     string
	HTTPClient    *http.Client
	HostRateLimit rate.Limit
}

// Fetcher downloads feeds under a global and a per-host rate limit.
type Fetcher struct {
	client        *http.Client
	globalLimiter *rate.Limiter
	hostLimiters  map[string]*rate.Limiter
	hostRate      rate.Limit
	mu            sync.Mutex
	userAgent     string
	modelsURL     string
	logger        *zerolog.Logger
}

// New creates a Fetcher.
func New(opts Options, logger *zerolog.Logger) *Fetcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = defaultRPS
	}

	if opts.HostRateLimit <= 0 {
		opts.HostRateLimit = hostLimiterRate
	}

	if opts.ModelsURL == "" {
		opts.ModelsURL = DefaultHuggingFaceModelsURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Fetcher{
		client:        client,
		globalLimiter: rate.NewLimiter(rate.Limit(opts.RateLimitRPS), globalLimiterBurst),
		hostLimiters:  make(map[string]*rate.Limiter),
		hostRate:      opts.HostRateLimit,
		userAgent:     opts.UserAgent,
		modelsURL:     opts.ModelsURL,
		logger:        logger,
	}
}

// FetchFeed downloads and parses an RSS or Atom feed.
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) ([]domain.FeedItem, error) {
	body, contentType, err := f.get(ctx, feedURL, feedAccept)
	if err != nil {
		return nil, err
	}

	xml, err := cleanXML(body, contentType)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(xml))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}

		items = append(items, convertItem(it))
	}

	return items, nil
}

type hfModel struct {
	ID           string   `json:"id"`
	PipelineTag  string   `json:"pipeline_tag"`
	Tags         []string `json:"tags"`
	LastModified string   `json:"lastModified"`
}

// FetchHuggingFaceModels turns the latest model updates into feed items.
func (f *Fetcher) FetchHuggingFaceModels(ctx context.Context) ([]domain.FeedItem, error) {
	body, _, err := f.get(ctx, f.modelsURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("hugging face models: %w", err)
	}

	var models []hfModel
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("%w: hugging face models: %w", coreerrors.ErrInvalidPayload, err)
	}

	now := time.Now().UTC()
	items := make([]domain.FeedItem, 0, maxModelItems)

	for _, m := range models {
		if m.ID == "" {
			continue
		}

		published := now
		if t := parseDate(m.LastModified); !t.IsZero() {
			published = t
		}

		pipeline := m.PipelineTag
		if pipeline == "" {
			pipeline = "unknown"
		}

		tags := m.Tags
		if len(tags) > maxModelTags {
			tags = tags[:maxModelTags]
		}

		items = append(items, domain.FeedItem{
			Title:     "Model update: " + m.ID,
			Link:      huggingFaceBaseURL + m.ID,
			Snippet:   fmt.Sprintf("Pipeline: %s. Tags: %s.", pipeline, strings.Join(tags, ", ")),
			Published: &published,
		})

		if len(items) == maxModelItems {
			break
		}
	}

	return items, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, string, error) {
	if err := f.globalLimiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("global rate limiter wait: %w", err)
	}

	if err := f.hostLimiter(rawURL).Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("host rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: %d: %s", coreerrors.ErrHTTPStatusNotOK, resp.StatusCode,
			htmlutils.Truncate(strings.TrimSpace(string(body)), errBodyPrefix, ""))
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) hostLimiter(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.hostLimiters[host]
	if !ok {
		limiter = rate.NewLimiter(f.hostRate, hostLimiterBurst)
		f.hostLimiters[host] = limiter
	}

	return limiter
}

// cleanXML drops a UTF-8 BOM and any text some providers prepend before the first tag.
func cleanXML(body []byte, contentType string) ([]byte, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	if i := bytes.IndexByte(body, '<'); i > 0 {
		body = body[i:]
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '<' {
		if contentType == "" {
			contentType = "unknown"
		}

		return nil, fmt.Errorf("%w (content-type: %s): %s", coreerrors.ErrNonXMLFeed, contentType,
			htmlutils.Truncate(string(trimmed), nonXMLPrefix, ""))
	}

	return trimmed, nil
}
