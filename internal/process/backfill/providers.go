package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/new20/newsai/internal/core/errors"
)

const (
	// DefaultUnsplashURL is the Unsplash API root.
	DefaultUnsplashURL = "https://api.unsplash.com"

	// DefaultPixabayURL is the Pixabay search endpoint.
	DefaultPixabayURL = "https://pixabay.com/api/"

	ProviderUnsplash = "unsplash"
	ProviderPixabay  = "pixabay"
	ProviderFallback = "fallback"

	maxErrorBody   = 300
	maxResponseLen = 4 << 20
	statusApproved = "approved"
)

// Provider searches a stock photo library.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Photo, error)
}

// Unsplash searches api.unsplash.com. A 403 rate-limit answer disables it for the life of the value.
type Unsplash struct {
	client      *http.Client
	baseURL     string
	accessKey   string
	rateLimited atomic.Bool
	logger      *zerolog.Logger
}

// NewUnsplash creates the Unsplash provider. An empty baseURL uses DefaultUnsplashURL.
func NewUnsplash(client *http.Client, baseURL, accessKey string, logger *zerolog.Logger) *Unsplash {
	if baseURL == "" {
		baseURL = DefaultUnsplashURL
	}

	return &Unsplash{
		client:    clientOrDefault(client),
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		logger:    nopIfNil(logger),
	}
}

func (u *Unsplash) Name() string { return ProviderUnsplash }

type unsplashTag struct {
	Title  string `json:"title"`
	Source struct {
		Title string `json:"title"`
	} `json:"source"`
}

type unsplashPhoto struct {
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	Location       struct {
		Name string `json:"name"`
	} `json:"location"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	Tags             []unsplashTag `json:"tags"`
	TopicSubmissions map[string]struct {
		Status string `json:"status"`
	} `json:"topic_submissions"`
	Links struct {
		HTML string `json:"html"`
	} `json:"links"`
	URLs struct {
		Regular string `json:"regular"`
		Full    string `json:"full"`
	} `json:"urls"`
}

func (r unsplashPhoto) photo() Photo {
	p := Photo{
		Description:    r.Description,
		AltDescription: r.AltDescription,
		Location:       r.Location.Name,
		Author:         r.User.Name,
		URL:            firstNonEmpty(r.URLs.Regular, r.URLs.Full),
		PageURL:        r.Links.HTML,
	}

	p.Tags = lo.FilterMap(r.Tags, func(t unsplashTag, _ int) (string, bool) {
		title := firstNonEmpty(t.Title, t.Source.Title)
		return title, title != ""
	})

	for topic, meta := range r.TopicSubmissions {
		if meta.Status == statusApproved {
			p.ApprovedTopics = append(p.ApprovedTopics, topic)
		}
	}

	return p
}

// Search returns landscape photos for query. It returns nothing once rate limited or without a key.
func (u *Unsplash) Search(ctx context.Context, query string) ([]Photo, error) {
	if u.accessKey == "" || u.rateLimited.Load() {
		return nil, nil
	}

	params := url.Values{
		"query":          {query},
		"per_page":       {"12"},
		"order_by":       {"relevant"},
		"content_filter": {"high"},
		"orientation":    {"landscape"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating unsplash request: %w", err)
	}

	req.Header.Set("Authorization", "Client-ID "+u.accessKey)
	req.Header.Set("Accept-Version", "v1")

	var payload struct {
		Results []unsplashPhoto `json:"results"`
	}

	status, body, err := doJSON(u.client, req, &payload)
	if err != nil {
		if status == http.StatusForbidden && strings.Contains(strings.ToLower(body), "rate limit") {
			if !u.rateLimited.Swap(true) {
				u.logger.Warn().Msg("unsplash rate limit exceeded, skipping further unsplash calls in this run")
			}

			return nil, nil
		}

		return nil, fmt.Errorf("unsplash search: %w", err)
	}

	return lo.Map(payload.Results, func(r unsplashPhoto, _ int) Photo { return r.photo() }), nil
}

// Pixabay searches pixabay.com editor's choice photos.
type Pixabay struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewPixabay creates the Pixabay provider. An empty baseURL uses DefaultPixabayURL.
func NewPixabay(client *http.Client, baseURL, apiKey string) *Pixabay {
	if baseURL == "" {
		baseURL = DefaultPixabayURL
	}

	return &Pixabay{client: clientOrDefault(client), baseURL: baseURL, apiKey: apiKey}
}

func (p *Pixabay) Name() string { return ProviderPixabay }

type pixabayHit struct {
	Tags          string `json:"tags"`
	User          string `json:"user"`
	PageURL       string `json:"pageURL"`
	LargeImageURL string `json:"largeImageURL"`
	WebformatURL  string `json:"webformatURL"`
	FullHDURL     string `json:"fullHDURL"`
	PreviewURL    string `json:"previewURL"`
}

func (h pixabayHit) photo() Photo {
	tags := lo.FilterMap(strings.Split(h.Tags, ","), func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	})

	return Photo{
		Description:    h.Tags,
		AltDescription: h.Tags,
		Location:       h.User,
		Author:         h.User,
		Tags:           tags,
		URL:            firstNonEmpty(h.LargeImageURL, h.WebformatURL, h.FullHDURL, h.PreviewURL),
		PageURL:        h.PageURL,
	}
}

// Search returns horizontal safe-search photos for query. Without a key it returns nothing.
func (p *Pixabay) Search(ctx context.Context, query string) ([]Photo, error) {
	if p.apiKey == "" {
		return nil, nil
	}

	params := url.Values{
		"key":            {p.apiKey},
		"q":              {query},
		"per_page":       {"20"},
		"orientation":    {"horizontal"},
		"safesearch":     {"true"},
		"image_type":     {"photo"},
		"editors_choice": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating pixabay request: %w", err)
	}

	var payload struct {
		Hits []pixabayHit `json:"hits"`
	}

	if _, _, err := doJSON(p.client, req, &payload); err != nil {
		return nil, fmt.Errorf("pixabay search: %w", err)
	}

	return lo.Map(payload.Hits, func(h pixabayHit, _ int) Photo { return h.photo() }), nil
}

// doJSON performs req and decodes a 200 body into target. On other statuses it returns
// the status and a body prefix alongside an ErrHTTPStatusNotOK error.
func doJSON(client *http.Client, req *http.Request, target any) (int, string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body := string(data[:min(len(data), maxErrorBody)])
		return resp.StatusCode, body, fmt.Errorf("%w: %d %s", errors.ErrHTTPStatusNotOK, resp.StatusCode, body)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return resp.StatusCode, "", fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
	}

	return resp.StatusCode, "", nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
