package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/new20/newsai/internal/core/errors"
)

const (
	youTubeFeedBase       = "https://www.youtube.com/feeds/videos.xml"
	youTubePageLimit      = 2 << 20
	defaultYouTubeTimeout = 15 * time.Second
	defaultYouTubeAgent   = "Mozilla/5.0 (compatible; NewsFetcher/1.0)"
	youTubeCacheFileMode  = 0o644
	youTubeCacheDirMode   = 0o755
	logFieldURL           = "url"
)

var (
	playlistIDRegex  = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
	channelPathRegex = regexp.MustCompile(`/channel/(UC[a-zA-Z0-9_-]+)`)
	channelMetaRegex = regexp.MustCompile(`itemprop="channelId" content="(UC[a-zA-Z0-9_-]+)"`)
	channelJSONRegex = regexp.MustCompile(`"channelId"\s*:\s*"(UC[a-zA-Z0-9_-]+)"`)
	errNoYouTubeFeed = fmt.Errorf("%w: no youtube channel id found", errors.ErrInvalidPayload)
)

// YouTubeCache maps channel page URLs to resolved feed URLs and persists them as JSON.
// Load it once per run and Save at the end; Save is a no-op when nothing changed.
type YouTubeCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
	dirty   bool
}

// NewYouTubeCache returns an empty cache that persists to path. An empty path keeps it in memory.
func NewYouTubeCache(path string) *YouTubeCache {
	return &YouTubeCache{path: path, entries: make(map[string]string)}
}

// LoadYouTubeCache reads the cache file. A missing or corrupt file yields an empty cache.
func LoadYouTubeCache(path string, logger *zerolog.Logger) *YouTubeCache {
	c := NewYouTubeCache(path)
	if path == "" {
		return c
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) && logger != nil {
			logger.Warn().Err(err).Str("path", path).Msg("youtube cache read failed")
		}

		return c
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		if logger != nil {
			logger.Warn().Err(err).Str("path", path).Msg("youtube cache is corrupt, starting empty")
		}

		c.entries = make(map[string]string)
	}

	return c
}

// Get returns a cached feed URL.
func (c *YouTubeCache) Get(mainURL string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[mainURL]
	if !ok || !strings.HasPrefix(v, "http") {
		return "", false
	}

	return v, true
}

// Put records a resolved feed URL.
func (c *YouTubeCache) Put(mainURL, feedURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[mainURL] == feedURL {
		return
	}

	c.entries[mainURL] = feedURL
	c.dirty = true
}

// Save writes the cache back to disk if it changed.
func (c *YouTubeCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty || c.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), youTubeCacheDirMode); err != nil {
		return fmt.Errorf("creating youtube cache dir: %w", err)
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding youtube cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, youTubeCacheFileMode); err != nil {
		return fmt.Errorf("writing youtube cache: %w", err)
	}

	c.dirty = false

	return nil
}

// YouTubeResolver maps YouTube channel and playlist pages to their RSS feeds.
type YouTubeResolver struct {
	client    *http.Client
	userAgent string
	logger    *zerolog.Logger
}

// NewYouTubeResolver creates a resolver. A nil client gets a default with a timeout.
func NewYouTubeResolver(client *http.Client, logger *zerolog.Logger) *YouTubeResolver {
	if client == nil {
		client = &http.Client{Timeout: defaultYouTubeTimeout}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &YouTubeResolver{client: client, userAgent: defaultYouTubeAgent, logger: logger}
}

// FeedURL returns the RSS feed for mainURL, consulting and updating cache.
func (r *YouTubeResolver) FeedURL(ctx context.Context, mainURL string, cache *YouTubeCache) (string, error) {
	if cache != nil {
		if cached, ok := cache.Get(mainURL); ok {
			return cached, nil
		}
	}

	feed, err := r.resolve(ctx, mainURL)
	if err != nil {
		return "", err
	}

	if cache != nil {
		cache.Put(mainURL, feed)
	}

	return feed, nil
}

func (r *YouTubeResolver) resolve(ctx context.Context, mainURL string) (string, error) {
	if m := playlistIDRegex.FindStringSubmatch(mainURL); m != nil {
		return youTubeFeedBase + "?playlist_id=" + m[1], nil
	}

	if m := channelPathRegex.FindStringSubmatch(mainURL); m != nil {
		return youTubeFeedBase + "?channel_id=" + m[1], nil
	}

	page, err := r.fetchPage(ctx, mainURL)
	if err != nil {
		return "", err
	}

	if id := ExtractChannelID(page); id != "" {
		return youTubeFeedBase + "?channel_id=" + id, nil
	}

	return "", errNoYouTubeFeed
}

func (r *YouTubeResolver) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching youtube page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", errors.ErrHTTPStatusNotOK, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, youTubePageLimit))
	if err != nil {
		return "", fmt.Errorf("reading youtube page: %w", err)
	}

	r.logger.Debug().Str(logFieldURL, pageURL).Int("bytes", len(body)).Msg("fetched youtube page")

	return string(body), nil
}

// ExtractChannelID finds a UC-prefixed channel id in a YouTube page.
func ExtractChannelID(page string) string {
	if m := channelMetaRegex.FindStringSubmatch(page); m != nil {
		return m[1]
	}

	if m := channelJSONRegex.FindStringSubmatch(page); m != nil {
		return m[1]
	}

	return ""
}
