package sources

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/observability"
)

const (
	logFieldCategory = "category"
	logFieldSource   = "source"
	logFieldFallback = "fallback"
)

var multiSpaceRegex = regexp.MustCompile(`\s{2,}`)

// Categories is the recognized article category set. The first entry is the default.
type Categories struct {
	names  []string
	set    map[string]bool
	logger *zerolog.Logger
}

// NewCategories builds a category set; it fails when names is empty.
func NewCategories(names []string, logger *zerolog.Logger) (*Categories, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	c := &Categories{set: make(map[string]bool, len(names)), logger: logger}

	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || c.set[n] {
			continue
		}

		c.names = append(c.names, n)
		c.set[n] = true
	}

	if len(c.names) == 0 {
		return nil, fmt.Errorf("%w: no article categories configured", errors.ErrInvalidRegistry)
	}

	return c, nil
}

type categoriesFile struct {
	ArticleCategories []string `json:"articleCategories"`
}

// LoadCategories reads a JSON document of the form {"articleCategories": [...]}.
func LoadCategories(path string, logger *zerolog.Logger) (*Categories, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading categories %s: %w", path, err)
	}

	var f categoriesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing categories %s: %w", path, err)
	}

	return NewCategories(f.ArticleCategories, logger)
}

// Names returns the categories in configuration order.
func (c *Categories) Names() []string {
	return append([]string(nil), c.names...)
}

// Default is the category used when an inferred one is not recognized.
func (c *Categories) Default() string {
	return c.names[0]
}

// Contains reports whether name is a recognized category.
func (c *Categories) Contains(name string) bool {
	return c.set[name]
}

// Ensure returns category if recognized, otherwise the default. Fallbacks are logged and counted.
func (c *Categories) Ensure(category string) string {
	if c.set[category] {
		return category
	}

	c.logger.Warn().
		Str(logFieldCategory, category).
		Str(logFieldFallback, c.Default()).
		Msg("unknown category, falling back to default")
	observability.CategoryFallbacks.WithLabelValues(category).Inc()

	return c.Default()
}

// LoadSources reads the tab separated source registry.
func LoadSources(path string, logger *zerolog.Logger) ([]domain.FeedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sources %s: %w", path, err)
	}
	defer f.Close()

	srcs, err := ParseSources(f, logger)
	if err != nil {
		return nil, fmt.Errorf("parsing sources %s: %w", path, err)
	}

	return srcs, nil
}

// ParseSources parses a registry with a header row followed by name, main_url and rss_url columns.
// Rows are tab separated; runs of two or more spaces are accepted as a separator when tabs are absent.
// Rows without a name or main URL are skipped and duplicate names keep the first occurrence.
func ParseSources(r io.Reader, logger *zerolog.Logger) ([]domain.FeedSource, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		out       []domain.FeedSource
		seen      = make(map[string]bool)
		headerSet bool
	)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !headerSet {
			if !strings.Contains(strings.ToLower(line), "name") {
				return nil, fmt.Errorf("%w: missing header row", errors.ErrInvalidRegistry)
			}

			headerSet = true

			continue
		}

		src := parseSourceRow(line)
		if src.Name == "" || src.MainURL == "" {
			continue
		}

		if seen[src.Name] {
			logger.Warn().Str(logFieldSource, src.Name).Msg("duplicate source name ignored")
			continue
		}

		seen[src.Name] = true
		out = append(out, src)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning sources: %w", err)
	}

	if !headerSet {
		return nil, fmt.Errorf("%w: empty source registry", errors.ErrInvalidRegistry)
	}

	return out, nil
}

func parseSourceRow(line string) domain.FeedSource {
	var parts []string
	if strings.Contains(line, "\t") {
		parts = strings.Split(line, "\t")
	} else {
		parts = multiSpaceRegex.Split(line, -1)
	}

	col := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}

		return ""
	}

	return domain.FeedSource{Name: col(0), MainURL: col(1), RSSURL: col(2)}
}

// Summary counts registry entries for operator reporting.
type Summary struct {
	Total      int
	ByType     map[domain.SourceType]int
	MissingRSS []domain.FeedSource
}

// Summarize classifies every source and lists those that need an RSS URL but have none.
// YouTube sources are resolved at runtime and the Hugging Face API needs no feed, so neither is reported.
func Summarize(srcs []domain.FeedSource) Summary {
	s := Summary{Total: len(srcs), ByType: make(map[domain.SourceType]int)}

	for _, src := range srcs {
		t := Classify(src)
		s.ByType[t]++

		if src.RSSURL == "" && !t.IsYouTube() && t != domain.SourceResearchPlatformAPI {
			s.MissingRSS = append(s.MissingRSS, src)
		}
	}

	return s
}
