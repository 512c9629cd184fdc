package sources

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
)

const testRegistry = "name\tmain_url\trss_url\n" +
	"OpenAI Blog\thttps://openai.com/blog\thttps://openai.com/blog/rss.xml\n" +
	"Two Minute Papers\thttps://www.youtube.com/@TwoMinutePapers\t\n" +
	"Spaced Source  https://spaced.example.com  https://spaced.example.com/feed\n" +
	"\n" +
	"OpenAI Blog\thttps://duplicate.example.com\thttps://duplicate.example.com/rss\n" +
	"\thttps://nameless.example.com\thttps://nameless.example.com/rss\n" +
	"No URL\t\t\n"

func TestParseSources(t *testing.T) {
	srcs, err := ParseSources(strings.NewReader(testRegistry), nil)
	require.NoError(t, err)
	require.Len(t, srcs, 3)

	assert.Equal(t, domain.FeedSource{
		Name:    "OpenAI Blog",
		MainURL: "https://openai.com/blog",
		RSSURL:  "https://openai.com/blog/rss.xml",
	}, srcs[0])
	assert.Equal(t, "", srcs[1].RSSURL)
	assert.Equal(t, "Spaced Source", srcs[2].Name)
	assert.Equal(t, "https://spaced.example.com/feed", srcs[2].RSSURL)
}

func TestParseSources_InvalidHeader(t *testing.T) {
	_, err := ParseSources(strings.NewReader("title\turl\nx\ty\n"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrInvalidRegistry))

	_, err = ParseSources(strings.NewReader(""), nil)
	assert.True(t, errors.Is(err, coreerrors.ErrInvalidRegistry))
}

func TestLoadCategories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"articleCategories":["Technology","Research","Business"]}`), 0o600))

	cats, err := LoadCategories(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Technology", "Research", "Business"}, cats.Names())
	assert.Equal(t, "Technology", cats.Default())
	assert.Equal(t, "Research", cats.Ensure("Research"))
	assert.Equal(t, "Technology", cats.Ensure("Gossip"))
}

func TestNewCategories_Empty(t *testing.T) {
	_, err := NewCategories([]string{" ", ""}, nil)
	assert.True(t, errors.Is(err, coreerrors.ErrInvalidRegistry))
}

func TestSummarize(t *testing.T) {
	srcs := []domain.FeedSource{
		{Name: "a", MainURL: "https://openai.com/blog", RSSURL: "https://openai.com/rss"},
		{Name: "b", MainURL: "https://www.youtube.com/@x"},
		{Name: "c", MainURL: "https://huggingface.co/models"},
		{Name: "d", MainURL: "https://example.com"},
	}

	s := Summarize(srcs)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.ByType[domain.SourceCompanyBlog])
	assert.Equal(t, 1, s.ByType[domain.SourceYouTubeChannel])
	require.Len(t, s.MissingRSS, 1)
	assert.Equal(t, "d", s.MissingRSS[0].Name)
}
