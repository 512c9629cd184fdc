package filters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/platform/config"
)

func newTestFilter(t *testing.T) *Filter {
	t.Helper()

	f, err := New(config.DefaultEditorialRules().Filter)
	require.NoError(t, err)

	return f
}

// words returns n filler words that contain no signal terms or banned topics.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

func TestFilter_Check(t *testing.T) {
	f := newTestFilter(t)

	tests := []struct {
		name       string
		candidate  Candidate
		wantAllow  bool
		wantReason string
	}{
		{
			name:      "allowed",
			candidate: Candidate{Title: "New machine learning model", Body: words(50), SourceType: domain.SourceRSSWebsite},
			wantAllow: true,
		},
		{
			name:       "too short",
			candidate:  Candidate{Title: "Deep learning", Body: words(10), SourceType: domain.SourceRSSWebsite},
			wantReason: ReasonWordCount,
		},
		{
			name:      "short form floor for podcasts",
			candidate: Candidate{Title: "Generative audio", Body: words(10), SourceType: domain.SourcePodcast},
			wantAllow: true,
		},
		{
			name:      "short form floor for youtube",
			candidate: Candidate{Title: "Robotics demo", Body: words(10), SourceType: domain.SourceYouTubePlaylist},
			wantAllow: true,
		},
		{
			name:       "missing signal",
			candidate:  Candidate{Title: "Quarterly earnings", Body: strings.Repeat("numbers ", 50), SourceType: domain.SourceRSSWebsite},
			wantReason: ReasonMissingSignal,
		},
		{
			name:       "banned pattern",
			candidate:  Candidate{Title: "Sponsored: best LLM tools", Body: words(50), SourceType: domain.SourceRSSWebsite},
			wantReason: ReasonBannedPattern,
		},
		{
			name:       "banned topic",
			candidate:  Candidate{Title: "AI in the war effort", Body: words(50), SourceType: domain.SourceRSSWebsite},
			wantReason: ReasonBannedTopic,
		},
		{
			name:       "multi word topic across whitespace",
			candidate:  Candidate{Title: "Neural nets and North\n  Korea", Body: words(50), SourceType: domain.SourceRSSWebsite},
			wantReason: ReasonBannedTopic,
		},
		{
			name:      "war inside forward is fine",
			candidate: Candidate{Title: "A step forward for neural search", Body: words(50) + " software warranty awards", SourceType: domain.SourceRSSWebsite},
			wantAllow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Check(tt.candidate)

			assert.Equal(t, tt.wantAllow, got.Allowed)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestFilter_WordFloorBeatsKeywords(t *testing.T) {
	f := newTestFilter(t)

	c := Candidate{
		Title:      "OpenAI artificial intelligence machine learning deep learning LLM",
		SourceType: domain.SourceCompanyBlog,
	}

	got := f.Check(c)
	assert.False(t, got.Allowed)
	assert.Equal(t, ReasonWordCount, got.Reason)
}

func TestFilter_CaseInsensitive(t *testing.T) {
	f := newTestFilter(t)

	got := f.Check(Candidate{Title: "ARTIFICIAL INTELLIGENCE AND UKRAINE", Body: words(50)})
	assert.Equal(t, ReasonBannedTopic, got.Reason)
	assert.Equal(t, "ukraine", got.Detail)
}

func TestFilter_UppercasePattern(t *testing.T) {
	rules := config.DefaultEditorialRules().Filter
	rules.BannedPatterns = []string{`Press Release`}

	f, err := New(rules)
	require.NoError(t, err)

	got := f.Check(Candidate{Title: "Press release: new AI model", Body: words(50), SourceType: domain.SourceRSSWebsite})
	assert.False(t, got.Allowed)
	assert.Equal(t, ReasonBannedPattern, got.Reason)
	assert.Equal(t, "Press Release", got.Detail)
}

func TestNew_InvalidPattern(t *testing.T) {
	rules := config.DefaultEditorialRules().Filter
	rules.BannedPatterns = []string{"("}

	_, err := New(rules)
	assert.Error(t, err)
}
