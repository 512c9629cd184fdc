package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/new20/newsai/internal/platform/config"
)

func newTestScorer() *Scorer {
	return New(config.DefaultEditorialRules().Scoring)
}

func TestScorer_Score(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name    string
		title   string
		summary string
		source  string
		want    int
	}{
		{name: "no keywords", title: "Weather report", summary: "Sunny skies", source: "Local", want: 5},
		{name: "one keyword", title: "Nvidia earnings", summary: "", source: "Local", want: 6},
		{name: "case insensitive", title: "ANTHROPIC", summary: "Claude", source: "Local", want: 7},
		{name: "repeat counts once", title: "OpenAI OpenAI OpenAI", summary: "openai", source: "Local", want: 6},
		{name: "capped", title: "OpenAI Google Microsoft Meta Anthropic DeepMind Nvidia", summary: "", source: "Local", want: 10},
		{name: "prestige", title: "Weather", summary: "", source: "TechCrunch AI", want: 7},
		{name: "prestige exact match", title: "Weather", summary: "", source: "techcrunch ai", want: 5},
		{name: "max", title: "OpenAI Google Microsoft Meta Anthropic DeepMind", summary: "", source: "MIT Technology Review", want: MaxScore},
		{
			name:    "end to end headline",
			title:   "OpenAI announces GPT breakthrough",
			summary: "A new artificial intelligence system",
			source:  "Some Blog",
			want:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.title, tt.summary, tt.source))
		})
	}
}

func TestScorer_MonotonicInKeywords(t *testing.T) {
	s := newTestScorer()
	keywords := []string{"openai", "gemini", "funding", "lawsuit", "ethics", "ipo", "partnership", "launch"}

	prev := s.Score("", "", "x")
	title := ""

	for _, k := range keywords {
		title += " " + k
		got := s.Score(title, "", "x")

		assert.GreaterOrEqual(t, got, prev)
		assert.LessOrEqual(t, got, 10)

		prev = got
	}

	assert.Equal(t, 10, prev)
}

func TestScorer_Thresholds(t *testing.T) {
	s := newTestScorer()

	assert.Equal(t, 5, s.MinImportance(true))
	assert.Equal(t, 6, s.MinImportance(false))
	assert.True(t, s.IsFeatured(9))
	assert.False(t, s.IsFeatured(8))
}
