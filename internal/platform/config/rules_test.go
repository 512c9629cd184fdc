package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEditorialRules_Defaults(t *testing.T) {
	rules, err := LoadEditorialRules("")
	require.NoError(t, err)

	assert.Equal(t, 40, rules.Filter.MinWords)
	assert.Equal(t, 10, rules.Filter.ShortFormMinWords)
	assert.Contains(t, rules.Filter.BannedTopics, "war")
	assert.Contains(t, rules.Scoring.Keywords, "openai")
	assert.Equal(t, 9, rules.Scoring.FeaturedThreshold)
}

func TestLoadEditorialRules_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	content := `
[filter]
min_words = 25
banned_topics = ["crypto"]

[scoring]
prestige_sources = ["The Gradient"]
default_floor = 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadEditorialRules(path)
	require.NoError(t, err)

	assert.Equal(t, 25, rules.Filter.MinWords)
	assert.Equal(t, 10, rules.Filter.ShortFormMinWords)
	assert.Equal(t, []string{"crypto"}, rules.Filter.BannedTopics)
	assert.Contains(t, rules.Filter.RequiredSignals, "llm")
	assert.Equal(t, []string{"The Gradient"}, rules.Scoring.PrestigeSources)
	assert.Equal(t, 7, rules.Scoring.DefaultFloor)
	assert.Equal(t, 5, rules.Scoring.ResearchFloor)
}

func TestLoadEditorialRules_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte("[filter\nmin_words="), 0o600))

	_, err := LoadEditorialRules(path)
	assert.Error(t, err)

	_, err = LoadEditorialRules(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
