package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// EditorialRules holds the keyword lists and thresholds used to filter and rank articles.
// Any list or threshold left empty in the rules file keeps its built-in default.
type EditorialRules struct {
	Filter  FilterRules  `toml:"filter"`
	Scoring ScoringRules `toml:"scoring"`
}

// FilterRules configures the content filter.
type FilterRules struct {
	MinWords          int      `toml:"min_words"`
	ShortFormMinWords int      `toml:"short_form_min_words"`
	RequiredSignals   []string `toml:"required_signals"`
	BannedPatterns    []string `toml:"banned_patterns"`
	BannedTopics      []string `toml:"banned_topics"`
}

// ScoringRules configures the importance scorer and publication floors.
type ScoringRules struct {
	Keywords          []string `toml:"keywords"`
	PrestigeSources   []string `toml:"prestige_sources"`
	ResearchFloor     int      `toml:"research_floor"`
	DefaultFloor      int      `toml:"default_floor"`
	FeaturedThreshold int      `toml:"featured_threshold"`
}

// DefaultEditorialRules returns the built-in rule set.
func DefaultEditorialRules() EditorialRules {
	return EditorialRules{
		Filter: FilterRules{
			MinWords:          40,
			ShortFormMinWords: 10,
			RequiredSignals: []string{
				"ai", "artificial intelligence", "machine learning", "deep learning", "neural",
				"llm", "large language model", "generative", "transformer", "computer vision",
				"reinforcement learning", "diffusion", "robotics",
			},
			BannedPatterns: []string{`(?i)sponsored`, `(?i)giveaway`, `(?i)advertorial`},
			BannedTopics: []string{
				"war", "armed conflict", "gaza", "israel", "palestine", "ukraine", "russia",
				"iran", "north korea", "terror", "weapon", "missile",
			},
		},
		Scoring: ScoringRules{
			Keywords: []string{
				// companies
				"openai", "google", "microsoft", "meta", "anthropic", "deepmind", "nvidia",
				// products
				"gpt", "chatgpt", "gemini", "claude", "copilot", "bard",
				// events
				"breakthrough", "launch", "release", "announces", "unveils", "acquisition",
				// research
				"research", "model", "algorithm", "neural network", "machine learning", "artificial intelligence",
				// policy
				"regulation", "policy", "lawsuit", "controversy", "ethics", "safety",
				// money
				"funding", "investment", "billion", "million", "ipo", "partnership",
			},
			PrestigeSources:   []string{"MIT Technology Review", "TechCrunch AI", "Reuters Technology", "VentureBeat AI"},
			ResearchFloor:     5,
			DefaultFloor:      6,
			FeaturedThreshold: 9,
		},
	}
}

// LoadEditorialRules reads a TOML rules file over the defaults. An empty path returns the defaults.
func LoadEditorialRules(path string) (EditorialRules, error) {
	rules := DefaultEditorialRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("error reading rules file: %w", err)
	}

	var override EditorialRules
	if err := toml.Unmarshal(data, &override); err != nil {
		return rules, fmt.Errorf("error parsing rules file: %w", err)
	}

	rules.merge(override)

	return rules, nil
}

func (r *EditorialRules) merge(o EditorialRules) {
	setInt(&r.Filter.MinWords, o.Filter.MinWords)
	setInt(&r.Filter.ShortFormMinWords, o.Filter.ShortFormMinWords)
	setList(&r.Filter.RequiredSignals, o.Filter.RequiredSignals)
	setList(&r.Filter.BannedPatterns, o.Filter.BannedPatterns)
	setList(&r.Filter.BannedTopics, o.Filter.BannedTopics)

	setList(&r.Scoring.Keywords, o.Scoring.Keywords)
	setList(&r.Scoring.PrestigeSources, o.Scoring.PrestigeSources)
	setInt(&r.Scoring.ResearchFloor, o.Scoring.ResearchFloor)
	setInt(&r.Scoring.DefaultFloor, o.Scoring.DefaultFloor)
	setInt(&r.Scoring.FeaturedThreshold, o.Scoring.FeaturedThreshold)
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}
