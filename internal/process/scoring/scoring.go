// Package scoring ranks articles by importance.
package scoring

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/new20/newsai/internal/platform/config"
)

const (
	baseScore       = 5
	maxKeywordBonus = 5
	prestigeBonus   = 2

	// MaxScore is the highest score the scorer can produce.
	MaxScore = baseScore + maxKeywordBonus + prestigeBonus
)

// Scorer computes importance scores and publication thresholds.
type Scorer struct {
	keywords          []string
	prestige          map[string]bool
	researchFloor     int
	defaultFloor      int
	featuredThreshold int
}

// New builds a scorer from the scoring rules.
func New(r config.ScoringRules) *Scorer {
	s := &Scorer{
		prestige:          make(map[string]bool, len(r.PrestigeSources)),
		researchFloor:     r.ResearchFloor,
		defaultFloor:      r.DefaultFloor,
		featuredThreshold: r.FeaturedThreshold,
	}

	seen := make(map[string]bool, len(r.Keywords))

	for _, k := range r.Keywords {
		k = strings.TrimSpace(cases.Fold().String(k))
		if k == "" || seen[k] {
			continue
		}

		seen[k] = true
		s.keywords = append(s.keywords, k)
	}

	for _, p := range r.PrestigeSources {
		s.prestige[p] = true
	}

	return s
}

// Score returns base 5, plus one per distinct keyword found in title or summary (at most 5),
// plus 2 when source is on the prestige list.
func (s *Scorer) Score(title, summary, source string) int {
	text := cases.Fold().String(title + " " + summary)

	score := baseScore + min(s.countKeywords(text), maxKeywordBonus)

	if s.prestige[source] {
		score += prestigeBonus
	}

	return score
}

func (s *Scorer) countKeywords(text string) int {
	n := 0

	for _, k := range s.keywords {
		if strings.Contains(text, k) {
			n++
		}
	}

	return n
}

// MinImportance is the publication floor for a feed.
func (s *Scorer) MinImportance(isResearch bool) int {
	if isResearch {
		return s.researchFloor
	}

	return s.defaultFloor
}

// IsFeatured reports whether an article with score should be highlighted.
func (s *Scorer) IsFeatured(score int) bool {
	return score >= s.featuredThreshold
}
