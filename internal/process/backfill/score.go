package backfill

import (
	"slices"
	"strings"

	"github.com/new20/newsai/internal/core/domain"
)

const (
	// MinRelevance is the lowest photo score accepted for an article.
	MinRelevance = 1.0

	longKeywordLength = 6
	topicTechnology   = "technology"
	topicCurrent      = "current-events"
)

// Photo is a stock photo search hit normalized across providers.
type Photo struct {
	Description    string
	AltDescription string
	Location       string
	Author         string
	Tags           []string
	ApprovedTopics []string
	URL            string
	PageURL        string
}

func (p Photo) vocabulary() string {
	parts := []string{p.Description, p.AltDescription, p.Location, p.Author}
	parts = append(parts, p.Tags...)

	for _, topic := range p.ApprovedTopics {
		parts = append(parts, strings.NewReplacer("-", " ", "_", " ").Replace(topic))
	}

	return strings.ToLower(normalizeWhitespace(strings.Join(parts, " ")))
}

func (p Photo) hasGenericTag() bool {
	for _, t := range p.Tags {
		if genericPhotoTags[strings.ToLower(t)] {
			return true
		}
	}

	return false
}

// ScorePhoto rates how well photo illustrates the article. Keyword hits count 1, or 2 for
// keywords of six letters or more; category and technology/current-events topics add a bonus;
// generic tags and copy-space backgrounds are penalized.
func ScorePhoto(p Photo, a domain.StoredArticle, keywords []string) float64 {
	vocab := p.vocabulary()
	if vocab == "" {
		return 0
	}

	var score float64

	for _, k := range keywords {
		k = strings.ToLower(k)
		if len(k) < 2 || !strings.Contains(vocab, k) {
			continue
		}

		if len(k) >= longKeywordLength {
			score += 2
		} else {
			score++
		}
	}

	if a.Category != "" && strings.Contains(vocab, strings.ToLower(a.Category)) {
		score++
	}

	if slices.Contains(p.ApprovedTopics, topicTechnology) {
		score += 1.5
	}

	if slices.Contains(p.ApprovedTopics, topicCurrent) {
		score++
	}

	if p.hasGenericTag() {
		score--
	}

	alt := strings.ToLower(p.AltDescription)
	if strings.Contains(alt, "copy space") || strings.Contains(alt, "background") {
		score--
	}

	return score
}

// selectPhoto returns the best scoring photo with a URL when it reaches MinRelevance.
// Ties keep provider order.
func selectPhoto(photos []Photo, a domain.StoredArticle, keywords []string) (Photo, float64, bool) {
	var (
		best      Photo
		bestScore float64
		found     bool
	)

	for _, p := range photos {
		if p.URL == "" {
			continue
		}

		s := ScorePhoto(p, a, keywords)
		if !found || s > bestScore {
			best, bestScore, found = p, s, true
		}
	}

	if !found || bestScore < MinRelevance {
		return Photo{}, bestScore, false
	}

	return best, bestScore, true
}
