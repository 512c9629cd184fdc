package backfill

import (
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/new20/newsai/internal/core/domain"
)

const (
	maxRankedKeywords = 8
	maxKeywords       = 10
	maxQueries        = 4
	minTokenLength    = 3
)

var (
	nonAlnumRegex    = regexp.MustCompile(`[^a-z0-9\s]`)
	titleSplitRegex  = regexp.MustCompile(`[-–:|]`)
	quoteRegex       = regexp.MustCompile("[\"'`]")
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	focusKeywords    = []string{"ai", "artificial intelligence", "machine learning", "technology", "robotics", "automation", "data center", "semiconductor", "chip", "research", "enterprise", "software"}
	stopwords        = lo.SliceToMap(strings.Fields(stopwordList), func(w string) (string, bool) { return w, true })
	genericPhotoTags = lo.SliceToMap(strings.Fields(genericTagList), func(w string) (string, bool) { return w, true })
)

const stopwordList = `the and for are with that this from have has will about into their they them its been was
were while where when your our you but can just than also any each other more over after before under
between which would should could how who what why because during including across among once both being
per such very via every still many much new latest`

const genericTagList = `abstract background wallpaper texture pattern gradient design creative illustration art
sunset landscape nature flower sky beach forest`

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

func tokenize(text string) []string {
	cleaned := nonAlnumRegex.ReplaceAllString(strings.ToLower(text), " ")

	return lo.Filter(strings.Fields(cleaned), func(t string, _ int) bool {
		return len(t) >= minTokenLength && !stopwords[t]
	})
}

// cleanTitle keeps the headline before the first dash, colon or pipe, without quotes.
func cleanTitle(title string) string {
	primary := titleSplitRegex.Split(title, 2)[0]
	if strings.TrimSpace(primary) == "" {
		primary = title
	}

	return normalizeWhitespace(quoteRegex.ReplaceAllString(primary, ""))
}

// Keywords ranks the article's tokens by frequency over title, summary, category and source,
// keeps the top 8 and pads with AI focus terms up to 10.
func Keywords(a domain.StoredArticle) []string {
	freq := make(map[string]int)

	var order []string

	for _, part := range []string{a.Title, a.Summary, a.Category, a.Source} {
		for _, tok := range tokenize(part) {
			if freq[tok] == 0 {
				order = append(order, tok)
			}

			freq[tok]++
		}
	}

	slices.SortStableFunc(order, func(x, y string) int { return freq[y] - freq[x] })

	keywords := order[:min(len(order), maxRankedKeywords)]

	for _, focus := range focusKeywords {
		if !slices.Contains(keywords, focus) {
			keywords = append(keywords, focus)
		}
	}

	return keywords[:min(len(keywords), maxKeywords)]
}

// Queries builds up to four distinct photo search queries, most specific first.
func Queries(a domain.StoredArticle, keywords []string) []string {
	compact := strings.Join(keywords[:min(len(keywords), 3)], " ")
	broader := strings.Join(keywords[:min(len(keywords), 5)], " ")
	title := cleanTitle(a.Title)
	category := strings.ToLower(a.Category)

	candidates := lo.FilterMap([]string{
		title + " " + compact,
		title + " " + category,
		category + " " + compact,
		broader + " " + category,
		compact + " artificial intelligence",
	}, func(q string, _ int) (string, bool) {
		q = normalizeWhitespace(q)
		return q, q != ""
	})

	queries := lo.Uniq(candidates)

	return queries[:min(len(queries), maxQueries)]
}
