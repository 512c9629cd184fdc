// Package filters implements the editorial content filter.
//
// Rules run in order and the first failing rule rejects the article:
//   - Minimum word count (lower floor for podcasts and video)
//   - At least one AI signal term
//   - No banned promotional pattern
//   - No banned topic, matched on word boundaries
package filters

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/platform/config"
	"github.com/new20/newsai/internal/platform/observability"
)

const (
	ReasonWordCount     = "insufficient_word_count"
	ReasonMissingSignal = "missing_ai_signal"
	ReasonBannedPattern = "banned_pattern"
	ReasonBannedTopic   = "banned_topic"
)

// Candidate is the sanitized text the filter looks at.
type Candidate struct {
	Title      string
	Summary    string
	Body       string
	SourceType domain.SourceType
}

// Result is the filter verdict. Detail names the matched pattern or topic when there is one.
type Result struct {
	Allowed bool
	Reason  string
	Detail  string
}

type rule struct {
	reason string
	check  func(f *Filter, c Candidate, text string) (bool, string)
}

// rules is the evaluation order.
var rules = []rule{
	{reason: ReasonWordCount, check: (*Filter).checkWordCount},
	{reason: ReasonMissingSignal, check: (*Filter).checkSignals},
	{reason: ReasonBannedPattern, check: (*Filter).checkPatterns},
	{reason: ReasonBannedTopic, check: (*Filter).checkTopics},
}

type topicMatcher struct {
	topic string
	re    *regexp.Regexp
}

type bannedPattern struct {
	source string
	re     *regexp.Regexp
}

// Filter decides whether a candidate article is publishable.
type Filter struct {
	minWords          int
	shortFormMinWords int
	signals           []string
	patterns          []bannedPattern
	topics            []topicMatcher
}

// New compiles the rule set. Invalid patterns are reported as errors.
func New(r config.FilterRules) (*Filter, error) {
	f := &Filter{
		minWords:          r.MinWords,
		shortFormMinWords: r.ShortFormMinWords,
	}

	for _, s := range r.RequiredSignals {
		if s = strings.TrimSpace(fold(s)); s != "" {
			f.signals = append(f.signals, s)
		}
	}

	for _, p := range r.BannedPatterns {
		// Text is case-folded before matching, so patterns match case-insensitively too.
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling banned pattern %q: %w", p, err)
		}

		f.patterns = append(f.patterns, bannedPattern{source: p, re: re})
	}

	for _, topic := range r.BannedTopics {
		re := topicRegex(topic)
		if re == nil {
			continue
		}

		f.topics = append(f.topics, topicMatcher{topic: topic, re: re})
	}

	return f, nil
}

// topicRegex matches topic as whole words; multi-word topics match across any whitespace run.
func topicRegex(topic string) *regexp.Regexp {
	parts := strings.Fields(strings.ToLower(topic))
	if len(parts) == 0 {
		return nil
	}

	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}

	return regexp.MustCompile(`(?i)(?:^|\W)` + strings.Join(parts, `\s+`) + `(?:\W|$)`)
}

// Check runs every rule in order and returns the first rejection.
func (f *Filter) Check(c Candidate) Result {
	text := fold(strings.Join(nonEmpty(c.Title, c.Summary, c.Body), " "))

	for _, r := range rules {
		ok, detail := r.check(f, c, text)
		if !ok {
			observability.ArticlesDropped.WithLabelValues(r.reason).Inc()

			return Result{Allowed: false, Reason: r.reason, Detail: detail}
		}
	}

	return Result{Allowed: true}
}

// MinWords returns the word floor for a source type.
func (f *Filter) MinWords(t domain.SourceType) int {
	if t == domain.SourcePodcast || t.IsYouTube() {
		return f.shortFormMinWords
	}

	return f.minWords
}

func (f *Filter) checkWordCount(c Candidate, text string) (bool, string) {
	words := len(strings.Fields(text))
	floor := f.MinWords(c.SourceType)

	return words >= floor, fmt.Sprintf("%d<%d", words, floor)
}

func (f *Filter) checkSignals(_ Candidate, text string) (bool, string) {
	for _, s := range f.signals {
		if strings.Contains(text, s) {
			return true, ""
		}
	}

	return false, ""
}

func (f *Filter) checkPatterns(_ Candidate, text string) (bool, string) {
	for _, bp := range f.patterns {
		if bp.re.MatchString(text) {
			return false, bp.source
		}
	}

	return true, ""
}

func (f *Filter) checkTopics(_ Candidate, text string) (bool, string) {
	for _, t := range f.topics {
		if t.re.MatchString(text) {
			return false, t.topic
		}
	}

	return true, ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}

// fold case-folds s. Casers carry state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
