// Package sources loads the feed registry and classifies each source.
//
// Classification and category inference are ordered rule tables: the first
// rule whose predicate matches decides the result, and the table order is
// the priority order.
package sources

import (
	"regexp"
	"strings"

	"github.com/new20/newsai/internal/core/domain"
)

// maxSafeIDLength caps the slug derived from a source name.
const maxSafeIDLength = 80

// sourceURLs holds the lowercased URLs the predicates look at.
type sourceURLs struct {
	name string
	main string
	rss  string
}

func lowerSource(src domain.FeedSource) sourceURLs {
	return sourceURLs{
		name: strings.ToLower(src.Name),
		main: strings.ToLower(src.MainURL),
		rss:  strings.ToLower(src.RSSURL),
	}
}

type typeRule struct {
	name   string
	match  func(s sourceURLs) bool
	result domain.SourceType
}

// typeRules is evaluated top to bottom; the YouTube playlist rule must stay above the channel rule.
var typeRules = []typeRule{
	{
		name:   "youtube playlist",
		match:  func(s sourceURLs) bool { return isYouTube(s) && strings.Contains(s.main+" "+s.rss, "list=") },
		result: domain.SourceYouTubePlaylist,
	},
	{
		name:   "youtube channel",
		match:  isYouTube,
		result: domain.SourceYouTubeChannel,
	},
	{
		name:   "reddit",
		match:  func(s sourceURLs) bool { return strings.Contains(s.main, "reddit.com") },
		result: domain.SourceCommunityReddit,
	},
	{
		name:   "hugging face models api",
		match:  func(s sourceURLs) bool { return strings.Contains(s.main, "huggingface.co/models") },
		result: domain.SourceResearchPlatformAPI,
	},
	{
		name:   "research platform",
		match:  mainContainsAny("arxiv.org", "paperswithcode.com", "jmlr.org", "mlr.press", "distill.pub"),
		result: domain.SourceResearchPlatform,
	},
	{
		name: "newsletter",
		match: func(s sourceURLs) bool {
			return strings.Contains(s.main, "substack.com") ||
				strings.Contains(s.main, "beehiiv.com") ||
				strings.Contains(s.rss, "beehiiv.com")
		},
		result: domain.SourceNewsletter,
	},
	{
		name: "podcast",
		match: func(s sourceURLs) bool {
			return strings.Contains(s.rss, "/podcast") ||
				strings.Contains(s.main, "/podcast") ||
				strings.Contains(s.main, "ai-podcast") ||
				strings.Contains(s.rss, "feeds.blubrry.com") ||
				strings.Contains(s.rss, "changelog.com")
		},
		result: domain.SourcePodcast,
	},
	{
		name: "company blog",
		match: mainContainsAny(
			"openai.com", "deepmind.com", "ai.meta.com", "huggingface.co/blog",
			"blogs.microsoft.com", "aws.amazon.com/blogs", "developer.nvidia.com", "research.ibm.com",
		),
		result: domain.SourceCompanyBlog,
	},
}

func isYouTube(s sourceURLs) bool {
	return strings.Contains(s.main, "youtube.com") || strings.Contains(s.main, "youtu.be")
}

func mainContainsAny(needles ...string) func(s sourceURLs) bool {
	return func(s sourceURLs) bool {
		for _, n := range needles {
			if strings.Contains(s.main, n) {
				return true
			}
		}

		return false
	}
}

func nameContainsAny(needles ...string) func(s sourceURLs) bool {
	return func(s sourceURLs) bool {
		for _, n := range needles {
			if strings.Contains(s.name, n) {
				return true
			}
		}

		return false
	}
}

// Classify returns the source type of src. Unmatched sources are plain RSS websites.
func Classify(src domain.FeedSource) domain.SourceType {
	s := lowerSource(src)

	for _, rule := range typeRules {
		if rule.match(s) {
			return rule.result
		}
	}

	return domain.SourceRSSWebsite
}

type categoryRule struct {
	name   string
	match  func(t domain.SourceType, s sourceURLs) bool
	result string
}

func ofType(types ...domain.SourceType) func(t domain.SourceType, s sourceURLs) bool {
	return func(t domain.SourceType, _ sourceURLs) bool {
		for _, want := range types {
			if t == want {
				return true
			}
		}

		return false
	}
}

func typeAnd(t domain.SourceType, pred func(s sourceURLs) bool) func(domain.SourceType, sourceURLs) bool {
	return func(got domain.SourceType, s sourceURLs) bool {
		return got == t && pred(s)
	}
}

func anyType(pred func(s sourceURLs) bool) func(domain.SourceType, sourceURLs) bool {
	return func(_ domain.SourceType, s sourceURLs) bool {
		return pred(s)
	}
}

var researchNameRegex = regexp.MustCompile(`stanford|bair|mila|ieee|\bmit\b|distill|jmlr|pmlr`)

// categoryRules is evaluated top to bottom.
var categoryRules = []categoryRule{
	{
		name:   "research platforms",
		match:  ofType(domain.SourceResearchPlatform, domain.SourceResearchPlatformAPI),
		result: domain.CategoryResearch,
	},
	{
		name:   "data science communities",
		match:  typeAnd(domain.SourceCommunityReddit, nameContainsAny("datascience")),
		result: domain.CategoryBusiness,
	},
	{
		name:   "communities",
		match:  ofType(domain.SourceCommunityReddit),
		result: domain.CategoryResearch,
	},
	{
		name: "business podcasts",
		match: typeAnd(domain.SourcePodcast, func(s sourceURLs) bool {
			return strings.Contains(s.name, "business") || strings.Contains(s.main, "emerj.com")
		}),
		result: domain.CategoryBusiness,
	},
	{
		name:   "podcasts",
		match:  ofType(domain.SourcePodcast),
		result: domain.CategoryTechnology,
	},
	{
		name: "business names and analysts",
		match: anyType(func(s sourceURLs) bool {
			return nameContainsAny("business", "trends", "analytics")(s) ||
				mainContainsAny("forrester.com", "marketingaiinstitute.com", "oecd.ai", "partnershiponai.org")(s)
		}),
		result: domain.CategoryBusiness,
	},
	{
		name:   "research labs",
		match:  anyType(func(s sourceURLs) bool { return researchNameRegex.MatchString(s.name) }),
		result: domain.CategoryResearch,
	},
}

// InferCategory derives the article category for a classified source.
// The result is not validated; pass it through Categories.Ensure.
func InferCategory(t domain.SourceType, src domain.FeedSource) string {
	s := lowerSource(src)

	for _, rule := range categoryRules {
		if rule.match(t, s) {
			return rule.result
		}
	}

	return domain.CategoryTechnology
}

// IsResearch reports whether articles from the source get the lower research importance floor.
func IsResearch(t domain.SourceType, category string) bool {
	return t.IsResearchPlatform() || category == domain.CategoryResearch
}

var nonSlugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// SafeID turns a source name into a lowercase dash-separated identifier.
func SafeID(name string) string {
	id := nonSlugRegex.ReplaceAllString(strings.ToLower(name), "-")
	id = strings.Trim(id, "-")

	if len(id) > maxSafeIDLength {
		id = id[:maxSafeIDLength]
	}

	return id
}
