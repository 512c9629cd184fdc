package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/new20/newsai/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		src  domain.FeedSource
		want domain.SourceType
	}{
		{"youtube playlist", domain.FeedSource{MainURL: "https://www.youtube.com/playlist?list=PL123"}, domain.SourceYouTubePlaylist},
		{"youtube watch with list", domain.FeedSource{MainURL: "https://www.YouTube.com/watch?v=abc&list=PLxyz"}, domain.SourceYouTubePlaylist},
		{"youtube channel", domain.FeedSource{MainURL: "https://www.youtube.com/@TwoMinutePapers"}, domain.SourceYouTubeChannel},
		{"reddit", domain.FeedSource{MainURL: "https://www.reddit.com/r/MachineLearning/"}, domain.SourceCommunityReddit},
		{"hf models", domain.FeedSource{MainURL: "https://huggingface.co/models"}, domain.SourceResearchPlatformAPI},
		{"arxiv", domain.FeedSource{MainURL: "https://arxiv.org/list/cs.AI/recent"}, domain.SourceResearchPlatform},
		{"pmlr", domain.FeedSource{MainURL: "https://proceedings.mlr.press/"}, domain.SourceResearchPlatform},
		{"substack", domain.FeedSource{MainURL: "https://importai.substack.com"}, domain.SourceNewsletter},
		{"beehiiv rss", domain.FeedSource{MainURL: "https://therundown.ai", RSSURL: "https://rss.beehiiv.com/feeds/x.xml"}, domain.SourceNewsletter},
		{"podcast path", domain.FeedSource{MainURL: "https://twimlai.com/podcast/"}, domain.SourcePodcast},
		{"blubrry", domain.FeedSource{MainURL: "https://example.com", RSSURL: "https://feeds.blubrry.com/feeds/x.xml"}, domain.SourcePodcast},
		{"openai blog", domain.FeedSource{MainURL: "https://openai.com/blog"}, domain.SourceCompanyBlog},
		{"hf blog", domain.FeedSource{MainURL: "https://huggingface.co/blog"}, domain.SourceCompanyBlog},
		{"default", domain.FeedSource{MainURL: "https://venturebeat.com/category/ai/"}, domain.SourceRSSWebsite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.src))
		})
	}
}

func TestClassify_PlaylistNeverChannel(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/playlist?list=PLabc",
		"https://youtube.com/watch?v=1&list=PL2",
		"https://m.youtube.com/playlist?list=UU_x",
	}

	for _, u := range urls {
		got := Classify(domain.FeedSource{MainURL: u})
		assert.Equal(t, domain.SourceYouTubePlaylist, got, u)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name string
		typ  domain.SourceType
		src  domain.FeedSource
		want string
	}{
		{"research platform", domain.SourceResearchPlatform, domain.FeedSource{Name: "arXiv"}, domain.CategoryResearch},
		{"api", domain.SourceResearchPlatformAPI, domain.FeedSource{Name: "HF"}, domain.CategoryResearch},
		{"datascience reddit", domain.SourceCommunityReddit, domain.FeedSource{Name: "r/datascience"}, domain.CategoryBusiness},
		{"ml reddit", domain.SourceCommunityReddit, domain.FeedSource{Name: "r/MachineLearning"}, domain.CategoryResearch},
		{"business podcast", domain.SourcePodcast, domain.FeedSource{Name: "AI in Business"}, domain.CategoryBusiness},
		{"emerj podcast", domain.SourcePodcast, domain.FeedSource{Name: "AI Show", MainURL: "https://emerj.com/podcast"}, domain.CategoryBusiness},
		{"tech podcast", domain.SourcePodcast, domain.FeedSource{Name: "Practical AI"}, domain.CategoryTechnology},
		{"analytics name", domain.SourceRSSWebsite, domain.FeedSource{Name: "Analytics Vidhya"}, domain.CategoryBusiness},
		{"oecd", domain.SourceRSSWebsite, domain.FeedSource{Name: "Observatory", MainURL: "https://oecd.ai/en/wonk"}, domain.CategoryBusiness},
		{"stanford", domain.SourceRSSWebsite, domain.FeedSource{Name: "Stanford HAI"}, domain.CategoryResearch},
		{"mit word", domain.SourceRSSWebsite, domain.FeedSource{Name: "MIT News AI"}, domain.CategoryResearch},
		{"mit inside word", domain.SourceRSSWebsite, domain.FeedSource{Name: "AI Summit Weekly"}, domain.CategoryTechnology},
		{"default", domain.SourceRSSWebsite, domain.FeedSource{Name: "The Verge AI"}, domain.CategoryTechnology},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCategory(tt.typ, tt.src))
		})
	}
}

func TestIsResearch(t *testing.T) {
	assert.True(t, IsResearch(domain.SourceResearchPlatform, domain.CategoryTechnology))
	assert.True(t, IsResearch(domain.SourceResearchPlatformAPI, domain.CategoryBusiness))
	assert.True(t, IsResearch(domain.SourceRSSWebsite, domain.CategoryResearch))
	assert.False(t, IsResearch(domain.SourceRSSWebsite, domain.CategoryTechnology))
}

func TestSafeID(t *testing.T) {
	assert.Equal(t, "mit-technology-review-ai", SafeID("  MIT Technology Review (AI)  "))
	assert.Equal(t, "r-machinelearning", SafeID("r/MachineLearning"))
	assert.Equal(t, "", SafeID("!!!"))
	assert.Len(t, SafeID(strings.Repeat("abc ", 40)), maxSafeIDLength)
}
