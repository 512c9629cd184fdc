package domain

import "time"

// SourceType is the feed classification derived from a source's URLs.
type SourceType string

// Source types, in classifier precedence order.
const (
	SourceYouTubeChannel      SourceType = "youtube_channel"
	SourceYouTubePlaylist     SourceType = "youtube_playlist"
	SourceCommunityReddit     SourceType = "community_reddit"
	SourceResearchPlatformAPI SourceType = "research_platform_api"
	SourceResearchPlatform    SourceType = "research_platform"
	SourceNewsletter          SourceType = "newsletter"
	SourcePodcast             SourceType = "podcast"
	SourceCompanyBlog         SourceType = "company_blog"
	SourceRSSWebsite          SourceType = "rss_website"
)

// IsYouTube reports whether the type is one of the YouTube variants.
func (t SourceType) IsYouTube() bool {
	return t == SourceYouTubeChannel || t == SourceYouTubePlaylist
}

// IsResearchPlatform reports whether the type is a research platform feed or API.
func (t SourceType) IsResearchPlatform() bool {
	return t == SourceResearchPlatform || t == SourceResearchPlatformAPI
}

// Well-known categories referenced by classification rules.
const (
	CategoryTechnology = "Technology"
	CategoryResearch   = "Research"
	CategoryBusiness   = "Business"
)

// FeedSource is a row of the source registry.
type FeedSource struct {
	Name    string
	MainURL string
	RSSURL  string
}

// Feed is a FeedSource after classification and feed URL resolution.
type Feed struct {
	ID         string
	Name       string
	URL        string
	MainURL    string
	Type       SourceType
	Category   string
	IsResearch bool
}

// IsRSS reports whether the feed is fetched as an RSS/Atom document.
func (f Feed) IsRSS() bool {
	return f.Type != SourceResearchPlatformAPI
}

// Enclosure is a media attachment advertised by a feed item.
type Enclosure struct {
	URL  string
	Type string
}

// FeedItem is one entry of a fetched feed, normalized across RSS, Atom and API sources.
type FeedItem struct {
	Title          string
	Link           string
	GUID           string
	Description    string
	Content        string
	ContentEncoded string
	Summary        string
	Snippet        string
	Published      *time.Time
	Enclosures     []Enclosure
	ImageURL       string

	// Media extension URLs in document order.
	MediaContent   []string
	MediaThumbnail []string
	MediaGroup     []string
	ITunesImage    string
}

// SourceURL is the item's canonical link, falling back to its GUID.
func (i FeedItem) SourceURL() string {
	if i.Link != "" {
		return i.Link
	}

	return i.GUID
}

// Article is a candidate ready for persistence.
type Article struct {
	Title           string
	Summary         string
	Category        string
	Source          string
	SourceURL       string
	ImageURL        string
	ImportanceScore int
	IsFeatured      bool
	PublishedAt     time.Time
}

// StoredArticle is a persisted article row.
type StoredArticle struct {
	ID string
	Article
	CreatedAt time.Time
}

// Subscriber is a newsletter subscription row.
type Subscriber struct {
	ID        string
	Email     string
	Source    string
	CreatedAt time.Time
}
