package images

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"github.com/new20/newsai/internal/core/domain"
)

const metaImageSelector = "meta[property='og:image'], meta[name='og:image'], meta[property='twitter:image'], meta[name='twitter:image']"

var lazyImageAttrs = []string{"src", "data-src", "data-original", "data-lazy-src"}

// FromFeedFields returns the first image advertised by structured feed fields
// (enclosures, media:content, media:thumbnail, media:group, itunes:image, item image).
func FromFeedFields(item domain.FeedItem) string {
	return firstImage(feedFieldCandidates(item), item.Link)
}

// FromHTML returns the first image found in the item's content, description or summary markup.
func FromHTML(item domain.FeedItem) string {
	var candidates []string

	for _, field := range []string{item.Content, item.ContentEncoded, item.Description, item.Summary} {
		candidates = append(candidates, HTMLImages(field)...)
	}

	return firstImage(candidates, item.Link)
}

func feedFieldCandidates(item domain.FeedItem) []string {
	candidates := make([]string, 0, len(item.Enclosures)+len(item.MediaContent)+len(item.MediaThumbnail)+len(item.MediaGroup)+2)

	for _, e := range item.Enclosures {
		candidates = append(candidates, e.URL)
	}

	candidates = append(candidates, item.MediaContent...)
	candidates = append(candidates, item.MediaThumbnail...)
	candidates = append(candidates, item.MediaGroup...)

	return append(candidates, item.ITunesImage, item.ImageURL)
}

func firstImage(candidates []string, base string) string {
	resolved := lo.FilterMap(candidates, func(c string, _ int) (string, bool) {
		abs := absolute(c, base)
		return abs, abs != ""
	})

	for _, u := range lo.Uniq(resolved) {
		if looksLikeImage(u) {
			return u
		}
	}

	return ""
}

// HTMLImages lists image URLs in markup in priority order: og/twitter meta tags, img tags, then JSON-LD image fields.
// URLs are returned as written; callers resolve them against the item link.
func HTMLImages(markup string) []string {
	if strings.TrimSpace(markup) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var urls []string

	doc.Find(metaImageSelector).Each(func(_ int, s *goquery.Selection) {
		if c, ok := s.Attr("content"); ok && c != "" {
			urls = append(urls, c)
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range lazyImageAttrs {
			if c, ok := s.Attr(attr); ok && c != "" {
				urls = append(urls, c)
				return
			}
		}
	})

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		urls = append(urls, jsonLDImages(s.Text())...)
	})

	return urls
}

func jsonLDImages(raw string) []string {
	var doc struct {
		Image json.RawMessage `json:"image"`
	}

	if err := json.Unmarshal([]byte(raw), &doc); err != nil || len(doc.Image) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(doc.Image, &single); err == nil {
		return []string{single}
	}

	var many []string
	if err := json.Unmarshal(doc.Image, &many); err == nil {
		return many
	}

	var object struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(doc.Image, &object); err == nil && object.URL != "" {
		return []string{object.URL}
	}

	return nil
}
