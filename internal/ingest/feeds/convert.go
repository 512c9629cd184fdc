package feeds

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/new20/newsai/internal/core/domain"
)

const (
	mediaNamespace = "media"
	attrURL        = "url"
)

func convertItem(it *gofeed.Item) domain.FeedItem {
	item := domain.FeedItem{
		Title:       it.Title,
		Link:        strings.TrimSpace(it.Link),
		GUID:        strings.TrimSpace(it.GUID),
		Description: it.Description,
		Content:     it.Content,
		Published:   itemDate(it),
	}

	if item.Link == "" && len(it.Links) > 0 {
		item.Link = strings.TrimSpace(it.Links[0])
	}

	if it.Image != nil {
		item.ImageURL = it.Image.URL
	}

	for _, e := range it.Enclosures {
		if e != nil && e.URL != "" {
			item.Enclosures = append(item.Enclosures, domain.Enclosure{URL: e.URL, Type: e.Type})
		}
	}

	if it.ITunesExt != nil {
		item.ITunesImage = it.ITunesExt.Image
	}

	if media, ok := it.Extensions[mediaNamespace]; ok {
		item.MediaContent = extensionURLs(media["content"])
		item.MediaThumbnail = extensionURLs(media["thumbnail"])

		for _, group := range media["group"] {
			item.MediaGroup = append(item.MediaGroup, extensionURLs(group.Children["thumbnail"])...)
			item.MediaGroup = append(item.MediaGroup, extensionURLs(group.Children["content"])...)
		}
	}

	return item
}

func extensionURLs(exts []ext.Extension) []string {
	var urls []string

	for _, e := range exts {
		if u := strings.TrimSpace(e.Attrs[attrURL]); u != "" {
			urls = append(urls, u)
		}
	}

	return urls
}

func itemDate(it *gofeed.Item) *time.Time {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed
	}

	for _, raw := range []string{it.Published, it.Updated} {
		if t := parseDate(raw); !t.IsZero() {
			return &t
		}
	}

	return nil
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}

	return t
}
