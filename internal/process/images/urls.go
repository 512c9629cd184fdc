package images

import (
	"net/url"
	"regexp"
	"strings"
)

const dataImagePrefix = "data:image/"

var (
	imageExtRegex    = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|svg|avif)$`)
	formatHintRegex  = regexp.MustCompile(`(?i)[?&](fm|format)=(jpg|jpeg|png|webp|avif)\b`)
	genericPrefixes  = []string{"https://source.unsplash.com/featured", "http://source.unsplash.com/featured"}
	nullishImageURLs = map[string]bool{"": true, "null": true, "undefined": true}
)

// IsRenderable reports whether a browser can display url as-is: an absolute http(s) URL or an image data URI.
func IsRenderable(u string) bool {
	u = strings.TrimSpace(u)
	if nullishImageURLs[u] {
		return false
	}

	if strings.HasPrefix(u, dataImagePrefix) {
		return true
	}

	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")
}

// IsGenericFallback reports whether url is one of the placeholder images rather than an article-specific one.
func IsGenericFallback(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" {
		return false
	}

	for _, p := range genericPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}

	return isCategoryFallback(u)
}

// looksLikeImage accepts http(s) URLs with an image extension or a CDN format hint.
func looksLikeImage(u string) bool {
	if !strings.HasPrefix(u, "http") {
		return false
	}

	if imageExtRegex.MatchString(u) {
		return true
	}

	return formatHintRegex.MatchString(u)
}

// absolute resolves ref against base; it returns "" when either is unparsable.
func absolute(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	if base == "" {
		if r.IsAbs() {
			return r.String()
		}

		return ""
	}

	b, err := url.Parse(base)
	if err != nil {
		return ""
	}

	return b.ResolveReference(r).String()
}
