package images

import (
	"hash/fnv"
	"strings"
)

const genericCategoryFallback = "https://images.unsplash.com/photo-1558494949-ef527443d01d?w=1200&q=80&auto=format&fit=crop"

// categoryFallbacks maps editorial categories to curated photos.
var categoryFallbacks = map[string]string{
	"Technology": "https://images.unsplash.com/photo-1518779578993-ec3579fee39f?w=1200&q=80&auto=format&fit=crop",
	"Research":   "https://images.unsplash.com/photo-1559757175-5700dde67538?w=1200&q=80&auto=format&fit=crop",
	"Business":   "https://images.unsplash.com/photo-1454165205744-3b78555e5572?w=1200&q=80&auto=format&fit=crop",
	"Robotics":   "https://images.unsplash.com/photo-1581092580497-e0d23cbdf1dc?w=1200&q=80&auto=format&fit=crop",
	"Tools":      "https://images.unsplash.com/photo-1555066931-4365d14bab8c?w=1200&q=80&auto=format&fit=crop",
	"AI Tools":   "https://images.unsplash.com/photo-1555066931-4365d14bab8c?w=1200&q=80&auto=format&fit=crop",
}

// genericPool is used for categories without a curated photo.
var genericPool = []string{
	"https://source.unsplash.com/featured/?technology",
	"https://source.unsplash.com/featured/?ai",
	"https://source.unsplash.com/featured/?news",
	"https://source.unsplash.com/featured/?innovation",
}

// CategoryFallback returns the curated photo for category, or "" when there is none.
func CategoryFallback(category string) string {
	return categoryFallbacks[category]
}

// CategoryFallbackOrDefault is CategoryFallback with a fixed generic photo for unknown categories.
func CategoryFallbackOrDefault(category string) string {
	if u := CategoryFallback(category); u != "" {
		return u
	}

	return genericCategoryFallback
}

// StaticFallback picks the curated category photo, or a generic pool entry chosen by
// an FNV-1a hash of title and base URL, so the same article always gets the same image.
func StaticFallback(category, title, base string) string {
	if u := CategoryFallback(category); u != "" {
		return u
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(title)))
	_, _ = h.Write([]byte(strings.TrimSpace(base)))

	return genericPool[h.Sum32()%uint32(len(genericPool))]
}

func isCategoryFallback(u string) bool {
	if u == genericCategoryFallback {
		return true
	}

	for _, v := range categoryFallbacks {
		if v == u {
			return true
		}
	}

	return false
}
