// Package htmlutils turns raw feed markup into plain text.
//
// The package handles:
//   - CDATA unwrapping
//   - Removal of executable and embedded blocks (script, style, iframe, object, embed, noscript)
//   - Entity decoding and whitespace normalization
package htmlutils

import (
	stdhtml "html"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	cdataRegex = regexp.MustCompile(`(?is)<!\[CDATA\[(.*?)\]\]>`)
	tagRegex   = regexp.MustCompile(`(?s)<[^>]*>`)
	blockRegex = regexp.MustCompile(`(?is)<\s*(script|style|iframe|object|embed|noscript)\b[^>]*>.*?<\s*/\s*(script|style|iframe|object|embed|noscript)\s*>`)
)

var droppedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"noscript": true,
	"template": true,
}

// Elements that separate words visually; a space is emitted around them.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "td": true, "th": true,
	"tr": true, "ul": true,
}

// Sanitize converts untrusted feed text into a single line of visible text.
// It never panics and is idempotent.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	out := sanitizePass(raw)

	// Every decoding layer shortens the text, so the fixpoint is reached within len(raw) passes.
	for range len(raw) {
		next := sanitizePass(out)
		if next == out {
			return out
		}

		out = next
	}

	return out
}

func sanitizePass(raw string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fallbackText(raw)
		}
	}()

	text := cdataRegex.ReplaceAllString(raw, "$1")
	if !strings.ContainsAny(text, "<&") {
		return collapseWhitespace(text)
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return fallbackText(text)
	}

	var sb strings.Builder

	collectText(doc, &sb)

	return collapseWhitespace(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)

		return
	case html.ElementNode:
		if droppedElements[n.Data] {
			return
		}

		if blockElements[n.Data] {
			sb.WriteByte(' ')
			defer sb.WriteByte(' ')
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// fallbackText is the regex path used when the parser cannot be trusted.
func fallbackText(s string) string {
	s = blockRegex.ReplaceAllString(s, " ")
	s = tagRegex.ReplaceAllString(s, " ")

	return collapseWhitespace(stdhtml.UnescapeString(s))
}

// collapseWhitespace replaces control characters and whitespace runs with single spaces.
func collapseWhitespace(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '\u00a0' {
			return ' '
		}

		return r
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most limit runes, appending suffix when it had to cut.
func Truncate(s string, limit int, suffix string) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}

	cut := limit - len([]rune(suffix))
	if cut < 0 {
		cut = 0
	}

	return strings.TrimSpace(string(runes[:cut])) + suffix
}
