package llm

import (
	"regexp"
	"strings"
)

var codeFenceRegex = regexp.MustCompile("(?s)```(?:[a-zA-Z]+)?\\s*(.*?)\\s*```")

// StripCodeFences returns the contents of the first Markdown code fence, or text unchanged.
func StripCodeFences(text string) string {
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return strings.TrimSpace(text)
}

// ExtractJSON strips code fences and returns the span from the first '{' to the last '}'.
func ExtractJSON(text string) string {
	text = StripCodeFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end > start {
		return text[start : end+1]
	}

	return text
}
