package notes

import (
	"strings"
	"unicode/utf8"
)

// ContentPreview returns the first maxLines lines of content, appending "..." on a new line if truncated.
// If content has maxLines or fewer lines, returns content unchanged.
func ContentPreview(content string, maxLines int) string {
	if content == "" || maxLines <= 0 {
		return content
	}
	lines := strings.SplitN(content, "\n", maxLines+1)
	if len(lines) <= maxLines {
		return content
	}
	return strings.Join(lines[:maxLines], "\n") + "\n..."
}

// CountLines returns the number of lines in content.
// An empty string has 0 lines.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// Excerpt returns up to radius runes either side of the first
// case-insensitive occurrence of query in content, with "…" marking cuts.
// With no match it falls back to the head of content.
func Excerpt(content, query string, radius int) string {
	if content == "" || radius <= 0 {
		return ""
	}
	runes := []rune(content)
	start, end := 0, 2*radius
	if query != "" {
		lower := strings.ToLower(content)
		// Case folding can change byte lengths; offsets are only trusted when it did not.
		if i := strings.Index(lower, strings.ToLower(query)); i >= 0 && len(lower) == len(content) {
			at := utf8.RuneCountInString(content[:i])
			start = max(at-radius, 0)
			end = at + utf8.RuneCountInString(query) + radius
		}
	}
	if end > len(runes) {
		end = len(runes)
	}
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}
