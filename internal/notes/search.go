package notes

import (
	"strings"

	"github.com/kuitang/agent-dashboard/internal/errs"
)

// Scope selects which note fields a search query is matched against.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeTitle   Scope = "title"
	ScopeContent Scope = "content"
	ScopeTags    Scope = "tags"
)

// ParseScope maps a query parameter to a Scope. Empty means ScopeAll.
func ParseScope(raw string) (Scope, error) {
	switch s := Scope(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeTitle, ScopeContent, ScopeTags:
		return s, nil
	default:
		return "", errs.Invalidf("unknown search scope %q", raw)
	}
}

// Search returns the notes whose scoped fields contain query, ignoring case.
// An empty query matches every note. Order is preserved.
func Search(notes []Note, query string, scope Scope) []Note {
	out := make([]Note, 0, len(notes))
	q := strings.ToLower(query)
	for _, n := range notes {
		if q == "" || Matches(n, q, scope) {
			out = append(out, n)
		}
	}
	return out
}

// Matches reports whether n matches the already-lowercased query.
func Matches(n Note, lowerQuery string, scope Scope) bool {
	title := strings.Contains(strings.ToLower(n.Title), lowerQuery)
	content := strings.Contains(strings.ToLower(n.Content), lowerQuery)
	tags := false
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), lowerQuery) {
			tags = true
			break
		}
	}
	switch scope {
	case ScopeTitle:
		return title
	case ScopeContent:
		return content
	case ScopeTags:
		return tags
	default:
		return title || content || tags
	}
}
