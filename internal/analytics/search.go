package analytics

import (
	"slices"
	"strings"

	"finanzas/internal/core"
)

// Query filters records by free text and kind.
type Query struct {
	Term  string
	Kinds []core.Kind
}

// Empty reports whether the query has neither a term nor kinds.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Term) == "" && len(q.Kinds) == 0
}

// Search returns the records whose search text contains the term
// (case-insensitive) and whose kind is selected, newest first. An empty
// query matches nothing.
func Search(c Collections, q Query) []Entry {
	if q.Empty() {
		return []Entry{}
	}
	term := strings.ToLower(strings.TrimSpace(q.Term))
	out := []Entry{}
	for _, r := range c.Records() {
		if len(q.Kinds) > 0 && !slices.Contains(q.Kinds, r.Kind()) {
			continue
		}
		if term != "" && !strings.Contains(r.SearchText(), term) {
			continue
		}
		out = append(out, newEntry(r))
	}
	slices.SortFunc(out, newestFirst)
	return out
}
