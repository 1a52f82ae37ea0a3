package tui

import (
	"github.com/sahilm/fuzzy"

	"github.com/castkit/castkit/internal/domain"
)

// visibleIndices returns the indices of episodes whose titles match query,
// best match first. An empty query yields all indices in feed order.
func visibleIndices(query string, episodes []domain.Episode) []int {
	if query == "" {
		all := make([]int, len(episodes))
		for i := range all {
			all[i] = i
		}
		return all
	}

	titles := make([]string, len(episodes))
	for i, ep := range episodes {
		titles[i] = ep.Title
	}

	matches := fuzzy.Find(query, titles)
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = m.Index
	}
	return out
}
