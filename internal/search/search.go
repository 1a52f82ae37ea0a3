// Package search ranks episodes against a free-text query.
package search

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/castkit/castkit/internal/domain"
)

// Rank returns the episodes whose titles fuzzy-match query, best match
// first. An empty query returns the input unchanged.
func Rank(query string, episodes []domain.Episode) []domain.Episode {
	if query == "" {
		return episodes
	}

	titles := make([]string, len(episodes))
	for i, ep := range episodes {
		titles[i] = ep.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Sort(ranks)

	matched := make([]domain.Episode, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, episodes[r.OriginalIndex])
	}
	return matched
}
