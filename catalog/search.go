package catalog

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Search returns the batches whose name fuzzily contains query, best match
// first. An empty query returns batches unchanged.
func Search(batches []Batch, query string) []Batch {
	if query == "" {
		return batches
	}

	names := lo.Map(batches, func(b Batch, _ int) string { return b.Name })
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Stable(ranks)

	return lo.Map(ranks, func(r fuzzy.Rank, _ int) Batch {
		return batches[r.OriginalIndex]
	})
}
