package suggest

import (
	"sort"
)

// Rank collapses results sharing an ID to the highest scoring one, sorts the
// survivors by descending score and keeps at most limit of them. Equal scores
// keep the order in which each ID was first seen.
func Rank(results []SearchResult, limit int) []SearchResult {
	index := make(map[string]int, len(results))
	unique := make([]SearchResult, 0, len(results))

	for _, r := range results {
		i, seen := index[r.ID]
		if !seen {
			index[r.ID] = len(unique)
			unique = append(unique, r)
			continue
		}

		if r.Score > unique[i].Score {
			unique[i] = r
		}
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	if limit >= 0 && len(unique) > limit {
		unique = unique[:limit]
	}

	return unique
}
