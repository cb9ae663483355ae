package fusion

import (
	"sort"

	"github.com/DGMadMax/mcp-rbac/schema"
)

// RRFScore computes Reciprocal Rank Fusion across multiple ranked lists.
//
// Documents are identified by content hash, not backend ID: the vector and
// keyword legs may hand back the same chunk under different IDs, and a
// truncated-prefix identity would alias distinct chunks sharing a preamble.
//
// The output order is deterministic. Candidates accumulate in first-seen
// order across the input lists, and ties in fused score keep that order.
func RRFScore(lists [][]schema.SearchResult, k int) []schema.SearchResult {
	if k <= 0 {
		k = 60
	}
	type agg struct {
		result schema.SearchResult
		score  float64
	}
	byHash := map[string]*agg{}
	order := make([]string, 0)

	for _, list := range lists {
		for idx, item := range list {
			key := item.Document.ContentHash()
			a, ok := byHash[key]
			if !ok {
				a = &agg{result: item}
				byHash[key] = a
				order = append(order, key)
			} else {
				// carry stage scores from whichever leg produced them
				if item.VectorScore != 0 {
					a.result.VectorScore = item.VectorScore
				}
				if item.BM25Score != 0 {
					a.result.BM25Score = item.BM25Score
				}
			}
			a.score += 1.0 / (float64(k) + float64(idx+1))
		}
	}

	out := make([]schema.SearchResult, 0, len(order))
	for _, key := range order {
		a := byHash[key]
		a.result.RRFScore = a.score
		a.result.Score = a.score
		out = append(out, a.result)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
