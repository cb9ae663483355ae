package retriever

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/DGMadMax/mcp-rbac/schema"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Retriever scores queries against an in-process inverted index.
// The index is built once over the ingested corpus and is read-only
// afterwards, so Search needs no locking.
//
// The index holds documents from every department; access control is a
// post-filter applied before results leave Search.
type BM25Retriever struct {
	docs      []schema.Document
	docTokens []map[string]int
	docLens   []int
	avgLen    float64
	df        map[string]int
	MaxTopK   int
}

func (r *BM25Retriever) Type() string { return "bm25" }

// NewBM25Retriever builds the index over the given corpus.
func NewBM25Retriever(docs []schema.Document) *BM25Retriever {
	r := &BM25Retriever{
		docs:      docs,
		docTokens: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		df:        make(map[string]int),
	}
	total := 0
	for i, d := range docs {
		counts := map[string]int{}
		tokens := tokenize(d.Content)
		for _, t := range tokens {
			counts[t]++
		}
		r.docTokens[i] = counts
		r.docLens[i] = len(tokens)
		total += len(tokens)
		for t := range counts {
			r.df[t]++
		}
	}
	if len(docs) > 0 {
		r.avgLen = float64(total) / float64(len(docs))
	}
	return r
}

func (r *BM25Retriever) Search(ctx context.Context, query string, topK int, allowed []string) ([]schema.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if r.MaxTopK > 0 && r.MaxTopK < topK {
		topK = r.MaxTopK
	}
	terms := tokenize(query)
	if len(terms) == 0 || len(r.docs) == 0 {
		return []schema.SearchResult{}, nil
	}

	var allowedSet map[string]struct{}
	if allowed != nil {
		allowedSet = make(map[string]struct{}, len(allowed))
		for _, d := range allowed {
			allowedSet[strings.ToLower(d)] = struct{}{}
		}
	}

	n := float64(len(r.docs))
	results := make([]schema.SearchResult, 0, topK)
	for i, d := range r.docs {
		if allowedSet != nil {
			if _, ok := allowedSet[strings.ToLower(d.Department)]; !ok {
				continue
			}
		}
		score := 0.0
		for _, t := range terms {
			tf := float64(r.docTokens[i][t])
			if tf == 0 {
				continue
			}
			df := float64(r.df[t])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(r.docLens[i])/r.avgLen))
			score += idf * norm
		}
		if score > 0 {
			results = append(results, schema.SearchResult{Document: d, Score: score, BM25Score: score})
		}
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
