package retriever

import (
	"context"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/embedding"
	"github.com/DGMadMax/mcp-rbac/schema"
	"github.com/DGMadMax/mcp-rbac/vectordb"
)

// VectorRetriever implements Retriever using embedding+vector store backend.
// The allowed departments are pushed down as a native store filter.
type VectorRetriever struct {
	Embed embedding.Provider
	Store vectordb.VectorStoreProvider
	TopK  int
	// Threshold may be used by underlying vector search options.
	Threshold float64
}

func (r *VectorRetriever) Type() string { return "vector" }

func (r *VectorRetriever) Search(ctx context.Context, query string, topK int, allowed []string) ([]schema.SearchResult, error) {
	if topK <= 0 {
		if r.TopK > 0 {
			topK = r.TopK
		} else {
			topK = 10
		}
	}
	v, err := r.Embed.GetEmbedding(ctx, query)
	if err != nil {
		logger.Warnf("vector retriever: embedding failed: %v", err)
		return []schema.SearchResult{}, nil
	}
	opts := &schema.SearchOptions{TopK: topK, Threshold: r.Threshold, Departments: allowed}
	results, err := r.Store.SearchDocs(ctx, v, opts)
	if err != nil {
		logger.Warnf("vector retriever: search failed: %v", err)
		return []schema.SearchResult{}, nil
	}
	return results, nil
}
