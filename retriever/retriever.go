package retriever

import (
	"context"

	"github.com/DGMadMax/mcp-rbac/schema"
)

// Retriever defines a unified search interface across different backends.
// allowed lists the departments visible to the caller; nil means
// unrestricted. Implementations degrade gracefully: a backend failure
// yields an empty list and a nil error so the sibling retrieval leg can
// still carry the query.
type Retriever interface {
	Type() string
	Search(ctx context.Context, query string, topK int, allowed []string) ([]schema.SearchResult, error)
}
