package vectordb

import (
	"context"
	"fmt"
	"strings"

	"github.com/DGMadMax/mcp-rbac/config"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// VectorStoreProvider is the storage backend for document chunks.
// SearchDocs applies opts.Departments as a native filter so out-of-scope
// chunks never leave the store.
type VectorStoreProvider interface {
	AddDocs(ctx context.Context, docs []schema.Document) error
	SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error)
	ListDocs(ctx context.Context, department string) ([]schema.Document, error)
	DeleteDocs(ctx context.Context, ids []string) error
	Close() error
}

// NewProvider builds a vector store from configuration.
func NewProvider(ctx context.Context, cfg *config.VectorDBConfig, dim int) (VectorStoreProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "milvus":
		return newMilvusProvider(ctx, cfg, dim)
	case "memory":
		return NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported vectordb provider: %s", cfg.Provider)
	}
}
