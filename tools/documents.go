package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/DGMadMax/mcp-rbac/pipeline"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// DocumentsTool answers questions from the internal document corpus via
// the hybrid retrieval pipeline. The pipeline pointer is swapped whenever
// the corpus changes, possibly while dispatcher goroutines are mid-call,
// so access goes through an atomic pointer.
type DocumentsTool struct {
	pipeline atomic.Pointer[pipeline.Pipeline]
}

// NewDocumentsTool wraps a retrieval pipeline as a dispatchable tool.
func NewDocumentsTool(p *pipeline.Pipeline) *DocumentsTool {
	t := &DocumentsTool{}
	t.pipeline.Store(p)
	return t
}

// SetPipeline swaps the pipeline after an ingest or delete.
func (t *DocumentsTool) SetPipeline(p *pipeline.Pipeline) { t.pipeline.Store(p) }

func (t *DocumentsTool) Name() string { return NameDocuments }

func (t *DocumentsTool) Call(ctx context.Context, queries []string, rc rbac.Context) (*Result, error) {
	pl := t.pipeline.Load()
	if pl == nil {
		return nil, errors.New("document pipeline not initialized")
	}
	seen := map[string]struct{}{}
	var merged []schema.SearchResult
	for _, q := range queries {
		res, err := pl.Retrieve(ctx, q, rc, 0)
		if err != nil {
			return nil, fmt.Errorf("retrieve %q: %w", q, err)
		}
		for _, c := range res.Candidates {
			key := c.Document.ContentHash()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, c)
		}
	}
	if len(merged) == 0 {
		return &Result{Tool: NameDocuments, Text: "No relevant documents were found."}, nil
	}

	var b strings.Builder
	citations := make([]schema.Citation, 0, len(merged))
	for i, c := range merged {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Document.Content)
		locator := c.Document.Source
		if locator == "" {
			locator = c.Document.ID
		}
		citations = append(citations, schema.Citation{
			Type:       schema.CitationDocument,
			Locator:    locator,
			Department: c.Document.Department,
		})
	}
	return &Result{
		Tool:       NameDocuments,
		Text:       b.String(),
		Candidates: merged,
		Citations:  citations,
	}, nil
}
