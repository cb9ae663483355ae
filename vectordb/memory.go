package vectordb

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/DGMadMax/mcp-rbac/schema"
)

// MemoryProvider keeps documents in process memory. It backs tests and
// single-node development setups where running Milvus is overkill.
type MemoryProvider struct {
	mu   sync.RWMutex
	docs map[string]schema.Document
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{docs: make(map[string]schema.Document)}
}

func (p *MemoryProvider) AddDocs(ctx context.Context, docs []schema.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range docs {
		d.Department = strings.ToLower(d.Department)
		p.docs[d.ID] = d
	}
	return nil
}

func (p *MemoryProvider) SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK := 10
	var allowed map[string]struct{}
	threshold := 0.0
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		threshold = opts.Threshold
		if len(opts.Departments) > 0 {
			allowed = make(map[string]struct{}, len(opts.Departments))
			for _, d := range opts.Departments {
				allowed[strings.ToLower(d)] = struct{}{}
			}
		}
	}

	p.mu.RLock()
	results := make([]schema.SearchResult, 0, len(p.docs))
	for _, d := range p.docs {
		if allowed != nil {
			if _, ok := allowed[d.Department]; !ok {
				continue
			}
		}
		score := cosine(vector, d.Vector)
		if score < threshold {
			continue
		}
		results = append(results, schema.SearchResult{Document: d, Score: score, VectorScore: score})
	}
	p.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (p *MemoryProvider) ListDocs(ctx context.Context, department string) ([]schema.Document, error) {
	department = strings.ToLower(department)
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]schema.Document, 0, len(p.docs))
	for _, d := range p.docs {
		if department != "" && d.Department != department {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *MemoryProvider) DeleteDocs(ctx context.Context, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		delete(p.docs, id)
	}
	return nil
}

func (p *MemoryProvider) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
