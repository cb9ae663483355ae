package post

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/DGMadMax/mcp-rbac/common/httpx"
	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// Reranker reorders candidates, typically using an external cross-encoder service.
type Reranker interface {
	Rerank(ctx context.Context, query string, in []schema.SearchResult, topN int) ([]schema.SearchResult, error)
}

// truncate returns the first topN of in, copied. This is the universal
// fallback: whatever goes wrong downstream, the caller gets the fused
// ordering cut to size, never an error.
func truncate(in []schema.SearchResult, topN int) []schema.SearchResult {
	if topN > 0 && len(in) > topN {
		return append([]schema.SearchResult(nil), in[:topN]...)
	}
	return in
}

// NopReranker passes candidates through untouched except for truncation.
type NopReranker struct{}

func (NopReranker) Rerank(ctx context.Context, query string, in []schema.SearchResult, topN int) ([]schema.SearchResult, error) {
	return truncate(in, topN), nil
}

// ModelReranker uses a dedicated reranking model (e.g., BGE-reranker, Cohere rerank).
// It calls an external service that provides cross-encoder based reranking.
type ModelReranker struct {
	Endpoint string
	Model    string // e.g., "bge-reranker-large", "rerank-multilingual-v2.0"
	APIKey   string
	Client   *httpx.Client
}

type modelRerankReq struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
	TopN      int      `json:"top_n,omitempty"`
}

type modelRerankResp struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
		Document       string  `json:"document,omitempty"`
	} `json:"results"`
}

func (m *ModelReranker) Rerank(ctx context.Context, query string, in []schema.SearchResult, topN int) ([]schema.SearchResult, error) {
	if m.Endpoint == "" || len(in) == 0 {
		return truncate(in, topN), nil
	}

	documents := make([]string, len(in))
	for i, result := range in {
		documents[i] = result.Document.Content
	}
	reqBody := modelRerankReq{
		Query:     query,
		Documents: documents,
		Model:     m.Model,
		TopN:      topN,
	}

	bs, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(bs))
	if err != nil {
		logger.Warnf("reranker: failed to create request: %v", err)
		return truncate(in, topN), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.APIKey))
	}

	if m.Client == nil {
		m.Client = httpx.NewFromConfig(nil)
	}
	resp, err := m.Client.Do(httpReq)
	if err != nil {
		logger.Warnf("reranker: request failed: %v, using fused order", err)
		return truncate(in, topN), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warnf("reranker: server returned status %d, using fused order", resp.StatusCode)
		return truncate(in, topN), nil
	}

	var rr modelRerankResp
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		logger.Warnf("reranker: failed to decode response: %v, using fused order", err)
		return truncate(in, topN), nil
	}
	if len(rr.Results) == 0 {
		logger.Warnf("reranker: empty results, using fused order")
		return truncate(in, topN), nil
	}

	out := make([]schema.SearchResult, 0, len(rr.Results))
	for _, result := range rr.Results {
		if result.Index < 0 || result.Index >= len(in) {
			logger.Warnf("reranker: result index %d out of range, using fused order", result.Index)
			return truncate(in, topN), nil
		}
		cand := in[result.Index]
		cand.RerankScore = result.RelevanceScore
		cand.Score = result.RelevanceScore
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
