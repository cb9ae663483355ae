package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DGMadMax/mcp-rbac/cache"
	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/config"
	"github.com/DGMadMax/mcp-rbac/fusion"
	"github.com/DGMadMax/mcp-rbac/metrics"
	"github.com/DGMadMax/mcp-rbac/post"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/retriever"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// StageTiming records elapsed time and candidate count for one stage.
type StageTiming struct {
	Stage      string        `json:"stage"`
	Elapsed    time.Duration `json:"elapsed"`
	Candidates int           `json:"candidates"`
}

// Diagnostics carries per-stage observations through a Retrieve call.
type Diagnostics struct {
	Timings []StageTiming `json:"timings"`
	Cached  bool          `json:"cached"`
	// FinalDrops counts candidates removed by the last access check.
	// Anything above zero means an upstream filter failed.
	FinalDrops int `json:"final_drops,omitempty"`
}

func (d *Diagnostics) record(stage string, start time.Time, candidates int) {
	d.Timings = append(d.Timings, StageTiming{Stage: stage, Elapsed: time.Since(start), Candidates: candidates})
}

// Result is the output of one hybrid retrieval run.
type Result struct {
	Candidates  []schema.SearchResult
	Diagnostics Diagnostics
}

// Pipeline runs hybrid retrieval: both legs concurrently, RRF fusion,
// reranking with fused-order fallback, and a final access check.
type Pipeline struct {
	Vector   retriever.Retriever
	Keyword  retriever.Retriever
	Reranker post.Reranker
	Cfg      config.RetrievalConfig

	cache *cache.LRU[*Result]
}

// New wires a pipeline from its stages. A nil reranker disables reranking
// but keeps truncation.
func New(vector, keyword retriever.Retriever, reranker post.Reranker, cfg config.RetrievalConfig) *Pipeline {
	if reranker == nil {
		reranker = post.NopReranker{}
	}
	p := &Pipeline{Vector: vector, Keyword: keyword, Reranker: reranker, Cfg: cfg}
	if cfg.Cache.Enable {
		p.cache = cache.NewLRU[*Result](cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}
	return p
}

func cacheKey(query string, rc rbac.Context, k int) string {
	scope := "*"
	if !rc.FullAccess {
		scope = strings.Join(rc.Departments(), ",")
	}
	return fmt.Sprintf("%s|%s|%d", scope, query, k)
}

// Retrieve runs the full pipeline for one query under the caller's access
// scope. finalK <= 0 uses the configured final top-k.
func (p *Pipeline) Retrieve(ctx context.Context, query string, rc rbac.Context, finalK int) (*Result, error) {
	if finalK <= 0 {
		finalK = p.Cfg.FinalTopK
	}
	key := cacheKey(query, rc, finalK)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			// cache entries are shared across hits; hand out a copy
			out := *cached
			out.Candidates = append([]schema.SearchResult(nil), cached.Candidates...)
			out.Diagnostics.Cached = true
			return &out, nil
		}
	}

	res := &Result{}
	allowed := rc.Departments()

	// both legs fan out concurrently; a failed leg contributes an empty list
	searchStart := time.Now()
	legs := []retriever.Retriever{p.Vector, p.Keyword}
	topKs := []int{p.Cfg.VectorTopK, p.Cfg.BM25TopK}
	lists := make([][]schema.SearchResult, len(legs))
	var wg sync.WaitGroup
	for i, r := range legs {
		if r == nil {
			continue
		}
		wg.Add(1)
		go func(i int, r retriever.Retriever, topK int) {
			defer wg.Done()
			start := time.Now()
			results, err := r.Search(ctx, query, topK, allowed)
			if err != nil {
				logger.Warnf("pipeline: %s search failed: %v", r.Type(), err)
				results = nil
			}
			metrics.ObserveRetriever(r.Type(), start, len(results))
			lists[i] = results
		}(i, r, topKs[i])
	}
	wg.Wait()
	res.Diagnostics.record("search", searchStart, len(lists[0])+len(lists[1]))

	fuseStart := time.Now()
	fused := fusion.RRFScore(lists, p.Cfg.RRFK)
	if w := p.Cfg.FusionWindow; w > 0 && len(fused) > w {
		fused = fused[:w]
	}
	res.Diagnostics.record("fuse", fuseStart, len(fused))
	metrics.ObserveStage("fuse", fuseStart)

	rerankStart := time.Now()
	reranked, err := p.Reranker.Rerank(ctx, query, fused, finalK)
	if err != nil {
		// rerankers absorb their own failures; an error here still keeps fused order
		logger.Warnf("pipeline: rerank failed: %v, using fused order", err)
		metrics.IncRerankFallback()
		if len(fused) > finalK {
			reranked = fused[:finalK]
		} else {
			reranked = fused
		}
	}
	res.Diagnostics.record("rerank", rerankStart, len(reranked))
	metrics.ObserveStage("rerank", rerankStart)

	// final access check. Everything upstream already filtered, so any drop
	// here is a bug worth shouting about, but the response stays safe.
	finalStart := time.Now()
	final := rc.Filter(reranked)
	if dropped := len(reranked) - len(final); dropped > 0 {
		logger.Errorf("pipeline: final access check dropped %d candidates for role %s", dropped, rc.Role)
		metrics.IncAccessDrop("final", dropped)
		res.Diagnostics.FinalDrops = dropped
	}
	res.Diagnostics.record("filter", finalStart, len(final))
	res.Candidates = final

	if p.cache != nil {
		stored := *res
		stored.Candidates = append([]schema.SearchResult(nil), res.Candidates...)
		p.cache.Set(key, &stored, 0)
	}
	return res, nil
}
