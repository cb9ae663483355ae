package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/DGMadMax/mcp-rbac/config"
	"github.com/DGMadMax/mcp-rbac/post"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/schema"
)

type stubRetriever struct {
	typ     string
	results []schema.SearchResult
	// honorFilter drops out-of-scope docs like a well-behaved backend
	honorFilter bool
	calls       int
}

func (s *stubRetriever) Type() string { return s.typ }

func (s *stubRetriever) Search(ctx context.Context, query string, topK int, allowed []string) ([]schema.SearchResult, error) {
	s.calls++
	if !s.honorFilter || allowed == nil {
		return s.results, nil
	}
	set := map[string]struct{}{}
	for _, d := range allowed {
		set[d] = struct{}{}
	}
	var out []schema.SearchResult
	for _, r := range s.results {
		if _, ok := set[r.Document.Department]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func sr(id, content, dept string) schema.SearchResult {
	return schema.SearchResult{Document: schema.Document{ID: id, Content: content, Department: dept}}
}

func testCfg() config.RetrievalConfig {
	return config.RetrievalConfig{VectorTopK: 20, BM25TopK: 20, RRFK: 60, FusionWindow: 20, FinalTopK: 3}
}

// recordingReranker captures how many candidates it was handed.
type recordingReranker struct {
	sawCandidates int
}

func (r *recordingReranker) Rerank(ctx context.Context, query string, cands []schema.SearchResult, topN int) ([]schema.SearchResult, error) {
	r.sawCandidates = len(cands)
	if len(cands) > topN {
		cands = cands[:topN]
	}
	return cands, nil
}

func TestRetrieveHybridFlow(t *testing.T) {
	vector := &stubRetriever{typ: "vector", honorFilter: true, results: []schema.SearchResult{
		sr("v1", "expense policy", "finance"),
		sr("v2", "travel guideline", "general"),
	}}
	keyword := &stubRetriever{typ: "bm25", honorFilter: true, results: []schema.SearchResult{
		sr("b1", "expense policy", "finance"),
		sr("b2", "reimbursement form", "finance"),
	}}
	p := New(vector, keyword, nil, testCfg())

	rc := rbac.NewContext("Finance", "finance")
	res, err := p.Retrieve(context.Background(), "expense policy", rc, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(res.Candidates))
	}
	if res.Candidates[0].Document.Content != "expense policy" {
		t.Fatalf("consensus doc must rank first, got %q", res.Candidates[0].Document.Content)
	}
	if len(res.Diagnostics.Timings) != 4 {
		t.Fatalf("expected 4 stage timings, got %v", res.Diagnostics.Timings)
	}
}

func TestRetrieveFinalCheckCatchesLeak(t *testing.T) {
	// a buggy backend that ignores the allowed filter entirely
	vector := &stubRetriever{typ: "vector", results: []schema.SearchResult{
		sr("v1", "hr salary table", "hr"),
		sr("v2", "holiday calendar", "general"),
	}}
	keyword := &stubRetriever{typ: "bm25", results: []schema.SearchResult{
		sr("b1", "engineering oncall", "engineering"),
	}}
	p := New(vector, keyword, nil, testCfg())

	rc := rbac.NewContext("Marketing", "marketing")
	res, err := p.Retrieve(context.Background(), "salary", rc, 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range res.Candidates {
		if !rc.Allows(c.Document.Department) {
			t.Fatalf("out-of-scope candidate survived the final check: %+v", c)
		}
	}
	if res.Diagnostics.FinalDrops != 2 {
		t.Fatalf("FinalDrops = %d, want 2", res.Diagnostics.FinalDrops)
	}
}

func TestRetrieveFullAccessSeesEverything(t *testing.T) {
	vector := &stubRetriever{typ: "vector", honorFilter: true, results: []schema.SearchResult{
		sr("v1", "hr salary table", "hr"),
		sr("v2", "engineering oncall", "engineering"),
		sr("v3", "campaign budget", "marketing"),
	}}
	p := New(vector, &stubRetriever{typ: "bm25", honorFilter: true}, nil, testCfg())

	res, err := p.Retrieve(context.Background(), "q", rbac.NewContext("C-Level", ""), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("full access got %d candidates, want 3", len(res.Candidates))
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	vector := &stubRetriever{typ: "vector", results: []schema.SearchResult{
		sr("v1", "alpha", "general"), sr("v2", "beta", "general"),
	}}
	keyword := &stubRetriever{typ: "bm25", results: []schema.SearchResult{
		sr("b1", "gamma", "general"), sr("b2", "delta", "general"),
	}}
	p := New(vector, keyword, nil, testCfg())
	rc := rbac.NewContext("Employee", "")

	first, err := p.Retrieve(context.Background(), "q", rc, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		got, err := p.Retrieve(context.Background(), "q", rc, 4)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got.Candidates, first.Candidates) {
			t.Fatalf("run %d produced a different order", i)
		}
	}
}

func TestRetrieveCache(t *testing.T) {
	vector := &stubRetriever{typ: "vector", results: []schema.SearchResult{sr("v1", "alpha", "general")}}
	cfg := testCfg()
	cfg.Cache = config.CacheConfig{Enable: true, MaxEntries: 8, TTLSeconds: 60}
	p := New(vector, &stubRetriever{typ: "bm25"}, nil, cfg)

	employee := rbac.NewContext("Employee", "")
	if _, err := p.Retrieve(context.Background(), "q", employee, 3); err != nil {
		t.Fatal(err)
	}
	res, err := p.Retrieve(context.Background(), "q", employee, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Diagnostics.Cached {
		t.Fatal("second identical call should hit the cache")
	}
	if vector.calls != 1 {
		t.Fatalf("vector retriever called %d times, want 1 (second call cached)", vector.calls)
	}

	// a different scope must not share cache entries
	res, err = p.Retrieve(context.Background(), "q", rbac.NewContext("C-Level", ""), 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Diagnostics.Cached {
		t.Fatal("different access scope must miss the cache")
	}
}

func TestRetrieveBoundsRerankerToFusionWindow(t *testing.T) {
	var vecResults, kwResults []schema.SearchResult
	for i := 0; i < 15; i++ {
		vecResults = append(vecResults, sr(fmt.Sprintf("v%d", i), fmt.Sprintf("vector doc %d", i), "general"))
		kwResults = append(kwResults, sr(fmt.Sprintf("b%d", i), fmt.Sprintf("keyword doc %d", i), "general"))
	}
	cfg := testCfg()
	cfg.FusionWindow = 5
	rr := &recordingReranker{}
	p := New(&stubRetriever{typ: "vector", results: vecResults}, &stubRetriever{typ: "bm25", results: kwResults}, rr, cfg)

	res, err := p.Retrieve(context.Background(), "doc", rbac.NewContext("Employee", ""), 3)
	if err != nil {
		t.Fatal(err)
	}
	if rr.sawCandidates != 5 {
		t.Fatalf("reranker saw %d candidates, want the fusion window of 5", rr.sawCandidates)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("got %d final candidates, want 3", len(res.Candidates))
	}
}

func TestRetrieveCacheHitIsIsolated(t *testing.T) {
	vector := &stubRetriever{typ: "vector", results: []schema.SearchResult{
		sr("v1", "alpha", "general"), sr("v2", "beta", "general"),
	}}
	cfg := testCfg()
	cfg.Cache = config.CacheConfig{Enable: true, MaxEntries: 8, TTLSeconds: 60}
	p := New(vector, &stubRetriever{typ: "bm25"}, nil, cfg)
	rc := rbac.NewContext("Employee", "")

	first, err := p.Retrieve(context.Background(), "q", rc, 3)
	if err != nil {
		t.Fatal(err)
	}
	// mutating one caller's result must not leak into later cache hits
	hit, err := p.Retrieve(context.Background(), "q", rc, 3)
	if err != nil {
		t.Fatal(err)
	}
	hit.Candidates[0].Document.Content = "tampered"
	hit.Candidates = hit.Candidates[:1]

	again, err := p.Retrieve(context.Background(), "q", rc, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Diagnostics.Cached {
		t.Fatal("third identical call should hit the cache")
	}
	if !reflect.DeepEqual(again.Candidates, first.Candidates) {
		t.Fatalf("cache hit reflects a caller's mutation: %+v", again.Candidates)
	}
}

func TestRetrieveUsesNopRerankerTruncation(t *testing.T) {
	var results []schema.SearchResult
	for _, c := range []string{"one", "two", "three", "four", "five"} {
		results = append(results, sr(c, c, "general"))
	}
	p := New(&stubRetriever{typ: "vector", results: results}, &stubRetriever{typ: "bm25"}, post.NopReranker{}, testCfg())
	res, err := p.Retrieve(context.Background(), "q", rbac.NewContext("Employee", ""), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("default final top-k should cap at 3, got %d", len(res.Candidates))
	}
}
