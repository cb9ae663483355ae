package fusion

import (
	"reflect"
	"testing"

	"github.com/DGMadMax/mcp-rbac/schema"
)

func doc(id, content string) schema.Document {
	return schema.Document{ID: id, Content: content, Department: "general"}
}

func TestRRFConsensusOutranksSingleList(t *testing.T) {
	vector := []schema.SearchResult{
		{Document: doc("v1", "shared chunk"), VectorScore: 0.9},
		{Document: doc("v2", "vector only"), VectorScore: 0.8},
	}
	bm25 := []schema.SearchResult{
		{Document: doc("b1", "shared chunk"), BM25Score: 7.1},
		{Document: doc("b2", "keyword only"), BM25Score: 6.0},
	}
	fused := RRFScore([][]schema.SearchResult{vector, bm25}, 60)
	if len(fused) != 3 {
		t.Fatalf("got %d fused results, want 3 (shared chunk deduped)", len(fused))
	}
	if fused[0].Document.Content != "shared chunk" {
		t.Fatalf("consensus doc must rank first, got %q", fused[0].Document.Content)
	}
	if fused[0].VectorScore == 0 || fused[0].BM25Score == 0 {
		t.Fatalf("merged candidate must carry both leg scores: %+v", fused[0])
	}
	want := 2.0 / 61.0
	if diff := fused[0].RRFScore - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("RRFScore = %v, want %v", fused[0].RRFScore, want)
	}
}

func TestRRFDedupByContentNotID(t *testing.T) {
	// same content under different backend IDs must collapse
	lists := [][]schema.SearchResult{
		{{Document: doc("a", "identical text")}},
		{{Document: doc("b", "identical text")}},
	}
	fused := RRFScore(lists, 60)
	if len(fused) != 1 {
		t.Fatalf("got %d results, want 1", len(fused))
	}

	// distinct content sharing a long prefix must NOT collapse
	prefix := make([]byte, 200)
	for i := range prefix {
		prefix[i] = 'x'
	}
	lists = [][]schema.SearchResult{
		{{Document: doc("a", string(prefix)+" tail one")}},
		{{Document: doc("b", string(prefix)+" tail two")}},
	}
	fused = RRFScore(lists, 60)
	if len(fused) != 2 {
		t.Fatalf("prefix-aliased chunks collapsed: got %d results, want 2", len(fused))
	}
}

func TestRRFDeterministic(t *testing.T) {
	vector := []schema.SearchResult{
		{Document: doc("v1", "alpha")},
		{Document: doc("v2", "beta")},
		{Document: doc("v3", "gamma")},
	}
	bm25 := []schema.SearchResult{
		{Document: doc("b1", "delta")},
		{Document: doc("b2", "epsilon")},
		{Document: doc("b3", "zeta")},
	}
	first := RRFScore([][]schema.SearchResult{vector, bm25}, 60)
	for i := 0; i < 50; i++ {
		got := RRFScore([][]schema.SearchResult{vector, bm25}, 60)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced a different order", i)
		}
	}
	// all six are tied pairwise at equal ranks; ties keep first-seen order
	wantOrder := []string{"alpha", "delta", "beta", "epsilon", "gamma", "zeta"}
	for i, w := range wantOrder {
		if first[i].Document.Content != w {
			t.Fatalf("position %d = %q, want %q", i, first[i].Document.Content, w)
		}
	}
}

func TestRRFDefaultK(t *testing.T) {
	lists := [][]schema.SearchResult{{{Document: doc("a", "only")}}}
	fused := RRFScore(lists, 0)
	want := 1.0 / 61.0
	if fused[0].Score != want {
		t.Fatalf("score with default k = %v, want %v", fused[0].Score, want)
	}
}
