package rewrite

import (
	"context"
	"errors"
	"testing"
)

type mockLLM struct {
	response string
	err      error
}

func (m *mockLLM) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return m.response, m.err
}
func (m *mockLLM) GetProviderType() string { return "mock" }

func TestRewriteSplitsMultiPart(t *testing.T) {
	r := &Rewriter{Provider: &mockLLM{response: `{"is_multi_part":true,"sub_queries":["what is the leave policy","who approves leave requests"]}`}}
	subs := r.Rewrite(context.Background(), "leave policy and who approves it?")
	if len(subs) != 2 || subs[0] != "what is the leave policy" {
		t.Fatalf("subs = %v", subs)
	}
}

func TestRewriteCapsSubQueries(t *testing.T) {
	r := &Rewriter{Provider: &mockLLM{response: `{"is_multi_part":true,"sub_queries":["a","b","c","d","e"]}`}}
	subs := r.Rewrite(context.Background(), "many things")
	if len(subs) != MaxSubQueries {
		t.Fatalf("got %d sub-queries, want %d", len(subs), MaxSubQueries)
	}
}

func TestRewriteFallsBackVerbatim(t *testing.T) {
	query := "original question"
	cases := []struct {
		name string
		mock *mockLLM
	}{
		{"llm error", &mockLLM{err: errors.New("timeout")}},
		{"garbage response", &mockLLM{response: "sure, here you go"}},
		{"empty sub queries", &mockLLM{response: `{"is_multi_part":false,"sub_queries":["  "]}`}},
		{"no provider", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &Rewriter{}
			if tc.mock != nil {
				r.Provider = tc.mock
			}
			subs := r.Rewrite(context.Background(), query)
			if len(subs) != 1 || subs[0] != query {
				t.Fatalf("fallback must return the query verbatim, got %v", subs)
			}
		})
	}
}
