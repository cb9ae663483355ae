package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/llm"
)

const rewriteSystemPrompt = `You are an expert at preparing user questions for retrieval.
Clean up the query: expand abbreviations, fix typos, and make it self-contained.
If the query asks several distinct things, split it into separate sub-queries (at most 3).

Respond with ONLY a JSON object:
{"is_multi_part": false, "sub_queries": ["..."]}

"sub_queries" holds the rewritten query, or each part of a multi-part query.`

// MaxSubQueries caps decomposition so a runaway model cannot fan a turn
// out into arbitrarily many retrieval calls.
const MaxSubQueries = 3

// Rewriter cleans queries and splits multi-part questions.
type Rewriter struct {
	Provider llm.Provider
}

// Rewrite returns at least one query. On any failure the original query
// comes back verbatim as the single element.
func (r *Rewriter) Rewrite(ctx context.Context, query string) []string {
	fallback := []string{query}
	if r.Provider == nil {
		return fallback
	}

	prompt := fmt.Sprintf("%s\n\nUser query: %s", rewriteSystemPrompt, query)
	response, err := r.Provider.GenerateCompletion(ctx, prompt)
	if err != nil {
		logger.Warnf("rewriter: llm call failed: %v, using original query", err)
		return fallback
	}

	var raw struct {
		IsMultiPart bool     `json:"is_multi_part"`
		SubQueries  []string `json:"sub_queries"`
	}
	if err := llm.ExtractJSON(response, &raw); err != nil {
		logger.Warnf("rewriter: unparseable response %q: %v, using original query", response, err)
		return fallback
	}

	subs := make([]string, 0, len(raw.SubQueries))
	for _, s := range raw.SubQueries {
		s = strings.TrimSpace(s)
		if s != "" {
			subs = append(subs, s)
		}
		if len(subs) == MaxSubQueries {
			break
		}
	}
	if len(subs) == 0 {
		return fallback
	}
	logger.Debugf("rewriter: %q -> %v", query, subs)
	return subs
}
