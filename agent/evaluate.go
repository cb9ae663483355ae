package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/llm"
)

// Verdict is the evaluator's judgement of the gathered context.
type Verdict string

const (
	VerdictSufficient   Verdict = "sufficient"
	VerdictAmbiguous    Verdict = "ambiguous"
	VerdictInsufficient Verdict = "insufficient"
)

// Evaluator scores whether the gathered context can answer the query.
// A broken evaluator must never keep the loop spinning, so every failure
// path reads as sufficient.
type Evaluator struct {
	Provider llm.Provider
	// SufficientTh and InsufficientTh bound the ambiguous middle.
	// Defaults: 0.7 and 0.3.
	SufficientTh   float64
	InsufficientTh float64
}

const evaluateSystemPrompt = `You are an expert at evaluating whether gathered context can answer a question.
Rate how well the context below answers the query on a scale from 0 to 1.
0 means the context cannot answer it at all, 1 means it answers it completely.
Provide ONLY the score as a float between 0 and 1.`

var scoreRegex = regexp.MustCompile(`(\d+(\.\d+)?)`)

// Evaluate returns the relevance score and a verdict. Only an
// insufficient verdict re-enters the loop; ambiguous context is
// answered from what is there.
func (e *Evaluator) Evaluate(ctx context.Context, query, contextText string) (float64, Verdict) {
	sufficientTh := e.SufficientTh
	if sufficientTh == 0 {
		sufficientTh = 0.7
	}
	insufficientTh := e.InsufficientTh
	if insufficientTh == 0 {
		insufficientTh = 0.3
	}

	if e.Provider == nil || contextText == "" {
		return 1, VerdictSufficient
	}

	prompt := fmt.Sprintf("%s\n\nQuery: %s\n\nContext: %s", evaluateSystemPrompt, query, contextText)
	response, err := e.Provider.GenerateCompletion(ctx, prompt)
	if err != nil {
		logger.Warnf("evaluator: llm call failed, treating context as sufficient: %v", err)
		return 1, VerdictSufficient
	}

	match := scoreRegex.FindStringSubmatch(response)
	if len(match) == 0 {
		logger.Warnf("evaluator: no score in response %q, treating context as sufficient", response)
		return 1, VerdictSufficient
	}
	score, perr := strconv.ParseFloat(match[1], 64)
	if perr != nil || score < 0 || score > 1 {
		logger.Warnf("evaluator: score %q out of range, treating context as sufficient", match[1])
		return 1, VerdictSufficient
	}

	logger.Debugf("evaluator: score=%.2f", score)
	switch {
	case score >= sufficientTh:
		return score, VerdictSufficient
	case score < insufficientTh:
		return score, VerdictInsufficient
	default:
		return score, VerdictAmbiguous
	}
}
