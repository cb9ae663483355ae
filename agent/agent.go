package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/dispatch"
	"github.com/DGMadMax/mcp-rbac/intent"
	"github.com/DGMadMax/mcp-rbac/metrics"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/rewrite"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// DefaultMaxIterations caps the classify→dispatch loop per turn.
const DefaultMaxIterations = 5

const greetingReply = "Hello! I'm the FinSolve assistant. Ask me about company documents, employee records, the web, or the weather."

// exhaustedReply terminates a turn that hit the iteration cap without the
// evaluator ever judging the gathered context sufficient.
const exhaustedReply = "I could not determine an answer to your question. Please try rephrasing it."

// TurnResult is what one user turn produces.
type TurnResult struct {
	Answer     string            `json:"answer"`
	Citations  []schema.Citation `json:"citations,omitempty"`
	Confidence string            `json:"confidence"`
	Intent     intent.Intent     `json:"intent"`
	Tools      []string          `json:"tools,omitempty"`
	Iterations int               `json:"iterations"`
	Trail      []string          `json:"status_trail,omitempty"`
}

// Agent drives the turn loop: classify, rewrite, dispatch, synthesize,
// with a bounded back-edge when the gathered context falls short.
type Agent struct {
	Classifier    *intent.Classifier
	Rewriter      *rewrite.Rewriter
	Dispatcher    *dispatch.Dispatcher
	Evaluator     *Evaluator
	Synthesizer   *Synthesizer
	MaxIterations int
}

// RunTurn answers one user query within the caller's access scope.
// history holds prior rounds of the same session, oldest first.
func (a *Agent) RunTurn(ctx context.Context, query string, rc rbac.Context, history []HistoryEntry) *TurnResult {
	max := a.MaxIterations
	if max <= 0 {
		max = DefaultMaxIterations
	}
	st := newState(query, rc)
	res := &TurnResult{Confidence: ConfidenceLow}

	for phase := PhaseClassify; phase != PhaseDone; {
		start := time.Now()
		switch phase {
		case PhaseClassify:
			st.Iterations++
			st.Insufficient = false
			st.Decision = a.Classifier.Classify(ctx, query)
			st.note(fmt.Sprintf("round %d: classified as %s", st.Iterations, st.Decision.Intent))
			if st.Decision.Intent.ShortCircuits() {
				res.Answer = st.Decision.Reply
				if res.Answer == "" {
					res.Answer = greetingReply
				}
				res.Confidence = ConfidenceHigh
				st.note("answered directly")
			}

		case PhaseRewrite:
			st.Subs = a.Rewriter.Rewrite(ctx, query)
			if len(st.Subs) > 1 {
				st.note(fmt.Sprintf("split into %d sub-queries", len(st.Subs)))
			}

		case PhaseDispatch:
			outcomes := a.Dispatcher.Dispatch(ctx, st.Decision.Tools, st.Subs, rc)
			for _, o := range outcomes {
				st.Outcomes[o.Tool] = o
				if o.Err != nil {
					st.note(fmt.Sprintf("tool %s failed: %v", o.Tool, o.Err))
				} else {
					st.note(fmt.Sprintf("tool %s completed", o.Tool))
				}
			}

		case PhaseSynthesize:
			gathered := a.Synthesizer.contextBlocks(st)
			score, verdict := a.Evaluator.Evaluate(ctx, query, gathered)
			if verdict == VerdictInsufficient {
				if st.Iterations < max {
					st.Insufficient = true
					st.note(fmt.Sprintf("context insufficient (%.2f), refining", score))
					break
				}
				st.Decision.Intent = intent.MaxReached
				res.Answer = exhaustedReply
				res.Citations = nil
				res.Confidence = ConfidenceLow
				st.note("iteration cap reached, could not determine an answer")
				break
			}
			res.Answer, res.Citations, res.Confidence = a.Synthesizer.Synthesize(ctx, st, history)
			st.note("synthesized answer")
		}
		metrics.ObserveStage(phase.String(), start)
		phase = Next(phase, st, max)
	}

	metrics.ObserveIterations(st.Iterations)
	logger.Infof("agent: turn done intent=%s iterations=%d confidence=%s", st.Decision.Intent, st.Iterations, res.Confidence)

	res.Intent = st.Decision.Intent
	res.Tools = st.succeeded()
	res.Iterations = st.Iterations
	res.Trail = st.Trail
	return res
}
