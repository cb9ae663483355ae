package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/llm"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// apologyReply is the fixed answer when synthesis itself fails.
const apologyReply = "I apologize, but I encountered an error generating a response."

// HistoryEntry is one prior round injected into the prompt.
type HistoryEntry struct {
	Query  string
	Answer string
}

// Synthesizer turns gathered tool context into the final answer.
type Synthesizer struct {
	Provider llm.Provider
}

const synthesizeSystemPrompt = `You are FinSolve's internal assistant. Answer the user's question using ONLY the context gathered below.
Be concise and factual. If the context does not contain the answer, say so plainly instead of guessing.
Do not mention the tools or the retrieval process.`

// Synthesize builds the final answer. It returns the answer text, the
// citations to attach, and the confidence grade.
func (s *Synthesizer) Synthesize(ctx context.Context, st *State, history []HistoryEntry) (string, []schema.Citation, string) {
	contextText := s.contextBlocks(st)

	var b strings.Builder
	b.WriteString(synthesizeSystemPrompt)
	if len(history) > 0 {
		b.WriteString("\n\nRecent conversation:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", h.Query, h.Answer)
		}
	}
	if contextText != "" {
		b.WriteString("\n\nGathered context:\n")
		b.WriteString(contextText)
	} else {
		b.WriteString("\n\nNo context could be gathered for this question.")
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nAnswer:", st.Query)

	if s.Provider == nil {
		return apologyReply, nil, ConfidenceLow
	}
	answer, err := s.Provider.GenerateCompletion(ctx, b.String())
	if err != nil {
		logger.Errorf("synthesize: llm call failed: %v", err)
		return apologyReply, nil, ConfidenceLow
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return apologyReply, nil, ConfidenceLow
	}

	confidence := ConfidenceLow
	if len(st.succeeded()) > 0 {
		confidence = ConfidenceHigh
	}
	return answer, st.citations(), confidence
}

// contextBlocks renders one labelled block per succeeded tool slot.
func (s *Synthesizer) contextBlocks(st *State) string {
	var b strings.Builder
	for _, name := range st.succeeded() {
		res := st.Outcomes[name].Result
		if strings.TrimSpace(res.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", name, res.Text)
	}
	return b.String()
}
