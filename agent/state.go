package agent

import (
	"github.com/DGMadMax/mcp-rbac/dispatch"
	"github.com/DGMadMax/mcp-rbac/intent"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// Confidence grades how much the answer should be trusted.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// State carries everything one turn accumulates across the loop.
type State struct {
	Query    string
	Scope    rbac.Context
	Subs     []string
	Decision intent.Decision
	// Outcomes holds the latest result per tool name. Re-entry rounds
	// overwrite a tool's slot rather than appending.
	Outcomes   map[string]dispatch.Outcome
	Iterations int
	// Insufficient is set by the evaluator when the gathered context
	// cannot answer the query.
	Insufficient bool
	Trail        []string
}

func newState(query string, rc rbac.Context) *State {
	return &State{
		Query:    query,
		Scope:    rc,
		Outcomes: make(map[string]dispatch.Outcome),
	}
}

func (s *State) note(msg string) {
	s.Trail = append(s.Trail, msg)
}

// succeeded returns the tool names with a usable result, in dispatch
// order for the current decision.
func (s *State) succeeded() []string {
	var names []string
	for _, name := range s.Decision.Tools {
		if o, ok := s.Outcomes[name]; ok && o.Err == nil && o.Result != nil {
			names = append(names, name)
		}
	}
	return names
}

// citations collects citations from succeeded slots only.
func (s *State) citations() []schema.Citation {
	var out []schema.Citation
	for _, name := range s.succeeded() {
		out = append(out, s.Outcomes[name].Result.Citations...)
	}
	return out
}
