package tools

import (
	"context"

	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// Tool names as dispatched by the agent.
const (
	NameDocuments  = "document-search"
	NameStructured = "structured-query"
	NameWeb        = "web-search"
	NameWeather    = "weather"
)

// Result is one tool's contribution to a turn.
type Result struct {
	Tool string `json:"tool"`
	// Text is the context block handed to synthesis.
	Text string `json:"text"`
	// Candidates holds retrieval results, where the tool produces them.
	Candidates []schema.SearchResult `json:"candidates,omitempty"`
	Citations  []schema.Citation     `json:"citations,omitempty"`
}

// Tool answers sub-queries within the caller's access scope.
type Tool interface {
	Name() string
	Call(ctx context.Context, queries []string, rc rbac.Context) (*Result, error)
}
