package assistant

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DGMadMax/mcp-rbac/config"
)

const Version = "1.0.0"

// NewServer builds the MCP server exposing the assistant's tools.
func NewServer(ctx context.Context, cfg *config.Config) (*server.MCPServer, *Client, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create assistant client failed, err: %w", err)
	}

	s := server.NewMCPServer(
		"finsolve-assistant",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Role-scoped assistant over FinSolve's internal knowledge base. Every call carries the caller's role; answers never cross department boundaries."),
	)

	// Knowledge base management
	s.AddTool(
		mcp.NewToolWithRawSchema("ingest-text", "Split input text into semantic chunks, embed them, and store them under a department", GetIngestTextSchema()),
		HandleIngestText(client),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("list-chunks", "List stored knowledge chunks, optionally limited to one department", GetListChunksSchema()),
		HandleListChunks(client),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("delete-chunk", "Remove one knowledge chunk by its unique identifier", GetDeleteChunkSchema()),
		HandleDeleteChunk(client),
	)

	// Scoped retrieval
	s.AddTool(
		mcp.NewToolWithRawSchema("search-documents", "Hybrid search across the knowledge base within the caller's access scope", GetSearchDocumentsSchema()),
		HandleSearchDocuments(client),
	)

	// Conversational entrypoint
	s.AddTool(
		mcp.NewToolWithRawSchema("chat", "Answer a question through the agent loop: intent routing, scoped retrieval and tools, synthesis with citations", GetChatSchema()),
		HandleChat(client),
	)

	return s, client, nil
}
