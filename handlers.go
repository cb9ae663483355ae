package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DGMadMax/mcp-rbac/rbac"
)

func GetChatSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The user's question"},
			"role": {"type": "string", "description": "Caller role, e.g. Engineering, Finance, Marketing, HR, C-Level, Employee"},
			"department": {"type": "string", "description": "Caller's claimed home department (optional)"},
			"session_id": {"type": "string", "description": "Session to continue; omitted or unknown starts a new one"}
		},
		"required": ["query", "role"]
	}`)
}

func GetIngestTextSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {"type": "string", "description": "Raw text to chunk and index"},
			"department": {"type": "string", "description": "Department that owns the document"},
			"source": {"type": "string", "description": "Source label for citations (optional)"}
		},
		"required": ["text", "department"]
	}`)
}

func GetSearchDocumentsSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Search query"},
			"role": {"type": "string", "description": "Caller role; bounds which departments are searched"},
			"department": {"type": "string", "description": "Caller's claimed home department (optional)"},
			"top_k": {"type": "integer", "description": "Number of results to return (optional)"}
		},
		"required": ["query", "role"]
	}`)
}

func GetListChunksSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"department": {"type": "string", "description": "Limit to one department (optional)"}
		}
	}`)
}

func GetDeleteChunkSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "Chunk identifier"}
		},
		"required": ["id"]
	}`)
}

func HandleChat(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		role, err := request.RequireString("role")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		department := request.GetString("department", "")
		sessionID := request.GetString("session_id", "")

		res, sid, err := c.Chat(ctx, query, role, department, sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
		}
		payload := map[string]any{
			"answer":       res.Answer,
			"citations":    res.Citations,
			"confidence":   res.Confidence,
			"intent":       res.Intent,
			"iterations":   res.Iterations,
			"status_trail": res.Trail,
			"session_id":   sid,
		}
		return jsonResult(payload)
	}
}

func HandleIngestText(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		department, err := request.RequireString("department")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		source := request.GetString("source", "")

		docs, err := c.IngestText(ctx, text, department, source)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
		}
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		return jsonResult(map[string]any{"chunks": len(docs), "ids": ids, "department": department})
	}
}

func HandleSearchDocuments(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		role, err := request.RequireString("role")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		department := request.GetString("department", "")
		topK := request.GetInt("top_k", 0)

		rc := rbac.NewContext(role, department)
		results, err := c.SearchDocuments(ctx, query, rc, topK)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		type hit struct {
			ID         string  `json:"id"`
			Content    string  `json:"content"`
			Department string  `json:"department"`
			Source     string  `json:"source,omitempty"`
			Score      float64 `json:"score"`
		}
		hits := make([]hit, 0, len(results))
		for _, r := range results {
			hits = append(hits, hit{
				ID:         r.Document.ID,
				Content:    r.Document.Content,
				Department: r.Document.Department,
				Source:     r.Document.Source,
				Score:      r.Score,
			})
		}
		return jsonResult(map[string]any{"results": hits})
	}
}

func HandleListChunks(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		department := request.GetString("department", "")
		docs, err := c.ListChunks(ctx, department)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		type chunk struct {
			ID         string `json:"id"`
			Department string `json:"department"`
			Source     string `json:"source,omitempty"`
			Size       int    `json:"size"`
		}
		chunks := make([]chunk, 0, len(docs))
		for _, d := range docs {
			chunks = append(chunks, chunk{ID: d.ID, Department: d.Department, Source: d.Source, Size: len(d.Content)})
		}
		return jsonResult(map[string]any{"chunks": chunks})
	}
}

func HandleDeleteChunk(c *Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := c.DeleteChunk(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return jsonResult(map[string]any{"deleted": id})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
