package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DGMadMax/mcp-rbac/agent"
	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/config"
	"github.com/DGMadMax/mcp-rbac/dispatch"
	"github.com/DGMadMax/mcp-rbac/embedding"
	"github.com/DGMadMax/mcp-rbac/intent"
	"github.com/DGMadMax/mcp-rbac/llm"
	"github.com/DGMadMax/mcp-rbac/pipeline"
	"github.com/DGMadMax/mcp-rbac/post"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/retriever"
	"github.com/DGMadMax/mcp-rbac/rewrite"
	"github.com/DGMadMax/mcp-rbac/schema"
	"github.com/DGMadMax/mcp-rbac/textsplitter"
	"github.com/DGMadMax/mcp-rbac/tools"
	"github.com/DGMadMax/mcp-rbac/vectordb"
)

const maxListDocumentRowCount = 1000

// Client wires the full assistant: ingestion, hybrid retrieval, the
// tool set, and the agent loop.
type Client struct {
	config            *config.Config
	vectordbProvider  vectordb.VectorStoreProvider
	embeddingProvider embedding.Provider
	textSplitter      textsplitter.TextSplitter
	llmProvider       llm.Provider
	sessions          SessionStore
	agent             *agent.Agent

	// pipeline is rebuilt after every ingest so the keyword index sees
	// new chunks. Guarded by mu.
	mu       sync.RWMutex
	pipeline *pipeline.Pipeline
	docsTool *tools.DocumentsTool
}

// NewClient builds the assistant from configuration.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	c := &Client{config: cfg}

	splitter, err := textsplitter.NewTextSplitter(&cfg.Retrieval.Splitter)
	if err != nil {
		return nil, fmt.Errorf("create text splitter failed, err: %w", err)
	}
	c.textSplitter = splitter

	embeddingProvider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider failed, err: %w", err)
	}
	c.embeddingProvider = embeddingProvider

	if cfg.LLM.Provider != "" {
		llmProvider, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider failed, err: %w", err)
		}
		c.llmProvider = llmProvider
	}

	store, err := vectordb.NewProvider(ctx, &cfg.VectorDB, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("create vector store provider failed, err: %w", err)
	}
	c.vectordbProvider = store

	c.sessions = NewSessionStore(cfg.Session)

	if err := c.rebuildPipeline(ctx); err != nil {
		return nil, err
	}

	structured, err := tools.NewStructuredTool(cfg.Tools.Structured.DSN, c.llmProvider)
	if err != nil {
		return nil, fmt.Errorf("create structured tool failed, err: %w", err)
	}
	web := &tools.WebTool{
		Provider: cfg.Tools.Web.Provider,
		Endpoint: cfg.Tools.Web.Endpoint,
		APIKey:   cfg.Tools.Web.APIKey,
		TopK:     cfg.Tools.Web.TopK,
	}
	weather := &tools.WeatherTool{
		GeocodeEndpoint:  cfg.Tools.Weather.GeocodeEndpoint,
		ForecastEndpoint: cfg.Tools.Weather.ForecastEndpoint,
	}

	toolTimeout := time.Duration(cfg.Agent.ToolTimeoutMs) * time.Millisecond
	c.agent = &agent.Agent{
		Classifier: &intent.Classifier{Provider: c.llmProvider},
		Rewriter:   &rewrite.Rewriter{Provider: c.llmProvider},
		Dispatcher: dispatch.New(toolTimeout, c.docsTool, structured, web, weather),
		Evaluator: &agent.Evaluator{
			Provider:       c.llmProvider,
			SufficientTh:   cfg.Agent.SufficientTh,
			InsufficientTh: cfg.Agent.InsufficientTh,
		},
		Synthesizer:   &agent.Synthesizer{Provider: c.llmProvider},
		MaxIterations: cfg.Agent.MaxIterations,
	}
	return c, nil
}

// rebuildPipeline reloads the corpus into the keyword index and swaps
// in a fresh retrieval pipeline.
func (c *Client) rebuildPipeline(ctx context.Context) error {
	docs, err := c.vectordbProvider.ListDocs(ctx, "")
	if err != nil {
		return fmt.Errorf("load corpus for keyword index failed, err: %w", err)
	}

	vectorRet := &retriever.VectorRetriever{
		Embed:     c.embeddingProvider,
		Store:     c.vectordbProvider,
		TopK:      c.config.Retrieval.VectorTopK,
		Threshold: c.config.Retrieval.Threshold,
	}
	keywordRet := retriever.NewBM25Retriever(docs)

	var reranker post.Reranker
	if rr := c.config.Retrieval.Rerank; rr.Enable {
		reranker = &post.ModelReranker{Endpoint: rr.Endpoint, Model: rr.Model, APIKey: rr.APIKey}
	}
	p := pipeline.New(vectorRet, keywordRet, reranker, c.config.Retrieval)

	c.mu.Lock()
	c.pipeline = p
	if c.docsTool == nil {
		c.docsTool = tools.NewDocumentsTool(p)
	} else {
		c.docsTool.SetPipeline(p)
	}
	c.mu.Unlock()
	return nil
}

// IngestText splits, embeds, and stores a document under a department.
func (c *Client) IngestText(ctx context.Context, text, department, source string) ([]schema.Document, error) {
	department = strings.ToLower(strings.TrimSpace(department))
	if department == "" {
		return nil, fmt.Errorf("department is required")
	}
	chunks, err := c.textSplitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text failed, err: %w", err)
	}

	docs := make([]schema.Document, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := c.embeddingProvider.GetEmbedding(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("create embedding failed, err: %w", err)
		}
		docs = append(docs, schema.Document{
			ID:         uuid.New().String(),
			Content:    chunk,
			Department: department,
			Source:     source,
			Metadata:   map[string]any{"chunk_index": i, "chunk_size": len(chunk)},
			Vector:     vec,
			CreatedAt:  time.Now(),
		})
	}
	if err := c.vectordbProvider.AddDocs(ctx, docs); err != nil {
		return nil, fmt.Errorf("add documents failed, err: %w", err)
	}
	if err := c.rebuildPipeline(ctx); err != nil {
		logger.Warnf("client: keyword index rebuild failed: %v", err)
	}
	return docs, nil
}

// SearchDocuments runs the hybrid retrieval pipeline only, scoped to
// the caller's access.
func (c *Client) SearchDocuments(ctx context.Context, query string, rc rbac.Context, topK int) ([]schema.SearchResult, error) {
	c.mu.RLock()
	p := c.pipeline
	c.mu.RUnlock()
	res, err := p.Retrieve(ctx, query, rc, topK)
	if err != nil {
		return nil, err
	}
	return res.Candidates, nil
}

// ListChunks returns stored chunks, optionally limited to a department.
func (c *Client) ListChunks(ctx context.Context, department string) ([]schema.Document, error) {
	docs, err := c.vectordbProvider.ListDocs(ctx, strings.ToLower(strings.TrimSpace(department)))
	if err != nil {
		return nil, fmt.Errorf("list chunks failed, err: %w", err)
	}
	if len(docs) > maxListDocumentRowCount {
		docs = docs[:maxListDocumentRowCount]
	}
	return docs, nil
}

// DeleteChunk removes one stored chunk by id.
func (c *Client) DeleteChunk(ctx context.Context, id string) error {
	if err := c.vectordbProvider.DeleteDocs(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete chunk failed, err: %w", err)
	}
	if err := c.rebuildPipeline(ctx); err != nil {
		logger.Warnf("client: keyword index rebuild failed: %v", err)
	}
	return nil
}

// Chat answers one user turn through the agent loop. A missing or
// unknown session id starts a new session.
func (c *Client) Chat(ctx context.Context, query, role, department, sessionID string) (*agent.TurnResult, string, error) {
	rc := rbac.NewContext(role, department)

	sess, ok := c.sessions.Get(sessionID)
	if !ok {
		sess = c.sessions.Create(role)
	}

	historyRounds := c.config.Agent.HistoryRounds
	var history []agent.HistoryEntry
	for _, ex := range sess.History(historyRounds) {
		history = append(history, agent.HistoryEntry{Query: ex.Query, Answer: ex.Answer})
	}

	res := c.agent.RunTurn(ctx, query, rc, history)

	c.sessions.AddExchange(sess.ID, Exchange{
		Query:     query,
		Answer:    res.Answer,
		Tools:     res.Tools,
		Timestamp: time.Now(),
	})
	return res, sess.ID, nil
}

// Close releases backing resources.
func (c *Client) Close() error {
	return c.vectordbProvider.Close()
}
