package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
embedding:
  provider: openai
  api_key: sk-test
  model: text-embedding-3-small
  dimension: 1536
llm:
  provider: openai
  api_key: sk-test
  model: gpt-4o
vectordb:
  provider: milvus
  host: localhost
  port: 19530
  collection: finsolve_docs
retrieval:
  vector_top_k: 10
  rerank:
    enable: true
    endpoint: http://localhost:8082/rerank
session:
  store: redis
  redis:
    address: localhost:6379
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "milvus", cfg.VectorDB.Provider)
	assert.Equal(t, 10, cfg.Retrieval.VectorTopK)
	assert.Equal(t, "localhost:6379", cfg.Session.Redis.Address)

	// unset knobs pick up the defaults
	assert.Equal(t, 20, cfg.Retrieval.BM25TopK)
	assert.Equal(t, 60, cfg.Retrieval.RRFK)
	assert.Equal(t, 20, cfg.Retrieval.FusionWindow)
	assert.Equal(t, 3, cfg.Retrieval.FinalTopK)
	assert.Equal(t, 1000, cfg.Retrieval.Splitter.ChunkSize)
	assert.Equal(t, 200, cfg.Retrieval.Splitter.ChunkOverlap)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 3, cfg.Agent.HistoryRounds)
}

func TestDefaultsCarrySpecKnobs(t *testing.T) {
	d := Default()
	assert.Equal(t, 20, d.Retrieval.VectorTopK)
	assert.Equal(t, 20, d.Retrieval.BM25TopK)
	assert.Equal(t, 60, d.Retrieval.RRFK)
	assert.Equal(t, 20, d.Retrieval.FusionWindow)
	assert.Equal(t, 3, d.Retrieval.FinalTopK)
	assert.Equal(t, 5, d.Agent.MaxIterations)
	assert.Equal(t, 15000, d.Agent.ToolTimeoutMs)
	assert.Equal(t, 0.7, d.Agent.SufficientTh)
	assert.Equal(t, 0.3, d.Agent.InsufficientTh)
	assert.Equal(t, "inmemory", d.Session.Store)
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{
			name:    "missing embedding provider",
			mutate:  func(c *Config) { c.Embedding.Provider = "" },
			message: "embedding provider is required",
		},
		{
			name:    "unsupported vectordb provider",
			mutate:  func(c *Config) { c.VectorDB.Provider = "pinecone" },
			message: "unsupported vectordb provider",
		},
		{
			name:    "milvus without host",
			mutate:  func(c *Config) { c.VectorDB.Host = "" },
			message: "vectordb host is required",
		},
		{
			name:    "overlap not below chunk size",
			mutate:  func(c *Config) { c.Retrieval.Splitter.ChunkOverlap = 1000 },
			message: "chunk overlap",
		},
		{
			name:    "rerank enabled without endpoint",
			mutate:  func(c *Config) { c.Retrieval.Rerank.Endpoint = "" },
			message: "rerank endpoint is required",
		},
		{
			name:    "redis store without address",
			mutate:  func(c *Config) { c.Session.Redis.Address = "" },
			message: "redis address is required",
		},
		{
			name:    "inverted agent thresholds",
			mutate:  func(c *Config) { c.Agent.SufficientTh = 0.2; c.Agent.InsufficientTh = 0.8 },
			message: "insufficient threshold must be below",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYAML))
			require.NoError(t, err)
			tc.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("embedding: [not: a: mapping"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse config"))
}
