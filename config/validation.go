package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateVectorDB()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateAgent()...)
	errs = append(errs, c.validateSession()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateEmbedding() ValidationErrors {
	var errs ValidationErrors

	if c.Embedding.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: "embedding provider is required",
		})
	}
	if c.Embedding.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions),
		})
	}
	if c.Embedding.Dimensions > 0 && (c.Embedding.Dimensions < 128 || c.Embedding.Dimensions > 4096) {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions %d is outside typical range [128, 4096]", c.Embedding.Dimensions),
		})
	}

	return errs
}

func (c *Config) validateVectorDB() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.VectorDB.Provider) {
	case "":
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: "vectordb provider is required",
		})
	case "milvus":
		if c.VectorDB.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.host",
				Message: "vectordb host is required for milvus provider",
			})
		}
		if c.VectorDB.Collection == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.collection",
				Message: "vectordb collection is required for milvus provider",
			})
		}
	case "memory":
		// no backend settings needed
	default:
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: fmt.Sprintf("unsupported vectordb provider %q (expected milvus or memory)", c.VectorDB.Provider),
		})
	}

	return errs
}

func (c *Config) validateRetrieval() ValidationErrors {
	var errs ValidationErrors

	if c.Retrieval.Splitter.ChunkOverlap >= c.Retrieval.Splitter.ChunkSize && c.Retrieval.Splitter.ChunkSize > 0 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.splitter.chunk_overlap",
			Message: fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", c.Retrieval.Splitter.ChunkOverlap, c.Retrieval.Splitter.ChunkSize),
		})
	}
	if c.Retrieval.FinalTopK > c.Retrieval.VectorTopK && c.Retrieval.VectorTopK > 0 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.final_top_k",
			Message: fmt.Sprintf("final top_k %d cannot exceed vector top_k %d", c.Retrieval.FinalTopK, c.Retrieval.VectorTopK),
		})
	}
	if c.Retrieval.Rerank.Enable && c.Retrieval.Rerank.Endpoint == "" {
		errs = append(errs, ValidationError{
			Field:   "retrieval.rerank.endpoint",
			Message: "rerank endpoint is required when reranking is enabled",
		})
	}

	return errs
}

func (c *Config) validateAgent() ValidationErrors {
	var errs ValidationErrors

	if c.Agent.MaxIterations < 0 || c.Agent.MaxIterations > 20 {
		errs = append(errs, ValidationError{
			Field:   "agent.max_iterations",
			Message: fmt.Sprintf("max_iterations %d is outside sane range [1, 20]", c.Agent.MaxIterations),
		})
	}
	if c.Agent.SufficientTh != 0 && c.Agent.InsufficientTh != 0 && c.Agent.InsufficientTh >= c.Agent.SufficientTh {
		errs = append(errs, ValidationError{
			Field:   "agent.insufficient_threshold",
			Message: "insufficient threshold must be below sufficient threshold",
		})
	}

	return errs
}

func (c *Config) validateSession() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Session.Store) {
	case "", "inmemory", "redis":
	default:
		errs = append(errs, ValidationError{
			Field:   "session.store",
			Message: fmt.Sprintf("unsupported session store %q (expected inmemory or redis)", c.Session.Store),
		})
	}
	if strings.ToLower(c.Session.Store) == "redis" {
		if c.Session.Redis.Address == "" {
			errs = append(errs, ValidationError{
				Field:   "session.redis.address",
				Message: "redis address is required for the redis session store",
			})
		}
	}

	return errs
}
