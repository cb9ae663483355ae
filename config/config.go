package config

// Config is the top-level configuration for the assistant service.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Agent     AgentConfig     `json:"agent" yaml:"agent"`
	Tools     ToolsConfig     `json:"tools" yaml:"tools"`
	Session   SessionConfig   `json:"session,omitempty" yaml:"session,omitempty"`
	// HTTP holds global defaults for outbound calls (reranker, web search, weather).
	HTTP *HTTPClientConfig `json:"http,omitempty" yaml:"http,omitempty"`
}

// LLMConfig defines configuration for the chat completion model.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai, dashscope, qwen
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines configuration for the embedding model.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai, dashscope
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimension,omitempty"`
}

// VectorDBConfig defines configuration for the vector store.
type VectorDBConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: milvus, memory
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
}

// SplitterConfig defines document splitter configuration.
type SplitterConfig struct {
	Provider     string `json:"provider" yaml:"provider"` // Available options: recursive, token
	ChunkSize    int    `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty" yaml:"chunk_overlap,omitempty"`
}

// RetrievalConfig holds the hybrid retrieval pipeline knobs.
type RetrievalConfig struct {
	Splitter   SplitterConfig `json:"splitter" yaml:"splitter"`
	VectorTopK int            `json:"vector_top_k,omitempty" yaml:"vector_top_k,omitempty"`
	BM25TopK   int            `json:"bm25_top_k,omitempty" yaml:"bm25_top_k,omitempty"`
	RRFK       int            `json:"rrf_k,omitempty" yaml:"rrf_k,omitempty"`
	// FusionWindow bounds how many fused candidates go to the reranker.
	FusionWindow int          `json:"fusion_window,omitempty" yaml:"fusion_window,omitempty"`
	FinalTopK    int          `json:"final_top_k,omitempty" yaml:"final_top_k,omitempty"`
	Threshold    float64      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Rerank       RerankConfig `json:"rerank,omitempty" yaml:"rerank,omitempty"`
	Cache        CacheConfig  `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// RerankConfig configures the optional reranking stage.
type RerankConfig struct {
	Enable   bool   `json:"enable,omitempty" yaml:"enable,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// CacheConfig controls caching of retrieval results.
type CacheConfig struct {
	Enable     bool `json:"enable,omitempty" yaml:"enable,omitempty"`
	MaxEntries int  `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	TTLSeconds int  `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	// ToolTimeoutMs caps each dispatched tool call.
	ToolTimeoutMs int `json:"tool_timeout_ms,omitempty" yaml:"tool_timeout_ms,omitempty"`
	// HistoryRounds is how many past exchanges feed into synthesis.
	HistoryRounds int `json:"history_rounds,omitempty" yaml:"history_rounds,omitempty"`
	// Sufficiency thresholds for the re-entry gate.
	SufficientTh   float64 `json:"sufficient_threshold,omitempty" yaml:"sufficient_threshold,omitempty"`
	InsufficientTh float64 `json:"insufficient_threshold,omitempty" yaml:"insufficient_threshold,omitempty"`
}

// ToolsConfig configures the dispatchable tools.
type ToolsConfig struct {
	Structured StructuredToolConfig `json:"structured,omitempty" yaml:"structured,omitempty"`
	Web        WebToolConfig        `json:"web,omitempty" yaml:"web,omitempty"`
	Weather    WeatherToolConfig    `json:"weather,omitempty" yaml:"weather,omitempty"`
}

// StructuredToolConfig points at the employee records database.
type StructuredToolConfig struct {
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// WebToolConfig configures the web search tool.
type WebToolConfig struct {
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"` // "duckduckgo" (default) or "bing"
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TopK     int    `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// WeatherToolConfig configures the weather tool endpoints.
type WeatherToolConfig struct {
	GeocodeEndpoint  string `json:"geocode_endpoint,omitempty" yaml:"geocode_endpoint,omitempty"`
	ForecastEndpoint string `json:"forecast_endpoint,omitempty" yaml:"forecast_endpoint,omitempty"`
}

// SessionConfig controls session persistence.
// Store: "inmemory" (default) or "redis".
type SessionConfig struct {
	Store      string      `json:"store,omitempty" yaml:"store,omitempty"`
	TTLSeconds int         `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	Redis      RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig locates the Redis instance backing the session store.
type RedisConfig struct {
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
}

// HTTPClientConfig defines common options for outbound HTTP calls.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns the configuration the service runs with when a field is
// left unset.
func Default() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			Splitter:     SplitterConfig{Provider: "recursive", ChunkSize: 1000, ChunkOverlap: 200},
			VectorTopK:   20,
			BM25TopK:     20,
			RRFK:         60,
			FusionWindow: 20,
			FinalTopK:    3,
			Cache:        CacheConfig{Enable: true, MaxEntries: 256, TTLSeconds: 300},
		},
		Agent: AgentConfig{
			MaxIterations:  5,
			ToolTimeoutMs:  15000,
			HistoryRounds:  3,
			SufficientTh:   0.7,
			InsufficientTh: 0.3,
		},
		Session: SessionConfig{Store: "inmemory", TTLSeconds: 3600},
	}
}

// ApplyDefaults fills unset fields from Default in place.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Retrieval.Splitter.Provider == "" {
		c.Retrieval.Splitter.Provider = d.Retrieval.Splitter.Provider
	}
	if c.Retrieval.Splitter.ChunkSize <= 0 {
		c.Retrieval.Splitter.ChunkSize = d.Retrieval.Splitter.ChunkSize
	}
	if c.Retrieval.Splitter.ChunkOverlap <= 0 {
		c.Retrieval.Splitter.ChunkOverlap = d.Retrieval.Splitter.ChunkOverlap
	}
	if c.Retrieval.VectorTopK <= 0 {
		c.Retrieval.VectorTopK = d.Retrieval.VectorTopK
	}
	if c.Retrieval.BM25TopK <= 0 {
		c.Retrieval.BM25TopK = d.Retrieval.BM25TopK
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = d.Retrieval.RRFK
	}
	if c.Retrieval.FusionWindow <= 0 {
		c.Retrieval.FusionWindow = d.Retrieval.FusionWindow
	}
	if c.Retrieval.FinalTopK <= 0 {
		c.Retrieval.FinalTopK = d.Retrieval.FinalTopK
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = d.Agent.MaxIterations
	}
	if c.Agent.ToolTimeoutMs <= 0 {
		c.Agent.ToolTimeoutMs = d.Agent.ToolTimeoutMs
	}
	if c.Agent.HistoryRounds <= 0 {
		c.Agent.HistoryRounds = d.Agent.HistoryRounds
	}
	if c.Agent.SufficientTh <= 0 {
		c.Agent.SufficientTh = d.Agent.SufficientTh
	}
	if c.Agent.InsufficientTh <= 0 {
		c.Agent.InsufficientTh = d.Agent.InsufficientTh
	}
	if c.Session.Store == "" {
		c.Session.Store = d.Session.Store
	}
	if c.Session.TTLSeconds <= 0 {
		c.Session.TTLSeconds = d.Session.TTLSeconds
	}
}
