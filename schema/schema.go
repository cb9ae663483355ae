package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document is a chunk of ingested content together with its access scope.
type Document struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Department string                 `json:"department"`
	Source     string                 `json:"source,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Vector     []float32              `json:"vector,omitempty"`
	CreatedAt  time.Time              `json:"created_at,omitempty"`
}

// ContentHash returns the stable identity of a document's content.
// Retrieval legs may return the same chunk with different backend IDs;
// fusion and dedup key on this hash instead.
func (d Document) ContentHash() string {
	sum := sha256.Sum256([]byte(d.Content))
	return hex.EncodeToString(sum[:])
}

// SearchResult carries a candidate through the retrieval pipeline. Score is
// the score of the stage that produced it; the stage-specific fields are
// filled in as the candidate passes fusion and reranking.
type SearchResult struct {
	Document    Document `json:"document"`
	Score       float64  `json:"score"`
	VectorScore float64  `json:"vector_score,omitempty"`
	BM25Score   float64  `json:"bm25_score,omitempty"`
	RRFScore    float64  `json:"rrf_score,omitempty"`
	RerankScore float64  `json:"rerank_score,omitempty"`
}

// SearchOptions narrows a vector store search.
type SearchOptions struct {
	TopK      int
	Threshold float64
	// Departments restricts matches to the given departments. Empty means
	// unrestricted (full-access callers only).
	Departments []string
}

// CitationType classifies the origin of a cited source.
type CitationType string

const (
	CitationDocument CitationType = "document"
	CitationDatabase CitationType = "database"
	CitationWeb      CitationType = "web"
	CitationWeather  CitationType = "weather"
)

// Citation points at a source that contributed to an answer.
type Citation struct {
	Type       CitationType `json:"type"`
	Locator    string       `json:"locator"`
	Department string       `json:"department,omitempty"`
}
