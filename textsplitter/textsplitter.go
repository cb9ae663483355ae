package textsplitter

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/DGMadMax/mcp-rbac/config"
)

// TextSplitter cuts a document into overlapping chunks.
type TextSplitter interface {
	SplitText(text string) ([]string, error)
}

// NewTextSplitter builds a splitter from configuration.
func NewTextSplitter(cfg *config.SplitterConfig) (TextSplitter, error) {
	size := cfg.ChunkSize
	if size <= 0 {
		size = 1000
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "recursive":
		return &RecursiveSplitter{ChunkSize: size, ChunkOverlap: overlap}, nil
	case "token":
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
		return &TokenSplitter{ChunkSize: size, ChunkOverlap: overlap, enc: enc}, nil
	default:
		return nil, fmt.Errorf("unsupported splitter provider: %s", cfg.Provider)
	}
}

// RecursiveSplitter splits on paragraph, line, sentence then word
// boundaries, keeping chunks under ChunkSize characters with
// ChunkOverlap characters of context carried between chunks.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

var separators = []string{"\n\n", "\n", ". ", " "}

func (s *RecursiveSplitter) SplitText(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}, nil
	}
	pieces := split(text, separators, s.ChunkSize)
	return merge(pieces, s.ChunkSize, s.ChunkOverlap), nil
}

func split(text string, seps []string, size int) []string {
	if len(text) <= size || len(seps) == 0 {
		return []string{text}
	}
	parts := strings.SplitAfter(text, seps[0])
	var out []string
	for _, p := range parts {
		if len(p) > size {
			out = append(out, split(p, seps[1:], size)...)
		} else if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func merge(pieces []string, size, overlap int) []string {
	var chunks []string
	var cur strings.Builder
	for _, p := range pieces {
		if cur.Len()+len(p) > size && cur.Len() > 0 {
			chunk := strings.TrimSpace(cur.String())
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			tail := cur.String()
			if overlap > 0 && len(tail) > overlap {
				tail = tail[len(tail)-overlap:]
			} else if overlap == 0 {
				tail = ""
			}
			cur.Reset()
			cur.WriteString(tail)
		}
		cur.WriteString(p)
	}
	if chunk := strings.TrimSpace(cur.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// TokenSplitter cuts text by token count rather than characters.
type TokenSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	enc          *tiktoken.Tiktoken
}

func (s *TokenSplitter) SplitText(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	tokens := s.enc.Encode(text, nil, nil)
	if len(tokens) <= s.ChunkSize {
		return []string{text}, nil
	}
	step := s.ChunkSize - s.ChunkOverlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + s.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := strings.TrimSpace(s.enc.Decode(tokens[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}
