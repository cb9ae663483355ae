package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildPrompt assembles a grounded-answer prompt from retrieved contexts.
func BuildPrompt(query string, contexts []string, sep string) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the provided context. ")
	b.WriteString("If the context does not contain the answer, say so.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(contexts, sep))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}

// ExtractJSON pulls the first JSON object out of a model response and
// unmarshals it into v. Models wrap JSON in code fences or prose often
// enough that strict unmarshaling of the raw response is useless.
func ExtractJSON(response string, v interface{}) error {
	s := strings.TrimSpace(response)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("malformed JSON in response: %w", err)
	}
	return nil
}
