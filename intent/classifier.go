package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/llm"
	"github.com/DGMadMax/mcp-rbac/metrics"
)

const classifySystemPrompt = `You are the routing stage of an internal corporate assistant.
Classify the user query into exactly one intent:
- "greeting": a salutation with no question
- "chit-chat": small talk, thanks, casual conversation
- "document-search": a question answerable from internal company documents
- "structured-query": a question about employee records, counts, or aggregates
- "web-search": a question needing current public information
- "weather": a question about weather conditions or forecasts
- "multi-tool": a question needing more than one of the above tools

Respond with ONLY a JSON object:
{"intent": "...", "tools": ["..."], "reply": "..."}

"tools" lists the tools to run, chosen from: document-search, structured-query, web-search, weather. For multi-tool queries list every tool needed. For greeting and chit-chat leave tools empty and put a short friendly response in "reply".`

// Classifier decides which tools a turn needs.
type Classifier struct {
	Provider llm.Provider
}

// Classify never returns an error: every failure path degrades toward
// document-search, the most broadly useful tool.
func (c *Classifier) Classify(ctx context.Context, query string) Decision {
	d := c.classify(ctx, query)
	metrics.IncIntent(string(d.Intent))
	return d
}

func (c *Classifier) classify(ctx context.Context, query string) Decision {
	if c.Provider == nil {
		return ruleFallback(query)
	}
	prompt := fmt.Sprintf("%s\n\nUser query: %s", classifySystemPrompt, query)
	response, err := c.Provider.GenerateCompletion(ctx, prompt)
	if err != nil {
		logger.Warnf("classifier: llm call failed: %v, falling back to rules", err)
		return ruleFallback(query)
	}

	var raw struct {
		Intent string   `json:"intent"`
		Tools  []string `json:"tools"`
		Reply  string   `json:"reply"`
	}
	if err := llm.ExtractJSON(response, &raw); err != nil {
		logger.Warnf("classifier: unparseable response %q: %v, falling back to rules", response, err)
		return ruleFallback(query)
	}

	d := Decision{Intent: Coerce(raw.Intent), Reply: strings.TrimSpace(raw.Reply)}
	for _, t := range raw.Tools {
		switch t {
		case "document-search", "structured-query", "web-search", "weather":
			d.Tools = append(d.Tools, t)
		default:
			logger.Warnf("classifier: dropping unknown tool %q", t)
		}
	}
	if d.Intent.ShortCircuits() {
		d.Tools = nil
		return d
	}
	if len(d.Tools) == 0 {
		d.Tools = DefaultTools(d.Intent)
	}
	if len(d.Tools) == 0 {
		// model produced multi-tool with no usable tool list
		d.Intent = DocumentSearch
		d.Tools = DefaultTools(DocumentSearch)
	}
	return d
}

// ruleFallback mirrors the keyword heuristics used before the model-based
// classifier existed. It keeps the service routing when the LLM is down.
func ruleFallback(query string) Decision {
	q := strings.ToLower(query)

	greetings := []string{"hello", "hi ", "hey", "good morning", "good afternoon", "good evening"}
	for _, g := range greetings {
		if strings.HasPrefix(q, strings.TrimSpace(g)) && len(q) < 30 {
			return Decision{Intent: Greeting, Reply: "Hello! How can I help you today?"}
		}
	}
	if containsAny(q, "weather", "temperature", "forecast", "rain", "snow") {
		return Decision{Intent: Weather, Tools: DefaultTools(Weather)}
	}
	if containsAny(q, "how many employees", "average salary", "headcount", "employee count") {
		return Decision{Intent: StructuredQuery, Tools: DefaultTools(StructuredQuery)}
	}
	if containsAny(q, "latest news", "current price", "stock price", "today's") {
		return Decision{Intent: WebSearch, Tools: DefaultTools(WebSearch)}
	}
	return Decision{Intent: DocumentSearch, Tools: DefaultTools(DocumentSearch)}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
