package intent

import (
	"context"
	"errors"
	"testing"
)

type mockLLM struct {
	response string
	err      error
}

func (m *mockLLM) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return m.response, m.err
}
func (m *mockLLM) GetProviderType() string { return "mock" }

func TestClassifyParsesModelOutput(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantIntent Intent
		wantTools  []string
	}{
		{
			name:       "document search",
			response:   `{"intent":"document-search","tools":["document-search"]}`,
			wantIntent: DocumentSearch,
			wantTools:  []string{"document-search"},
		},
		{
			name:       "fenced multi tool",
			response:   "```json\n{\"intent\":\"multi-tool\",\"tools\":[\"document-search\",\"weather\"]}\n```",
			wantIntent: MultiTool,
			wantTools:  []string{"document-search", "weather"},
		},
		{
			name:       "out-of-enum intent coerces to unknown and defaults tools",
			response:   `{"intent":"sql_query","tools":[]}`,
			wantIntent: Unknown,
			wantTools:  []string{"document-search"},
		},
		{
			name:       "unknown tool names dropped",
			response:   `{"intent":"weather","tools":["weather","shell"]}`,
			wantIntent: Weather,
			wantTools:  []string{"weather"},
		},
		{
			name:       "sentinel cannot be classified",
			response:   `{"intent":"max_reached","tools":[]}`,
			wantIntent: Unknown,
			wantTools:  []string{"document-search"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{Provider: &mockLLM{response: tt.response}}
			d := c.Classify(context.Background(), "some question")
			if d.Intent != tt.wantIntent {
				t.Fatalf("intent = %q, want %q", d.Intent, tt.wantIntent)
			}
			if len(d.Tools) != len(tt.wantTools) {
				t.Fatalf("tools = %v, want %v", d.Tools, tt.wantTools)
			}
			for i := range d.Tools {
				if d.Tools[i] != tt.wantTools[i] {
					t.Fatalf("tools = %v, want %v", d.Tools, tt.wantTools)
				}
			}
		})
	}
}

func TestClassifyShortCircuit(t *testing.T) {
	c := &Classifier{Provider: &mockLLM{response: `{"intent":"greeting","tools":["document-search"],"reply":"Hi there!"}`}}
	d := c.Classify(context.Background(), "hello")
	if d.Intent != Greeting || d.Reply != "Hi there!" {
		t.Fatalf("decision = %+v", d)
	}
	if len(d.Tools) != 0 {
		t.Fatalf("short-circuit intents must not dispatch tools, got %v", d.Tools)
	}
}

func TestClassifyLLMFailureFallsBackToRules(t *testing.T) {
	c := &Classifier{Provider: &mockLLM{err: errors.New("upstream 503")}}

	d := c.Classify(context.Background(), "what is the leave policy?")
	if d.Intent != DocumentSearch {
		t.Fatalf("llm failure must degrade to document-search, got %q", d.Intent)
	}

	d = c.Classify(context.Background(), "what's the weather forecast for Berlin?")
	if d.Intent != Weather {
		t.Fatalf("rule fallback missed weather, got %q", d.Intent)
	}

	d = c.Classify(context.Background(), "hello")
	if d.Intent != Greeting || d.Reply == "" {
		t.Fatalf("rule fallback missed greeting: %+v", d)
	}
}

func TestClassifyGarbageResponse(t *testing.T) {
	c := &Classifier{Provider: &mockLLM{response: "I think you want documents, probably?"}}
	d := c.Classify(context.Background(), "where is the expense policy?")
	if d.Intent != DocumentSearch || len(d.Tools) != 1 {
		t.Fatalf("garbage response must degrade to document-search: %+v", d)
	}
}
