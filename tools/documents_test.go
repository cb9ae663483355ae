package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGMadMax/mcp-rbac/config"
	"github.com/DGMadMax/mcp-rbac/pipeline"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/retriever"
	"github.com/DGMadMax/mcp-rbac/schema"
)

func keywordPipeline(docs ...schema.Document) *pipeline.Pipeline {
	cfg := config.RetrievalConfig{BM25TopK: 10, RRFK: 60, FusionWindow: 20, FinalTopK: 3}
	return pipeline.New(nil, retriever.NewBM25Retriever(docs), nil, cfg)
}

func generalDoc(id, content string) schema.Document {
	return schema.Document{ID: id, Content: content, Department: "general", Source: id + ".md"}
}

func TestDocumentsToolAnswersFromPipeline(t *testing.T) {
	tool := NewDocumentsTool(keywordPipeline(generalDoc("d1", "expense policy requires receipts")))
	res, err := tool.Call(context.Background(), []string{"expense policy"}, rbac.NewContext("Employee", ""))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "expense policy requires receipts")
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "d1.md", res.Citations[0].Locator)
}

func TestDocumentsToolWithoutPipeline(t *testing.T) {
	var tool DocumentsTool
	_, err := tool.Call(context.Background(), []string{"anything"}, rbac.NewContext("Employee", ""))
	assert.Error(t, err)
}

func TestDocumentsToolPipelineSwapDuringCalls(t *testing.T) {
	// SetPipeline races against in-flight Calls after every ingest; the swap
	// must be safe mid-call and the new corpus visible afterwards.
	old := keywordPipeline(generalDoc("d1", "expense policy requires receipts"))
	next := keywordPipeline(generalDoc("d2", "travel guideline allows economy class"))
	tool := NewDocumentsTool(old)
	rc := rbac.NewContext("Employee", "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := tool.Call(context.Background(), []string{"policy"}, rc); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			tool.SetPipeline(next)
		} else {
			tool.SetPipeline(old)
		}
	}
	<-done

	tool.SetPipeline(next)
	res, err := tool.Call(context.Background(), []string{"travel guideline"}, rc)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "travel guideline allows economy class")
}
