// Mock OpenAI-compatible chat completions endpoint for local runs
// without a real model. Point llm.base_url at it.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatReq struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}

	// Answer each stage of the agent loop with something well-formed.
	content := "This is a mock answer."
	switch {
	case strings.Contains(prompt, "routing stage"):
		content = `{"intent": "document-search", "tools": ["document-search"]}`
	case strings.Contains(prompt, "preparing user questions"):
		content = `{"is_multi_part": false, "sub_queries": []}`
	case strings.Contains(prompt, "evaluating whether gathered context"):
		content = "0.9"
	case strings.Contains(prompt, "SQL expert"):
		content = "SELECT count(*) FROM employees"
	}

	resp := map[string]any{
		"id":     "chatcmpl-mock",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func main() {
	addr := ":8081"
	if v := os.Getenv("LLM_ADDR"); v != "" {
		addr = v
	}
	http.HandleFunc("/v1/chat/completions", handleCompletions)
	log.Printf("llm mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
