// Mock reranker speaking the Jina-style wire format, for local runs
// without a real reranking model.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sort"
)

type rerankReq struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n"`
}

type resultItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResp struct {
	Results []resultItem `json:"results"`
}

func handleRerank(w http.ResponseWriter, r *http.Request) {
	var req rerankReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Longer documents score higher. Good enough to exercise reordering.
	out := rerankResp{}
	for i, doc := range req.Documents {
		out.Results = append(out.Results, resultItem{Index: i, RelevanceScore: float64(len(doc))})
	}
	sort.Slice(out.Results, func(i, j int) bool {
		return out.Results[i].RelevanceScore > out.Results[j].RelevanceScore
	})
	if req.TopN > 0 && len(out.Results) > req.TopN {
		out.Results = out.Results[:req.TopN]
	}
	_ = json.NewEncoder(w).Encode(out)
}

func main() {
	addr := ":8082"
	if v := os.Getenv("RERANK_ADDR"); v != "" {
		addr = v
	}
	http.HandleFunc("/rerank", handleRerank)
	log.Printf("reranker mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
