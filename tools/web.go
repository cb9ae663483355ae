package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/DGMadMax/mcp-rbac/common/httpx"
	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// WebTool searches the public web. Results carry no department scope; the
// tool is access-neutral and available to every role.
type WebTool struct {
	Provider string // "duckduckgo" (default) or "bing"
	Endpoint string
	APIKey   string
	TopK     int
	Client   *httpx.Client
}

type webHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (t *WebTool) Name() string { return NameWeb }

func (t *WebTool) Call(ctx context.Context, queries []string, rc rbac.Context) (*Result, error) {
	topK := t.TopK
	if topK <= 0 {
		topK = 3
	}

	var hits []webHit
	for _, q := range queries {
		var results []webHit
		var err error
		switch t.Provider {
		case "bing":
			results, err = t.searchBing(ctx, q, topK)
		case "", "duckduckgo":
			results, err = t.searchDuckDuckGo(ctx, q, topK)
		default:
			logger.Warnf("web: unknown provider %s, using duckduckgo", t.Provider)
			results, err = t.searchDuckDuckGo(ctx, q, topK)
		}
		if err != nil {
			return nil, fmt.Errorf("web search %q: %w", q, err)
		}
		hits = append(hits, results...)
	}
	if len(hits) == 0 {
		return &Result{Tool: NameWeb, Text: "No web results were found."}, nil
	}

	var b strings.Builder
	citations := make([]schema.Citation, 0, len(hits))
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s\n%s\n", i+1, h.Title, h.Snippet)
		citations = append(citations, schema.Citation{Type: schema.CitationWeb, Locator: h.URL})
	}
	return &Result{Tool: NameWeb, Text: b.String(), Citations: citations}, nil
}

func (t *WebTool) client() *httpx.Client {
	if t.Client == nil {
		t.Client = httpx.NewFromConfig(nil)
	}
	return t.Client
}

// searchDuckDuckGo uses the DuckDuckGo Instant Answer API.
func (t *WebTool) searchDuckDuckGo(ctx context.Context, query string, numResults int) ([]webHit, error) {
	endpoint := "https://api.duckduckgo.com/"
	if t.Endpoint != "" {
		endpoint = t.Endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("duckduckgo api returned status %d", resp.StatusCode)
	}

	var ddg struct {
		AbstractText   string `json:"AbstractText"`
		AbstractSource string `json:"AbstractSource"`
		AbstractURL    string `json:"AbstractURL"`
		RelatedTopics  []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ddg); err != nil {
		return nil, err
	}

	hits := make([]webHit, 0, numResults)
	if ddg.AbstractText != "" {
		hits = append(hits, webHit{Title: ddg.AbstractSource, URL: ddg.AbstractURL, Snippet: ddg.AbstractText})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(hits) >= numResults {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		hits = append(hits, webHit{Title: title, URL: topic.FirstURL, Snippet: topic.Text})
	}
	return hits, nil
}

// searchBing uses the Bing Web Search API v7.
func (t *WebTool) searchBing(ctx context.Context, query string, numResults int) ([]webHit, error) {
	if t.Endpoint == "" {
		return nil, fmt.Errorf("bing search requires endpoint configuration")
	}
	if t.APIKey == "" {
		return nil, fmt.Errorf("bing search requires api key")
	}
	u, err := url.Parse(t.Endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", numResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", t.APIKey)

	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bing api returned status %d", resp.StatusCode)
	}

	var bing struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bing); err != nil {
		return nil, err
	}
	hits := make([]webHit, 0, len(bing.WebPages.Value))
	for _, v := range bing.WebPages.Value {
		hits = append(hits, webHit{Title: v.Name, URL: v.URL, Snippet: v.Snippet})
	}
	return hits, nil
}
