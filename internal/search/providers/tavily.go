// Package providers contains the HTTP adapters behind the search.Provider
// contract. Each adapter speaks its backend's wire protocol and returns only
// the normalized response; raw bodies never cross into the pipeline.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/thetrashhub/wastewise/internal/search"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// Tavily queries the Tavily search API.
type Tavily struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTavily creates a Tavily provider. An empty baseURL selects the public API.
func NewTavily(apiKey, baseURL string) *Tavily {
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}
	return &Tavily{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
	Days           int      `json:"days,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes the query against Tavily.
func (t *Tavily) Search(ctx context.Context, query search.Query) (*search.Response, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:         t.apiKey,
		Query:          query.Text,
		MaxResults:     query.MaxResults,
		IncludeDomains: query.IncludeDomains,
		ExcludeDomains: query.ExcludeDomains,
		Days:           query.RecencyDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned status %d", resp.StatusCode)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	results := make([]search.Result, len(decoded.Results))
	for i, r := range decoded.Results {
		results[i] = search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		}
	}

	return &search.Response{Results: results}, nil
}

// IsAvailable probes the API root with a short deadline.
func (t *Tavily) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
