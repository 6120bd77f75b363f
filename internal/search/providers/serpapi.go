package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/thetrashhub/wastewise/internal/search"
)

const defaultSerpAPIBaseURL = "https://serpapi.com"

// SerpAPI queries Google results through the SerpApi service.
type SerpAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSerpAPI creates a SerpAPI provider. An empty baseURL selects the public API.
func NewSerpAPI(apiKey, baseURL string) *SerpAPI {
	if baseURL == "" {
		baseURL = defaultSerpAPIBaseURL
	}
	return &SerpAPI{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (s *SerpAPI) Name() string { return "serpapi" }

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// Search executes the query against SerpApi. Domain filters are folded into
// the query string since the API has no native allow/deny list.
func (s *SerpAPI) Search(ctx context.Context, query search.Query) (*search.Response, error) {
	text := query.Text
	for _, domain := range query.IncludeDomains {
		text += " site:" + domain
	}
	for _, domain := range query.ExcludeDomains {
		text += " -site:" + domain
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", strings.TrimSpace(text))
	params.Set("api_key", s.apiKey)
	if query.MaxResults > 0 {
		params.Set("num", strconv.Itoa(query.MaxResults))
	}
	if query.RecencyDays > 0 {
		params.Set("tbs", fmt.Sprintf("qdr:d%d", query.RecencyDays))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build serpapi request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}

	var decoded serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("serpapi rejected the query")
	}

	results := make([]search.Result, 0, len(decoded.OrganicResults))
	for _, r := range decoded.OrganicResults {
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
		})
		if query.MaxResults > 0 && len(results) >= query.MaxResults {
			break
		}
	}

	return &search.Response{Results: results}, nil
}

// IsAvailable probes the API root with a short deadline.
func (s *SerpAPI) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
