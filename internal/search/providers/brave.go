package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/thetrashhub/wastewise/internal/search"
)

const defaultBraveBaseURL = "https://api.search.brave.com"

// Brave queries the Brave Search API.
type Brave struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewBrave creates a Brave provider. An empty baseURL selects the public API.
func NewBrave(apiKey, baseURL string) *Brave {
	if baseURL == "" {
		baseURL = defaultBraveBaseURL
	}
	return &Brave{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (b *Brave) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search executes the query against Brave Search.
func (b *Brave) Search(ctx context.Context, query search.Query) (*search.Response, error) {
	params := url.Values{}
	params.Set("q", query.Text)
	if query.MaxResults > 0 {
		params.Set("count", strconv.Itoa(query.MaxResults))
	}
	if query.RecencyDays > 0 {
		params.Set("freshness", fmt.Sprintf("pd%d", query.RecencyDays))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/res/v1/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned status %d", resp.StatusCode)
	}

	var decoded braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode brave response: %w", err)
	}

	results := make([]search.Result, 0, len(decoded.Web.Results))
	for _, r := range decoded.Web.Results {
		if excluded(r.URL, query.ExcludeDomains) {
			continue
		}
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
		if query.MaxResults > 0 && len(results) >= query.MaxResults {
			break
		}
	}

	return &search.Response{Results: results}, nil
}

func excluded(rawURL string, domains []string) bool {
	if len(domains) == 0 {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, domain := range domains {
		if parsed.Hostname() == domain {
			return true
		}
	}
	return false
}

// IsAvailable probes the API root with a short deadline.
func (b *Brave) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
