// Package search provides a resilient multi-provider web search client with
// an in-process cache and ordered provider fallback.
package search

import (
	"context"
	"fmt"
	"strings"
)

// Query is a normalized search request.
type Query struct {
	Text string

	// MaxResults caps the number of returned results; zero means provider default.
	MaxResults int

	// IncludeDomains and ExcludeDomains filter result hosts.
	IncludeDomains []string
	ExcludeDomains []string

	// RecencyDays restricts results to the trailing window; zero means no filter.
	RecencyDays int
}

// Result is one normalized search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Response is an ordered result set tagged with its origin.
type Response struct {
	Results  []Result `json:"results"`
	Provider string   `json:"provider"`
	Cached   bool     `json:"cached"`
}

// Provider is one interchangeable search backend. Adding a backend is a
// registration on the Manager, not a new branch.
type Provider interface {
	// Name identifies the provider in logs and response tags.
	Name() string

	// Search executes the query against the backend.
	Search(ctx context.Context, query Query) (*Response, error)

	// IsAvailable is a lightweight health probe. It informs operators, it
	// does not gate fallback attempts.
	IsAvailable(ctx context.Context) bool
}

// ProviderFailure records one provider's failure during a fallback cascade.
type ProviderFailure struct {
	Provider string
	Err      error
}

// AllProvidersError aggregates every provider's failure when the whole
// cascade is exhausted. Callers decide whether to degrade or fail.
type AllProvidersError struct {
	Failures []ProviderFailure
}

func (e *AllProvidersError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Provider, f.Err)
	}
	return "all search providers failed: " + strings.Join(parts, "; ")
}
