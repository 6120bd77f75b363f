// Package ai wraps the model boundary used by extraction skills. The
// pipeline only sees Generate: structured or free-text content plus the
// usage counters the skills aggregate into job results.
package ai

import "context"

// Request is one generation call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64

	// JSONResponse asks the model for a JSON object body.
	JSONResponse bool
}

// Response carries the generated content and its resource usage.
type Response struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	CostEstimate float64
}

// Generator is the opaque generation capability skills depend on.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Pricing converts token counts into a cost estimate.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Cost returns the dollar estimate for a token pair.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}
