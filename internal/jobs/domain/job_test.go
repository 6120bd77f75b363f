package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to cancelled", StatusProcessing, StatusCancelled, true},
		{"pending to completed skips processing", StatusPending, StatusCompleted, false},
		{"completed is terminal", StatusCompleted, StatusProcessing, false},
		{"failed is terminal", StatusFailed, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusProcessing, false},
		{"processing back to pending", StatusProcessing, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
}

func TestJobTypeIsKnown(t *testing.T) {
	for _, jt := range KnownJobTypes {
		assert.True(t, jt.IsKnown(), "expected %s to be known", jt)
	}
	assert.False(t, JobType("expense_forecast").IsKnown())
}

func TestUsageStatsAdd(t *testing.T) {
	total := UsageStats{ExternalCalls: 1, InputTokens: 100, OutputTokens: 20, CostEstimate: 0.5}
	total.Add(UsageStats{ExternalCalls: 2, InputTokens: 50, OutputTokens: 10, CostEstimate: 0.25})

	assert.Equal(t, 3, total.ExternalCalls)
	assert.Equal(t, 150, total.InputTokens)
	assert.Equal(t, 30, total.OutputTokens)
	assert.InDelta(t, 0.75, total.CostEstimate, 1e-9)
}
