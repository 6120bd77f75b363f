// Package skills contains the pluggable computation units behind analysis
// jobs. Each skill declares the subject data it needs, executes a sequence
// of internal steps, and reports incremental progress through its context.
package skills

import (
	"context"
	"encoding/json"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/property"
)

// Requirements declares which persisted subject data a skill needs loaded
// into its context before execution.
type Requirements struct {
	Profile    bool
	Equipment  bool
	Financials bool
	Invoices   bool

	// DocumentKinds lists the raw document kinds to load.
	DocumentKinds []string
}

// Context is built fresh for each execution. It references the subject's
// persisted data and the pipeline callbacks; it is never persisted.
type Context struct {
	JobID      string
	PropertyID string

	// Params carries job-type specific parameters from the submitter.
	Params json.RawMessage

	Profile    *property.Profile
	Equipment  *property.Equipment
	Financials *property.Financials
	Invoices   []property.InvoiceRow
	Documents  map[string][]property.Document

	// Progress reports a step boundary. Updates are applied in
	// non-decreasing order; regressions are dropped by the store.
	Progress func(percent int, step string, stepsCompleted, totalSteps int)

	// Cancelled reports whether cooperative cancellation was requested.
	// Skills check it at step boundaries and return a cancelled result
	// rather than an error.
	Cancelled func() bool
}

// ReportProgress is a nil-safe progress call.
func (c *Context) ReportProgress(percent int, step string, stepsCompleted, totalSteps int) {
	if c.Progress != nil {
		c.Progress(percent, step, stepsCompleted, totalSteps)
	}
}

// IsCancelled is a nil-safe cancellation check.
func (c *Context) IsCancelled() bool {
	return c.Cancelled != nil && c.Cancelled()
}

// Result is a skill's outcome. Data is serialized into the job's result_data
// and treated as opaque by the pipeline.
type Result struct {
	Data      interface{}
	Usage     domain.UsageStats
	Cancelled bool
}

// decodeParams unmarshals a job payload into a skill's parameter struct.
func decodeParams(raw json.RawMessage, dst interface{}) error {
	return json.Unmarshal(raw, dst)
}

// cancelledResult is the distinguished cancelled outcome.
func cancelledResult(usage domain.UsageStats) *Result {
	return &Result{Usage: usage, Cancelled: true}
}

// Skill is the shared execution capability. Implementations must not keep
// mutable state across invocations.
type Skill interface {
	// Type returns the job type this skill handles.
	Type() domain.JobType

	// Requires declares the subject data to load into the context.
	Requires() Requirements

	// Execute runs the skill against a fully built context.
	Execute(ctx context.Context, sc *Context) (*Result, error)
}
