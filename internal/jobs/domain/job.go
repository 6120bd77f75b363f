package domain

import (
	"encoding/json"
	"time"
)

// JobType identifies which skill processes an analysis job.
type JobType string

const (
	JobTypeInvoiceExtraction     JobType = "invoice_extraction"
	JobTypeCompactorOptimization JobType = "compactor_optimization"
	JobTypeContractExtraction    JobType = "contract_extraction"
	JobTypeRegulatoryLookup      JobType = "regulatory_lookup"
)

// KnownJobTypes lists every job type the engine can process.
var KnownJobTypes = []JobType{
	JobTypeInvoiceExtraction,
	JobTypeCompactorOptimization,
	JobTypeContractExtraction,
	JobTypeRegulatoryLookup,
}

// IsKnown reports whether t maps to a registered skill type.
func (t JobType) IsKnown() bool {
	for _, known := range KnownJobTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether s is a final state that must never be overwritten.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// allowedTransitions is the closed set of lifecycle edges. Anything not
// listed here is an invalid transition.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UsageStats aggregates external-resource consumption of one job execution.
type UsageStats struct {
	ExternalCalls int     `json:"external_calls" db:"external_calls"`
	InputTokens   int     `json:"input_tokens" db:"input_tokens"`
	OutputTokens  int     `json:"output_tokens" db:"output_tokens"`
	CostEstimate  float64 `json:"cost_estimate" db:"cost_estimate"`
}

// Add accumulates another usage sample into s.
func (s *UsageStats) Add(other UsageStats) {
	s.ExternalCalls += other.ExternalCalls
	s.InputTokens += other.InputTokens
	s.OutputTokens += other.OutputTokens
	s.CostEstimate += other.CostEstimate
}

// AnalysisJob is a persisted unit of long-running analysis work. The job
// store is the sole writer of its lifecycle fields.
type AnalysisJob struct {
	ID         string  `db:"id"`
	OwnerID    string  `db:"owner_id"`
	PropertyID string  `db:"property_id"`
	JobType    JobType `db:"job_type"`
	Status     Status  `db:"status"`

	ProgressPercent int    `db:"progress_percent"`
	CurrentStep     string `db:"current_step"`
	StepsCompleted  int    `db:"steps_completed"`
	TotalSteps      int    `db:"total_steps"`

	// Payload carries job-type specific parameters from the submitter.
	Payload json.RawMessage `db:"payload"`

	// ResultData is set exactly once, on completion; its schema is keyed
	// by JobType and is opaque to the pipeline.
	ResultData json.RawMessage `db:"result_data"`

	ErrorMessage string `db:"error_message"`
	ErrorCode    string `db:"error_code"`

	ExternalCalls int     `db:"external_calls"`
	InputTokens   int     `db:"input_tokens"`
	OutputTokens  int     `db:"output_tokens"`
	CostEstimate  float64 `db:"cost_estimate"`

	CreatedAt   time.Time  `db:"created_at"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
