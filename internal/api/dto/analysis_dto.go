package dto

import "encoding/json"

type CreateAnalysisRequest struct {
	OwnerID    string          `json:"owner_id" binding:"required"`
	PropertyID string          `json:"property_id" binding:"required"`
	JobType    string          `json:"job_type" binding:"required"`
	Payload    json.RawMessage `json:"payload"`
}

type ListAnalysesRequest struct {
	OwnerID    string `form:"owner_id"`
	PropertyID string `form:"property_id"`
	JobType    string `form:"job_type"`
	Status     string `form:"status"`
	PageSize   int    `form:"page_size"`
	Cursor     string `form:"cursor"`
}

type ListAnalysesResponse struct {
	Analyses   []AnalysisDTO `json:"analyses"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type AnalysisDTO struct {
	JobID      string `json:"job_id"`
	OwnerID    string `json:"owner_id"`
	PropertyID string `json:"property_id"`
	JobType    string `json:"job_type"`
	Status     string `json:"status"`

	ProgressPercent int    `json:"progress_percent"`
	CurrentStep     string `json:"current_step,omitempty"`
	StepsCompleted  int    `json:"steps_completed"`

	Payload    json.RawMessage `json:"payload,omitempty"`
	ResultData json.RawMessage `json:"result_data,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`

	ExternalCalls int     `json:"external_calls"`
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	CostEstimate  float64 `json:"cost_estimate"`

	CreatedAt   string `json:"created_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}
