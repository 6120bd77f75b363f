// Package storage provides the PostgreSQL implementation of the job store.
// Every lifecycle write is a single guarded UPDATE so transitions stay
// atomic even with concurrent claimers.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
)

const jobColumns = `
	id, owner_id, property_id, job_type, status,
	progress_percent, current_step, steps_completed, total_steps,
	payload, result_data, error_message, error_code,
	external_calls, input_tokens, output_tokens, cost_estimate,
	created_at, started_at, completed_at, updated_at
`

// Storage handles all analysis_jobs table operations.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance.
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// CreateJob inserts a new pending job.
func (s *Storage) CreateJob(ctx context.Context, job *domain.AnalysisJob) error {
	query := `
		INSERT INTO analysis_jobs (
			id, owner_id, property_id, job_type, status,
			progress_percent, total_steps, payload, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.OwnerID,
		job.PropertyID,
		job.JobType,
		domain.StatusPending,
		0,
		job.TotalSteps,
		nullableJSON(job.Payload),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by its id.
func (s *Storage) GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id = $1`

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toDomain(), nil
}

// ClaimNextPending atomically claims the oldest pending job. The SKIP LOCKED
// subselect keeps two concurrent claimers from obtaining the same row.
func (s *Storage) ClaimNextPending(ctx context.Context) (*domain.AnalysisJob, error) {
	query := `
		UPDATE analysis_jobs
		SET status = $1,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM analysis_jobs
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	var row jobRow
	err := s.db.GetContext(ctx, &row, query, domain.StatusProcessing, domain.StatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoJobAvailable
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job := row.toDomain()
	s.logger.Info("Job claimed",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
	)

	return job, nil
}

// UpdateProgress records forward progress. The WHERE clause enforces both
// the processing-state guard and the monotonic-percent guard; a regressed
// update matches no row and is logged, not raised.
func (s *Storage) UpdateProgress(ctx context.Context, id string, percent int, step string, stepsCompleted, totalSteps int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	query := `
		UPDATE analysis_jobs
		SET progress_percent = $1,
		    current_step = $2,
		    steps_completed = $3,
		    total_steps = $4,
		    updated_at = NOW()
		WHERE id = $5
		  AND status = $6
		  AND progress_percent <= $1
	`

	result, err := s.db.ExecContext(ctx, query, percent, step, stepsCompleted, totalSteps, id, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		status, statusErr := s.jobStatus(ctx, id)
		if statusErr == nil && status != domain.StatusProcessing {
			s.logger.Warn("Progress update against non-processing job dropped",
				slog.String("job_id", id),
				slog.String("status", string(status)),
			)
			return domain.ErrInvalidTransition
		}
		s.logger.Warn("Out-of-order progress update dropped",
			slog.String("job_id", id),
			slog.Int("percent", percent),
			slog.String("step", step),
		)
	}

	return nil
}

// CompleteJob finalizes a processing job with its result and usage counters.
func (s *Storage) CompleteJob(ctx context.Context, id string, result []byte, usage domain.UsageStats) error {
	query := `
		UPDATE analysis_jobs
		SET status = $1,
		    progress_percent = 100,
		    result_data = $2,
		    external_calls = $3,
		    input_tokens = $4,
		    output_tokens = $5,
		    cost_estimate = $6,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $7 AND status = $8
	`

	return s.guardedTransition(ctx, id, domain.StatusCompleted, query,
		domain.StatusCompleted, nullableJSON(result),
		usage.ExternalCalls, usage.InputTokens, usage.OutputTokens, usage.CostEstimate,
		id, domain.StatusProcessing,
	)
}

// FailJob finalizes a job with a sanitized message and machine-readable code.
func (s *Storage) FailJob(ctx context.Context, id string, message, code string) error {
	query := `
		UPDATE analysis_jobs
		SET status = $1,
		    error_message = $2,
		    error_code = $3,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $4 AND status IN ($5, $6)
	`

	return s.guardedTransition(ctx, id, domain.StatusFailed, query,
		domain.StatusFailed, message, code,
		id, domain.StatusPending, domain.StatusProcessing,
	)
}

// CancelJob moves a pending or processing job to cancelled.
func (s *Storage) CancelJob(ctx context.Context, id string) error {
	query := `
		UPDATE analysis_jobs
		SET status = $1,
		    error_code = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3 AND status IN ($4, $5)
	`

	return s.guardedTransition(ctx, id, domain.StatusCancelled, query,
		domain.StatusCancelled, domain.CodeCancelled,
		id, domain.StatusPending, domain.StatusProcessing,
	)
}

// guardedTransition runs a status-guarded UPDATE and maps a zero-row result
// to ErrJobNotFound or ErrInvalidTransition. Terminal states stay untouched.
func (s *Storage) guardedTransition(ctx context.Context, id string, to domain.Status, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to transition job to %s: %w", to, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		current, statusErr := s.jobStatus(ctx, id)
		if statusErr != nil {
			return statusErr
		}
		s.logger.Warn("Rejected job status transition",
			slog.String("job_id", id),
			slog.String("from", string(current)),
			slog.String("to", string(to)),
		)
		return domain.ErrInvalidTransition
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", id),
		slog.String("status", string(to)),
	)

	return nil
}

func (s *Storage) jobStatus(ctx context.Context, id string) (domain.Status, error) {
	var status domain.Status
	err := s.db.GetContext(ctx, &status, `SELECT status FROM analysis_jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrJobNotFound
		}
		return "", fmt.Errorf("failed to get job status: %w", err)
	}
	return status, nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// jobRow mirrors the analysis_jobs schema with nullable columns.
type jobRow struct {
	ID              string         `db:"id"`
	OwnerID         string         `db:"owner_id"`
	PropertyID      string         `db:"property_id"`
	JobType         string         `db:"job_type"`
	Status          string         `db:"status"`
	ProgressPercent int            `db:"progress_percent"`
	CurrentStep     sql.NullString `db:"current_step"`
	StepsCompleted  int            `db:"steps_completed"`
	TotalSteps      int            `db:"total_steps"`
	Payload         []byte         `db:"payload"`
	ResultData      []byte         `db:"result_data"`
	ErrorMessage    sql.NullString `db:"error_message"`
	ErrorCode       sql.NullString `db:"error_code"`
	ExternalCalls   int            `db:"external_calls"`
	InputTokens     int            `db:"input_tokens"`
	OutputTokens    int            `db:"output_tokens"`
	CostEstimate    float64        `db:"cost_estimate"`
	CreatedAt       time.Time      `db:"created_at"`
	StartedAt       sql.NullTime   `db:"started_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *jobRow) toDomain() *domain.AnalysisJob {
	job := &domain.AnalysisJob{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		PropertyID:      r.PropertyID,
		JobType:         domain.JobType(r.JobType),
		Status:          domain.Status(r.Status),
		ProgressPercent: r.ProgressPercent,
		CurrentStep:     r.CurrentStep.String,
		StepsCompleted:  r.StepsCompleted,
		TotalSteps:      r.TotalSteps,
		Payload:         r.Payload,
		ResultData:      r.ResultData,
		ErrorMessage:    r.ErrorMessage.String,
		ErrorCode:       r.ErrorCode.String,
		ExternalCalls:   r.ExternalCalls,
		InputTokens:     r.InputTokens,
		OutputTokens:    r.OutputTokens,
		CostEstimate:    r.CostEstimate,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.StartedAt.Valid {
		t := r.StartedAt.Time
		job.StartedAt = &t
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		job.CompletedAt = &t
	}
	return job
}
