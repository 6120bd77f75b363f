// Package jobs defines the job store contract shared by the worker, the
// processor, and the API boundary. The store is the sole authority for job
// lifecycle state, progress, and results.
package jobs

import (
	"context"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
)

// Store persists analysis jobs and guards their lifecycle transitions.
// Implementations must make ClaimNextPending atomic: no two concurrent
// callers may obtain the same pending job.
type Store interface {
	// CreateJob inserts a new pending job.
	CreateJob(ctx context.Context, job *domain.AnalysisJob) error

	// GetJob returns the job by id, or domain.ErrJobNotFound.
	GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error)

	// ClaimNextPending atomically selects the oldest pending job, moves it
	// to processing and stamps started_at. Returns domain.ErrNoJobAvailable
	// when the pending queue is empty.
	ClaimNextPending(ctx context.Context) (*domain.AnalysisJob, error)

	// UpdateProgress records forward progress for a processing job.
	// Regressed percent values are logged and dropped without error;
	// updates against a non-processing job return domain.ErrInvalidTransition.
	UpdateProgress(ctx context.Context, id string, percent int, step string, stepsCompleted, totalSteps int) error

	// CompleteJob finalizes a processing job with its typed result and
	// usage counters. Valid only from processing.
	CompleteJob(ctx context.Context, id string, result []byte, usage domain.UsageStats) error

	// FailJob finalizes a job with a sanitized message and error code.
	// Valid from pending or processing.
	FailJob(ctx context.Context, id string, message, code string) error

	// CancelJob cooperatively cancels a pending or processing job.
	CancelJob(ctx context.Context, id string) error
}
