// Package jobstest provides an in-memory job store with the same transition
// semantics as the PostgreSQL implementation, for worker and skill tests.
package jobstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
)

// Store is a mutex-guarded in-memory jobs.Store.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*domain.AnalysisJob

	// ProgressLog records every accepted progress update in order.
	ProgressLog []ProgressUpdate
}

// ProgressUpdate is one accepted progress write.
type ProgressUpdate struct {
	JobID          string
	Percent        int
	Step           string
	StepsCompleted int
	TotalSteps     int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*domain.AnalysisJob)}
}

// Seed inserts a job as-is, without transition checks.
func (s *Store) Seed(job *domain.AnalysisJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
}

// CreateJob inserts a new pending job.
func (s *Store) CreateJob(_ context.Context, job *domain.AnalysisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *job
	copied.Status = domain.StatusPending
	s.jobs[job.ID] = &copied
	return nil
}

// GetJob returns a copy of the job by id.
func (s *Store) GetJob(_ context.Context, id string) (*domain.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

// ClaimNextPending claims the oldest pending job under the store lock.
func (s *Store) ClaimNextPending(_ context.Context) (*domain.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*domain.AnalysisJob
	for _, job := range s.jobs {
		if job.Status == domain.StatusPending {
			pending = append(pending, job)
		}
	}
	if len(pending) == 0 {
		return nil, domain.ErrNoJobAvailable
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	job := pending[0]
	now := time.Now()
	job.Status = domain.StatusProcessing
	job.StartedAt = &now
	job.UpdatedAt = now

	copied := *job
	return &copied, nil
}

// UpdateProgress applies a monotonic-guarded progress write.
func (s *Store) UpdateProgress(_ context.Context, id string, percent int, step string, stepsCompleted, totalSteps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.StatusProcessing {
		return domain.ErrInvalidTransition
	}
	if percent < job.ProgressPercent {
		// Regression: dropped without error, matching the SQL guard.
		return nil
	}

	job.ProgressPercent = percent
	job.CurrentStep = step
	job.StepsCompleted = stepsCompleted
	job.TotalSteps = totalSteps
	job.UpdatedAt = time.Now()

	s.ProgressLog = append(s.ProgressLog, ProgressUpdate{
		JobID: id, Percent: percent, Step: step,
		StepsCompleted: stepsCompleted, TotalSteps: totalSteps,
	})
	return nil
}

// CompleteJob finalizes a processing job.
func (s *Store) CompleteJob(_ context.Context, id string, result []byte, usage domain.UsageStats) error {
	return s.transition(id, domain.StatusCompleted, func(job *domain.AnalysisJob) {
		job.ProgressPercent = 100
		job.ResultData = result
		job.ExternalCalls = usage.ExternalCalls
		job.InputTokens = usage.InputTokens
		job.OutputTokens = usage.OutputTokens
		job.CostEstimate = usage.CostEstimate
	})
}

// FailJob finalizes a job with message and code.
func (s *Store) FailJob(_ context.Context, id string, message, code string) error {
	return s.transition(id, domain.StatusFailed, func(job *domain.AnalysisJob) {
		job.ErrorMessage = message
		job.ErrorCode = code
	})
}

// CancelJob cancels a pending or processing job.
func (s *Store) CancelJob(_ context.Context, id string) error {
	return s.transition(id, domain.StatusCancelled, func(job *domain.AnalysisJob) {
		job.ErrorCode = domain.CodeCancelled
	})
}

func (s *Store) transition(id string, to domain.Status, apply func(*domain.AnalysisJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if !domain.CanTransition(job.Status, to) {
		return domain.ErrInvalidTransition
	}

	job.Status = to
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	if apply != nil {
		apply(job)
	}
	return nil
}
