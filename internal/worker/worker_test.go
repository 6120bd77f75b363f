package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/jobs/jobstest"
	"github.com/thetrashhub/wastewise/internal/property/propertytest"
	"github.com/thetrashhub/wastewise/internal/skills"
)

func pendingJob(id string, jobType domain.JobType, createdAt time.Time) *domain.AnalysisJob {
	return &domain.AnalysisJob{
		ID:         id,
		OwnerID:    "owner-1",
		PropertyID: "prop-1",
		JobType:    jobType,
		Status:     domain.StatusPending,
		CreatedAt:  createdAt,
	}
}

func startWorker(t *testing.T, store *jobstest.Store, proc *Processor) *Worker {
	t.Helper()
	w := NewWorker(&Config{
		Logger:       discardLogger(),
		Store:        store,
		Processor:    proc,
		PollInterval: 5 * time.Millisecond,
	})
	go func() { _ = w.Start(context.Background()) }()
	return w
}

func jobStatus(t *testing.T, store *jobstest.Store, id string) domain.Status {
	t.Helper()
	job, err := store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return job.Status
}

func TestWorkerDrainsPendingQueue(t *testing.T) {
	store := jobstest.NewStore()
	repo := propertytest.NewRepository()
	seedOptimizationProperty(repo)

	base := time.Now()
	store.Seed(pendingJob("job-1", domain.JobTypeCompactorOptimization, base))
	store.Seed(pendingJob("job-2", domain.JobTypeCompactorOptimization, base.Add(time.Second)))

	proc := newProcessor(t, store, repo, skills.NewCompactorOptimizationSkill(discardLogger()))
	w := startWorker(t, store, proc)
	defer w.Stop()

	require.Eventually(t, func() bool {
		return jobStatus(t, store, "job-1") == domain.StatusCompleted &&
			jobStatus(t, store, "job-2") == domain.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerSurvivesJobFailures(t *testing.T) {
	store := jobstest.NewStore()
	repo := propertytest.NewRepository()
	seedOptimizationProperty(repo)

	base := time.Now()
	// First job fails: no skill registered for its type. The worker must
	// keep polling and complete the second.
	store.Seed(pendingJob("job-1", domain.JobTypeRegulatoryLookup, base))
	store.Seed(pendingJob("job-2", domain.JobTypeCompactorOptimization, base.Add(time.Second)))

	proc := newProcessor(t, store, repo, skills.NewCompactorOptimizationSkill(discardLogger()))
	w := startWorker(t, store, proc)
	defer w.Stop()

	require.Eventually(t, func() bool {
		return jobStatus(t, store, "job-1") == domain.StatusFailed &&
			jobStatus(t, store, "job-2") == domain.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	failed, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CodeUnknownJobType, failed.ErrorCode)
}

func TestWorkerStopIsIdleSafe(t *testing.T) {
	store := jobstest.NewStore()
	repo := propertytest.NewRepository()

	proc := newProcessor(t, store, repo, skills.NewCompactorOptimizationSkill(discardLogger()))
	w := startWorker(t, store, proc)

	// Let it spin on an empty queue, then stop; Stop blocks until the
	// loop drains.
	time.Sleep(20 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	store := jobstest.NewStore()
	repo := propertytest.NewRepository()

	proc := newProcessor(t, store, repo, skills.NewCompactorOptimizationSkill(discardLogger()))
	w := NewWorker(&Config{
		Logger:       discardLogger(),
		Store:        store,
		Processor:    proc,
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not exit on context cancel")
	}
}
