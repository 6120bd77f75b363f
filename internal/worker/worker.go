// Package worker runs the single background poller that drains the pending
// job queue. One job is in flight at a time; claim atomicity in the store
// keeps multiple worker processes safe.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thetrashhub/wastewise/internal/jobs"
	"github.com/thetrashhub/wastewise/internal/jobs/domain"
)

// Config holds worker configuration.
type Config struct {
	Logger       *slog.Logger
	Store        jobs.Store
	Processor    *Processor
	PollInterval time.Duration
}

// Worker polls the store for pending jobs at a fixed interval and hands
// each claimed job to the processor. Errors and panics are confined to the
// iteration that raised them; the loop never dies.
type Worker struct {
	logger       *slog.Logger
	store        jobs.Store
	processor    *Processor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a worker.
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:       cfg.Logger,
		store:        cfg.Store,
		processor:    cfg.Processor,
		pollInterval: cfg.PollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the poll loop until Stop is called or the context is canceled.
// An in-flight job finishes before the loop exits.
func (w *Worker) Start(ctx context.Context) error {
	defer close(w.doneChan)

	w.logger.Info("Starting worker",
		slog.Duration("poll_interval", w.pollInterval),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker stopping")
			return nil
		case <-ctx.Done():
			w.logger.Info("Worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		claimed := w.pollOnce(ctx)
		if !claimed {
			select {
			case <-w.stopChan:
				w.logger.Info("Worker stopping")
				return nil
			case <-ctx.Done():
				w.logger.Info("Worker context canceled, stopping")
				return ctx.Err()
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// Stop signals the loop to exit after the current iteration and waits for
// it to drain.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker")
	close(w.stopChan)
	<-w.doneChan
	w.logger.Info("Worker stopped")
}

// pollOnce claims and processes at most one job. It reports whether a job
// was claimed so the caller can skip the idle sleep while the queue has
// work.
func (w *Worker) pollOnce(ctx context.Context) (claimed bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Recovered from panic in poll iteration",
				slog.Any("panic", r),
			)
		}
	}()

	job, err := w.store.ClaimNextPending(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoJobAvailable) {
			return false
		}
		w.logger.Error("Failed to claim pending job", slog.Any("error", err))
		return false
	}

	w.logger.Info("Claimed job",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
	)

	if err := w.processor.Process(ctx, job); err != nil {
		w.logger.Error("Job processing failed",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
	}
	return true
}
