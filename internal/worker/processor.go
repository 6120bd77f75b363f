package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thetrashhub/wastewise/internal/jobs"
	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/property"
	"github.com/thetrashhub/wastewise/internal/search"
	"github.com/thetrashhub/wastewise/internal/skills"
)

// cancelCheckInterval throttles cancellation probes against the store so a
// tight skill loop cannot hammer the database.
const cancelCheckInterval = 2 * time.Second

// Processor executes one claimed job end to end: resolve the skill, load
// the subject data it requires, run it under a timeout, and record the
// terminal outcome in the store.
type Processor struct {
	store        jobs.Store
	properties   property.Repository
	registry     *skills.Registry
	skillTimeout time.Duration
	logger       *slog.Logger
}

// NewProcessor creates a processor.
func NewProcessor(store jobs.Store, properties property.Repository, registry *skills.Registry, skillTimeout time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		store:        store,
		properties:   properties,
		registry:     registry,
		skillTimeout: skillTimeout,
		logger:       logger,
	}
}

type execOutcome struct {
	result *skills.Result
	err    error
}

// Process runs a claimed job. All outcomes are recorded in the store; the
// returned error reports the job failure for the caller's log line and is
// nil for completed and cancelled jobs.
func (p *Processor) Process(ctx context.Context, job *domain.AnalysisJob) error {
	log := p.logger.With(
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
		slog.String("property_id", job.PropertyID),
	)

	skill, err := p.registry.Resolve(job.JobType)
	if err != nil {
		log.Error("No skill for job type")
		p.fail(ctx, log, job.ID, fmt.Sprintf("no skill registered for job type %q", job.JobType), domain.CodeUnknownJobType)
		return err
	}

	sc, err := p.buildContext(ctx, job, skill.Requires())
	if err != nil {
		log.Error("Failed to load property data", slog.Any("error", err))
		p.fail(ctx, log, job.ID, fmt.Sprintf("failed to load data for property %s", job.PropertyID), domain.CodeSkillExecution)
		return err
	}

	execCtx, cancel := context.WithTimeout(ctx, p.skillTimeout)
	defer cancel()

	done := make(chan execOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- execOutcome{err: domain.NewSkillError(fmt.Sprintf("skill panicked: %v", r), nil)}
			}
		}()
		result, execErr := skill.Execute(execCtx, sc)
		done <- execOutcome{result: result, err: execErr}
	}()

	select {
	case <-execCtx.Done():
		if !errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			// Parent cancellation (worker shutdown), not a slow skill.
			// No store write: the cancelled context could not carry one
			// through anyway, and a timeout code would misreport it.
			log.Warn("Job interrupted by shutdown")
			return ctx.Err()
		}
		log.Error("Skill execution timed out", slog.Duration("timeout", p.skillTimeout))
		p.fail(ctx, log, job.ID, fmt.Sprintf("execution exceeded the %s limit", p.skillTimeout), domain.CodeSkillTimeout)
		return domain.ErrSkillTimeout

	case outcome := <-done:
		return p.finish(ctx, log, job, outcome)
	}
}

// finish records the skill's outcome. A cancelled result means the store
// already holds the terminal cancelled status, so no further write happens.
func (p *Processor) finish(ctx context.Context, log *slog.Logger, job *domain.AnalysisJob, outcome execOutcome) error {
	if outcome.err != nil {
		log.Error("Skill execution failed", slog.Any("error", outcome.err))
		p.fail(ctx, log, job.ID, outcome.err.Error(), classifyError(outcome.err))
		return outcome.err
	}

	if outcome.result.Cancelled {
		log.Info("Job cancelled during execution",
			slog.Int("external_calls", outcome.result.Usage.ExternalCalls),
		)
		return nil
	}

	data, err := json.Marshal(outcome.result.Data)
	if err != nil {
		log.Error("Failed to encode skill result", slog.Any("error", err))
		p.fail(ctx, log, job.ID, "failed to encode result", domain.CodeSkillExecution)
		return err
	}

	if err := p.store.CompleteJob(ctx, job.ID, data, outcome.result.Usage); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Cancelled between the last step and completion; the
			// cancelled status wins.
			log.Info("Completion skipped, job no longer processing")
			return nil
		}
		log.Error("Failed to record completion", slog.Any("error", err))
		return err
	}

	log.Info("Job completed",
		slog.Int("external_calls", outcome.result.Usage.ExternalCalls),
		slog.Float64("cost_estimate", outcome.result.Usage.CostEstimate),
	)
	return nil
}

// buildContext loads the subject data the skill declared and wires the
// progress and cancellation callbacks.
func (p *Processor) buildContext(ctx context.Context, job *domain.AnalysisJob, reqs skills.Requirements) (*skills.Context, error) {
	sc := &skills.Context{
		JobID:      job.ID,
		PropertyID: job.PropertyID,
		Params:     job.Payload,
	}

	if reqs.Profile {
		profile, err := p.properties.GetProfile(ctx, job.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		sc.Profile = profile
	}
	if reqs.Equipment {
		equipment, err := p.properties.GetEquipment(ctx, job.PropertyID)
		if err != nil && !errors.Is(err, property.ErrNotFound) {
			return nil, fmt.Errorf("load equipment: %w", err)
		}
		sc.Equipment = equipment
	}
	if reqs.Financials {
		financials, err := p.properties.GetFinancials(ctx, job.PropertyID)
		if err != nil && !errors.Is(err, property.ErrNotFound) {
			return nil, fmt.Errorf("load financials: %w", err)
		}
		sc.Financials = financials
	}
	if reqs.Invoices {
		invoices, err := p.properties.ListInvoiceRows(ctx, job.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("load invoice rows: %w", err)
		}
		sc.Invoices = invoices
	}
	if len(reqs.DocumentKinds) > 0 {
		sc.Documents = make(map[string][]property.Document, len(reqs.DocumentKinds))
		for _, kind := range reqs.DocumentKinds {
			docs, err := p.properties.ListDocuments(ctx, job.PropertyID, kind)
			if err != nil {
				return nil, fmt.Errorf("load %s documents: %w", kind, err)
			}
			sc.Documents[kind] = docs
		}
	}

	sc.Progress = func(percent int, step string, stepsCompleted, totalSteps int) {
		if err := p.store.UpdateProgress(ctx, job.ID, percent, step, stepsCompleted, totalSteps); err != nil {
			p.logger.Warn("Progress update rejected",
				slog.String("job_id", job.ID),
				slog.Int("percent", percent),
				slog.Any("error", err),
			)
		}
	}
	sc.Cancelled = p.cancellationProbe(ctx, job.ID)

	return sc, nil
}

// cancellationProbe returns a throttled check against the store's view of
// the job. Once cancellation is observed it sticks.
func (p *Processor) cancellationProbe(ctx context.Context, jobID string) func() bool {
	var mu sync.Mutex
	var lastCheck time.Time
	var cancelled bool

	return func() bool {
		mu.Lock()
		defer mu.Unlock()

		if cancelled {
			return true
		}
		if !lastCheck.IsZero() && time.Since(lastCheck) < cancelCheckInterval {
			return false
		}
		lastCheck = time.Now()

		job, err := p.store.GetJob(ctx, jobID)
		if err != nil {
			p.logger.Warn("Cancellation check failed",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			return false
		}
		cancelled = job.Status == domain.StatusCancelled
		return cancelled
	}
}

// fail records a terminal failure, tolerating the race where the job was
// cancelled first.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, jobID, message, code string) {
	if err := p.store.FailJob(ctx, jobID, message, code); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Info("Failure skipped, job already terminal")
			return
		}
		log.Error("Failed to record job failure", slog.Any("error", err))
	}
}

// classifyError maps an execution error onto the job error taxonomy.
func classifyError(err error) string {
	var providersErr *search.AllProvidersError
	switch {
	case errors.Is(err, domain.ErrSkillTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.CodeSkillTimeout
	case errors.As(err, &providersErr):
		return domain.CodeAllProvidersFailed
	default:
		return domain.CodeSkillExecution
	}
}
