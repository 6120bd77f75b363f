// Package handler contains the gin handlers for the analyses API. Handlers
// are boundaries: they validate, delegate to the job store, and map store
// errors to HTTP statuses without adding computation.
package handler

import (
	"context"
	"log/slog"

	"github.com/thetrashhub/wastewise/internal/jobs"
	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/jobs/storage"
)

// JobLister is the filtered listing capability of the job storage.
type JobLister interface {
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.AnalysisJob, error)
}

// Dependencies holds all dependencies needed by handlers.
type Dependencies struct {
	Logger *slog.Logger
	Store  jobs.Store
	Lister JobLister
}

// AnalysisHandler handles analysis job HTTP requests.
type AnalysisHandler struct {
	logger *slog.Logger
	store  jobs.Store
	lister JobLister
}

// NewAnalysisHandler creates a new AnalysisHandler instance.
func NewAnalysisHandler(deps *Dependencies) *AnalysisHandler {
	return &AnalysisHandler{
		logger: deps.Logger,
		store:  deps.Store,
		lister: deps.Lister,
	}
}
