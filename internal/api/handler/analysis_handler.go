package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thetrashhub/wastewise/internal/api/dto"
	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/jobs/storage"
)

// CreateAnalysis handles POST /api/v1/analyses
// Records a new pending analysis job; the worker picks it up on its next poll.
func (h *AnalysisHandler) CreateAnalysis(c *gin.Context) {
	var req dto.CreateAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	jobType := domain.JobType(req.JobType)
	if !jobType.IsKnown() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown job_type",
			"code":  domain.CodeUnknownJobType,
		})
		return
	}

	now := time.Now()
	job := domain.AnalysisJob{
		ID:         uuid.New().String(),
		OwnerID:    req.OwnerID,
		PropertyID: req.PropertyID,
		JobType:    jobType,
		Status:     domain.StatusPending,
		Payload:    req.Payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.store.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create analysis job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create analysis",
		})
		return
	}

	h.logger.Info("Analysis job created",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
		slog.String("property_id", job.PropertyID),
	)

	c.JSON(http.StatusCreated, toAnalysisDTO(&job))
}

// GetAnalysis handles GET /api/v1/analyses/:job_id
// Returns the job's stored state verbatim: status, progress, result, error.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "analysis not found",
			})
			return
		}
		h.logger.Error("Failed to get analysis job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get analysis",
		})
		return
	}

	c.JSON(http.StatusOK, toAnalysisDTO(job))
}

// ListAnalyses handles GET /api/v1/analyses
// Lists jobs with optional filtering and cursor pagination.
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	var req dto.ListAnalysesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		OwnerID:    req.OwnerID,
		PropertyID: req.PropertyID,
		JobType:    req.JobType,
		Status:     req.Status,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	}

	jobList, err := h.lister.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list analysis jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list analyses",
		})
		return
	}

	hasMore := len(jobList) > req.PageSize
	if hasMore {
		jobList = jobList[:req.PageSize]
	}

	analyses := make([]dto.AnalysisDTO, len(jobList))
	for i := range jobList {
		analyses[i] = toAnalysisDTO(&jobList[i])
	}

	var nextCursor string
	if hasMore {
		last := jobList[len(jobList)-1]
		nextCursor, err = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.ID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListAnalysesResponse{
		Analyses:   analyses,
		NextCursor: nextCursor,
	})
}

// CancelAnalysis handles POST /api/v1/analyses/:job_id/cancel
// Cancels a pending or processing job; terminal jobs return 409.
func (h *AnalysisHandler) CancelAnalysis(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	if err := h.store.CancelJob(c.Request.Context(), jobID); err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "analysis not found",
			})
		case errors.Is(err, domain.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{
				"error": "analysis is already in a terminal state",
				"code":  domain.CodeInvalidTransition,
			})
		default:
			h.logger.Error("Failed to cancel analysis job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to cancel analysis",
			})
		}
		return
	}

	h.logger.Info("Analysis job cancelled", slog.String("job_id", jobID))

	job, err := h.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"job_id": jobID,
			"status": string(domain.StatusCancelled),
		})
		return
	}
	c.JSON(http.StatusOK, toAnalysisDTO(job))
}

func toAnalysisDTO(job *domain.AnalysisJob) dto.AnalysisDTO {
	d := dto.AnalysisDTO{
		JobID:           job.ID,
		OwnerID:         job.OwnerID,
		PropertyID:      job.PropertyID,
		JobType:         string(job.JobType),
		Status:          string(job.Status),
		ProgressPercent: job.ProgressPercent,
		CurrentStep:     job.CurrentStep,
		StepsCompleted:  job.StepsCompleted,
		Payload:         job.Payload,
		ResultData:      job.ResultData,
		ErrorMessage:    job.ErrorMessage,
		ErrorCode:       job.ErrorCode,
		ExternalCalls:   job.ExternalCalls,
		InputTokens:     job.InputTokens,
		OutputTokens:    job.OutputTokens,
		CostEstimate:    job.CostEstimate,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		d.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		d.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return d
}
