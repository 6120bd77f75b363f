package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
)

// JobFilter narrows a job listing.
type JobFilter struct {
	OwnerID    string
	PropertyID string
	JobType    string
	Status     string
	PageSize   int
	Cursor     *JobCursor
}

// JobCursor is an opaque keyset-pagination position.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns jobs matching the filter, newest first. It fetches one
// row beyond PageSize so the caller can detect whether more results exist.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}

	if filter.PropertyID != "" {
		query += fmt.Sprintf(" AND property_id = $%d", argIdx)
		args = append(args, filter.PropertyID)
		argIdx++
	}

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, id DESC for consistent pagination
	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]domain.AnalysisJob, len(rows))
	for i := range rows {
		jobs[i] = *rows[i].toDomain()
	}

	return jobs, nil
}
