package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thetrashhub/wastewise/internal/jobs/storage"
)

// DecodeJobCursor parses an opaque pagination cursor. An empty cursor means
// the first page.
func DecodeJobCursor(cursorStr string) (*storage.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	createdAtStr, jobID, found := strings.Cut(string(decoded), "|")
	if !found || jobID == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	createdAt, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at in cursor: %w", err)
	}

	return &storage.JobCursor{
		CreatedAt: time.Unix(0, createdAt),
		JobID:     jobID,
	}, nil
}

// EncodeJobCursor renders a cursor as base64("unixnano|job_id").
func EncodeJobCursor(cursor *storage.JobCursor) (string, error) {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.JobID)
	return base64.StdEncoding.EncodeToString([]byte(cs)), nil
}
