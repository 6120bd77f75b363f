package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetrashhub/wastewise/internal/jobs/storage"
)

func TestJobCursorRoundTrip(t *testing.T) {
	original := &storage.JobCursor{
		CreatedAt: time.Unix(0, 1756200000000000000),
		JobID:     "9f2a9a3e-9c1e-4a53-8f1f-0f1f2f3f4f5f",
	}

	encoded, err := EncodeJobCursor(original)
	require.NoError(t, err)

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, original.JobID, decoded.JobID)
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeJobCursorEmptyMeansFirstPage(t *testing.T) {
	cursor, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeJobCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeJobCursor("!!not-base64")
	assert.Error(t, err)

	// Valid base64 but wrong shape.
	_, err = DecodeJobCursor("bm90LWEtY3Vyc29y")
	assert.Error(t, err)
}
