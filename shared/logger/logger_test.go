package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBufferedLogger builds a logger whose handler writes into buf, mirroring
// what New produces for the given config.
func newBufferedLogger(t *testing.T, config *Config, buf *bytes.Buffer) *Logger {
	t.Helper()

	level := parseLevel(config.Level)
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	})

	logger := slog.New(handler)
	if config.Service != "" {
		logger = logger.With(slog.String("service", config.Service))
	}
	return &Logger{Logger: logger}
}

func decodeRecord(t *testing.T, line []byte) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &entry))
	return entry
}

func TestJSONOutputCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedLogger(t, &Config{Level: "debug", Format: "json"}, &buf)

	logger.Debug("claiming job", slog.String("job_id", "job-42"))

	entry := decodeRecord(t, buf.Bytes())
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "claiming job", entry["msg"])
	assert.Equal(t, "job-42", entry["job_id"])
	assert.Contains(t, entry, "time")
}

func TestLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedLogger(t, &Config{Level: "warn", Format: "json"}, &buf)

	logger.Info("suppressed")
	logger.Warn("emitted")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	entry := decodeRecord(t, []byte(lines[0]))
	assert.Equal(t, "emitted", entry["msg"])
}

func TestServiceFieldOnEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedLogger(t, &Config{Level: "info", Format: "json", Service: "worker-service"}, &buf)

	logger.Info("polling")

	entry := decodeRecord(t, buf.Bytes())
	assert.Equal(t, "worker-service", entry["service"])
}

func TestWithAddsPersistentFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedLogger(t, &Config{Level: "info", Format: "json"}, &buf)

	jobLogger := logger.With(slog.String("job_id", "job-7"), slog.String("job_type", "compactor_optimization"))
	jobLogger.Info("first")
	jobLogger.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		entry := decodeRecord(t, []byte(line))
		assert.Equal(t, "job-7", entry["job_id"])
		assert.Equal(t, "compactor_optimization", entry["job_type"])
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file", slog.Int("attempt", 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entry := decodeRecord(t, data)
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, float64(1), entry["attempt"])
}

func TestNewRejectsUnwritableFile(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "worker.log")})
	assert.Error(t, err)
}

func TestNewStandardStreams(t *testing.T) {
	for _, output := range []string{"", "stdout", "stderr"} {
		logger, err := New(&Config{Level: "info", Format: "console", Output: output, TimeFormat: time.Kitchen})
		require.NoError(t, err, "output %q", output)
		require.NotNil(t, logger)
	}
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "input %q", tt.input)
	}
}
