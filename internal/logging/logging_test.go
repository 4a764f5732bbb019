package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-consolidator/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tcs {
		assert.Equal(t, want, logging.ParseLevel(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, "warn", "json")
	logger.Info("dropped")
	logger.Warn("kept", "path", "a.yml")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"path":"a.yml"`)
}
