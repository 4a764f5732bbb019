package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-consolidator/internal/config"
	"github.com/askiada/go-consolidator/pkg/consolidator/cluster"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "consolidator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, cluster.DefaultThreshold, cfg.Threshold)
	assert.Equal(t, cluster.DefaultTaxonomy(), cfg.Taxonomy)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `root: /srv/workspace
threshold: 0.5
concurrency: 8
parse_timeout: 2s
exclude: [vendor]
log_format: json
taxonomy:
  - label: Release
    keywords: [release, tag]
  - label: Lint
    keywords: [lint]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/workspace", cfg.Root)
	assert.Equal(t, 0.5, cfg.Threshold)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.ParseTimeout)
	assert.Equal(t, []string{"vendor"}, cfg.Exclude)
	assert.Equal(t, config.Default().Extensions, cfg.Extensions)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, cluster.Taxonomy{
		{Label: "Release", Keywords: []string{"release", "tag"}},
		{Label: "Lint", Keywords: []string{"lint"}},
	}, cfg.Taxonomy)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CONSOLIDATOR_THRESHOLD", "0.75")
	t.Setenv("CONSOLIDATOR_ROOT", "/from/env")
	t.Setenv("CONSOLIDATOR_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.Threshold)
	assert.Equal(t, "/from/env", cfg.Root)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"threshold":       "threshold: 1.5\n",
		"concurrency":     "concurrency: 0\n",
		"log level":       "log_level: loud\n",
		"empty keywords":  "taxonomy:\n  - label: Empty\n    keywords: []\n",
		"duplicate label": "taxonomy:\n  - {label: A, keywords: [x1]}\n  - {label: a, keywords: [x2]}\n",
		"fallback label":  "taxonomy:\n  - {label: General Automation, keywords: [make]}\n",
		"no extensions":   "extensions: []\n",
	}

	for name, content := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(writeConfig(t, content))
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
