package annotation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-consolidator/pkg/consolidator/annotation"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

func TestStatic(t *testing.T) {
	t.Parallel()

	s := annotation.Static{"a/ci.yml": {Tag: "flaky"}}

	got, ok := s.Annotation("a/./ci.yml")
	require.True(t, ok)
	assert.Equal(t, "flaky", got.Tag)

	_, ok = s.Annotation("b.yml")
	assert.False(t, ok)

	_, ok = annotation.None.Annotation("a/ci.yml")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "annotations.yml")
	content := `annotations:
  - path: .github/workflows/ci.yml
    emotion: frustrated
    tag: flaky
    context: retried three times
    prompt: stabilize the integration job
    score: 0.8
  - path: /abs/runbook.md
    tag: old
  - path: /abs/runbook.md
    tag: current
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := annotation.Load(path, "/workspace")
	require.NoError(t, err)
	assert.Equal(t, []string{"/abs/runbook.md", "/workspace/.github/workflows/ci.yml"}, s.Paths())

	got, ok := s.Annotation("/workspace/.github/workflows/ci.yml")
	require.True(t, ok)
	assert.Equal(t, model.Annotation{
		Emotion: "frustrated",
		Tag:     "flaky",
		Context: "retried three times",
		Prompt:  "stabilize the integration job",
		Score:   0.8,
	}, got)

	got, ok = s.Annotation("/abs/runbook.md")
	require.True(t, ok)
	assert.Equal(t, "current", got.Tag)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := annotation.Load(filepath.Join(dir, "missing.yml"), "")
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("annotations: {"), 0o600))
	_, err = annotation.Load(bad, "")
	require.Error(t, err)

	noPath := filepath.Join(dir, "nopath.yml")
	require.NoError(t, os.WriteFile(noPath, []byte("annotations:\n  - tag: x\n"), 0o600))
	_, err = annotation.Load(noPath, "")
	require.ErrorContains(t, err, "has no path")
}
