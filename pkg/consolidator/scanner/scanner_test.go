package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-consolidator/internal/logging"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
	"github.com/askiada/go-consolidator/pkg/consolidator/scanner"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o600))
}

func collect(t *testing.T, s *scanner.Scanner) []string {
	t.Helper()

	var got []string
	err := s.Walk(t.Context(), func(path string) error {
		rel, err := filepath.Rel(s.Root(), path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))

		return nil
	})
	require.NoError(t, err)

	return got
}

func newWorkspace(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	for _, rel := range []string{
		".github/workflows/ci.yml",
		".github/workflows/release.YAML",
		"docs/runbook.md",
		"docs/notes.txt",
		"pipelines/nightly.workflow",
		"node_modules/pkg/ci.yml",
		"services/api/node_modules/dep/ci.yml",
		"services/api/build/out.yml",
		"services/api/deploy.yml",
	} {
		writeFile(t, root, rel)
	}

	return root
}

func TestWalk(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t)
	s := scanner.New(root, scanner.WithLogger(logging.Discard()))

	assert.Equal(t, []string{
		".github/workflows/ci.yml",
		".github/workflows/release.YAML",
		"docs/runbook.md",
		"pipelines/nightly.workflow",
		"services/api/deploy.yml",
	}, collect(t, s))
}

func TestWalkIsRestartable(t *testing.T) {
	t.Parallel()

	s := scanner.New(newWorkspace(t), scanner.WithLogger(logging.Discard()))
	assert.Equal(t, collect(t, s), collect(t, s))
}

func TestWalkCustomFilters(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t)
	s := scanner.New(root,
		scanner.WithLogger(logging.Discard()),
		scanner.WithExtensions("md", ".txt"),
		scanner.WithExclude(),
	)

	assert.Equal(t, []string{"docs/notes.txt", "docs/runbook.md"}, collect(t, s))
}

func TestWalkSymlinkCycle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a/ci.yml")
	err := os.Symlink(root, filepath.Join(root, "a", "loop"))
	if err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	s := scanner.New(root, scanner.WithLogger(logging.Discard()))
	assert.Equal(t, []string{"a/ci.yml"}, collect(t, s))
}

func TestWalkFollowsSymlinkedDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	shared := t.TempDir()
	writeFile(t, shared, "shared.yml")
	err := os.Symlink(shared, filepath.Join(root, "linked"))
	if err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	s := scanner.New(root, scanner.WithLogger(logging.Discard()))
	assert.Equal(t, []string{"linked/shared.yml"}, collect(t, s))
}

func TestWalkMissingRoot(t *testing.T) {
	t.Parallel()

	s := scanner.New(filepath.Join(t.TempDir(), "missing"))
	err := s.Walk(t.Context(), func(string) error { return nil })
	require.ErrorIs(t, err, model.ErrPathNotFound)
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	s := scanner.New(newWorkspace(t), scanner.WithLogger(logging.Discard()))
	calls := 0
	err := s.Walk(t.Context(), func(string) error {
		calls++

		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestStreamCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	s := scanner.New(newWorkspace(t), scanner.WithLogger(logging.Discard()))
	err := s.Stream(ctx, make(chan string))
	require.ErrorIs(t, err, context.Canceled)
}
