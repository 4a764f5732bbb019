//go:build unix

package consolidator_test

import (
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithFIFOInWorkspace(t *testing.T) {
	t.Parallel()

	root := writeWorkspace(t, map[string]string{
		".github/workflows/pr.yml": scenarioFiles[".github/workflows/pr.yml"],
	})
	require.NoError(t, syscall.Mkfifo(filepath.Join(root, ".github", "workflows", "pipe.yml"), 0o600))

	res, err := newConsolidator(t, root, nil).Run(t.Context())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, []string{".github/workflows/pr.yml"}, rel(t, root, []string{res.Records[0].Path}))
}
