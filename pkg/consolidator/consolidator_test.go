package consolidator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-consolidator/internal/logging"
	"github.com/askiada/go-consolidator/pkg/consolidator"
	"github.com/askiada/go-consolidator/pkg/consolidator/annotation"
	"github.com/askiada/go-consolidator/pkg/consolidator/cluster"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

// scenarioFiles splits 3/1/1. Keywords match whole words only, so the push and schedule
// workflows carry "pr", "merge" or "review" in their commands to land in PR Management, while
// mvp.yml only hits Testing keywords and the headers-only runbook has no signal at all.
var scenarioFiles = map[string]string{
	".github/workflows/merge-queue.yml": `name: Merge Queue
description: Merge approved pull requests
on: push
jobs:
  merge:
    runs-on: ubuntu-latest
    steps:
      - run: gh pr merge --auto
`,
	".github/workflows/triage.yml": `name: Review triage
on:
  schedule:
    - cron: "0 9 * * 1"
jobs:
  triage:
    runs-on: ubuntu-latest
    steps:
      - run: gh pr list --review-requested
`,
	".github/workflows/pr.yml": `name: Pull request checks
on: pull_request
jobs:
  check:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: npm test
      - run: gh pr review --approve
`,
	"docs/notes.md": "# Notes\n\n## Overview\n",
	".github/workflows/mvp.yml": `name: MVP Validation
on: workflow_dispatch
jobs:
  validate:
    runs-on: ubuntu-latest
    steps:
      - run: npm run test:mvp
      - run: python validate_mvp.py
`,
	"node_modules/dep/.github/workflows/ci.yml": "on: push\njobs:\n  x:\n    steps:\n      - run: gh pr merge\n",
	"README.txt": "not scanned",
}

func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

func newConsolidator(t *testing.T, root string, mutate func(*consolidator.Config), opts ...consolidator.Option) *consolidator.Consolidator {
	t.Helper()

	cfg := consolidator.DefaultConfig()
	cfg.Root = root
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := consolidator.New(cfg, append([]consolidator.Option{consolidator.WithLogger(logging.Discard())}, opts...)...)
	require.NoError(t, err)

	return c
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()

	res := make([]string, len(paths))
	for i, path := range paths {
		r, err := filepath.Rel(root, path)
		require.NoError(t, err)
		res[i] = filepath.ToSlash(r)
	}

	return res
}

func TestRunScenario(t *testing.T) {
	t.Parallel()

	root := writeWorkspace(t, scenarioFiles)
	res, err := newConsolidator(t, root, nil).Run(t.Context())
	require.NoError(t, err)

	require.Len(t, res.Records, 5)
	require.Len(t, res.Assignments, 3)

	pr := res.Assignments[0]
	assert.Equal(t, "pr-management", pr.ID)
	assert.Equal(t, "PR Management", pr.Label)
	assert.Equal(t, []string{
		".github/workflows/merge-queue.yml",
		".github/workflows/pr.yml",
		".github/workflows/triage.yml",
	}, rel(t, root, pr.Members))

	testingCluster := res.Assignments[1]
	assert.Equal(t, "Testing", testingCluster.Label)
	assert.Equal(t, []string{".github/workflows/mvp.yml"}, rel(t, root, testingCluster.Members))

	general := res.Assignments[2]
	assert.Equal(t, model.FallbackLabel, general.Label)
	assert.Equal(t, []string{"docs/notes.md"}, rel(t, root, general.Members))

	require.Len(t, res.Consolidated, 3)
	merged := res.Consolidated[0]
	assert.Equal(t, "PR Management Master Workflow", merged.Name)
	assert.Equal(t, []string{"pull_request", "push", "schedule"}, merged.MergedTriggers)
	assert.Equal(t, []string{
		"gh pr merge --auto",
		"actions/checkout@v4",
		"npm test",
		"gh pr review --approve",
		"gh pr list --review-requested",
	}, merged.MergedSteps)
	assert.Equal(t, filepath.Join(root, ".github/workflows/pr.yml"), merged.Provenance["npm test"])

	notes, ok := res.Record(filepath.Join(root, "docs", "notes.md"))
	require.True(t, ok)
	assert.Equal(t, model.KindMarkdownRunbook, notes.Kind)

	assert.Equal(t, 5, res.Stats.Files)
	assert.Zero(t, res.Stats.Unknown)
	assert.Equal(t, 3, res.Stats.Clusters)
	assert.Equal(t, int64(5), res.Stats.Stages[consolidator.StageExtract].Count)
	assert.Equal(t, int64(5), res.Stats.Stages[consolidator.StageCollect].Count)
	assert.Equal(t, 5, res.Matrix.Len())
	assert.Equal(t, map[string]int{"PR Management": 8, "Testing": 3}, res.Stats.Categories)

	require.Len(t, res.ClusterLinks, 3)
	assert.Equal(t, "pr-management", res.ClusterLinks[0].From)
	assert.Equal(t, "testing", res.ClusterLinks[0].To)
	assert.Greater(t, res.ClusterLinks[0].Similarity, 0.0)
	assert.Zero(t, res.ClusterLinks[2].Similarity)
}

func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	root := writeWorkspace(t, scenarioFiles)

	sequential, err := newConsolidator(t, root, func(cfg *consolidator.Config) { cfg.Concurrency = 1 }).Run(t.Context())
	require.NoError(t, err)
	parallel, err := newConsolidator(t, root, func(cfg *consolidator.Config) { cfg.Concurrency = 16 }).Run(t.Context())
	require.NoError(t, err)

	assert.NotEqual(t, sequential.RunID, parallel.RunID)
	assert.Equal(t, sequential.Records, parallel.Records)
	assert.Equal(t, sequential.Assignments, parallel.Assignments)
	assert.Equal(t, sequential.Consolidated, parallel.Consolidated)
	assert.Equal(t, sequential.ClusterLinks, parallel.ClusterLinks)
	assert.Equal(t, sequential.Matrix.Rows(), parallel.Matrix.Rows())
}

func TestRunCompleteness(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a/one.yml":        "on: push\nsteps:\n  - run: make lint\n",
		"a/two.yaml":       "on: push\nsteps:\n  - run: make lint\n",
		"b/binary.yml":     "on: push\x00",
		"b/plain.md":       "nothing to see\n",
		"c/deploy.YML":     "on: push\nsteps:\n  - run: ./deploy.sh\n",
		"c/audit.workflow": "Tasks:\n- npm audit\n",
		"d/empty.yaml":     "",
	}
	root := writeWorkspace(t, files)
	res, err := newConsolidator(t, root, nil).Run(t.Context())
	require.NoError(t, err)

	seen := map[string]int{}
	for _, assignment := range res.Assignments {
		for _, member := range assignment.Members {
			seen[member]++
		}
	}
	require.Len(t, seen, len(files))
	for relPath := range files {
		assert.Equal(t, 1, seen[filepath.Join(root, filepath.FromSlash(relPath))], relPath)
	}

	assert.Equal(t, 3, res.Stats.Unknown)
	assert.Equal(t, 3, res.Stats.Warnings)
	binary, ok := res.Record(filepath.Join(root, "b", "binary.yml"))
	require.True(t, ok)
	assert.Equal(t, model.KindUnknown, binary.Kind)
	assert.Equal(t, model.ParserNone, binary.Parser)
}

func TestRunEmptyCorpus(t *testing.T) {
	t.Parallel()

	res, err := newConsolidator(t, t.TempDir(), nil).Run(t.Context())
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Assignments)
	assert.Empty(t, res.Consolidated)
	assert.NotNil(t, res.Assignments)
	assert.NotNil(t, res.Consolidated)
}

func TestRunMissingRoot(t *testing.T) {
	t.Parallel()

	res, err := newConsolidator(t, filepath.Join(t.TempDir(), "missing"), nil).Run(t.Context())
	require.ErrorIs(t, err, model.ErrPathNotFound)
	assert.Nil(t, res)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	root := writeWorkspace(t, scenarioFiles)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res, err := newConsolidator(t, root, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunAnnotations(t *testing.T) {
	t.Parallel()

	root := writeWorkspace(t, scenarioFiles)
	mvp := filepath.Join(root, ".github", "workflows", "mvp.yml")

	res, err := newConsolidator(t, root, nil,
		consolidator.WithAnnotations(annotation.Static{mvp: {Emotion: "anxious", Tag: "mvp"}}),
	).Run(t.Context())
	require.NoError(t, err)

	require.Len(t, res.Consolidated, 3)
	assert.Equal(t, map[string]model.Annotation{mvp: {Emotion: "anxious", Tag: "mvp"}}, res.Consolidated[1].Annotations)
	assert.Nil(t, res.Consolidated[0].Annotations)
}

func TestRunAnnotationsFile(t *testing.T) {
	t.Parallel()

	root := writeWorkspace(t, scenarioFiles)
	file := filepath.Join(t.TempDir(), "annotations.yml")
	require.NoError(t, os.WriteFile(file, []byte("annotations:\n  - path: docs/notes.md\n    tag: stale\n"), 0o600))

	res, err := newConsolidator(t, root, func(cfg *consolidator.Config) { cfg.AnnotationsFile = file }).Run(t.Context())
	require.NoError(t, err)

	notes := filepath.Join(root, "docs", "notes.md")
	assert.Equal(t, "stale", res.Consolidated[2].Annotations[notes].Tag)
}

func TestRunCustomTaxonomy(t *testing.T) {
	t.Parallel()

	root := writeWorkspace(t, scenarioFiles)
	res, err := newConsolidator(t, root, func(cfg *consolidator.Config) {
		cfg.Taxonomy = cluster.Taxonomy{{Label: "Python", Keywords: []string{"python"}}}
	}).Run(t.Context())
	require.NoError(t, err)

	require.NotEmpty(t, res.Assignments)
	assert.Equal(t, "python", res.Assignments[0].ID)
	assert.Equal(t, []string{".github/workflows/mvp.yml"}, rel(t, root, res.Assignments[0].Members))
	for _, assignment := range res.Assignments[1:] {
		assert.Equal(t, model.FallbackLabel, assignment.Label)
	}
}

func TestNewInvalidTaxonomy(t *testing.T) {
	t.Parallel()

	cfg := consolidator.DefaultConfig()
	cfg.Taxonomy = cluster.Taxonomy{{Label: model.FallbackLabel, Keywords: []string{"x1"}}}
	_, err := consolidator.New(cfg)
	require.ErrorIs(t, err, cluster.ErrInvalidTaxonomy)
}
