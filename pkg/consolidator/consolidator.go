// Package consolidator runs one consolidation over a workspace: it scans the tree, extracts
// one record per candidate file, clusters the records and merges every cluster into a
// consolidated workflow.
//
// Extraction runs on a pkg/pipeline stage pipeline with bounded workers feeding a single
// collecting sink. Similarity and clustering wait for the complete record set. Synthesis runs
// once per cluster in parallel.
package consolidator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-consolidator/internal/logging"
	"github.com/askiada/go-consolidator/pkg/consolidator/annotation"
	"github.com/askiada/go-consolidator/pkg/consolidator/cluster"
	"github.com/askiada/go-consolidator/pkg/consolidator/extractor"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
	"github.com/askiada/go-consolidator/pkg/consolidator/scanner"
	"github.com/askiada/go-consolidator/pkg/consolidator/similarity"
	"github.com/askiada/go-consolidator/pkg/consolidator/synthesis"
	"github.com/askiada/go-consolidator/pkg/pipeline"
	"github.com/askiada/go-consolidator/pkg/pipeline/measure"
	pipelinemodel "github.com/askiada/go-consolidator/pkg/pipeline/model"
)

// Stage names used in the pipeline and in Stats.
const (
	StageScan    = "scan"
	StageExtract = "extract"
	StageCollect = "collect"
)

// Consolidator runs consolidations. It keeps no state between runs and Run may be called
// again on the same value.
type Consolidator struct {
	cfg       Config
	scanner   *scanner.Scanner
	extractor *extractor.Extractor
	clusters  *cluster.Engine
	lookup    annotation.Lookup
	logger    *slog.Logger
	pipeOpts  []pipelinemodel.PipelineOption
}

// Option configures a Consolidator.
type Option func(*Consolidator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consolidator) {
		c.logger = logger
	}
}

// WithAnnotations sets the annotation lookup. It takes precedence over Config.AnnotationsFile.
func WithAnnotations(lookup annotation.Lookup) Option {
	return func(c *Consolidator) {
		c.lookup = lookup
	}
}

// WithPipelineOptions adds options to the extraction pipeline, for instance a drawer.
func WithPipelineOptions(opts ...pipelinemodel.PipelineOption) Option {
	return func(c *Consolidator) {
		c.pipeOpts = append(c.pipeOpts, opts...)
	}
}

// New creates a Consolidator from cfg.
func New(cfg Config, opts ...Option) (*Consolidator, error) {
	c := &Consolidator{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.WithModule("consolidator")
	}
	if c.cfg.Concurrency < 1 {
		c.cfg.Concurrency = 1
	}

	scanOpts := []scanner.Option{scanner.WithLogger(c.logger.With("component", "scanner"))}
	if cfg.Exclude != nil {
		scanOpts = append(scanOpts, scanner.WithExclude(cfg.Exclude...))
	}
	if len(cfg.Extensions) > 0 {
		scanOpts = append(scanOpts, scanner.WithExtensions(cfg.Extensions...))
	}
	c.scanner = scanner.New(cfg.Root, scanOpts...)

	c.extractor = extractor.New(
		extractor.WithMaxBytes(cfg.MaxFileBytes),
		extractor.WithLogger(c.logger.With("component", "extractor")),
	)

	taxonomy := cfg.Taxonomy
	if taxonomy == nil {
		taxonomy = cluster.DefaultTaxonomy()
	}
	clusters, err := cluster.New(
		cluster.WithTaxonomy(taxonomy),
		cluster.WithThreshold(cfg.Threshold),
		cluster.WithLogger(c.logger.With("component", "cluster")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create cluster engine")
	}
	c.clusters = clusters

	if c.lookup == nil && cfg.AnnotationsFile != "" {
		lookup, err := annotation.Load(cfg.AnnotationsFile, cfg.Root)
		if err != nil {
			return nil, err
		}
		c.lookup = lookup
	}
	if c.lookup == nil {
		c.lookup = annotation.None
	}

	return c, nil
}

// Run performs one consolidation. The only fatal condition is a missing workspace root
// (model.ErrPathNotFound); files that cannot be parsed are kept as Unknown records. When ctx
// is cancelled the partial work is discarded and the context error is returned.
func (c *Consolidator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.New()
	logger := c.logger.With("run_id", runID.String())

	err := c.scanner.CheckRoot()
	if err != nil {
		return nil, err
	}

	msr := measure.NewDefaultMeasure()
	records, err := c.collect(ctx, logger, msr)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info("records extracted", "count", len(records))

	matrix := similarity.Compute(records)
	assignments, err := c.clusters.Cluster(records, matrix)
	if err != nil {
		return nil, errors.Wrap(err, "unable to cluster records")
	}

	consolidated, err := c.synthesize(ctx, assignments, records)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:        runID,
		Records:      records,
		Assignments:  assignments,
		Consolidated: consolidated,
		ClusterLinks: cluster.Links(assignments, matrix),
		Matrix:       matrix,
	}
	res.Stats = newStats(res, msr, time.Since(start))
	res.Stats.Categories = c.clusters.Distribution(records)
	logger.Info("consolidation done",
		"files", res.Stats.Files,
		"unknown", res.Stats.Unknown,
		"clusters", res.Stats.Clusters,
		"duration", res.Stats.Duration,
	)

	return res, nil
}

// collect runs the scan and extraction stages and returns the records sorted by path.
func (c *Consolidator) collect(
	ctx context.Context,
	logger *slog.Logger,
	msr measure.Measure,
) ([]*model.WorkflowRecord, error) {
	opts := append([]pipelinemodel.PipelineOption{measure.PipelineMeasure(msr)}, c.pipeOpts...)
	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pipeline")
	}

	paths, err := pipeline.AddRootStep(pipe, StageScan, c.scanner.Stream)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add scan step")
	}

	extracted, err := pipeline.AddStepOneToOne(pipe, StageExtract, paths,
		func(ctx context.Context, path string) (*model.WorkflowRecord, error) {
			return c.extract(ctx, logger, path)
		},
		pipeline.StepConcurrency[*model.WorkflowRecord](c.cfg.Concurrency),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add extract step")
	}

	byPath := make(map[string]*model.WorkflowRecord)
	err = pipeline.AddSink(pipe, StageCollect, extracted, func(_ context.Context, rec *model.WorkflowRecord) error {
		byPath[rec.Path] = rec

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add collect sink")
	}

	err = pipe.Run()
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			logger.Warn("stage stopped", "stage", stageErr.Stage, "error", stageErr.Err)
		}

		return nil, errors.Wrap(err, "unable to extract records")
	}

	records := make([]*model.WorkflowRecord, 0, len(byPath))
	for _, rec := range byPath {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	return records, nil
}

// extract parses one file under the configured timeout. Recoverable failures are logged and
// the Unknown record is kept.
func (c *Consolidator) extract(ctx context.Context, logger *slog.Logger, path string) (*model.WorkflowRecord, error) {
	fileCtx := ctx
	if c.cfg.ParseTimeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, c.cfg.ParseTimeout)
		defer cancel()
	}

	rec, err := c.extractor.ExtractFile(fileCtx, path)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, model.ErrParseRecoverable):
		logger.Debug("file kept as unknown", "path", path, "error", err)

		return rec, nil
	default:
		return nil, err
	}
}

// synthesize merges every cluster in parallel. Each worker writes only its own slot.
func (c *Consolidator) synthesize(
	ctx context.Context,
	assignments []model.ClusterAssignment,
	records []*model.WorkflowRecord,
) ([]*model.ConsolidatedWorkflow, error) {
	consolidated := make([]*model.ConsolidatedWorkflow, len(assignments))

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(c.cfg.Concurrency)
	for i, assignment := range assignments {
		errGrp.Go(func() error {
			if err := dCtx.Err(); err != nil {
				return err
			}
			cw, err := synthesis.Synthesize(assignment, records, c.lookup)
			if err != nil {
				return errors.Wrapf(err, "unable to consolidate cluster %s", assignment.ID)
			}
			consolidated[i] = cw

			return nil
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return nil, err
	}

	return consolidated, nil
}
