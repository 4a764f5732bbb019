package consolidator

import (
	"time"

	"github.com/google/uuid"

	"github.com/askiada/go-consolidator/pkg/consolidator/model"
	"github.com/askiada/go-consolidator/pkg/consolidator/similarity"
	"github.com/askiada/go-consolidator/pkg/pipeline/measure"
)

// Result is the structured output of one run, handed to external writers.
type Result struct {
	RunID        uuid.UUID                     `json:"run_id" yaml:"run_id"`
	Records      []*model.WorkflowRecord       `json:"records" yaml:"records"`
	Assignments  []model.ClusterAssignment     `json:"clusters" yaml:"clusters"`
	Consolidated []*model.ConsolidatedWorkflow `json:"consolidated" yaml:"consolidated"`
	// ClusterLinks holds the mean similarity of every pair of clusters.
	ClusterLinks []model.ClusterLink `json:"cluster_links" yaml:"cluster_links"`
	Matrix       *similarity.Matrix  `json:"-" yaml:"-"`
	Stats        Stats               `json:"stats" yaml:"stats"`
}

// Record returns the record extracted from path.
func (r *Result) Record(path string) (*model.WorkflowRecord, bool) {
	for _, rec := range r.Records {
		if rec.Path == path {
			return rec, true
		}
	}

	return nil, false
}

// Stats summarizes a run.
type Stats struct {
	Files    int           `json:"files" yaml:"files"`
	Unknown  int           `json:"unknown" yaml:"unknown"`
	Warnings int           `json:"warnings" yaml:"warnings"`
	Clusters int           `json:"clusters" yaml:"clusters"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	// Stages holds the pipeline measures keyed by stage name.
	Stages map[string]StageStats `json:"stages" yaml:"stages"`
	// Categories holds the keyword occurrences of every matched taxonomy category.
	Categories map[string]int `json:"categories" yaml:"categories"`
}

// StageStats is what the pipeline measured for one stage.
type StageStats struct {
	Count         int64         `json:"count" yaml:"count"`
	AvgDuration   time.Duration `json:"avg_duration" yaml:"avg_duration"`
	TotalDuration time.Duration `json:"total_duration,omitempty" yaml:"total_duration,omitempty"`
}

func newStats(res *Result, msr measure.Measure, elapsed time.Duration) Stats {
	stats := Stats{
		Files:    len(res.Records),
		Clusters: len(res.Assignments),
		Duration: elapsed,
		Stages:   map[string]StageStats{},
	}
	for _, rec := range res.Records {
		if rec.Kind == model.KindUnknown {
			stats.Unknown++
		}
		stats.Warnings += len(rec.Warnings)
	}
	for _, stage := range []string{StageScan, StageExtract, StageCollect} {
		mt := msr.GetMetric(stage)
		if mt == nil {
			continue
		}
		stats.Stages[stage] = StageStats{
			Count:         mt.Count(),
			AvgDuration:   mt.AVGDuration(),
			TotalDuration: mt.GetTotalDuration(),
		}
	}

	return stats
}
