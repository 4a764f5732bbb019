// Package cluster groups workflow records into functional clusters.
//
// Records are first classified against an ordered taxonomy table by keyword occurrences.
// Records no category matches are grouped by similarity: two records are joined when their
// similarity reaches the threshold, and each connected component becomes a
// "General Automation" cluster.
package cluster

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-consolidator/internal/logging"
	"github.com/askiada/go-consolidator/internal/store"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
	"github.com/askiada/go-consolidator/pkg/consolidator/similarity"
)

// DefaultThreshold is the minimum similarity joining two unclassified records.
const DefaultThreshold = 0.3

// Engine classifies and groups records. It holds no per-run state.
type Engine struct {
	taxonomy   Taxonomy
	categories []compiledCategory
	threshold  float64
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTaxonomy replaces the default taxonomy table.
func WithTaxonomy(taxonomy Taxonomy) Option {
	return func(e *Engine) {
		e.taxonomy = taxonomy
	}
}

// WithThreshold sets the similarity threshold. The comparison is inclusive.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine and validates its taxonomy.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		taxonomy:  DefaultTaxonomy(),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.WithModule("cluster")
	}
	if e.threshold < 0 || e.threshold > 1 {
		return nil, errors.Errorf("threshold %v out of [0, 1]", e.threshold)
	}
	err := e.taxonomy.Validate()
	if err != nil {
		return nil, err
	}
	e.categories = compile(e.taxonomy)

	return e, nil
}

// Threshold returns the similarity threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// CategoryScore is the keyword score of a record for one taxonomy category.
type CategoryScore struct {
	Label string `json:"label" yaml:"label"`
	Score int    `json:"score" yaml:"score"`
}

// Scores returns the keyword occurrences of every category in rec's triggers, actions and
// description, in taxonomy order.
func (e *Engine) Scores(rec *model.WorkflowRecord) []CategoryScore {
	fields := make([][]string, 0, len(rec.Triggers)+len(rec.Actions)+1)
	for _, trigger := range rec.Triggers {
		fields = append(fields, similarity.Tokenize(trigger))
	}
	for _, action := range rec.Actions {
		fields = append(fields, similarity.Tokenize(action))
	}
	fields = append(fields, similarity.Tokenize(rec.Description))

	scores := make([]CategoryScore, len(e.categories))
	for i, category := range e.categories {
		scores[i].Label = category.label
		for _, keyword := range category.keywords {
			for _, tokens := range fields {
				scores[i].Score += countPhrase(tokens, keyword)
			}
		}
	}

	return scores
}

// Classify returns the taxonomy label of rec and its keyword score. ok is false when no
// keyword occurs in the record's triggers, actions or description. Ties go to the earlier
// category.
func (e *Engine) Classify(rec *model.WorkflowRecord) (string, int, bool) {
	best := CategoryScore{}
	for _, score := range e.Scores(rec) {
		if score.Score > best.Score {
			best = score
		}
	}
	if best.Score == 0 {
		return "", 0, false
	}

	return best.Label, best.Score, true
}

// Distribution sums the keyword occurrences of every category over records. Categories with
// no occurrence are left out.
func (e *Engine) Distribution(records []*model.WorkflowRecord) map[string]int {
	dist := map[string]int{}
	for _, rec := range records {
		for _, score := range e.Scores(rec) {
			if score.Score > 0 {
				dist[score.Label] += score.Score
			}
		}
	}

	return dist
}

// Cluster assigns every record to exactly one cluster. Taxonomy clusters come first in table
// order, then fallback clusters ordered by their smallest member path. When m is nil the
// similarity matrix is computed from records.
func (e *Engine) Cluster(records []*model.WorkflowRecord, m *similarity.Matrix) ([]model.ClusterAssignment, error) {
	sorted := make([]*model.WorkflowRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	if m == nil {
		m = similarity.Compute(sorted)
	}

	byLabel := make(map[string][]string, len(e.categories))
	var deferred []string
	for _, rec := range sorted {
		label, score, ok := e.Classify(rec)
		if !ok {
			deferred = append(deferred, rec.Path)

			continue
		}
		e.logger.Debug("record classified", "path", rec.Path, "label", label, "score", score)
		byLabel[label] = append(byLabel[label], rec.Path)
	}

	assignments := make([]model.ClusterAssignment, 0, len(e.categories))
	for _, category := range e.categories {
		members := byLabel[category.label]
		if len(members) == 0 {
			continue
		}
		assignments = append(assignments, model.ClusterAssignment{
			ID:       Slug(category.label),
			Label:    category.label,
			Members:  members,
			Cohesion: cohesion(m, members),
		})
	}

	components, err := e.components(deferred, m)
	if err != nil {
		return nil, err
	}
	fallback := Slug(model.FallbackLabel)
	for i, members := range components {
		assignments = append(assignments, model.ClusterAssignment{
			ID:       fmt.Sprintf("%s-%d", fallback, i+1),
			Label:    model.FallbackLabel,
			Members:  members,
			Cohesion: cohesion(m, members),
		})
	}

	return assignments, nil
}

// components builds the similarity graph of the deferred records and returns its connected
// components, each sorted, ordered by smallest member.
func (e *Engine) components(paths []string, m *similarity.Matrix) ([][]string, error) {
	g := store.New(graph.StringHash)
	for _, path := range paths {
		err := g.AddVertex(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add vertex %s", path)
		}
	}

	for a := range paths {
		if !hasSignal(m, paths[a]) {
			continue
		}
		for b := a + 1; b < len(paths); b++ {
			if !hasSignal(m, paths[b]) {
				continue
			}
			score := m.Between(paths[a], paths[b])
			if score < e.threshold {
				continue
			}
			err := g.AddEdge(paths[a], paths[b], graph.EdgeAttribute("score", fmt.Sprintf("%.3f", score)))
			if err != nil {
				return nil, errors.Wrapf(err, "unable to add edge from %s to %s", paths[a], paths[b])
			}
		}
	}

	visited := make(map[string]struct{}, len(paths))
	var components [][]string
	for _, path := range paths {
		if _, ok := visited[path]; ok {
			continue
		}
		var members []string
		err := graph.BFS(g, path, func(vertex string) bool {
			visited[vertex] = struct{}{}
			members = append(members, vertex)

			return false
		})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to walk component of %s", path)
		}
		sort.Strings(members)
		components = append(components, members)
	}

	return components, nil
}

// hasSignal reports whether the record has a non-empty document, which is exactly when its
// self-similarity is 1.
func hasSignal(m *similarity.Matrix, path string) bool {
	i, ok := m.Index(path)

	return ok && m.At(i, i) > 0
}

// Links returns the mean cross similarity of every pair of clusters, in assignment order.
func Links(assignments []model.ClusterAssignment, m *similarity.Matrix) []model.ClusterLink {
	indices := make([][]int, len(assignments))
	for i, assignment := range assignments {
		for _, member := range assignment.Members {
			if idx, ok := m.Index(member); ok {
				indices[i] = append(indices[i], idx)
			}
		}
	}

	links := make([]model.ClusterLink, 0, len(assignments)*(len(assignments)-1)/2)
	for i := range assignments {
		for j := i + 1; j < len(assignments); j++ {
			links = append(links, model.ClusterLink{
				From:       assignments[i].ID,
				To:         assignments[j].ID,
				Similarity: m.CrossMean(indices[i], indices[j]),
			})
		}
	}

	return links
}

func cohesion(m *similarity.Matrix, members []string) float64 {
	indices := make([]int, 0, len(members))
	for _, member := range members {
		if i, ok := m.Index(member); ok {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 && len(members) == 1 {
		return 1
	}

	return m.Cohesion(indices)
}
