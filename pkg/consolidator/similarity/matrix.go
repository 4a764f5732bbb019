// Package similarity computes pairwise TF-IDF cosine similarity between workflow records.
package similarity

import (
	"math"
	"sort"

	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

// Matrix holds the symmetric similarity of records ordered by path.
type Matrix struct {
	paths  []string
	index  map[string]int
	values [][]float64
}

// Neighbour is a record similar to another one.
type Neighbour struct {
	Path  string  `json:"path" yaml:"path"`
	Score float64 `json:"score" yaml:"score"`
}

type term struct {
	token  string
	weight float64
}

// Compute builds the similarity matrix of records. Records are ordered by path first, so the
// matrix does not depend on the order of the input slice. Term frequency is the raw count,
// inverse document frequency is smoothed as ln((1+n)/(1+df))+1, vectors are L2-normalized
// and the similarity is their dot product. A record without tokens has similarity 0 with
// every record, itself included.
func Compute(records []*model.WorkflowRecord) *Matrix {
	sorted := make([]*model.WorkflowRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	n := len(sorted)
	m := &Matrix{
		paths:  make([]string, n),
		index:  make(map[string]int, n),
		values: make([][]float64, n),
	}

	counts := make([]map[string]int, n)
	df := map[string]int{}
	for i, rec := range sorted {
		m.paths[i] = rec.Path
		m.index[rec.Path] = i
		m.values[i] = make([]float64, n)

		counts[i] = map[string]int{}
		for _, token := range Document(rec) {
			counts[i][token]++
		}
		for token := range counts[i] {
			df[token]++
		}
	}

	vectors := make([][]term, n)
	for i := range sorted {
		vectors[i] = vectorize(counts[i], df, n)
	}

	for i := range n {
		if len(vectors[i]) > 0 {
			m.values[i][i] = 1
		}
		for j := i + 1; j < n; j++ {
			score := dot(vectors[i], vectors[j])
			m.values[i][j] = score
			m.values[j][i] = score
		}
	}

	return m
}

func vectorize(counts map[string]int, df map[string]int, n int) []term {
	vec := make([]term, 0, len(counts))
	norm := 0.0
	for token, count := range counts {
		idf := math.Log(float64(1+n)/float64(1+df[token])) + 1
		weight := float64(count) * idf
		vec = append(vec, term{token: token, weight: weight})
		norm += weight * weight
	}
	if norm == 0 {
		return nil
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].token < vec[j].token })
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].weight /= norm
	}

	return vec
}

// dot multiplies two token-sorted sparse vectors.
func dot(a, b []term) float64 {
	sum := 0.0
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i].token == b[j].token:
			sum += a[i].weight * b[j].weight
			i++
			j++
		case a[i].token < b[j].token:
			i++
		default:
			j++
		}
	}

	return math.Min(sum, 1)
}

// Len returns the number of records.
func (m *Matrix) Len() int {
	return len(m.paths)
}

// Paths returns the record paths in matrix order.
func (m *Matrix) Paths() []string {
	paths := make([]string, len(m.paths))
	copy(paths, m.paths)

	return paths
}

// Index returns the matrix position of path.
func (m *Matrix) Index(path string) (int, bool) {
	i, ok := m.index[path]

	return i, ok
}

// At returns the similarity between the records at positions i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.values[i][j]
}

// Between returns the similarity between two records by path, 0 when either is unknown.
func (m *Matrix) Between(a, b string) float64 {
	i, ok := m.index[a]
	if !ok {
		return 0
	}
	j, ok := m.index[b]
	if !ok {
		return 0
	}

	return m.values[i][j]
}

// Rows returns a copy of the matrix values.
func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, len(m.values))
	for i, row := range m.values {
		rows[i] = make([]float64, len(row))
		copy(rows[i], row)
	}

	return rows
}

// MostSimilar returns up to k records most similar to the record at i, best first. Ties are
// broken by path. Records with zero similarity are left out. k <= 0 returns all of them.
func (m *Matrix) MostSimilar(i, k int) []Neighbour {
	neighbours := make([]Neighbour, 0, len(m.paths))
	for j, score := range m.values[i] {
		if j == i || score <= 0 {
			continue
		}
		neighbours = append(neighbours, Neighbour{Path: m.paths[j], Score: score})
	}
	sort.SliceStable(neighbours, func(a, b int) bool {
		return neighbours[a].Score > neighbours[b].Score
	})
	if k > 0 && len(neighbours) > k {
		neighbours = neighbours[:k]
	}

	return neighbours
}

// Cohesion returns the mean pairwise similarity of the records at indices. A single record
// has cohesion 1 and an empty set 0.
func (m *Matrix) Cohesion(indices []int) float64 {
	switch len(indices) {
	case 0:
		return 0
	case 1:
		return 1
	}
	sum, pairs := 0.0, 0
	for a := range indices {
		for b := a + 1; b < len(indices); b++ {
			sum += m.values[indices[a]][indices[b]]
			pairs++
		}
	}

	return sum / float64(pairs)
}

// CrossMean returns the mean similarity between the records at a and those at b, 0 when
// either set is empty.
func (m *Matrix) CrossMean(a, b []int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range a {
		for _, j := range b {
			sum += m.values[i][j]
		}
	}

	return sum / float64(len(a)*len(b))
}
