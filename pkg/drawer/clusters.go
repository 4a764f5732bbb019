package drawer

import (
	"fmt"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-consolidator/internal/store"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
	"github.com/askiada/go-consolidator/pkg/consolidator/similarity"
)

const maxRGB = 240

// DrawClusters writes the cluster diagram of a run to wrt: one filled vertex per record,
// coloured by cluster and labelled with the cluster label, and one edge per pair of records
// whose similarity reaches threshold. m may be nil, in which case no edge is drawn.
func DrawClusters(wrt io.Writer, assignments []model.ClusterAssignment, m *similarity.Matrix, threshold float64) error {
	palette, err := clusterPalette(assignments)
	if err != nil {
		return err
	}

	g := store.New(graph.StringHash)
	for _, assignment := range assignments {
		colour := palette[assignment.ID]
		for _, member := range assignment.Members {
			err := g.AddVertex(member, graph.VertexAttributes(map[string]string{
				"style":     "filled",
				"fillcolor": colour,
				"xlabel":    assignment.ID,
			}))
			if err != nil {
				return errors.Wrapf(err, "unable to add vertex %s", member)
			}
		}
	}

	if m != nil {
		paths := m.Paths()
		for i := range paths {
			if m.At(i, i) == 0 {
				continue
			}
			for j := i + 1; j < len(paths); j++ {
				score := m.At(i, j)
				if m.At(j, j) == 0 || score < threshold {
					continue
				}
				err := g.AddEdge(paths[i], paths[j], graph.EdgeAttribute("label", fmt.Sprintf("%.2f", score)))
				if errors.Is(err, graph.ErrVertexNotFound) {
					continue
				}
				if err != nil {
					return errors.Wrapf(err, "unable to add edge from %s to %s", paths[i], paths[j])
				}
			}
		}
	}

	return dot(g, wrt, GraphAttribute("label", "workflow clusters"), GraphAttribute("overlap", "false"))
}

// clusterPalette spreads taxonomy clusters from blue to red in table order. Fallback clusters
// are grey.
func clusterPalette(assignments []model.ClusterAssignment) (map[string]string, error) {
	grey, err := colors.RGB(200, 200, 200) //nolint
	if err != nil {
		return nil, errors.Wrap(err, "unable to get colour")
	}

	var labelled []string
	palette := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		if assignment.Label == model.FallbackLabel {
			palette[assignment.ID] = grey.ToHEX().String()

			continue
		}
		labelled = append(labelled, assignment.ID)
	}

	for i, id := range labelled {
		fraction := 0.0
		if len(labelled) > 1 {
			fraction = float64(i) / float64(len(labelled)-1)
		}
		red := maxRGB * fraction
		blue := maxRGB - red

		colour, err := colors.RGB(uint8(red), 96, uint8(blue)) //nolint
		if err != nil {
			return nil, errors.Wrap(err, "unable to get colour")
		}
		palette[id] = colour.ToHEX().String()
	}

	return palette, nil
}
