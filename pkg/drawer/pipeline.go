package drawer

import (
	"io"
	"sort"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-consolidator/internal/store"
	"github.com/askiada/go-consolidator/pkg/pipeline/measure"
	"github.com/askiada/go-consolidator/pkg/pipeline/model"
)

// pipelineDrawer records the shape of a pipeline while it is built, measures it while it runs
// and writes its stage diagram once it has finished.
type pipelineDrawer struct {
	model.PipelineOption

	wrt   io.Writer
	msr   measure.Measure
	steps []string
	links [][2]string
}

// PipelineDrawer returns a pipeline option writing the stage diagram of the pipeline to wrt
// when the pipeline finishes. Vertices carry the average computation time of each stage and
// edges the average time spent waiting on the parent stage.
func PipelineDrawer(wrt io.Writer) model.PipelineOption {
	msr := measure.NewDefaultMeasure()

	return &pipelineDrawer{
		PipelineOption: measure.PipelineMeasure(msr),
		wrt:            wrt,
		msr:            msr,
	}
}

func (pd *pipelineDrawer) New() error {
	err := pd.PipelineOption.New()
	if err != nil {
		return err
	}
	pd.steps = append(pd.steps, model.StartStep.Details.Name, model.EndStep.Details.Name)

	return nil
}

func (pd *pipelineDrawer) PrepareStep(parentStep, step *model.StepInfo) error {
	err := pd.PipelineOption.PrepareStep(parentStep, step)
	if err != nil {
		return err
	}
	pd.steps = append(pd.steps, step.Name)
	pd.links = append(pd.links, [2]string{parentStep.Name, step.Name})

	return nil
}

func (pd *pipelineDrawer) PrepareSink(parentStep, step *model.StepInfo) error {
	err := pd.PipelineOption.PrepareSink(parentStep, step)
	if err != nil {
		return err
	}
	pd.steps = append(pd.steps, step.Name)
	pd.links = append(pd.links,
		[2]string{parentStep.Name, step.Name},
		[2]string{step.Name, model.EndStep.Details.Name},
	)

	return nil
}

func (pd *pipelineDrawer) Finish() error {
	err := pd.PipelineOption.Finish()
	if err != nil {
		return err
	}

	colours, err := transportColours(pd.msr)
	if err != nil {
		return err
	}
	metrics := pd.msr.AllMetrics()

	g := store.New(graph.StringHash, graph.Directed())
	for _, name := range pd.steps {
		attributes := map[string]string{}
		if mt, ok := metrics[name]; ok {
			label := ""
			if avg := mt.AVGDuration(); avg != 0 {
				label = avg.String()
			}
			if total := mt.GetTotalDuration(); total > 0 {
				label += ", end: " + total.String()
			}
			if label != "" {
				attributes["xlabel"] = label
			}
		}
		err := g.AddVertex(name, graph.VertexAttributes(attributes))
		if err != nil {
			return errors.Wrapf(err, "unable to add step %s", name)
		}
	}

	for _, link := range pd.links {
		parent, child := link[0], link[1]
		options := []func(*graph.EdgeProperties){}
		if mt, ok := metrics[child]; ok {
			if info, ok := mt.AVGTransportDuration()[parent]; ok && info.Elapsed > 0 {
				options = append(options,
					graph.EdgeAttribute("label", info.Elapsed.String()),
					graph.EdgeAttribute("fontcolor", "blue"),
					graph.EdgeAttribute("color", colours[info.Elapsed]),
				)
			}
		}
		err := g.AddEdge(parent, child, options...)
		if err != nil {
			return errors.Wrapf(err, "unable to add link from %s to %s", parent, child)
		}
	}

	err = dot(g, pd.wrt, GraphAttribute("rankdir", "LR"))
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// transportColours maps every distinct average transport duration to a colour, from blue for
// the shortest to red for the longest.
func transportColours(msr measure.Measure) (map[time.Duration]string, error) {
	var elapsed []time.Duration
	seen := map[time.Duration]struct{}{}
	for _, mt := range msr.AllMetrics() {
		for _, info := range mt.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}
			if _, ok := seen[info.Elapsed]; ok {
				continue
			}
			seen[info.Elapsed] = struct{}{}
			elapsed = append(elapsed, info.Elapsed)
		}
	}
	sort.Slice(elapsed, func(i, j int) bool { return elapsed[i] > elapsed[j] })

	res := make(map[time.Duration]string, len(elapsed))
	if len(elapsed) == 0 {
		return res, nil
	}

	maxValue, minValue := elapsed[0], elapsed[len(elapsed)-1]
	for _, curr := range elapsed {
		fraction := 1.0
		if maxValue > minValue {
			fraction = float64(curr-minValue) / float64(maxValue-minValue)
		}
		red := maxRGB * fraction
		blue := maxRGB - red

		colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
		if err != nil {
			return nil, errors.Wrap(err, "unable to get colour")
		}
		res[curr] = colour.ToHEX().String()
	}

	return res, nil
}
