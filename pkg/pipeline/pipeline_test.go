package pipeline_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-consolidator/pkg/pipeline"
	"github.com/askiada/go-consolidator/pkg/pipeline/measure"
	"github.com/askiada/go-consolidator/pkg/pipeline/model"
)

func rootFn(total int) func(ctx context.Context, rootChan chan<- int) error {
	return func(ctx context.Context, rootChan chan<- int) error {
		for i := range total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	}
}

func TestAddRootStepNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddRootStep(nil, "root step", rootFn(10))
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddStepOneToOneNilArguments(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddStepOneToOne(nil, "step", &model.Step[int]{}, func(_ context.Context, input int) (int, error) {
		return input, nil
	})
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)
	_, err = pipeline.AddStepOneToOne(pipe, "step", (*model.Step[int])(nil), func(_ context.Context, input int) (int, error) {
		return input, nil
	})
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddSinkNilArguments(t *testing.T) {
	t.Parallel()

	err := pipeline.AddSink(nil, "sink", &model.Step[int]{}, func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)
	err = pipeline.AddSink(pipe, "sink", (*model.Step[int])(nil), func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestPipelineRootStepSink(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	pipe, err := pipeline.New(t.Context(), measure.PipelineMeasure(msr))
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", rootFn(20))
	require.NoError(t, err)

	squared, err := pipeline.AddStepOneToOne(pipe, "square", root, func(_ context.Context, input int) (int, error) {
		return input * input, nil
	}, pipeline.StepConcurrency[int](4))
	require.NoError(t, err)

	var got []int
	err = pipeline.AddSink(pipe, "collect", squared, func(_ context.Context, input int) error {
		got = append(got, input)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())

	sort.Ints(got)
	want := make([]int, 20)
	for i := range want {
		want[i] = i * i
	}
	assert.Equal(t, want, got)

	metrics := msr.AllMetrics()
	require.Contains(t, metrics, "square")
	require.Contains(t, metrics, "collect")
	assert.EqualValues(t, 20, metrics["square"].Count())
	assert.EqualValues(t, 20, metrics["collect"].Count())
	assert.Greater(t, int64(metrics["collect"].GetTotalDuration()), int64(0))
}

func TestPipelineStepError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", rootFn(10))
	require.NoError(t, err)

	step, err := pipeline.AddStepOneToOne(pipe, "fail", root, func(_ context.Context, input int) (int, error) {
		if input == 5 {
			return 0, assert.AnError
		}

		return input, nil
	}, pipeline.StepConcurrency[int](2))
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", step, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "fail", stageErr.Stage)
}

func TestPipelineSinkError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", rootFn(10))
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", root, func(_ context.Context, input int) error {
		if input == 3 {
			return assert.AnError
		}

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "collect", stageErr.Stage)
}

func TestPipelineCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	pipe, err := pipeline.New(ctx)
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", func(ctx context.Context, rootChan chan<- int) error {
		for i := 0; ; i++ {
			if i == 5 {
				cancel()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}
	})
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", root, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, context.Canceled)
}
