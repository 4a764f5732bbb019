package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-consolidator/pkg/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, name string, input *model.Step[I]) (*model.Step[I], error) {
	step := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.SinkStepType,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(input.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before sink function")
		}
	}

	return step, nil
}

// AddSink adds a step consuming every element of input in a single goroutine.
// sinkFn is never called concurrently, which makes the sink the only writer of whatever it
// accumulates.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}
	if input == nil {
		return ErrInputMustBeSet
	}

	step, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	stageErr := newStageErrorChan(name, errC)
	go func() {
		defer close(errC)
		err := runSink(pipe, input, step, sinkFn)
		if err != nil {
			errC <- err
		}
	}()
	pipe.stages.add(stageErr)

	return nil
}

func runSink[I any](pipe *Pipeline, input, step *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	for {
		startIter := time.Now()
		select {
		case <-pipe.ctx.Done():
			return pipe.ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				for _, opt := range pipe.opts {
					err := opt.AfterSink(step.Details, time.Since(pipe.startTime))
					if err != nil {
						return errors.Wrap(err, "unable to run after sink function")
					}
				}

				return nil
			}
			endIter := time.Since(startIter)

			startFn := time.Now()
			err := sinkFn(pipe.ctx, in)
			if err != nil {
				return err
			}
			endFn := time.Since(startFn)

			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(input.Details, step.Details, endIter, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run sink output option")
				}
			}
		}
	}
}
