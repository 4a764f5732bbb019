package model

import "time"

// PipelineOption observes a pipeline run. The pipeline calls New once when it is created,
// the Prepare hooks while stages are added, the output hooks for every element a stage
// emits and Finish once every stage has drained without error.
type PipelineOption interface {
	New() error

	// PrepareStep is called when a root or one-to-one stage is added. parentStep is the
	// start marker for a root stage.
	PrepareStep(parentStep, step *StepInfo) error
	// OnStepOutput is called for every element a stage emits. iterationDuration is the time
	// spent waiting on the channels, computationDuration the time spent in the stage function.
	OnStepOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error

	// PrepareSink is called when the sink is added.
	PrepareSink(parentStep, step *StepInfo) error
	// OnSinkOutput is called for every element the sink consumes.
	OnSinkOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
	// AfterSink is called once the sink input is exhausted, with the time since the
	// pipeline was created.
	AfterSink(step *StepInfo, totalDuration time.Duration) error

	Finish() error
}
