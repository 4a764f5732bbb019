package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	ErrInputMustBeSet    = errors.New("input step must be set")
)

// StageError reports the stage a pipeline error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageErrors collects the error channel of every stage added to a pipeline.
type stageErrors struct {
	mu   sync.Mutex
	list []*stageErrorChan
}

func (se *stageErrors) add(errChan *stageErrorChan) {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.list = append(se.list, errChan)
}

func (se *stageErrors) snapshot() []*stageErrorChan {
	se.mu.Lock()
	defer se.mu.Unlock()

	return append([]*stageErrorChan(nil), se.list...)
}

type stageErrorChan struct {
	c     <-chan error
	stage string
}

func newStageErrorChan(stage string, c <-chan error) *stageErrorChan {
	return &stageErrorChan{
		c:     c,
		stage: stage,
	}
}

// mergeErrors fans the stage channels into one channel of *StageError.
// Based on https://blog.golang.org/pipelines.
func mergeErrors(cs ...*stageErrorChan) <-chan error {
	var wg sync.WaitGroup
	// Sized so that draining stops early without leaking the forwarding goroutines.
	out := make(chan error, len(cs))

	forward := func(c *stageErrorChan) {
		defer wg.Done()
		if c.c == nil {
			return
		}
		for err := range c.c {
			out <- &StageError{Stage: c.stage, Err: err}
		}
	}
	wg.Add(len(cs))
	for _, c := range cs {
		go forward(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
