// Package extractor turns the raw content of an automation-definition file into a
// model.WorkflowRecord.
//
// Parsing is trial-then-fallback over a closed set of parsers: the structured YAML parser
// first, then the heuristic line parser. When neither recognizes the content the file is
// kept as an Unknown record and a recoverable error is returned alongside it.
package extractor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/askiada/go-consolidator/internal/logging"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

// DefaultMaxBytes is the largest file the extractor reads.
const DefaultMaxBytes = 1 << 20

var (
	errBinary       = errors.New("binary content")
	errNotUTF8      = errors.New("content is not valid UTF-8")
	errTooLarge     = errors.New("file too large")
	errUnrecognized = errors.New("no recognizable structure")
	errTimeout      = errors.New("parse timed out")
	errNotRegular   = errors.New("not a regular file")
)

// Extractor parses files into records. It is safe for concurrent use.
type Extractor struct {
	maxBytes int64
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes sets the size limit above which a file is recorded as Unknown.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) {
		e.maxBytes = n
	}
}

// WithLogger sets the logger used for recoverable parse warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.WithModule("extractor")
	}

	return e
}

// Extract parses content read from path. The record is always returned. A non-nil error
// wraps model.ErrParseRecoverable and means the record is Unknown.
func (e *Extractor) Extract(path string, content []byte) (*model.WorkflowRecord, error) {
	switch {
	case e.maxBytes > 0 && int64(len(content)) > e.maxBytes:
		return e.unknown(path, errTooLarge)
	case bytes.IndexByte(content, 0) >= 0:
		return e.unknown(path, errBinary)
	case !utf8.Valid(content):
		return e.unknown(path, errNotUTF8)
	}

	if rec, ok := parseStructured(path, content); ok {
		return rec, nil
	}
	if rec, ok := parseHeuristic(path, content); ok {
		for _, warning := range rec.Warnings {
			e.logger.Debug("heuristic parse warning", "path", path, "warning", warning)
		}

		return rec, nil
	}

	return e.unknown(path, errUnrecognized)
}

// ExtractFile reads path and extracts it. When ctx expires before reading and parsing complete
// the file is recorded as Unknown. A cancelled ctx returns the context error and no record.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*model.WorkflowRecord, error) {
	if ctx.Err() != nil {
		return e.expired(ctx, path)
	}

	type result struct {
		rec *model.WorkflowRecord
		err error
	}
	done := make(chan result, 1)
	go func() {
		content, err := e.readFile(path)
		if err != nil {
			rec, err := e.unknown(path, err)
			done <- result{rec: rec, err: err}

			return
		}
		rec, err := e.Extract(path, content)
		done <- result{rec: rec, err: err}
	}()

	select {
	case res := <-done:
		return res.rec, res.err
	case <-ctx.Done():
		return e.expired(ctx, path)
	}
}

func (e *Extractor) expired(ctx context.Context, path string) (*model.WorkflowRecord, error) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return e.unknown(path, errTimeout)
	}

	return nil, ctx.Err()
}

// readFile only reads regular files: opening a FIFO or a device can block forever.
func (e *Extractor) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to stat file")
	}
	if !info.Mode().IsRegular() {
		return nil, errNotRegular
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open file")
	}
	defer f.Close()

	var r io.Reader = f
	if e.maxBytes > 0 {
		r = io.LimitReader(f, e.maxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read file")
	}
	if e.maxBytes > 0 && int64(len(content)) > e.maxBytes {
		return nil, errTooLarge
	}

	return content, nil
}

func (e *Extractor) unknown(path string, cause error) (*model.WorkflowRecord, error) {
	err := errors.Wrapf(model.ErrParseRecoverable, "%s: %v", path, cause)
	e.logger.Warn("keeping file as unknown record", "path", path, "error", cause)

	return model.NewUnknownRecord(path, err), err
}
