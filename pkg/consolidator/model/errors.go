package model

import "github.com/pkg/errors"

var (
	// ErrPathNotFound is returned when the workspace root does not exist. It is the only
	// condition that aborts a run.
	ErrPathNotFound = errors.New("path not found")
	// ErrParseRecoverable marks a file that could not be parsed. The file is kept as an
	// Unknown record and the run continues.
	ErrParseRecoverable = errors.New("recoverable parse error")
)
