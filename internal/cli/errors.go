package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/jaa/soundloader/internal/engine"
	"github.com/jaa/soundloader/internal/exitcode"
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// pipelineExitCode classifies errors returned by Resolve and Materialize.
func pipelineExitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitcode.Interrupted
	case errors.Is(err, engine.ErrInvalidURL):
		return exitcode.InvalidUsage
	case errors.Is(err, engine.ErrResolveFailed):
		return exitcode.ResolveFailed
	case errors.Is(err, engine.ErrMaterializeFailed):
		return exitcode.MaterializeFailed
	default:
		return exitcode.RuntimeFailure
	}
}

func mapExitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var coded *ExitError
	if errors.As(err, &coded) {
		return coded.Code
	}
	message := err.Error()
	if strings.Contains(message, "unknown command") || strings.Contains(message, "unknown flag") {
		return exitcode.InvalidUsage
	}
	return exitcode.RuntimeFailure
}
