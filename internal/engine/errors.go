package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResolveFailed     = errors.New("resolve failed")
	ErrMaterializeFailed = errors.New("materialize failed")
	ErrInvalidURL        = errors.New("invalid track url")
)

// NetworkError reports a DNS, connection or timeout failure before any
// HTTP status was received.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("request to %s failed: status=%d", e.URL, e.StatusCode)
}

type UnexpectedError struct {
	URL string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error for %s: %v", e.URL, e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}

// ParseError reports a marker that could not be found in HTML, JS, JSON or
// playlist text.
type ParseError struct {
	Source string
	Marker string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: marker %q not found", e.Source, e.Marker)
}

type AssemblyError struct {
	Missing []int
	Err     error
}

func (e *AssemblyError) Error() string {
	if len(e.Missing) > 0 {
		parts := make([]string, 0, len(e.Missing))
		for _, index := range e.Missing {
			parts = append(parts, fmt.Sprintf("%d", index))
		}
		return fmt.Sprintf("assembly failed: missing segment(s) %s", strings.Join(parts, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("assembly failed: %v", e.Err)
	}
	return "assembly failed"
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

type TaggingError struct {
	Path string
	Err  error
}

func (e *TaggingError) Error() string {
	return fmt.Sprintf("tagging %s: %v", e.Path, e.Err)
}

func (e *TaggingError) Unwrap() error {
	return e.Err
}

// ResolveError carries the pipeline step that aborted a resolve call.
type ResolveError struct {
	Step string
	URL  string
	Err  error
}

func (e *ResolveError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("resolve %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("resolve %s (%s): %v", e.Step, e.URL, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

func (e *ResolveError) Is(target error) bool {
	return target == ErrResolveFailed
}

type MaterializeError struct {
	Step string
	Err  error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize %s: %v", e.Step, e.Err)
}

func (e *MaterializeError) Unwrap() error {
	return e.Err
}

func (e *MaterializeError) Is(target error) bool {
	return target == ErrMaterializeFailed
}
