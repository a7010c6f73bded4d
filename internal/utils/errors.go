package utils

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Use errors.Is to test an error chain.
var (
	// ErrTransport marks network-level failures with no interpretable response.
	ErrTransport = errors.New("transport failure")
	// ErrBackend marks a non-success response from the glassbox backend.
	ErrBackend = errors.New("backend failure")
	// ErrSchemaMismatch marks a response body matching none of the known wire shapes.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrNotFound marks an analysis id absent from both the session cache and the backend.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks caller-supplied arguments that cannot be submitted.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind classifies an AppError.
type ErrorKind string

const (
	KindTransport      ErrorKind = "transport"
	KindBackend        ErrorKind = "backend"
	KindSchemaMismatch ErrorKind = "schema_mismatch"
	KindNotFound       ErrorKind = "not_found"
	KindInvalidInput   ErrorKind = "invalid_input"
)

var kindSentinels = map[ErrorKind]error{
	KindTransport:      ErrTransport,
	KindBackend:        ErrBackend,
	KindSchemaMismatch: ErrSchemaMismatch,
	KindNotFound:       ErrNotFound,
	KindInvalidInput:   ErrInvalidInput,
}

// AppError wraps an operation, its failure kind, an HTTP-like status code,
// a human-facing message, and the underlying error.
type AppError struct {
	Op     string
	Kind   ErrorKind
	Status int
	Msg    string
	Err    error
}

func (e *AppError) Error() string {
	prefix := e.Op
	if e.Status != 0 {
		prefix = fmt.Sprintf("%s (status %d)", e.Op, e.Status)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *AppError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// NewAppError constructs an AppError without a kind or status.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewKindError constructs a classified AppError.
func NewKindError(op string, kind ErrorKind, status int, msg string, err error) *AppError {
	return &AppError{Op: op, Kind: kind, Status: status, Msg: msg, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or "" when none carries one.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	for err != nil {
		if errors.As(err, &appErr) {
			if appErr.Kind != "" {
				return appErr.Kind
			}
			err = appErr.Err
			continue
		}
		return ""
	}
	return ""
}

// StatusOf returns the HTTP-like status of the first AppError in err's chain that has one.
func StatusOf(err error) int {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return 0
		}
		if appErr.Status != 0 {
			return appErr.Status
		}
		err = appErr.Err
	}
	return 0
}
