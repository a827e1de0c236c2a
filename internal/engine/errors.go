package engine

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Match them with errors.Is.
var (
	// ErrPersistenceUnavailable means a store read or write failed; nothing was committed.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrNotFound means the referenced kid or task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClockUnavailable means the current calendar day could not be computed.
	ErrClockUnavailable = errors.New("clock unavailable")
)

// Error is returned by every failed engine operation.
type Error struct {
	Op   string // operation that failed, e.g. "check_and_reset"
	Kind error  // one of the Err* kinds above
	Err  error  // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine.%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("engine.%s: %v", e.Op, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the engine error kind carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrClockUnavailable, ErrPersistenceUnavailable} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func kindLabel(kind error) string {
	switch kind {
	case ErrPersistenceUnavailable:
		return "persistence_unavailable"
	case ErrNotFound:
		return "not_found"
	case ErrClockUnavailable:
		return "clock_unavailable"
	default:
		return "unknown"
	}
}
