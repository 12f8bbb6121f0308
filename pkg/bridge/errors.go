package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("bridge: record not found")
	// ErrSaveFailed reports a rejected insert or update.
	ErrSaveFailed = errors.New("bridge: save failed")
	// ErrUnavailable reports lost connectivity or a failed query.
	ErrUnavailable = errors.New("bridge: data store unavailable")
	// ErrIdentifier reports a table or column outside the allow-list.
	ErrIdentifier = errors.New("bridge: identifier not allowed")
)

// Error decorates a bridge failure with the operation and table involved.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Table == "" {
		return fmt.Sprintf("bridge: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("bridge: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap returns err decorated with op and table. Nil stays nil.
func Wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Op: op, Table: table, Err: err}
}

// Message returns a short user facing description of err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The record could not be found."
	case errors.Is(err, ErrSaveFailed):
		return "The record could not be saved."
	case errors.Is(err, ErrIdentifier):
		return "The form refers to data that is not available."
	default:
		return "The data store is not reachable. Try again later."
	}
}
