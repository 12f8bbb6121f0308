package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrIncomplete is returned when a save completion never arrived, which
	// means the session was given no pump for an asynchronous renderer.
	ErrIncomplete = errors.New("tui: save did not complete")
	// ErrGaveUp is returned after the last validation round still fails.
	ErrGaveUp = errors.New("tui: form still invalid")
)
