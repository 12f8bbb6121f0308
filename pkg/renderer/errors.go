package renderer

import "errors"

var (
	// ErrClosed is returned by operations on a closed form.
	ErrClosed = errors.New("renderer: form is closed")
	// ErrNoForm is returned before a form is loaded.
	ErrNoForm = errors.New("renderer: no form loaded")
	// ErrNoBridge is returned by data operations without a data bridge.
	ErrNoBridge = errors.New("renderer: no data bridge configured")
	// ErrUnknownField is wrapped when an id names no field.
	ErrUnknownField = errors.New("renderer: unknown field")
	// ErrUnknownAction is wrapped when an id names no action.
	ErrUnknownAction = errors.New("renderer: unknown action")
	// ErrActionDisabled is wrapped when a hidden or disabled action is triggered.
	ErrActionDisabled = errors.New("renderer: action is disabled")
	// ErrUnsavedChanges is returned when closing is declined or cannot be
	// confirmed.
	ErrUnsavedChanges = errors.New("renderer: form has unsaved changes")
	// ErrNoHandler is wrapped when a custom action names no registered handler.
	ErrNoHandler = errors.New("renderer: no handler registered")
	// ErrInvalid is returned through SaveResult when validation fails.
	ErrInvalid = errors.New("renderer: form has invalid fields")
)
