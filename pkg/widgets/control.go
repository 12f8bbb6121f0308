package widgets

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-iform/pkg/schema"
)

// ErrUnknownOption is returned when a list-backed control is given a value
// that matches none of its loaded options.
var ErrUnknownOption = errors.New("widgets: value matches no option")

// Control is the capability set every built control exposes. OnChange
// listeners fire for user edits only; SetValue is a programmatic write and
// stays silent.
type Control interface {
	ID() string
	Kind() schema.WidgetType
	Value() any
	SetValue(value any) error
	SetEnabled(enabled bool)
	Enabled() bool
	SetVisible(visible bool)
	Visible() bool
	SetReadOnly(readonly bool)
	ReadOnly() bool
	ShowError(message string)
	ClearError()
	ErrorMessage() string
	OnChange(fn func(value any))
	Focus()
}

// OptionControl is implemented by list-backed controls (combo box, radio
// group).
type OptionControl interface {
	Control
	SetOptions(options []Option)
	Options() []Option
}

// Option is one selectable entry.
type Option struct {
	Value any
	Label string
}

// ControlSpec is the fully resolved description handed to a Toolkit.
type ControlSpec struct {
	ID          string
	Kind        schema.WidgetType
	Variant     string
	Label       string
	Placeholder string
	Tooltip     string
	Direction   schema.Direction

	ReadOnly bool
	Enabled  bool
	Visible  bool
	Required bool

	// RequiredMarker is appended to the label when Required is set.
	RequiredMarker string

	Style      Style
	IconMarkup string
	Prefix     string
	Suffix     string
	InputMask  string

	Multiline bool
	Numeric   bool
	Decimals  int
	Min       *float64
	Max       *float64

	Options    []Option
	AllowEmpty bool
	// LazyOptions marks query/api sources the renderer fills later.
	LazyOptions bool

	Format string
}

// Toolkit builds concrete controls. Implementations never block.
type Toolkit interface {
	Build(spec ControlSpec) (Control, error)
}

// ToolkitFunc adapts a function to Toolkit.
type ToolkitFunc func(spec ControlSpec) (Control, error)

// Build implements Toolkit.
func (f ToolkitFunc) Build(spec ControlSpec) (Control, error) {
	return f(spec)
}

// SameValue compares option values loosely so 2, 2.0 and "2" match, the way
// values arriving from JSON, SQL drivers and user input differ in type.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := schema.Number(a); ok {
		if bn, ok := schema.Number(b); ok {
			return an == bn
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// FindOption returns the option whose value matches v.
func FindOption(options []Option, v any) (Option, bool) {
	for _, opt := range options {
		if SameValue(opt.Value, v) {
			return opt, true
		}
	}
	return Option{}, false
}
