// Package state tracks the lifecycle of a form: the load/edit/save state
// machine, per-field dirty tracking against the loaded baseline, and the
// bounded undo/redo history of live-edit commands.
package state

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-iform/pkg/schema"
)

// State is a lifecycle state.
type State string

const (
	Loading State = "LOADING"
	Ready   State = "READY"
	Dirty   State = "DIRTY"
	Saving  State = "SAVING"
	Saved   State = "SAVED"
	Error   State = "ERROR"
)

// transitions lists the legal moves. Error is reachable from every state and
// handled separately.
var transitions = map[State][]State{
	Loading: {Ready},
	Ready:   {Dirty, Loading},
	Dirty:   {Saving, Ready, Loading},
	Saving:  {Saved},
	Saved:   {Dirty, Loading, Ready},
	Error:   {Dirty, Saving, Ready, Loading},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	if to == Error {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrBusy is wrapped when an operation is attempted while a save or load is
// in flight.
var ErrBusy = errors.New("state: operation already in progress")

// StateError reports a rejected transition.
type StateError struct {
	Op   string
	From State
	To   State
	Err  error
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("state: %s not allowed in %s", e.Op, e.From)
	if e.To != "" {
		msg = fmt.Sprintf("state: %s: %s -> %s not allowed", e.Op, e.From, e.To)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Listener observes state changes.
type Listener func(from, to State)

// Machine is the form lifecycle. It is owned by the UI loop and is not safe
// for concurrent use.
type Machine struct {
	state     State
	baseline  map[string]any
	current   map[string]any
	dirty     map[string]struct{}
	lastErr   error
	listeners []Listener
}

// NewMachine returns a machine in Loading.
func NewMachine() *Machine {
	return &Machine{
		state:    Loading,
		baseline: make(map[string]any),
		current:  make(map[string]any),
		dirty:    make(map[string]struct{}),
	}
}

// OnChange registers a listener for state changes.
func (m *Machine) OnChange(fn Listener) {
	if fn != nil {
		m.listeners = append(m.listeners, fn)
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Err returns the error that moved the machine to Error.
func (m *Machine) Err() error {
	return m.lastErr
}

func (m *Machine) move(op string, to State) error {
	if !CanTransition(m.state, to) {
		se := &StateError{Op: op, From: m.state, To: to}
		if m.state == Saving || m.state == Loading {
			se.Err = ErrBusy
		}
		return se
	}
	from := m.state
	m.state = to
	if to != Error {
		m.lastErr = nil
	}
	for _, fn := range m.listeners {
		fn(from, to)
	}
	return nil
}

// BeginLoad enters Loading. A save in flight blocks reloading.
func (m *Machine) BeginLoad() error {
	if m.state == Loading {
		return nil
	}
	return m.move("load", Loading)
}

// Loaded sets the baseline and enters Ready with a clean dirty set.
func (m *Machine) Loaded(values map[string]any) error {
	if err := m.move("load", Ready); err != nil {
		return err
	}
	m.baseline = copyValues(values)
	m.current = copyValues(values)
	m.dirty = make(map[string]struct{})
	return nil
}

// Edit records a new value for field. The field is dirty while it differs
// from the baseline; the machine is Dirty while any field is.
func (m *Machine) Edit(field string, value any) error {
	switch m.state {
	case Saving, Loading:
		return &StateError{Op: "edit", From: m.state, Err: ErrBusy}
	}
	m.current[field] = value
	if Equal(m.baseline[field], value) {
		delete(m.dirty, field)
	} else {
		m.dirty[field] = struct{}{}
	}
	switch {
	case len(m.dirty) > 0 && m.state != Dirty:
		return m.move("edit", Dirty)
	case len(m.dirty) == 0 && m.state == Dirty:
		return m.move("edit", Ready)
	}
	return nil
}

// BeginSave enters Saving from Dirty or Error.
func (m *Machine) BeginSave() error {
	if m.state == Saving {
		return &StateError{Op: "save", From: m.state, To: Saving, Err: ErrBusy}
	}
	if m.state != Dirty && m.state != Error {
		return &StateError{Op: "save", From: m.state, To: Saving}
	}
	return m.move("save", Saving)
}

// SaveSucceeded promotes the current values to the baseline.
func (m *Machine) SaveSucceeded() error {
	if err := m.move("save", Saved); err != nil {
		return err
	}
	m.baseline = copyValues(m.current)
	m.dirty = make(map[string]struct{})
	return nil
}

// SaveFailed enters Error. Current values and the dirty set are preserved.
func (m *Machine) SaveFailed(err error) error {
	if m.state != Saving {
		return &StateError{Op: "save failed", From: m.state, To: Error}
	}
	return m.Fail(err)
}

// Fail enters Error from any state.
func (m *Machine) Fail(err error) error {
	if merr := m.move("fail", Error); merr != nil {
		return merr
	}
	m.lastErr = err
	return nil
}

// Reset returns every field to its baseline, clears the dirty set and enters
// Ready. The returned map holds the values to apply.
func (m *Machine) Reset() (map[string]any, error) {
	switch m.state {
	case Saving, Loading:
		return nil, &StateError{Op: "reset", From: m.state, Err: ErrBusy}
	}
	m.current = copyValues(m.baseline)
	m.dirty = make(map[string]struct{})
	if m.state != Ready {
		if err := m.move("reset", Ready); err != nil {
			return nil, err
		}
	}
	return copyValues(m.baseline), nil
}

// ResetField restores one field and returns its baseline value.
func (m *Machine) ResetField(field string) (any, error) {
	switch m.state {
	case Saving, Loading:
		return nil, &StateError{Op: "reset field", From: m.state, Err: ErrBusy}
	}
	value, ok := m.baseline[field]
	if ok {
		m.current[field] = value
	} else {
		delete(m.current, field)
	}
	delete(m.dirty, field)
	if len(m.dirty) == 0 && m.state == Dirty {
		if err := m.move("reset field", Ready); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// IsDirty reports whether any field differs from the baseline.
func (m *Machine) IsDirty() bool {
	return len(m.dirty) > 0
}

// DirtyFields returns the dirty field ids in order.
func (m *Machine) DirtyFields() []string {
	out := make([]string, 0, len(m.dirty))
	for id := range m.dirty {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FieldDirty reports whether field differs from the baseline.
func (m *Machine) FieldDirty(field string) bool {
	_, ok := m.dirty[field]
	return ok
}

// Baseline returns a copy of the loaded values.
func (m *Machine) Baseline() map[string]any {
	return copyValues(m.baseline)
}

// Values returns a copy of the current values.
func (m *Machine) Values() map[string]any {
	return copyValues(m.current)
}

// Changes returns the current values of dirty fields.
func (m *Machine) Changes() map[string]any {
	out := make(map[string]any, len(m.dirty))
	for id := range m.dirty {
		out[id] = m.current[id]
	}
	return out
}

// Equal compares field values, treating numbers of any width as equal and
// nil as equal to the empty string.
func Equal(a, b any) bool {
	if isBlank(a) && isBlank(b) {
		return true
	}
	if x, ok := schema.Number(a); ok {
		if y, ok := schema.Number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func copyValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
