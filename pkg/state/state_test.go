package state_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/state"
	"github.com/goliatone/go-iform/pkg/testsupport"
)

func loaded(t *testing.T) *state.Machine {
	t.Helper()
	m := state.NewMachine()
	if err := m.Loaded(map[string]any{"name": "Sara", "age": 30}); err != nil {
		t.Fatalf("loaded: %v", err)
	}
	return m
}

func TestCanTransition(t *testing.T) {
	all := []state.State{state.Loading, state.Ready, state.Dirty, state.Saving, state.Saved, state.Error}
	for _, to := range all {
		want := to == state.Saved || to == state.Error
		if got := state.CanTransition(state.Saving, to); got != want {
			t.Fatalf("SAVING -> %s = %v, want %v", to, got, want)
		}
	}
	for _, from := range all {
		if !state.CanTransition(from, state.Error) {
			t.Fatalf("%s must reach ERROR", from)
		}
	}
	if state.CanTransition(state.Loading, state.Dirty) {
		t.Fatalf("LOADING must not go straight to DIRTY")
	}
}

func TestMachine_DirtyTracking(t *testing.T) {
	m := loaded(t)
	var moves []string
	m.OnChange(func(from, to state.State) { moves = append(moves, fmt.Sprintf("%s>%s", from, to)) })

	if err := m.Edit("name", "Sarah"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := m.Edit("age", 30.0); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if diff := cmp.Diff([]string{"name"}, m.DirtyFields()); diff != "" {
		t.Fatalf("dirty fields mismatch (-want +got):\n%s", diff)
	}
	if m.State() != state.Dirty {
		t.Fatalf("state = %s, want DIRTY", m.State())
	}
	if err := m.Edit("name", "Sara"); err != nil {
		t.Fatalf("edit back: %v", err)
	}
	if m.State() != state.Ready || m.IsDirty() {
		t.Fatalf("restoring the baseline must return to READY, got %s", m.State())
	}
	if diff := cmp.Diff([]string{"READY>DIRTY", "DIRTY>READY"}, moves); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestMachine_SaveLifecycle(t *testing.T) {
	m := loaded(t)
	if err := m.BeginSave(); err == nil {
		t.Fatalf("saving a clean form must be rejected")
	}
	_ = m.Edit("name", "Sarah")
	if err := m.BeginSave(); err != nil {
		t.Fatalf("begin save: %v", err)
	}
	if err := m.BeginSave(); !errors.Is(err, state.ErrBusy) {
		t.Fatalf("second save must be busy, got %v", err)
	}
	if err := m.Edit("name", "x"); !errors.Is(err, state.ErrBusy) {
		t.Fatalf("edits during save must be busy, got %v", err)
	}
	if _, err := m.Reset(); !errors.Is(err, state.ErrBusy) {
		t.Fatalf("reset during save must be busy, got %v", err)
	}

	failure := errors.New("disk full")
	if err := m.SaveFailed(failure); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if m.State() != state.Error || !errors.Is(m.Err(), failure) {
		t.Fatalf("expected ERROR carrying the failure, got %s %v", m.State(), m.Err())
	}
	if got := m.Values()["name"]; got != "Sarah" {
		t.Fatalf("failed save must keep edits, got %v", got)
	}

	if err := m.BeginSave(); err != nil {
		t.Fatalf("retry from ERROR: %v", err)
	}
	if err := m.SaveSucceeded(); err != nil {
		t.Fatalf("save succeeded: %v", err)
	}
	if m.State() != state.Saved || m.IsDirty() {
		t.Fatalf("expected clean SAVED, got %s dirty=%v", m.State(), m.IsDirty())
	}
	if got := m.Baseline()["name"]; got != "Sarah" {
		t.Fatalf("baseline not promoted: %v", got)
	}
}

func TestMachine_Reset(t *testing.T) {
	m := loaded(t)
	_ = m.Edit("name", "Sarah")
	_ = m.Edit("age", 31)

	value, err := m.ResetField("age")
	if err != nil || value != 30 {
		t.Fatalf("reset field = %v, %v", value, err)
	}
	if m.State() != state.Dirty {
		t.Fatalf("name is still dirty, state = %s", m.State())
	}
	values, err := m.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Sara", "age": 30}, values); diff != "" {
		t.Fatalf("reset values mismatch (-want +got):\n%s", diff)
	}
	if m.State() != state.Ready || m.IsDirty() {
		t.Fatalf("reset must leave a clean READY form")
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		a, b any
		want bool
	}{
		{nil, "", true},
		{3, 3.0, true},
		{int64(3), "3", false},
		{"a", "a", true},
		{true, false, false},
	}
	for _, tc := range cases {
		if got := state.Equal(tc.a, tc.b); got != tc.want {
			t.Fatalf("Equal(%v, %v) = %v", tc.a, tc.b, got)
		}
	}
}

func TestCommands_UndoRestoresDefinition(t *testing.T) {
	cases := []struct {
		name  string
		build func(def *schema.FormDefinition) (state.Command, error)
	}{
		{"add", func(*schema.FormDefinition) (state.Command, error) {
			f := schema.NewField(schema.WidgetTextInput)
			f.ID = "extra"
			return &state.AddField{Section: "section_main", Index: 1, Field: f}, nil
		}},
		{"remove", func(*schema.FormDefinition) (state.Command, error) {
			return &state.RemoveField{FieldID: "full_name"}, nil
		}},
		{"move across sections", func(def *schema.FormDefinition) (state.Command, error) {
			return state.NewMoveField(def, "phone", state.Placement{Section: "section_main", Index: 0, Layout: schema.Layout{Row: 3, Col: 1}})
		}},
		{"move within section", func(def *schema.FormDefinition) (state.Command, error) {
			return state.NewMoveField(def, "employee_code", state.Placement{Section: "section_main", Index: 3, Layout: schema.Layout{Row: 3}})
		}},
		{"resize", func(def *schema.FormDefinition) (state.Command, error) {
			return state.NewResizeField(def, "notes", schema.Layout{Row: 2, Colspan: 1, Rowspan: 2})
		}},
		{"property", func(def *schema.FormDefinition) (state.Command, error) {
			return state.NewChangeProperty(def, "email", state.PropLabelAr, "البريد")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := testsupport.Employee(t)
			before := def.Clone()
			cmd, err := tc.build(def)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			h := state.NewHistory(0)
			if err := h.Do(def, cmd); err != nil {
				t.Fatalf("do: %v", err)
			}
			if cmp.Diff(before, def) == "" {
				t.Fatalf("command changed nothing")
			}
			applied := def.Clone()
			if _, err := h.Undo(def); err != nil {
				t.Fatalf("undo: %v", err)
			}
			if diff := cmp.Diff(before, def); diff != "" {
				t.Fatalf("undo did not restore the definition (-want +got):\n%s", diff)
			}
			if _, err := h.Redo(def); err != nil {
				t.Fatalf("redo: %v", err)
			}
			if diff := cmp.Diff(applied, def); diff != "" {
				t.Fatalf("redo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChangeProperty_RejectsBadValues(t *testing.T) {
	def := testsupport.Employee(t)
	cmd, err := state.NewChangeProperty(def, "email", state.PropWidth, "wide")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	h := state.NewHistory(0)
	if err := h.Do(def, cmd); err == nil {
		t.Fatalf("expected a type error")
	}
	if h.CanUndo() {
		t.Fatalf("a failed command must not be recorded")
	}
	if _, err := state.NewChangeProperty(def, "ghost", state.PropVisible, false); !errors.Is(err, state.ErrUnknownField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
}

func TestHistory_BoundAndRedoClearing(t *testing.T) {
	def := testsupport.Employee(t)
	h := state.NewHistory(state.DefaultHistoryDepth)
	for i := 0; i < state.DefaultHistoryDepth+20; i++ {
		cmd, err := state.NewChangeProperty(def, "notes", state.PropWidth, float64(100+i))
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if err := h.Do(def, cmd); err != nil {
			t.Fatalf("do %d: %v", i, err)
		}
	}
	if undo, _ := h.Len(); undo != state.DefaultHistoryDepth {
		t.Fatalf("undo depth = %d, want %d", undo, state.DefaultHistoryDepth)
	}
	for h.CanUndo() {
		if _, err := h.Undo(def); err != nil {
			t.Fatalf("undo: %v", err)
		}
	}
	// The oldest 20 commands fell off, so the width stops at their last value.
	if got := def.FieldByID("notes").Layout.Width; got != 119 {
		t.Fatalf("width after undoing everything = %v, want 119", got)
	}
	if _, err := h.Undo(def); !errors.Is(err, state.ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}

	if _, err := h.Redo(def); err != nil {
		t.Fatalf("redo: %v", err)
	}
	cmd, _ := state.NewChangeProperty(def, "notes", state.PropVisible, false)
	if err := h.Do(def, cmd); err != nil {
		t.Fatalf("do: %v", err)
	}
	if h.CanRedo() {
		t.Fatalf("a new command must clear the redo stack")
	}
}
