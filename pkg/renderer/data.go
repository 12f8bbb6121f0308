package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/state"
	"github.com/goliatone/go-iform/pkg/visibility"
	"github.com/goliatone/go-iform/pkg/widgets"
)

const (
	busyLoad = "load"
	busySave = "save"
)

// Data returns the value of every editable field, including hidden ones.
// Combo values still waiting for their options are reported as set.
func (r *Renderer) Data() map[string]any {
	out := make(map[string]any, len(r.controls))
	if r.def == nil {
		return out
	}
	for _, field := range r.def.Fields() {
		if !field.Editable() {
			continue
		}
		if v, ok := r.pending[field.ID]; ok {
			out[field.ID] = v
			continue
		}
		if c, ok := r.controls[field.ID]; ok {
			out[field.ID] = c.Value()
		}
	}
	return out
}

// SetData writes values into fields as edits. Unknown ids are ignored and
// reported in the returned error; values for combos whose options have not
// arrived are buffered and applied when they do.
func (r *Renderer) SetData(values map[string]any) error {
	if r.def == nil {
		return ErrNoForm
	}
	var errs []error
	for id, value := range values {
		if _, ok := r.controls[id]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownField, id))
			continue
		}
		if err := r.SetFieldValue(id, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FieldValue returns the value of one field.
func (r *Renderer) FieldValue(id string) (any, error) {
	c, ok := r.controls[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	if v, ok := r.pending[id]; ok {
		return v, nil
	}
	return c.Value(), nil
}

// SetFieldValue writes one field programmatically and records it as an edit.
func (r *Renderer) SetFieldValue(id string, value any) error {
	if _, ok := r.controls[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	if err := r.editLocked("set field"); err != nil {
		return err
	}
	if err := r.write(id, value); err != nil {
		return err
	}
	current, _ := r.FieldValue(id)
	if err := r.machine.Edit(id, current); err != nil {
		return err
	}
	r.afterChange(context.Background(), id, current)
	return nil
}

// SetFieldVisible shows or hides a field. The choice holds over conditional
// rules until the form is reset or reloaded. Hidden fields keep their value.
func (r *Renderer) SetFieldVisible(id string, visible bool) error {
	if _, ok := r.controls[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	r.pinned[id] = visible
	r.refresh()
	return nil
}

// SetFieldEnabled enables or disables a field.
func (r *Renderer) SetFieldEnabled(id string, enabled bool) error {
	c, ok := r.controls[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	r.disabled[id] = !enabled
	c.SetEnabled(enabled)
	return nil
}

// FieldVisible reports whether a field is shown: its own flag, rules, pins
// and its section's visibility all apply.
func (r *Renderer) FieldVisible(id string) bool {
	section := r.def.SectionOf(id)
	if section == nil {
		return false
	}
	return r.outcome.SectionVisible(section.ID) && r.fieldVisibility()[id]
}

// Control returns the live control for a field.
func (r *Renderer) Control(id string) (widgets.Control, bool) {
	c, ok := r.controls[id]
	return c, ok
}

// editLocked rejects edits from the moment a save starts validating until it
// completes, and while the machine is loading or saving.
func (r *Renderer) editLocked(op string) error {
	st := r.machine.State()
	if r.busy == busySave || st == state.Saving || st == state.Loading {
		return &state.StateError{Op: op, From: st, Err: state.ErrBusy}
	}
	return nil
}

// write puts value into the control, buffering combos without options.
func (r *Renderer) write(id string, value any) error {
	c := r.controls[id]
	if r.comboWait[id] {
		r.pending[id] = value
		return nil
	}
	delete(r.pending, id)
	if err := c.SetValue(value); err != nil {
		return fmt.Errorf("renderer: set %s: %w", id, err)
	}
	return nil
}

// apply writes values without touching the edit state.
func (r *Renderer) apply(values map[string]any) {
	for id, value := range values {
		if _, ok := r.controls[id]; !ok {
			continue
		}
		if err := r.write(id, value); err != nil {
			r.logger.Warn("renderer: value rejected", "field", id, "error", err)
		}
	}
}

// changed handles a user edit reported by a control.
func (r *Renderer) changed(id string, value any) {
	if r.closed {
		return
	}
	err := r.editLocked("edit")
	if err == nil {
		err = r.machine.Edit(id, value)
	}
	if err != nil {
		// edits are not accepted while saving or loading
		r.logger.Debug("renderer: edit rejected", "field", id, "error", err)
		if c, ok := r.controls[id]; ok {
			_ = c.SetValue(r.machine.Values()[id])
		}
		return
	}
	delete(r.pending, id)
	r.afterChange(context.Background(), id, value)
}

// afterChange runs real-time validation, re-evaluates conditions the field
// can affect and notifies the change handler.
func (r *Renderer) afterChange(ctx context.Context, id string, value any) {
	if field := r.def.FieldByID(id); field != nil {
		c := r.controls[id]
		if msgs := r.validator.ValidateField(*field, value); len(msgs) > 0 {
			c.ShowError(msgs[0])
		} else {
			c.ClearError()
		}
	}
	triggers, all := visibility.Triggers(r.def)
	if all || triggers[id] {
		r.refresh()
	} else {
		r.syncActions()
	}
	r.fire(ctx, EventChange, Event{Field: id, Value: value})
}

// refresh re-evaluates visibility and enablement and lays the form out.
func (r *Renderer) refresh() {
	if r.def == nil {
		return
	}
	out, err := visibility.Resolve(r.def, r.eval, visibility.Context{Values: r.Data(), Extras: r.extras})
	if err != nil {
		r.logger.Warn("renderer: condition failed", "error", err)
	}
	r.outcome = out
	fields := r.fieldVisibility()
	for _, section := range r.def.Sections {
		shown := out.SectionVisible(section.ID)
		for _, field := range section.Fields {
			if c, ok := r.controls[field.ID]; ok {
				c.SetVisible(shown && fields[field.ID])
				if r.disabled[field.ID] {
					c.SetEnabled(false)
				}
			}
		}
	}
	r.syncActions()
	if err := r.arrange(); err != nil {
		r.logger.Error("renderer: layout failed", "error", err)
	}
}

func (r *Renderer) fieldVisibility() map[string]bool {
	out := make(map[string]bool, len(r.controls))
	for _, field := range r.def.Fields() {
		visible := r.outcome.FieldVisible(field.ID)
		if v, ok := r.pinned[field.ID]; ok {
			visible = v
		}
		out[field.ID] = visible
	}
	return out
}

// syncActions sets action buttons from conditions and the save guard.
func (r *Renderer) syncActions() {
	for _, action := range r.def.Actions {
		c, ok := r.actions[action.ID]
		if !ok {
			continue
		}
		c.SetVisible(action.Visible)
		c.SetEnabled(r.ActionEnabled(action.ID))
	}
}

// ActionEnabled reports whether an action can be triggered now. Save is
// disabled while a save or record load is in flight.
func (r *Renderer) ActionEnabled(id string) bool {
	action, ok := r.def.ActionByID(id)
	if !ok || !action.Visible || !r.outcome.ActionEnabled(id) {
		return false
	}
	if action.Action == schema.ActionSave && r.busy != "" {
		return false
	}
	return true
}

// ActionControl returns the button for an action.
func (r *Renderer) ActionControl(id string) (widgets.Control, bool) {
	c, ok := r.actions[id]
	return c, ok
}

// loadCombos starts loading every query and api combo source that has no
// options yet and is not already loading. Options are applied on the UI loop;
// buffered values follow their options.
func (r *Renderer) loadCombos(ctx context.Context) {
	gen := r.generation
	for _, field := range r.def.Fields() {
		src := field.ComboSource
		if src == nil || (src.Type != schema.ComboQuery && src.Type != schema.ComboAPI) {
			continue
		}
		if r.comboWait[field.ID] || len(r.options[field.ID]) > 0 {
			continue
		}
		id, cs := field.ID, *src
		load, err := r.comboLoader(cs)
		if err != nil {
			r.logger.Warn("renderer: combo source unavailable", "field", id, "error", err)
			continue
		}
		r.comboWait[id] = true
		r.combosLoaded = false
		r.exec.Go(func() {
			items, err := load(ctx)
			r.post(gen, func() { r.combosArrived(id, cs, items, err) })
		})
	}
}

func (r *Renderer) comboLoader(src schema.ComboSource) (func(context.Context) ([]bridge.Item, error), error) {
	switch src.Type {
	case schema.ComboQuery:
		if r.bridge == nil {
			return nil, ErrNoBridge
		}
		if src.Query == nil {
			return nil, errors.New("renderer: query source without a query")
		}
		q := *src.Query
		return func(ctx context.Context) ([]bridge.Item, error) {
			return r.bridge.LoadComboData(ctx, q)
		}, nil
	default:
		if r.endpoints == nil {
			return nil, errors.New("renderer: no endpoint loader for api source")
		}
		endpoint := src.Endpoint
		return func(ctx context.Context) ([]bridge.Item, error) {
			return r.endpoints(ctx, endpoint)
		}, nil
	}
}

func (r *Renderer) combosArrived(id string, src schema.ComboSource, items []bridge.Item, err error) {
	delete(r.comboWait, id)
	r.combosLoaded = len(r.comboWait) == 0
	if err != nil {
		r.lastError = bridge.Message(err)
		r.logger.Warn("renderer: combo load failed", "field", id, "error", err)
		items = nil
	}
	opts := make([]widgets.Option, 0, len(items))
	for _, item := range items {
		opts = append(opts, widgets.Option{Value: item.Value, Label: item.Display})
	}
	r.options[id] = opts
	c, ok := r.controls[id]
	if !ok {
		return
	}
	if oc, ok := c.(widgets.OptionControl); ok {
		oc.SetOptions(opts)
	}
	value, buffered := r.pending[id]
	delete(r.pending, id)
	if !buffered && src.Default != nil && state.Equal(c.Value(), nil) && r.recordID == nil {
		value, buffered = src.Default, true
	}
	if buffered {
		if err := c.SetValue(value); err != nil {
			r.logger.Warn("renderer: buffered combo value matches no option", "field", id, "value", value, "error", err)
		}
	}
}

// restoreOptions hands loaded options to rebuilt controls.
func (r *Renderer) restoreOptions() {
	for id, opts := range r.options {
		if oc, ok := r.controls[id].(widgets.OptionControl); ok {
			oc.SetOptions(opts)
		}
	}
}

// SetRecord loads a record through the bridge and fills the form with it.
// done receives nil on success. Only one load or save runs at a time; a
// second call fails with state.ErrBusy. A failed load leaves the form as it
// was.
func (r *Renderer) SetRecord(ctx context.Context, table string, id any, done func(error)) error {
	if r.def == nil {
		return ErrNoForm
	}
	if r.closed {
		return ErrClosed
	}
	if r.busy != "" || r.machine.State() == state.Saving {
		return &state.StateError{Op: "set record", From: r.machine.State(), Err: state.ErrBusy}
	}
	if r.bridge == nil {
		return ErrNoBridge
	}
	if table == "" {
		table = r.def.TargetTable
	}
	r.busy = busyLoad
	r.syncActions()
	gen := r.generation
	r.exec.Go(func() {
		rec, err := r.bridge.LoadRecord(ctx, table, id)
		r.post(gen, func() {
			r.busy = ""
			if err == nil {
				err = r.populate(ctx, table, id, rec)
			} else {
				r.lastError = bridge.Message(err)
			}
			r.syncActions()
			if done != nil {
				done(err)
			}
		})
	})
	return nil
}

func (r *Renderer) populate(ctx context.Context, table string, id any, rec bridge.Record) error {
	values := make(map[string]any)
	for _, field := range r.def.Fields() {
		if !field.Editable() {
			continue
		}
		values[field.ID] = rec[field.Column()]
	}
	if err := r.machine.BeginLoad(); err != nil {
		return err
	}
	r.table, r.recordID, r.lastError = table, id, ""
	r.pending = make(map[string]any)
	r.apply(values)
	for _, c := range r.controls {
		c.ClearError()
	}
	if err := r.machine.Loaded(r.Data()); err != nil {
		return err
	}
	r.refresh()
	r.loadCombos(ctx)
	r.fire(ctx, EventLoad, Event{Data: values})
	r.loaded(false)
	return nil
}

// CombosLoaded reports whether every list-backed source has delivered.
func (r *Renderer) CombosLoaded() bool {
	return r.combosLoaded
}

// RecordID returns the id of the loaded or last saved record.
func (r *Renderer) RecordID() any {
	return r.recordID
}
