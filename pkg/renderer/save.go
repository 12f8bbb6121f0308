package renderer

import (
	"context"
	"errors"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/state"
	"github.com/goliatone/go-iform/pkg/validation"
)

// SaveResult is delivered when a save finishes, whatever the outcome.
type SaveResult struct {
	Validation validation.Result
	Saved      bridge.SaveResult
	// Err is ErrInvalid when validation failed, or the bridge or handler
	// failure.
	Err error
	// Message is the user facing text for a bridge failure.
	Message string
}

// Validate runs every rule, unique checks included, over the visible fields
// and marks the failing controls. The first failing field gets focus.
func (r *Renderer) Validate(ctx context.Context, done func(validation.Result)) error {
	if r.def == nil {
		return ErrNoForm
	}
	if r.closed {
		return ErrClosed
	}
	gen := r.generation
	r.validate(ctx, r.Data(), func(res validation.Result) {
		if r.closed || gen != r.generation {
			return
		}
		r.showResult(res)
		if done != nil {
			done(res)
		}
	})
	return nil
}

func (r *Renderer) validate(ctx context.Context, values map[string]any, done func(validation.Result)) {
	var fields []schema.Field
	for _, field := range r.def.Fields() {
		if r.FieldVisible(field.ID) {
			fields = append(fields, field)
		}
	}
	scope := validation.Scope{Table: r.table, RecordID: r.recordID}
	r.validator.ValidateAll(ctx, fields, values, scope, done)
}

func (r *Renderer) showResult(res validation.Result) {
	for id, c := range r.controls {
		if msgs := res.Errors[id]; len(msgs) > 0 {
			c.ShowError(msgs[0])
		} else {
			c.ClearError()
		}
	}
	if first, ok := res.First(); ok {
		if c, ok := r.controls[first]; ok {
			c.Focus()
			if r.surface != nil {
				r.surface.Reveal(first)
			}
		}
	}
}

// Save validates the form and, when it is valid, writes it through the
// bridge. It returns at once; done receives the outcome on the UI loop. An
// invalid form never reaches the bridge. Only one save or record load runs at
// a time: a second call fails with state.ErrBusy. The save action is
// disabled while the save runs and re-enabled on every completion path.
func (r *Renderer) Save(ctx context.Context, done func(SaveResult)) error {
	if r.def == nil {
		return ErrNoForm
	}
	if r.closed {
		return ErrClosed
	}
	st := r.machine.State()
	if r.busy != "" || st == state.Saving {
		return &state.StateError{Op: "save", From: st, To: state.Saving, Err: state.ErrBusy}
	}
	if st != state.Dirty && st != state.Error {
		return &state.StateError{Op: "save", From: st, To: state.Saving}
	}
	if r.bridge == nil {
		return ErrNoBridge
	}
	table := r.table
	if table == "" {
		return errors.New("renderer: form has no target table")
	}

	// the values validated are the values written; edits wait until the
	// save finishes
	values := r.Data()
	data := r.record(table, values)
	r.busy = busySave
	r.syncActions()
	gen := r.generation
	r.validate(ctx, values, func(res validation.Result) {
		if r.closed || gen != r.generation {
			return
		}
		r.showResult(res)
		if !res.Valid {
			r.finishSave(done, SaveResult{Validation: res, Err: ErrInvalid})
			return
		}
		if err := r.fire(ctx, EventBeforeSave, Event{Data: data}); err != nil {
			r.finishSave(done, SaveResult{Validation: res, Err: err})
			return
		}
		if err := r.machine.BeginSave(); err != nil {
			r.finishSave(done, SaveResult{Validation: res, Err: err})
			return
		}
		id := r.recordID
		r.exec.Go(func() {
			saved, err := r.bridge.SaveRecord(ctx, table, data, id)
			r.post(gen, func() {
				out := SaveResult{Validation: res, Saved: saved}
				if err != nil {
					out.Err, out.Message = err, bridge.Message(err)
					r.lastError = out.Message
					if ferr := r.machine.SaveFailed(err); ferr != nil {
						r.logger.Error("renderer: record save failure", "error", ferr)
					}
					r.logger.Warn("renderer: save failed", "table", table, "error", err)
				} else {
					if saved.Created {
						r.recordID = saved.ID
					}
					r.lastError = ""
					if serr := r.machine.SaveSucceeded(); serr != nil {
						r.logger.Error("renderer: record save success", "error", serr)
					}
					_ = r.fire(ctx, EventAfterSave, Event{Data: data})
				}
				r.finishSave(done, out)
			})
		})
	})
	return nil
}

func (r *Renderer) finishSave(done func(SaveResult), out SaveResult) {
	r.busy = ""
	r.syncActions()
	if done != nil {
		done(out)
	}
}

// record maps editable field values onto storage columns of table.
func (r *Renderer) record(table string, values map[string]any) bridge.Record {
	rec := make(bridge.Record, len(values))
	for _, field := range r.def.Fields() {
		if !field.Editable() {
			continue
		}
		if t := field.DataBinding.Table; t != "" && t != table {
			continue
		}
		rec[field.Column()] = values[field.ID]
	}
	return rec
}

// Reset restores every field to its loaded value, clears inline errors and
// visibility pins, and returns the form to READY.
func (r *Renderer) Reset() error {
	if r.def == nil {
		return ErrNoForm
	}
	if err := r.editLocked("reset"); err != nil {
		return err
	}
	values, err := r.machine.Reset()
	if err != nil {
		return err
	}
	r.pinned = make(map[string]bool)
	r.apply(values)
	for _, c := range r.controls {
		c.ClearError()
	}
	r.refresh()
	return nil
}

// ResetField restores one field to its loaded value.
func (r *Renderer) ResetField(id string) error {
	if _, ok := r.controls[id]; !ok {
		return ErrUnknownField
	}
	if err := r.editLocked("reset field"); err != nil {
		return err
	}
	value, err := r.machine.ResetField(id)
	if err != nil {
		return err
	}
	r.apply(map[string]any{id: value})
	r.controls[id].ClearError()
	r.refresh()
	return nil
}
