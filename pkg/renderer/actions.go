package renderer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/state"
)

// Event names a form declares handlers for in its events map.
const (
	EventLoad       = "load"
	EventChange     = "change"
	EventBeforeSave = "before_save"
	EventAfterSave  = "after_save"
	EventCancel     = "cancel"
)

// Event is passed to handlers.
type Event struct {
	Name   string
	Field  string
	Value  any
	Action string
	Data   map[string]any
}

// Handler serves an event or a custom action. A before_save handler that
// returns an error stops the save.
type Handler func(ctx context.Context, ev Event) error

// fire runs the handler the form maps name to. Unregistered handler ids are
// logged and skipped.
func (r *Renderer) fire(ctx context.Context, name string, ev Event) error {
	if r.def == nil {
		return nil
	}
	id := r.def.Events[name]
	if id == "" {
		return nil
	}
	h, ok := r.handlers[id]
	if !ok {
		r.logger.Warn("renderer: event handler not registered", "event", name, "handler", id)
		return nil
	}
	ev.Name = name
	if err := h(ctx, ev); err != nil {
		r.logger.Warn("renderer: event handler failed", "event", name, "handler", id, "error", err)
		return fmt.Errorf("renderer: %s handler %s: %w", name, id, err)
	}
	return nil
}

// Trigger runs an action as if its button was pressed. Actions carrying a
// confirmation message ask first; a declined prompt does nothing. Cancel
// only asks when there is something to discard.
func (r *Renderer) Trigger(ctx context.Context, actionID string) error {
	if r.def == nil {
		return ErrNoForm
	}
	if r.closed {
		return ErrClosed
	}
	action, ok := r.def.ActionByID(actionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	if !r.ActionEnabled(actionID) {
		if action.Action == schema.ActionSave && r.busy != "" {
			return &state.StateError{Op: "save", From: r.machine.State(), To: state.Saving, Err: state.ErrBusy}
		}
		return fmt.Errorf("%w: %s", ErrActionDisabled, actionID)
	}
	ask := action.ConfirmMessage(r.Language()) != ""
	if action.Action == schema.ActionCancel && !r.machine.IsDirty() {
		ask = false
	}
	if ask {
		if r.confirmer == nil {
			return nil
		}
		ok, err := r.confirmer.Confirm(ctx, action.ConfirmMessage(r.Language()))
		if err != nil {
			return fmt.Errorf("renderer: confirm %s: %w", actionID, err)
		}
		if !ok {
			return nil
		}
	}

	switch action.Action {
	case schema.ActionSave:
		return r.Save(ctx, nil)
	case schema.ActionCancel:
		if err := r.Reset(); err != nil {
			return err
		}
		return r.fire(ctx, EventCancel, Event{Action: actionID})
	case schema.ActionNavigate:
		if r.navigate == nil {
			return fmt.Errorf("%w: navigate to %s", ErrNoHandler, action.Target)
		}
		return r.navigate(ctx, action.Target)
	default:
		h, ok := r.handlers[action.Target]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoHandler, action.Target)
		}
		return h(ctx, Event{Name: "custom", Action: actionID, Data: r.Data()})
	}
}

// Shortcut triggers the action bound to key, e.g. "Ctrl+S". It reports
// whether any action claimed the key.
func (r *Renderer) Shortcut(ctx context.Context, key string) (bool, error) {
	if r.def == nil {
		return false, nil
	}
	want := NormalizeKey(key)
	for _, action := range r.def.Actions {
		if action.Shortcut != "" && NormalizeKey(action.Shortcut) == want {
			return true, r.Trigger(ctx, action.ID)
		}
	}
	return false, nil
}

var modifierRank = map[string]int{"ctrl": 0, "alt": 1, "shift": 2, "meta": 3}

// NormalizeKey folds a key chord to a canonical form so "shift+ctrl+e" and
// "Ctrl+Shift+E" compare equal.
func NormalizeKey(key string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(key)), "+")
	var mods []string
	var rest []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch p {
		case "control", "ctl":
			p = "ctrl"
		case "cmd", "command", "super":
			p = "meta"
		case "esc":
			p = "escape"
		case "del":
			p = "delete"
		}
		if _, ok := modifierRank[p]; ok {
			mods = append(mods, p)
		} else if p != "" {
			rest = append(rest, p)
		}
	}
	sort.Slice(mods, func(i, j int) bool { return modifierRank[mods[i]] < modifierRank[mods[j]] })
	return strings.Join(append(mods, rest...), "+")
}
