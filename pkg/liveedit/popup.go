package liveedit

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/renderer"
	"github.com/goliatone/go-iform/pkg/state"
)

// Popup holds the editable properties of one field.
type Popup struct {
	FieldID  string
	Width    float64
	Height   float64
	LabelAr  string
	LabelEn  string
	ReadOnly bool
}

// OpenPopup opens the property popup for the selection. Width and height
// fall back to the rendered size when the layout leaves them unset.
func (e *Editor) OpenPopup() (Popup, error) {
	if !e.active {
		return Popup{}, ErrInactive
	}
	if e.selected == "" {
		return Popup{}, ErrNoSelection
	}
	field := e.r.Definition().FieldByID(e.selected)
	if field == nil {
		return Popup{}, ErrNoSelection
	}
	p := Popup{
		FieldID:  field.ID,
		Width:    field.Layout.Width,
		Height:   field.Layout.Height,
		LabelAr:  field.LabelAr,
		LabelEn:  field.LabelEn,
		ReadOnly: field.Properties.ReadOnly,
	}
	if rect, ok := e.Selection(); ok {
		if p.Width == 0 {
			p.Width = rect.W
		}
		if p.Height == 0 {
			p.Height = rect.H
		}
	}
	e.popup = &p
	return p, nil
}

// DoubleClick selects the field at p and opens its popup.
func (e *Editor) DoubleClick(p layout.Point) (Popup, error) {
	if _, ok := e.SelectAt(p); !ok {
		return Popup{}, ErrNoSelection
	}
	return e.OpenPopup()
}

// PopupOpen reports whether the popup is showing.
func (e *Editor) PopupOpen() bool { return e.popup != nil }

// ClosePopup dismisses the popup without changes.
func (e *Editor) ClosePopup() { e.popup = nil }

// ApplyPopup commits the properties that differ from what the popup opened
// with, as a single edit, and closes it.
func (e *Editor) ApplyPopup(p Popup) error {
	if e.popup == nil || e.popup.FieldID != p.FieldID {
		return errors.New("liveedit: popup is not open for " + p.FieldID)
	}
	opened := *e.popup
	def := e.r.Definition()
	var cmds []state.Command
	add := func(prop state.Property, changed bool, value any) error {
		if !changed {
			return nil
		}
		cmd, err := state.NewChangeProperty(def, p.FieldID, prop, value)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
		return nil
	}
	if err := errors.Join(
		add(state.PropWidth, p.Width != opened.Width, p.Width),
		add(state.PropHeight, p.Height != opened.Height, p.Height),
		add(state.PropLabelAr, p.LabelAr != opened.LabelAr, p.LabelAr),
		add(state.PropLabelEn, p.LabelEn != opened.LabelEn, p.LabelEn),
		add(state.PropReadOnly, p.ReadOnly != opened.ReadOnly, p.ReadOnly),
	); err != nil {
		return err
	}
	e.popup = nil
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return e.commit(cmds[0])
	default:
		return e.commit(newBatch(cmds))
	}
}

// Key handles the keyboard surface. The toggle works at any time; other keys
// reach the overlay only while it is active and fall through to the form's
// own shortcuts otherwise. It reports whether the key was consumed.
func (e *Editor) Key(ctx context.Context, key string) (bool, error) {
	k := renderer.NormalizeKey(key)
	if k == ToggleKey {
		e.Toggle()
		return true, nil
	}
	if !e.active {
		return e.r.Shortcut(ctx, key)
	}
	switch k {
	case "ctrl+z":
		return true, ignoreEmpty(e.Undo())
	case "ctrl+y", "ctrl+shift+z":
		return true, ignoreEmpty(e.Redo())
	case "ctrl+s":
		return true, e.Save(ctx)
	case "delete":
		if e.selected == "" {
			return true, nil
		}
		return true, e.Delete()
	case "enter":
		if e.selected == "" {
			return true, nil
		}
		_, err := e.OpenPopup()
		return true, err
	case "escape":
		switch {
		case e.drag != nil:
			e.CancelDrag()
		case e.popup != nil:
			e.ClosePopup()
		case e.selected != "":
			e.selected = ""
		default:
			e.Deactivate()
		}
		return true, nil
	}

	step := 1
	arrow := k
	if rest, ok := strings.CutPrefix(k, "shift+"); ok {
		step, arrow = 5, rest
	}
	dx, dy := 0, 0
	switch arrow {
	case "left":
		dx = -step
	case "right":
		dx = step
	case "up":
		dy = -step
	case "down":
		dy = step
	default:
		return false, nil
	}
	if e.selected == "" {
		return true, nil
	}
	return true, e.Nudge(dx, dy)
}

func ignoreEmpty(err error) error {
	if errors.Is(err, state.ErrNothingToUndo) || errors.Is(err, state.ErrNothingToRedo) {
		return nil
	}
	return err
}
