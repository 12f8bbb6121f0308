// Package liveedit is the design overlay on top of a running form. While
// active it selects fields, moves and resizes them with snap guides, edits
// their properties and writes the changed definition back to its document
// store. Every committed edit is one undoable command.
package liveedit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/renderer"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/state"
)

var (
	// ErrInactive is returned by edit operations while the overlay is off.
	ErrInactive = errors.New("liveedit: editor is not active")
	// ErrNoSelection is returned by operations that need a selected field.
	ErrNoSelection = errors.New("liveedit: no field selected")
	// ErrNoStore is returned by Save without a document store.
	ErrNoStore = errors.New("liveedit: no document store configured")
)

// ToggleKey switches the overlay on and off.
const ToggleKey = "ctrl+shift+e"

// Option customises an Editor.
type Option func(*Editor)

// WithStore sets where Save writes the document and its name in the store.
func WithStore(store schema.Store, name string) Option {
	return func(e *Editor) {
		e.store = store
		e.name = name
	}
}

// WithSnapper overrides the snap distances.
func WithSnapper(s Snapper) Option {
	return func(e *Editor) {
		e.snap = s
	}
}

// WithHistoryDepth bounds the undo stack.
func WithHistoryDepth(depth int) Option {
	return func(e *Editor) {
		e.history = state.NewHistory(depth)
	}
}

// WithSchemaOptions adds checks run when the document is re-validated on
// save.
func WithSchemaOptions(opts ...schema.Option) Option {
	return func(e *Editor) {
		e.schemaOpts = append(e.schemaOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type drag struct {
	id      string
	handle  Handle
	origin  layout.Point
	start   layout.Rect
	current layout.Rect
}

// Editor is the live-edit overlay for one renderer. Like the renderer it
// belongs to the UI loop.
type Editor struct {
	r          *renderer.Renderer
	store      schema.Store
	name       string
	history    *state.History
	snap       Snapper
	schemaOpts []schema.Option
	logger     *slog.Logger

	active   bool
	selected string
	drag     *drag
	guides   []Guide
	popup    *Popup
	baseline *schema.FormDefinition
	modified bool
}

// New returns an inactive editor over r.
func New(r *renderer.Renderer, opts ...Option) *Editor {
	e := &Editor{
		r:       r,
		history: state.NewHistory(state.DefaultHistoryDepth),
		snap:    DefaultSnapper(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	r.OnLoad(e.reloaded)
	return e
}

// reloaded forgets edits made against a definition the renderer no longer
// shows. A record load keeps the layout edits but ends any drag.
func (e *Editor) reloaded(formChanged bool) {
	if !formChanged {
		e.CancelDrag()
		return
	}
	if e.modified {
		e.logger.Warn("liveedit: form reloaded, unsaved layout edits dropped")
	}
	e.history.Clear()
	e.baseline = nil
	e.modified = false
	e.Deactivate()
}

// Active reports whether the overlay is on.
func (e *Editor) Active() bool { return e.active }

// Modified reports whether there are edits not yet written to the store.
func (e *Editor) Modified() bool { return e.modified }

// History exposes the undo stack.
func (e *Editor) History() *state.History { return e.history }

// Selected returns the selected field id, or "".
func (e *Editor) Selected() string { return e.selected }

// Guides returns the guides of the drag in progress.
func (e *Editor) Guides() []Guide { return e.guides }

// Dragging reports whether a drag is in progress.
func (e *Editor) Dragging() bool { return e.drag != nil }

// Toggle switches the overlay and reports the new state.
func (e *Editor) Toggle() bool {
	if e.active {
		e.Deactivate()
	} else {
		e.Activate()
	}
	return e.active
}

// Activate turns the overlay on. The form keeps running underneath.
func (e *Editor) Activate() {
	if e.active {
		return
	}
	if e.baseline == nil || !e.modified {
		e.baseline = e.r.Definition()
	}
	e.active = true
	e.logger.Debug("liveedit: activated", "form", e.baseline.FormID)
}

// Deactivate turns the overlay off. Unsaved edits stay in the form.
func (e *Editor) Deactivate() {
	e.active = false
	e.selected = ""
	e.drag = nil
	e.guides = nil
	e.popup = nil
}

// Select selects a field by id; "" clears the selection.
func (e *Editor) Select(id string) error {
	if !e.active {
		return ErrInactive
	}
	if id == "" {
		e.selected = ""
		return nil
	}
	if _, ok := e.r.Geometry().Fields[id]; !ok {
		return fmt.Errorf("liveedit: field %s is not on screen", id)
	}
	e.selected = id
	return nil
}

// SelectAt selects the field under p and reports its id.
func (e *Editor) SelectAt(p layout.Point) (string, bool) {
	if !e.active {
		return "", false
	}
	id, ok := e.r.Geometry().FieldAt(p)
	if !ok {
		e.selected = ""
		return "", false
	}
	e.selected = id
	return id, true
}

// Selection returns the rect of the selected field.
func (e *Editor) Selection() (layout.Rect, bool) {
	if e.selected == "" {
		return layout.Rect{}, false
	}
	rect, ok := e.r.Geometry().Fields[e.selected]
	return rect, ok
}

// SelectionHandles returns the resize handles of the selection.
func (e *Editor) SelectionHandles() map[Handle]layout.Rect {
	rect, ok := e.Selection()
	if !ok {
		return nil
	}
	return Handles(rect)
}

// BeginDrag starts a drag at p: a handle of the selection resizes it, a
// field body selects and moves that field. It reports whether a drag began.
func (e *Editor) BeginDrag(p layout.Point) bool {
	if !e.active {
		return false
	}
	if rect, ok := e.Selection(); ok {
		if h := HandleAt(rect, p); h != HandleNone {
			e.drag = &drag{id: e.selected, handle: h, origin: p, start: rect, current: rect}
			return true
		}
	}
	id, ok := e.SelectAt(p)
	if !ok {
		return false
	}
	rect := e.r.Geometry().Fields[id]
	e.drag = &drag{id: id, handle: HandleBody, origin: p, start: rect, current: rect}
	return true
}

// DragTo updates the drag for pointer position p and returns the snapped
// rect and the guides to draw. Proportional keeps the aspect ratio on corner
// handles; proportional resizes are not snapped.
func (e *Editor) DragTo(p layout.Point, proportional bool) (layout.Rect, []Guide) {
	d := e.drag
	if d == nil {
		return layout.Rect{}, nil
	}
	dx, dy := p.X-d.origin.X, p.Y-d.origin.Y
	siblings := e.r.Geometry().Siblings(d.id)
	var rect layout.Rect
	var guides []Guide
	if d.handle == HandleBody {
		rect, guides = e.snap.Snap(d.start.Translate(dx, dy), siblings, AllEdges, false)
	} else {
		rect = resize(d.start, d.handle, dx, dy, proportional)
		if !(proportional && d.handle.Corner()) {
			rect, guides = e.snap.Snap(rect, siblings, d.handle.edges(), true)
		}
	}
	d.current = rect
	e.guides = guides
	return rect, guides
}

// EndDrag commits the drag as one command. A drag that ends where it started
// records nothing.
func (e *Editor) EndDrag() error {
	d := e.drag
	e.drag, e.guides = nil, nil
	if d == nil || d.current.Equal(d.start) {
		return nil
	}
	cmd, err := e.commandFor(d.id, d.current, d.handle == HandleBody)
	if err != nil {
		return err
	}
	return e.commit(cmd)
}

// CancelDrag abandons the drag in progress.
func (e *Editor) CancelDrag() {
	e.drag, e.guides = nil, nil
}

// commandFor turns a dragged rect into a definition change for the form's
// layout mode.
func (e *Editor) commandFor(id string, rect layout.Rect, move bool) (state.Command, error) {
	def := e.r.Definition()
	geo := e.r.Geometry()
	field := def.FieldByID(id)
	if field == nil {
		return nil, fmt.Errorf("%w: %s", state.ErrUnknownField, id)
	}
	from := geo.FieldSection[id]
	target := from
	if move {
		target = dropSection(geo, rect, from)
	}
	box, ok := geo.Section(target)
	if !ok {
		return nil, fmt.Errorf("liveedit: section %s is not on screen", target)
	}
	l := field.Layout

	switch geo.Mode {
	case schema.LayoutAbsolute:
		if box.Direction == schema.DirectionRTL {
			l.X = math.Round(box.Body.Right() - rect.Right())
		} else {
			l.X = math.Round(rect.X - box.Body.X)
		}
		l.Y = math.Round(rect.Y - box.Body.Y)
		l.X, l.Y = math.Max(l.X, 0), math.Max(l.Y, 0)
		if !move {
			l.Width, l.Height = math.Round(rect.W), math.Round(rect.H)
			return state.NewResizeField(def, id, l)
		}
		return e.moveTo(def, id, target, -1, l)

	case schema.LayoutFlow:
		if !move {
			l.Width, l.Height = math.Round(rect.W), math.Round(rect.H)
			return state.NewResizeField(def, id, l)
		}
		return e.moveTo(def, id, target, flowIndex(def, geo, id, target, rect), l)

	default:
		row, col, ok := geo.CellForRect(target, rect)
		if !ok {
			return nil, fmt.Errorf("liveedit: section %s has no grid", target)
		}
		l.Row, l.Col = row, col
		if !move {
			cs, rs := geo.SpanForSize(target, col, rect.W, rect.H)
			l.Colspan, l.Rowspan = spanValue(cs), spanValue(rs)
			return state.NewResizeField(def, id, l)
		}
		return e.moveTo(def, id, target, -1, l)
	}
}

// spanValue stores the implicit span of one as zero.
func spanValue(n int) int {
	if n <= 1 {
		return 0
	}
	return n
}

// moveTo builds a move keeping the field index unless index is given. A move
// to another section appends there.
func (e *Editor) moveTo(def *schema.FormDefinition, id, section string, index int, l schema.Layout) (state.Command, error) {
	current, err := state.PlacementOf(def, id)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		index = current.Index
		if section != current.Section {
			index = len(def.SectionByID(section).Fields)
		}
	}
	return state.NewMoveField(def, id, state.Placement{Section: section, Index: index, Layout: l})
}

// dropSection returns the visible section under the centre of rect, or from.
func dropSection(geo layout.Result, rect layout.Rect, from string) string {
	center := layout.Point{X: rect.CenterX(), Y: rect.CenterY()}
	for _, box := range geo.Sections {
		if !box.Collapsed && box.Rect.Contains(center) {
			return box.ID
		}
	}
	return from
}

// flowIndex is the insertion index for a flow field dropped at rect: after
// every field that starts on an earlier line, or earlier on the same line.
func flowIndex(def *schema.FormDefinition, geo layout.Result, id, section string, rect layout.Rect) int {
	sec := def.SectionByID(section)
	if sec == nil {
		return -1
	}
	rtl := def.Direction() == schema.DirectionRTL
	index, pos := 0, 0
	for _, f := range sec.Fields {
		if f.ID == id {
			continue
		}
		pos++
		r, ok := geo.Fields[f.ID]
		if !ok {
			continue
		}
		before := r.Bottom() <= rect.CenterY()
		if !before && r.Y <= rect.CenterY() {
			if rtl {
				before = r.CenterX() > rect.CenterX()
			} else {
				before = r.CenterX() < rect.CenterX()
			}
		}
		if before {
			index = pos
		}
	}
	return index
}

// Nudge moves the selection by whole units: pixels in absolute mode, cells
// in grid mode and positions in flow mode. Positive dx is towards the
// visual right.
func (e *Editor) Nudge(dx, dy int) error {
	if !e.active {
		return ErrInactive
	}
	if e.selected == "" {
		return ErrNoSelection
	}
	def := e.r.Definition()
	current, err := state.PlacementOf(def, e.selected)
	if err != nil {
		return err
	}
	rtl := def.Direction() == schema.DirectionRTL
	if rtl {
		dx = -dx
	}
	to := current
	switch def.Settings.LayoutMode {
	case schema.LayoutAbsolute:
		to.Layout.X = math.Max(to.Layout.X+float64(dx), 0)
		to.Layout.Y = math.Max(to.Layout.Y+float64(dy), 0)
	case schema.LayoutFlow:
		n := len(def.SectionByID(current.Section).Fields)
		to.Index = min(max(current.Index+dx+dy, 0), n-1)
	default:
		to.Layout.Col = max(to.Layout.Col+dx, 0)
		to.Layout.Row = max(to.Layout.Row+dy, 0)
	}
	if to.Index == current.Index && to.Layout == current.Layout {
		return nil
	}
	cmd, err := state.NewMoveField(def, e.selected, to)
	if err != nil {
		return err
	}
	return e.commit(cmd)
}

// Delete removes the selected field.
func (e *Editor) Delete() error {
	if !e.active {
		return ErrInactive
	}
	if e.selected == "" {
		return ErrNoSelection
	}
	if err := e.commit(&state.RemoveField{FieldID: e.selected}); err != nil {
		return err
	}
	e.selected = ""
	return nil
}

// Add inserts a new field into section at index.
func (e *Editor) Add(section string, index int, field schema.Field) error {
	if !e.active {
		return ErrInactive
	}
	return e.commit(&state.AddField{Section: section, Index: index, Field: field})
}

// commit applies cmd through the renderer so the controls follow, then
// records it. A command the schema rejects leaves form and history as they
// were.
func (e *Editor) commit(cmd state.Command) error {
	err := e.r.Mutate(func(def *schema.FormDefinition) error {
		return cmd.Apply(def)
	})
	if err != nil {
		return fmt.Errorf("liveedit: %s: %w", cmd.Name(), err)
	}
	e.history.Push(cmd)
	e.modified = true
	e.logger.Debug("liveedit: committed", "command", cmd.Name())
	return nil
}

// Undo reverts the latest edit.
func (e *Editor) Undo() error {
	next := e.r.Definition()
	cmd, err := e.history.Undo(next)
	if err != nil {
		return err
	}
	if err := e.swap(next); err != nil {
		if _, rerr := e.history.Redo(next); rerr != nil {
			e.logger.Error("liveedit: restore history after failed undo", "error", rerr)
		}
		return fmt.Errorf("liveedit: undo %s: %w", cmd.Name(), err)
	}
	e.modified = true
	return nil
}

// Redo reapplies the latest undone edit.
func (e *Editor) Redo() error {
	next := e.r.Definition()
	cmd, err := e.history.Redo(next)
	if err != nil {
		return err
	}
	if err := e.swap(next); err != nil {
		if _, rerr := e.history.Undo(next); rerr != nil {
			e.logger.Error("liveedit: restore history after failed redo", "error", rerr)
		}
		return fmt.Errorf("liveedit: redo %s: %w", cmd.Name(), err)
	}
	e.modified = true
	return nil
}

func (e *Editor) swap(next *schema.FormDefinition) error {
	err := e.r.Mutate(func(def *schema.FormDefinition) error {
		*def = *next.Clone()
		return nil
	})
	if err == nil && e.selected != "" && next.FieldByID(e.selected) == nil {
		e.selected = ""
	}
	return err
}

// Reset returns the layout to the last saved state as one undoable edit.
func (e *Editor) Reset() error {
	if !e.active {
		return ErrInactive
	}
	if e.baseline == nil {
		return nil
	}
	return e.commit(&replace{from: e.r.Definition(), to: e.baseline})
}

// Cancel discards every edit since the last save, clears the history and
// turns the overlay off.
func (e *Editor) Cancel() error {
	if e.baseline != nil && e.modified {
		if err := e.swap(e.baseline); err != nil {
			return fmt.Errorf("liveedit: cancel: %w", err)
		}
	}
	e.history.Clear()
	e.modified = false
	e.Deactivate()
	return nil
}

// Save re-validates the edited definition, backs up the stored document and
// writes the new one. On failure the edits and the history stay as they are.
func (e *Editor) Save(ctx context.Context) error {
	if e.store == nil {
		return ErrNoStore
	}
	def := e.r.Definition()
	data, err := schema.Marshal(def)
	if err != nil {
		return fmt.Errorf("liveedit: save: %w", err)
	}
	if _, err := schema.Parse(data, append([]schema.Option{schema.WithLogger(e.logger)}, e.schemaOpts...)...); err != nil {
		return fmt.Errorf("liveedit: save: %w", err)
	}
	backup, err := e.store.Backup(ctx, e.name)
	if err != nil {
		return fmt.Errorf("liveedit: backup %s: %w", e.name, err)
	}
	if err := e.store.Write(ctx, e.name, data); err != nil {
		e.logger.Warn("liveedit: write failed, edits kept", "document", e.name, "error", err)
		return fmt.Errorf("liveedit: write %s: %w", e.name, err)
	}
	e.baseline = def
	e.modified = false
	e.logger.Info("liveedit: document saved", "document", e.name, "backup", backup)
	return nil
}
