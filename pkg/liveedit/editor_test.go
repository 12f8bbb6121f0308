package liveedit_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/liveedit"
	"github.com/goliatone/go-iform/pkg/renderer"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/testsupport"
	"github.com/goliatone/go-iform/pkg/widgets/headless"
)

const canvasForm = `{
  "version": "2.0",
  "formId": "canvas",
  "nameEn": "Canvas",
  "targetTable": "notes",
  "settings": {
    "direction": "ltr",
    "layoutMode": "absolute",
    "language": "en",
    "margins": {"top": 10, "right": 10, "bottom": 10, "left": 10}
  },
  "sections": [
    {
      "id": "main",
      "titleEn": "Main",
      "fields": [
        {"id": "title", "widgetType": "text_input", "labelEn": "Title", "layout": {"x": 0, "y": 0, "width": 100, "height": 30}},
        {"id": "body", "widgetType": "text_input", "labelEn": "Body", "layout": {"x": 0, "y": 100, "width": 100, "height": 30}}
      ]
    }
  ]
}`

func newEditor(t *testing.T, form string, opts ...liveedit.Option) (*liveedit.Editor, *renderer.Renderer) {
	t.Helper()
	r := renderer.New(headless.New())
	if err := r.LoadForm(context.Background(), []byte(form)); err != nil {
		t.Fatalf("load form: %v", err)
	}
	e := liveedit.New(r, opts...)
	e.Activate()
	return e, r
}

func center(r layout.Rect) layout.Point {
	return layout.Point{X: r.CenterX(), Y: r.CenterY()}
}

func fieldLayout(t *testing.T, r *renderer.Renderer, id string) schema.Layout {
	t.Helper()
	f := r.Definition().FieldByID(id)
	if f == nil {
		t.Fatalf("field %s missing", id)
	}
	return f.Layout
}

// dragBy drags the body of field id by dx to the right.
func dragBy(t *testing.T, e *liveedit.Editor, r *renderer.Renderer, id string, dx float64) []liveedit.Guide {
	t.Helper()
	start := center(r.Geometry().Fields[id])
	if !e.BeginDrag(start) {
		t.Fatalf("drag did not start on %s", id)
	}
	_, guides := e.DragTo(layout.Point{X: start.X + dx, Y: start.Y}, false)
	if err := e.EndDrag(); err != nil {
		t.Fatalf("end drag: %v", err)
	}
	return guides
}

func TestEditor_MoveSnapsWithinThreshold(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	title := r.Geometry().Fields["title"]

	// body starts under title; 106px right puts its start 6px past title's end
	guides := dragBy(t, e, r, "body", 106)
	if got := fieldLayout(t, r, "body"); got.X != 100 || got.Y != 100 {
		t.Fatalf("layout = %+v, want x=100 y=100", got)
	}
	if got := r.Geometry().Fields["body"].X; got != title.Right() {
		t.Fatalf("body x = %v, want title edge %v", got, title.Right())
	}
	want := liveedit.Guide{Axis: liveedit.Vertical, Pos: title.Right(), Kind: liveedit.GuideEdge, Ref: "title"}
	found := false
	for _, g := range guides {
		if g == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("guides %+v lack %+v", guides, want)
	}
}

func TestEditor_MoveBeyondThresholdDoesNotSnap(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	dragBy(t, e, r, "body", 109)
	if got := fieldLayout(t, r, "body"); got.X != 109 {
		t.Fatalf("x = %v, want 109", got.X)
	}
}

func TestEditor_UndoRedoMove(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	before := r.Definition()
	dragBy(t, e, r, "body", 106)
	moved := r.Definition()

	if err := e.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if diff := cmp.Diff(before, r.Definition()); diff != "" {
		t.Fatalf("undo did not restore (-want +got):\n%s", diff)
	}
	if err := e.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if diff := cmp.Diff(moved, r.Definition()); diff != "" {
		t.Fatalf("redo mismatch (-want +got):\n%s", diff)
	}
}

func TestEditor_ResizeFromHandle(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	if err := e.Select("body"); err != nil {
		t.Fatal(err)
	}
	handles := e.SelectionHandles()
	se := center(handles[liveedit.HandleSE])
	if !e.BeginDrag(se) {
		t.Fatal("drag did not start on handle")
	}
	// 40px wider and 20px taller, away from any sibling line
	e.DragTo(layout.Point{X: se.X + 40, Y: se.Y + 20}, false)
	if err := e.EndDrag(); err != nil {
		t.Fatal(err)
	}
	got := fieldLayout(t, r, "body")
	if got.Width != 140 || got.Height != 50 || got.X != 0 || got.Y != 100 {
		t.Fatalf("layout = %+v", got)
	}
	if n, _ := e.History().Len(); n != 1 {
		t.Fatalf("history = %d, want 1", n)
	}
}

func TestEditor_DeleteAndUndo(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	before := r.Definition()
	if err := e.Select("title"); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if ok, err := e.Key(ctx, "Delete"); !ok || err != nil {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	if r.Definition().FieldByID("title") != nil {
		t.Fatal("title still present")
	}
	if e.Selected() != "" {
		t.Fatal("selection should clear")
	}
	if _, ok := r.Control("title"); ok {
		t.Fatal("control for removed field still built")
	}
	if ok, err := e.Key(ctx, "Ctrl+Z"); !ok || err != nil {
		t.Fatalf("undo = %v, %v", ok, err)
	}
	if diff := cmp.Diff(before, r.Definition()); diff != "" {
		t.Fatalf("undo did not restore (-want +got):\n%s", diff)
	}
}

func TestEditor_NudgeKeys(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	ctx := context.Background()
	if err := e.Select("title"); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"Right", "Shift+Down"} {
		if ok, err := e.Key(ctx, key); !ok || err != nil {
			t.Fatalf("%s = %v, %v", key, ok, err)
		}
	}
	if got := fieldLayout(t, r, "title"); got.X != 1 || got.Y != 5 {
		t.Fatalf("layout = %+v, want x=1 y=5", got)
	}
	if n, _ := e.History().Len(); n != 2 {
		t.Fatalf("history = %d, want one command per nudge", n)
	}
}

func TestEditor_PopupCommitsOneCommand(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	p, err := e.DoubleClick(center(r.Geometry().Fields["body"]))
	if err != nil {
		t.Fatal(err)
	}
	if p.Width != 100 || p.LabelEn != "Body" {
		t.Fatalf("popup = %+v", p)
	}
	p.Width = 250
	p.LabelEn = "Content"
	p.ReadOnly = true
	if err := e.ApplyPopup(p); err != nil {
		t.Fatal(err)
	}
	f := r.Definition().FieldByID("body")
	if f.Layout.Width != 250 || f.LabelEn != "Content" || !f.Properties.ReadOnly {
		t.Fatalf("field = %+v", f)
	}
	if n, _ := e.History().Len(); n != 1 {
		t.Fatalf("history = %d, want 1", n)
	}
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	f = r.Definition().FieldByID("body")
	if f.Layout.Width != 100 || f.LabelEn != "Body" || f.Properties.ReadOnly {
		t.Fatalf("undo left %+v", f)
	}
}

func TestEditor_SaveBacksUpAndWrites(t *testing.T) {
	ctx := context.Background()
	store := schema.NewMemoryStore()
	if err := store.Write(ctx, "canvas", []byte(canvasForm)); err != nil {
		t.Fatal(err)
	}
	e, r := newEditor(t, canvasForm, liveedit.WithStore(store, "canvas"))
	dragBy(t, e, r, "body", 106)
	if !e.Modified() {
		t.Fatal("edit should mark the editor modified")
	}

	if ok, err := e.Key(ctx, "ctrl+s"); !ok || err != nil {
		t.Fatalf("save = %v, %v", ok, err)
	}
	if e.Modified() {
		t.Fatal("save should clear modified")
	}
	backups := store.Backups("canvas")
	if len(backups) != 1 || string(backups[0]) != canvasForm {
		t.Fatalf("backups = %d, want the original document", len(backups))
	}
	doc, err := store.Read(ctx, "canvas")
	if err != nil {
		t.Fatal(err)
	}
	saved, err := schema.LoadDocument(doc)
	if err != nil {
		t.Fatalf("saved document does not load: %v", err)
	}
	if got := saved.FieldByID("body").Layout.X; got != 100 {
		t.Fatalf("saved x = %v, want 100", got)
	}
}

type failingStore struct {
	*schema.MemoryStore
}

var errDiskFull = errors.New("disk full")

func (failingStore) Write(context.Context, string, []byte) error { return errDiskFull }

func TestEditor_FailedSaveKeepsEdits(t *testing.T) {
	store := failingStore{schema.NewMemoryStore()}
	e, r := newEditor(t, canvasForm, liveedit.WithStore(store, "canvas"))
	dragBy(t, e, r, "body", 106)

	err := e.Save(context.Background())
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("save error = %v", err)
	}
	if !e.Modified() {
		t.Fatal("edits must survive a failed write")
	}
	if got := fieldLayout(t, r, "body"); got.X != 100 {
		t.Fatalf("x = %v, edit lost", got.X)
	}
	if n, _ := e.History().Len(); n != 1 {
		t.Fatalf("history = %d, want 1", n)
	}
}

func TestEditor_SaveWithoutStore(t *testing.T) {
	e, _ := newEditor(t, canvasForm)
	if err := e.Save(context.Background()); !errors.Is(err, liveedit.ErrNoStore) {
		t.Fatalf("err = %v", err)
	}
}

func TestEditor_ToggleAndFallthrough(t *testing.T) {
	r := renderer.New(headless.New())
	if err := r.LoadForm(context.Background(), []byte(canvasForm)); err != nil {
		t.Fatal(err)
	}
	e := liveedit.New(r)
	ctx := context.Background()

	if ok, _ := e.Key(ctx, "Ctrl+Shift+E"); !ok || !e.Active() {
		t.Fatal("toggle should activate")
	}
	if err := e.Select("title"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Key(ctx, "Escape"); !ok || e.Selected() != "" {
		t.Fatal("escape should deselect first")
	}
	if ok, _ := e.Key(ctx, "Escape"); !ok || e.Active() {
		t.Fatal("second escape should leave edit mode")
	}
	ok, err := e.Key(ctx, "Delete")
	if ok || err != nil {
		t.Fatalf("inactive delete = %v, %v; want passed through", ok, err)
	}
	if err := e.Nudge(1, 0); !errors.Is(err, liveedit.ErrInactive) {
		t.Fatalf("nudge while inactive = %v", err)
	}
}

func TestEditor_CancelRestoresBaseline(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	before := r.Definition()
	dragBy(t, e, r, "body", 150)
	if err := e.Select("title"); err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(); err != nil {
		t.Fatal(err)
	}
	if err := e.Cancel(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, r.Definition()); diff != "" {
		t.Fatalf("cancel (-want +got):\n%s", diff)
	}
	if e.Active() || e.History().CanUndo() {
		t.Fatal("cancel should leave edit mode with an empty history")
	}
}

func TestEditor_ResetIsUndoable(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	before := r.Definition()
	dragBy(t, e, r, "body", 150)
	moved := r.Definition()

	if err := e.Reset(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, r.Definition()); diff != "" {
		t.Fatalf("reset (-want +got):\n%s", diff)
	}
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(moved, r.Definition()); diff != "" {
		t.Fatalf("undo reset (-want +got):\n%s", diff)
	}
}

func TestEditor_GridNudgeRejectsOverlap(t *testing.T) {
	e, r := newEditor(t, testsupport.EmployeeForm)
	ctx := context.Background()
	if err := e.Select("phone"); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"Down", "Left"} {
		if _, err := e.Key(ctx, key); err != nil {
			t.Fatalf("%s: %v", key, err)
		}
	}
	if got := fieldLayout(t, r, "phone"); got.Row != 1 || got.Col != 0 {
		t.Fatalf("phone = %+v, want row 1 col 0", got)
	}
	// email holds row 0 col 0
	if _, err := e.Key(ctx, "Up"); err == nil {
		t.Fatal("moving onto email should fail the grid check")
	}
	if n, _ := e.History().Len(); n != 2 {
		t.Fatalf("history = %d, rejected edit must not be recorded", n)
	}
	if got := fieldLayout(t, r, "phone"); got.Row != 1 {
		t.Fatalf("rejected edit changed the form: %+v", got)
	}
}

func TestEditor_DeleteRuleTriggerIsRejected(t *testing.T) {
	e, r := newEditor(t, testsupport.EmployeeForm)
	if err := e.Select("is_manager"); err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(); err == nil {
		t.Fatal("removing a rule trigger should fail the schema check")
	}
	if r.Definition().FieldByID("is_manager") == nil {
		t.Fatal("field removed despite the error")
	}
}

func TestEditor_GridDragReCells(t *testing.T) {
	e, r := newEditor(t, testsupport.EmployeeForm)
	geo := r.Geometry()
	email, phone := geo.Fields["email"], geo.Fields["phone"]
	box, _ := geo.Section("section_contact")
	start := center(phone)
	if !e.BeginDrag(start) {
		t.Fatal("drag did not start")
	}
	pitch := box.RowHeight + box.RowGap
	e.DragTo(layout.Point{X: start.X - (phone.X - email.X), Y: start.Y + pitch}, false)
	if err := e.EndDrag(); err != nil {
		t.Fatal(err)
	}
	if got := fieldLayout(t, r, "phone"); got.Row != 1 || got.Col != 0 {
		t.Fatalf("phone = %+v, want row 1 col 0", got)
	}
}

func TestEditor_FormReloadDropsEdits(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	dragBy(t, e, r, "body", 106)
	if !e.Modified() {
		t.Fatalf("drag should mark the editor modified")
	}

	if err := r.LoadForm(context.Background(), []byte(canvasForm)); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if undo, redo := e.History().Len(); undo != 0 || redo != 0 {
		t.Fatalf("history = %d/%d, want empty after reload", undo, redo)
	}
	if e.Modified() || e.Active() || e.Selected() != "" {
		t.Fatalf("editor state survived reload: modified=%v active=%v selected=%q", e.Modified(), e.Active(), e.Selected())
	}
	if err := e.Undo(); err == nil {
		t.Fatalf("undo after reload should have nothing to revert")
	}
	if got := fieldLayout(t, r, "body"); got.X != 0 {
		t.Fatalf("reloaded body x = %v, want 0", got.X)
	}
}

func TestEditor_CancelAfterReloadKeepsNewForm(t *testing.T) {
	e, r := newEditor(t, canvasForm)
	dragBy(t, e, r, "body", 106)

	other := strings.Replace(canvasForm, `"formId": "canvas"`, `"formId": "other"`, 1)
	if err := r.LoadForm(context.Background(), []byte(other)); err != nil {
		t.Fatalf("load other: %v", err)
	}
	if err := e.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := r.Definition().FormID; got != "other" {
		t.Fatalf("form = %q, cancel reverted to the previous form", got)
	}

	e.Activate()
	dragBy(t, e, r, "title", 300)
	if err := e.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := fieldLayout(t, r, "title"); got.X != 0 {
		t.Fatalf("title x = %v, want 0 after cancel", got.X)
	}
	if got := r.Definition().FormID; got != "other" {
		t.Fatalf("form = %q, want other", got)
	}
}
