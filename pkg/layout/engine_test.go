package layout_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/schema"
)

func gridField(id string, row, col, colspan int) schema.Field {
	return schema.Field{
		ID:         id,
		WidgetType: schema.WidgetTextInput,
		Layout:     schema.Layout{Row: row, Col: col, Colspan: colspan, Rowspan: 1},
		Properties: schema.Properties{Enabled: true, Visible: true},
	}
}

func form(dir schema.Direction, mode schema.LayoutMode, fields ...schema.Field) *schema.FormDefinition {
	return &schema.FormDefinition{
		Version: schema.CurrentVersion,
		FormID:  "layout",
		Settings: schema.Settings{
			Direction:  dir,
			LayoutMode: mode,
			Columns:    2,
			ColumnGap:  10,
			RowGap:     10,
			RowHeight:  30,
			Margins:    schema.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10},
		},
		Sections: []schema.Section{{ID: "main", Visible: true, Fields: fields}},
	}
}

func arrange(t *testing.T, def *schema.FormDefinition, ov layout.Overrides) layout.Result {
	t.Helper()
	res, err := layout.New().Arrange(def, layout.Viewport{Width: 500}, ov)
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	return res
}

func TestArrange_GridColspanSpansBothColumns(t *testing.T) {
	def := form(schema.DirectionLTR, schema.LayoutGrid, gridField("wide", 0, 0, 2), gridField("below", 1, 0, 1))
	res := arrange(t, def, layout.Overrides{})

	want := map[string]layout.Rect{
		"wide":  {X: 10, Y: 38, W: 480, H: 30},
		"below": {X: 10, Y: 78, W: 235, H: 30},
	}
	if diff := cmp.Diff(want, res.Fields); diff != "" {
		t.Fatalf("field rects mismatch (-want +got):\n%s", diff)
	}
	if res.Fields["wide"].Intersects(res.Fields["below"]) {
		t.Fatalf("row 0 and row 1 overlap")
	}
	if res.FieldSection["below"] != "main" {
		t.Fatalf("field section not recorded: %#v", res.FieldSection)
	}
}

func TestArrange_GridMirrorsForRTL(t *testing.T) {
	def := form(schema.DirectionRTL, schema.LayoutGrid,
		gridField("wide", 0, 0, 2), gridField("start", 1, 0, 1), gridField("end", 1, 1, 1))
	res := arrange(t, def, layout.Overrides{})

	if got := res.Fields["wide"]; !got.Equal(layout.Rect{X: 10, Y: 38, W: 480, H: 30}) {
		t.Fatalf("wide rect mismatch: %#v", got)
	}
	if got := res.Fields["start"]; got.X != 255 {
		t.Fatalf("column 0 should sit on the right in rtl, got x=%v", got.X)
	}
	if got := res.Fields["end"]; got.X != 10 {
		t.Fatalf("column 1 should sit on the left in rtl, got x=%v", got.X)
	}
}

func TestArrange_GridOverlapIsAnError(t *testing.T) {
	def := form(schema.DirectionLTR, schema.LayoutGrid, gridField("a", 0, 0, 2), gridField("b", 0, 1, 1))
	_, err := layout.New().Arrange(def, layout.Viewport{Width: 500}, layout.Overrides{})
	if !errors.Is(err, layout.ErrOverlap) {
		t.Fatalf("expected overlap error, got %v", err)
	}

	def = form(schema.DirectionLTR, schema.LayoutGrid, gridField("a", 0, 1, 2))
	_, err = layout.New().Arrange(def, layout.Viewport{Width: 500}, layout.Overrides{})
	if !errors.Is(err, layout.ErrOutOfBounds) {
		t.Fatalf("expected out of bounds error, got %v", err)
	}
}

func TestArrange_GridLeavesEmptyCellsAndHiddenFieldsInPlace(t *testing.T) {
	def := form(schema.DirectionLTR, schema.LayoutGrid, gridField("top", 0, 0, 1), gridField("bottom", 2, 1, 1))
	res := arrange(t, def, layout.Overrides{Fields: map[string]bool{"top": false}})

	if _, ok := res.Fields["top"]; ok {
		t.Fatalf("hidden field should not be placed")
	}
	// row 1 stays empty at the nominal height
	if got := res.Fields["bottom"]; got.Y != 38+2*(30+10) || got.X != 255 {
		t.Fatalf("bottom field moved: %#v", got)
	}
}

func TestArrange_ColumnWidthsHonourMinWidth(t *testing.T) {
	wide := gridField("wide", 0, 0, 1)
	wide.Layout.MinWidth = 300
	def := form(schema.DirectionLTR, schema.LayoutGrid, wide, gridField("rest", 0, 1, 1))
	def.Settings.Columns = 3
	res := arrange(t, def, layout.Overrides{})

	box, _ := res.Section("main")
	got := []float64{box.Columns[0].W, box.Columns[1].W, box.Columns[2].W}
	if diff := cmp.Diff([]float64{300, 80, 80}, got); diff != "" {
		t.Fatalf("column widths mismatch (-want +got):\n%s", diff)
	}
}

func TestArrange_TallKindsGrowTheirRow(t *testing.T) {
	notes := gridField("notes", 0, 0, 1)
	notes.WidgetType = schema.WidgetTextArea
	def := form(schema.DirectionLTR, schema.LayoutGrid, notes, gridField("name", 0, 1, 1), gridField("next", 1, 0, 1))
	res := arrange(t, def, layout.Overrides{})

	if h := res.Fields["name"].H; h != 80 {
		t.Fatalf("row should grow to the text area height, got %v", h)
	}
	if y := res.Fields["next"].Y; y != 38+80+10 {
		t.Fatalf("next row misplaced at %v", y)
	}
}

func TestArrange_CollapsedAndHiddenSections(t *testing.T) {
	def := form(schema.DirectionLTR, schema.LayoutGrid, gridField("a", 0, 0, 1))
	def.Sections[0].Collapsible = true
	def.Sections[0].Collapsed = true
	def.Sections = append(def.Sections,
		schema.Section{ID: "hidden", Visible: false, Fields: []schema.Field{gridField("b", 0, 0, 1)}},
		schema.Section{ID: "last", Visible: true, Fields: []schema.Field{gridField("c", 0, 0, 1)}},
	)
	res := arrange(t, def, layout.Overrides{})

	if len(res.Sections) != 2 {
		t.Fatalf("expected hidden section skipped, got %d sections", len(res.Sections))
	}
	main, _ := res.Section("main")
	if !main.Collapsed || main.Rect.H != layout.DefaultHeaderHeight {
		t.Fatalf("collapsed section should only keep its header: %#v", main.Rect)
	}
	if _, ok := res.Fields["a"]; ok {
		t.Fatalf("fields of a collapsed section should not be placed")
	}
	last, _ := res.Section("last")
	if last.Rect.Y != main.Rect.Bottom()+10 {
		t.Fatalf("sections should stack with the row gap: %v after %v", last.Rect.Y, main.Rect.Bottom())
	}

	expanded := arrange(t, def, layout.Overrides{Collapsed: map[string]bool{"main": false}, Sections: map[string]bool{"hidden": true}})
	if _, ok := expanded.Fields["a"]; !ok {
		t.Fatalf("override should expand the section")
	}
	if _, ok := expanded.Fields["b"]; !ok {
		t.Fatalf("override should show the hidden section")
	}
}

func TestArrange_AbsoluteMeasuresFromStartEdge(t *testing.T) {
	f := gridField("pinned", 0, 0, 1)
	f.Layout.X, f.Layout.Y, f.Layout.Width, f.Layout.Height = 20, 5, 100, 30

	ltr := arrange(t, form(schema.DirectionLTR, schema.LayoutAbsolute, f), layout.Overrides{})
	if got := ltr.Fields["pinned"]; !got.Equal(layout.Rect{X: 30, Y: 43, W: 100, H: 30}) {
		t.Fatalf("ltr absolute rect mismatch: %#v", got)
	}
	rtl := arrange(t, form(schema.DirectionRTL, schema.LayoutAbsolute, f), layout.Overrides{})
	if got := rtl.Fields["pinned"]; got.X != 370 {
		t.Fatalf("rtl absolute x mismatch: %#v", got)
	}
}

func TestArrange_FlowWrapsInDirection(t *testing.T) {
	fields := []schema.Field{gridField("a", 0, 0, 1), gridField("b", 0, 0, 1), gridField("c", 0, 0, 1)}

	ltr := arrange(t, form(schema.DirectionLTR, schema.LayoutFlow, fields...), layout.Overrides{})
	wantLTR := map[string]layout.Rect{
		"a": {X: 10, Y: 38, W: 200, H: 30},
		"b": {X: 220, Y: 38, W: 200, H: 30},
		"c": {X: 10, Y: 78, W: 200, H: 30},
	}
	if diff := cmp.Diff(wantLTR, ltr.Fields); diff != "" {
		t.Fatalf("ltr flow mismatch (-want +got):\n%s", diff)
	}

	rtl := arrange(t, form(schema.DirectionRTL, schema.LayoutFlow, fields...), layout.Overrides{})
	if rtl.Fields["a"].X != 290 || rtl.Fields["b"].X != 80 || rtl.Fields["c"].X != 290 {
		t.Fatalf("rtl flow should run right to left: %#v", rtl.Fields)
	}
}

func TestArrange_ActionBarAnchors(t *testing.T) {
	def := form(schema.DirectionRTL, schema.LayoutGrid, gridField("a", 0, 0, 1))
	def.Actions = []schema.Action{
		{ID: "save", Position: schema.PositionFooterLeft, Width: 100, Visible: true},
		{ID: "cancel", Position: schema.PositionFooterRight, Width: 80, Visible: true},
		{ID: "print", Position: schema.PositionFooterCenter, Width: 60, Visible: true},
		{ID: "help", Position: schema.PositionTopRight, Width: 40, Visible: true},
		{ID: "ghost", Position: schema.PositionFooterLeft, Visible: false},
	}
	res := arrange(t, def, layout.Overrides{})

	main, _ := res.Section("main")
	if main.Rect.Y != 10+layout.DefaultActionHeight+10 {
		t.Fatalf("top actions should push sections down, got y=%v", main.Rect.Y)
	}
	footerY := main.Rect.Bottom() + 10
	want := map[string]layout.Rect{
		"save":   {X: 10, Y: footerY, W: 100, H: layout.DefaultActionHeight},
		"cancel": {X: 410, Y: footerY, W: 80, H: layout.DefaultActionHeight},
		"print":  {X: 220, Y: footerY, W: 60, H: layout.DefaultActionHeight},
		"help":   {X: 450, Y: 10, W: 40, H: layout.DefaultActionHeight},
	}
	if diff := cmp.Diff(want, res.Actions); diff != "" {
		t.Fatalf("action rects mismatch (-want +got):\n%s", diff)
	}
	if res.Size.H != footerY+layout.DefaultActionHeight+10 {
		t.Fatalf("total height should include the action bar, got %v", res.Size.H)
	}
	if id, ok := res.ActionAt(layout.Point{X: 15, Y: footerY + 1}); !ok || id != "save" {
		t.Fatalf("action hit test failed: %q", id)
	}
}

func TestResult_HitTesting(t *testing.T) {
	def := form(schema.DirectionLTR, schema.LayoutGrid, gridField("wide", 0, 0, 2), gridField("below", 1, 0, 1))
	res := arrange(t, def, layout.Overrides{})

	cases := []struct {
		point    layout.Point
		row, col int
	}{
		{layout.Point{X: 20, Y: 40}, 0, 0},
		{layout.Point{X: 300, Y: 90}, 1, 1},
		{layout.Point{X: 300, Y: 120}, 2, 1},
		{layout.Point{X: 20, Y: 200}, 4, 0},
	}
	for _, tc := range cases {
		row, col, ok := res.GridCellAt("main", tc.point)
		if !ok || row != tc.row || col != tc.col {
			t.Fatalf("GridCellAt(%v) = (%d,%d,%v), want (%d,%d)", tc.point, row, col, ok, tc.row, tc.col)
		}
	}

	row, col, ok := res.CellForRect("main", layout.Rect{X: 250, Y: 80, W: 100, H: 30})
	if !ok || row != 1 || col != 1 {
		t.Fatalf("CellForRect = (%d,%d,%v)", row, col, ok)
	}
	if cs, rs := res.SpanForSize("main", 0, 480, 70); cs != 2 || rs != 2 {
		t.Fatalf("SpanForSize = (%d,%d)", cs, rs)
	}
	if cs, _ := res.SpanForSize("main", 1, 480, 30); cs != 1 {
		t.Fatalf("span should be clamped to remaining columns, got %d", cs)
	}
	if id, ok := res.FieldAt(layout.Point{X: 100, Y: 90}); !ok || id != "below" {
		t.Fatalf("FieldAt = %q", id)
	}
	if sib := res.Siblings("wide"); len(sib) != 1 || sib[0].ID != "below" {
		t.Fatalf("siblings mismatch: %#v", sib)
	}
}
