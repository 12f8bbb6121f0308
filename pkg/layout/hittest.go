package layout

import (
	"math"
	"sort"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Placed is a field rect tagged with its id.
type Placed struct {
	ID   string
	Rect Rect
}

// GridCellAt maps p to the grid cell of section sectionID. The column is the
// one whose centre is nearest to p; rows extend past the last placed row at
// the nominal row height so fields can be dropped below existing content.
func (r Result) GridCellAt(sectionID string, p Point) (row, col int, ok bool) {
	box, found := r.Section(sectionID)
	if !found || len(box.Columns) == 0 || box.Collapsed {
		return 0, 0, false
	}
	best := math.Inf(1)
	for i, c := range box.Columns {
		if d := math.Abs(c.CenterX() - p.X); d < best {
			best, col = d, i
		}
	}
	return box.rowAt(p.Y), col, true
}

func (b SectionBox) rowAt(y float64) int {
	pitch := b.RowHeight + b.RowGap
	if len(b.Rows) == 0 {
		if pitch <= 0 || y <= b.Body.Y {
			return 0
		}
		return int((y - b.Body.Y) / pitch)
	}
	for i, row := range b.Rows {
		if y < row.Bottom()+b.RowGap/2 {
			return i
		}
	}
	last := b.Rows[len(b.Rows)-1]
	if pitch <= 0 {
		return len(b.Rows) - 1
	}
	return len(b.Rows) + int((y-last.Bottom()-b.RowGap/2)/pitch)
}

// CellForRect snaps the leading top corner of rect to the nearest cell origin.
// The leading corner is the left edge for ltr and the right edge for rtl.
func (r Result) CellForRect(sectionID string, rect Rect) (row, col int, ok bool) {
	box, found := r.Section(sectionID)
	if !found || len(box.Columns) == 0 || box.Collapsed {
		return 0, 0, false
	}
	best := math.Inf(1)
	for i, c := range box.Columns {
		d := math.Abs(c.X - rect.X)
		if box.Direction == schema.DirectionRTL {
			d = math.Abs(c.Right() - rect.Right())
		}
		if d < best {
			best, col = d, i
		}
	}
	// compare against the row's top edge rather than its band
	row = box.rowAt(rect.Y + box.RowHeight/2)
	return row, col, true
}

// SpanForSize converts a width and height into a colspan and rowspan for the
// section, clamped so the span fits from column col.
func (r Result) SpanForSize(sectionID string, col int, w, h float64) (colspan, rowspan int) {
	box, found := r.Section(sectionID)
	if !found || len(box.Columns) == 0 {
		return 1, 1
	}
	var total float64
	for _, c := range box.Columns {
		total += c.W
	}
	colW := total / float64(len(box.Columns))
	colspan = 1
	if pitch := colW + box.ColGap; pitch > 0 {
		colspan = int(math.Round((w + box.ColGap) / pitch))
	}
	if colspan < 1 {
		colspan = 1
	}
	if limit := len(box.Columns) - col; colspan > limit {
		colspan = limit
	}
	if colspan < 1 {
		colspan = 1
	}
	rowspan = 1
	if pitch := box.RowHeight + box.RowGap; pitch > 0 {
		rowspan = int(math.Round((h + box.RowGap) / pitch))
	}
	if rowspan < 1 {
		rowspan = 1
	}
	return colspan, rowspan
}

// FieldAt returns the innermost placed field containing p.
func (r Result) FieldAt(p Point) (string, bool) {
	var (
		hit  string
		area = math.Inf(1)
	)
	for id, rect := range r.Fields {
		if !rect.Contains(p) {
			continue
		}
		a := rect.W * rect.H
		if a < area || (a == area && id < hit) {
			hit, area = id, a
		}
	}
	return hit, hit != ""
}

// ActionAt returns the action button containing p.
func (r Result) ActionAt(p Point) (string, bool) {
	ids := make([]string, 0, len(r.Actions))
	for id := range r.Actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if r.Actions[id].Contains(p) {
			return id, true
		}
	}
	return "", false
}

// Siblings returns the placed fields sharing fieldID's section, excluding the
// field itself, ordered by id.
func (r Result) Siblings(fieldID string) []Placed {
	section, ok := r.FieldSection[fieldID]
	if !ok {
		return nil
	}
	var out []Placed
	for id, sec := range r.FieldSection {
		if sec != section || id == fieldID {
			continue
		}
		out = append(out, Placed{ID: id, Rect: r.Fields[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
