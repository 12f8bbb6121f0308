package layout

import (
	"fmt"

	"github.com/goliatone/go-iform/pkg/schema"
)

type cell struct{ row, col int }

// grid places fields on a row/column grid. Hidden fields still claim their
// cells so toggling visibility never reflows neighbours.
func (e *Engine) grid(section schema.Section, fr frame, top float64, ov Overrides, box *SectionBox) (map[string]Rect, float64, error) {
	columns := fr.settings.EffectiveColumns(section)
	occupied := make(map[cell]string)
	rows := 0
	for _, field := range section.Fields {
		cs, rs := field.Layout.Spans()
		if field.Layout.Col < 0 || field.Layout.Row < 0 || field.Layout.Col+cs > columns {
			return nil, 0, fmt.Errorf("layout: section %s: field %s at (%d,%d) span %d: %w",
				section.ID, field.ID, field.Layout.Row, field.Layout.Col, cs, ErrOutOfBounds)
		}
		for r := field.Layout.Row; r < field.Layout.Row+rs; r++ {
			for c := field.Layout.Col; c < field.Layout.Col+cs; c++ {
				if other, taken := occupied[cell{r, c}]; taken {
					return nil, 0, fmt.Errorf("layout: section %s: %s and %s both claim (%d,%d): %w",
						section.ID, other, field.ID, r, c, ErrOverlap)
				}
				occupied[cell{r, c}] = field.ID
			}
		}
		if end := field.Layout.Row + rs; end > rows {
			rows = end
		}
	}

	widths := columnWidths(section, columns, fr.width, fr.colGap)
	box.Columns = make([]Rect, columns)
	x := fr.left
	for i, w := range widths {
		r := Rect{X: x, Y: top, W: w}
		if fr.dir == schema.DirectionRTL {
			r.X = mirror(x, w, fr.left, fr.right)
		}
		box.Columns[i] = r
		x += w + fr.colGap
	}

	heights := rowHeights(section, rows, fr.rowH, fr.rowGap, ov)
	box.Rows = make([]Rect, rows)
	y := top
	for i, h := range heights {
		box.Rows[i] = Rect{X: fr.left, Y: y, W: fr.width, H: h}
		y += h + fr.rowGap
	}
	bodyHeight := 0.0
	if rows > 0 {
		bodyHeight = box.Rows[rows-1].Bottom() - top
	}
	for i := range box.Columns {
		box.Columns[i].H = bodyHeight
	}

	fields := make(map[string]Rect)
	for _, field := range section.Fields {
		if !ov.fieldVisible(field) {
			continue
		}
		cs, rs := field.Layout.Spans()
		first, last := box.Columns[field.Layout.Col], box.Columns[field.Layout.Col+cs-1]
		firstRow, lastRow := box.Rows[field.Layout.Row], box.Rows[field.Layout.Row+rs-1]

		var rect Rect
		if fr.dir == schema.DirectionRTL {
			rect = Rect{X: last.X, W: first.Right() - last.X}
		} else {
			rect = Rect{X: first.X, W: last.Right() - first.X}
		}
		rect.Y = firstRow.Y
		rect.H = lastRow.Bottom() - firstRow.Y

		if w := clamp(rect.W, field.Layout.MinWidth, field.Layout.MaxWidth); w != rect.W {
			if fr.dir == schema.DirectionRTL {
				rect.X = rect.Right() - w
			}
			rect.W = w
		}
		fields[field.ID] = rect
	}
	return fields, bodyHeight, nil
}

// columnWidths shares the content width between columns. Columns bounded by
// the min/max width of their single-column fields are fixed first and the rest
// split what remains.
func columnWidths(section schema.Section, columns int, width, gap float64) []float64 {
	if columns < 1 {
		return nil
	}
	lo := make([]float64, columns)
	hi := make([]float64, columns)
	for _, field := range section.Fields {
		cs, _ := field.Layout.Spans()
		col := field.Layout.Col
		if cs != 1 || col < 0 || col >= columns {
			continue
		}
		if field.Layout.MinWidth > lo[col] {
			lo[col] = field.Layout.MinWidth
		}
		if m := field.Layout.MaxWidth; m > 0 && (hi[col] == 0 || m < hi[col]) {
			hi[col] = m
		}
	}

	available := width - float64(columns-1)*gap
	if available < 0 {
		available = 0
	}
	widths := make([]float64, columns)
	fixed := make([]bool, columns)
	for pass := 0; pass <= columns; pass++ {
		remaining, free := available, 0
		for i := range widths {
			if fixed[i] {
				remaining -= widths[i]
			} else {
				free++
			}
		}
		if free == 0 {
			break
		}
		share := remaining / float64(free)
		if share < 0 {
			share = 0
		}
		changed := false
		for i := range widths {
			if fixed[i] {
				continue
			}
			switch {
			case lo[i] > 0 && share < lo[i]:
				widths[i], fixed[i], changed = lo[i], true, true
			case hi[i] > 0 && share > hi[i]:
				widths[i], fixed[i], changed = hi[i], true, true
			default:
				widths[i] = share
			}
		}
		if !changed {
			break
		}
	}
	return widths
}

// rowHeights starts every row at the nominal height and grows rows to fit the
// natural height of the visible fields in them. Multi-row fields push their
// deficit onto their last row.
func rowHeights(section schema.Section, rows int, rowH, gap float64, ov Overrides) []float64 {
	heights := make([]float64, rows)
	for i := range heights {
		heights[i] = rowH
	}
	var spanning []schema.Field
	for _, field := range section.Fields {
		if !ov.fieldVisible(field) {
			continue
		}
		_, rs := field.Layout.Spans()
		if rs > 1 {
			spanning = append(spanning, field)
			continue
		}
		if h := naturalHeight(field, rowH); h > heights[field.Layout.Row] {
			heights[field.Layout.Row] = h
		}
	}
	for _, field := range spanning {
		_, rs := field.Layout.Spans()
		span := float64(rs-1) * gap
		for r := field.Layout.Row; r < field.Layout.Row+rs; r++ {
			span += heights[r]
		}
		if need := naturalHeight(field, rowH); need > span {
			heights[field.Layout.Row+rs-1] += need - span
		}
	}
	return heights
}
