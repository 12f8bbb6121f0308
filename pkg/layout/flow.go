package layout

import "github.com/goliatone/go-iform/pkg/schema"

// absolute places fields at their explicit coordinates. X is measured from the
// start edge, so rtl forms measure it from the right margin.
func (e *Engine) absolute(section schema.Section, fr frame, top float64, ov Overrides) (map[string]Rect, float64) {
	fields := make(map[string]Rect)
	bottom := top
	for _, field := range section.Fields {
		if !ov.fieldVisible(field) {
			continue
		}
		w := naturalWidth(field, 0)
		h := naturalHeight(field, fr.rowH)
		rect := Rect{X: fr.left + field.Layout.X, Y: top + field.Layout.Y, W: w, H: h}
		if fr.dir == schema.DirectionRTL {
			rect.X = fr.right - field.Layout.X - w
		}
		fields[field.ID] = rect
		if rect.Bottom() > bottom {
			bottom = rect.Bottom()
		}
	}
	return fields, bottom - top
}

// flow runs fields start to end in declaration order and wraps when the next
// field does not fit the remaining line width.
func (e *Engine) flow(section schema.Section, fr frame, top float64, ov Overrides) (map[string]Rect, float64) {
	fields := make(map[string]Rect)
	var (
		cursor float64
		lineY  = top
		lineH  float64
		placed bool
	)
	for _, field := range section.Fields {
		if !ov.fieldVisible(field) {
			continue
		}
		w := naturalWidth(field, fr.width)
		h := naturalHeight(field, fr.rowH)
		if cursor > 0 && cursor+w > fr.width {
			lineY += lineH + fr.rowGap
			cursor, lineH = 0, 0
		}
		rect := Rect{X: fr.left + cursor, Y: lineY, W: w, H: h}
		if fr.dir == schema.DirectionRTL {
			rect.X = fr.right - cursor - w
		}
		fields[field.ID] = rect
		cursor += w + fr.colGap
		if h > lineH {
			lineH = h
		}
		placed = true
	}
	if !placed {
		return fields, 0
	}
	return fields, lineY + lineH - top
}
