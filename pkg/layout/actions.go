package layout

import "github.com/goliatone/go-iform/pkg/schema"

func hasTopActions(actions []schema.Action) bool {
	for _, a := range actions {
		if a.Visible && a.Position == schema.PositionTopRight {
			return true
		}
	}
	return false
}

func actionWidth(a schema.Action) float64 {
	if a.Width > 0 {
		return a.Width
	}
	return DefaultActionWidth
}

// actions lays out the action bar after the sections. Positions are physical:
// footer_left always hugs the left margin whatever the form direction. The
// returned value is the bottom of everything placed so far.
func (e *Engine) actions(actions []schema.Action, fr frame, top, contentBottom float64, res *Result) float64 {
	groups := make(map[schema.ActionPosition][]schema.Action)
	for _, a := range actions {
		if !a.Visible {
			continue
		}
		pos := a.Position
		if pos == "" {
			pos = schema.PositionFooterRight
		}
		groups[pos] = append(groups[pos], a)
	}

	fromRight := func(list []schema.Action, y float64) {
		cursor := fr.right
		for _, a := range list {
			w := actionWidth(a)
			res.Actions[a.ID] = Rect{X: cursor - w, Y: y, W: w, H: e.actionHeight}
			cursor -= w + fr.colGap
		}
	}
	fromLeft := func(list []schema.Action, start, y float64) {
		cursor := start
		for _, a := range list {
			w := actionWidth(a)
			res.Actions[a.ID] = Rect{X: cursor, Y: y, W: w, H: e.actionHeight}
			cursor += w + fr.colGap
		}
	}

	fromRight(groups[schema.PositionTopRight], top)

	footer := len(groups[schema.PositionFooterLeft]) + len(groups[schema.PositionFooterRight]) +
		len(groups[schema.PositionFooterCenter])
	if footer == 0 {
		return contentBottom
	}
	y := contentBottom + fr.rowGap
	fromLeft(groups[schema.PositionFooterLeft], fr.left, y)
	fromRight(groups[schema.PositionFooterRight], y)

	center := groups[schema.PositionFooterCenter]
	if len(center) > 0 {
		total := float64(len(center)-1) * fr.colGap
		for _, a := range center {
			total += actionWidth(a)
		}
		fromLeft(center, fr.left+(fr.width-total)/2, y)
	}
	res.ActionBar = Rect{X: fr.left, Y: y, W: fr.width, H: e.actionHeight}
	return res.ActionBar.Bottom()
}
