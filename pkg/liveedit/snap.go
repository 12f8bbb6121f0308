package liveedit

import (
	"math"
	"sort"

	"github.com/goliatone/go-iform/pkg/layout"
)

// Snap distances in pixels.
const (
	DefaultShowTolerance = 5.0
	DefaultSnapThreshold = 8.0
)

// Axis is the orientation of a guide line. A vertical guide aligns x
// positions, a horizontal one aligns y positions.
type Axis int

const (
	Vertical Axis = iota
	Horizontal
)

// GuideKind tells how a guide was found.
type GuideKind string

const (
	GuideEdge    GuideKind = "edge"
	GuideCenter  GuideKind = "center"
	GuideSpacing GuideKind = "spacing"
)

// Guide is an alignment line shown while dragging.
type Guide struct {
	Axis Axis
	Pos  float64
	Kind GuideKind
	// Ref is the sibling the guide was taken from.
	Ref string
}

// Edges selects which lines of the dragged rect take part in snapping.
// Moves use every line; resizes only the edges being dragged.
type Edges struct {
	Left, Right, Top, Bottom bool
	Center                   bool
}

// AllEdges is used for moves.
var AllEdges = Edges{Left: true, Right: true, Top: true, Bottom: true, Center: true}

// Snapper aligns a dragged rect to its siblings.
type Snapper struct {
	Show      float64
	Threshold float64
}

// DefaultSnapper shows guides within 5px and snaps within 8px.
func DefaultSnapper() Snapper {
	return Snapper{Show: DefaultShowTolerance, Threshold: DefaultSnapThreshold}
}

type line struct {
	pos  float64
	kind GuideKind
	ref  string
}

type probe struct {
	pos  float64
	edge string
}

// Snap returns rect adjusted to the nearest guide on each axis, when one lies
// within the threshold, and the guides the adjusted rect lines up with. For a
// move the whole rect shifts; for a resize only the dragged edge moves.
func (s Snapper) Snap(rect layout.Rect, siblings []layout.Placed, edges Edges, resize bool) (layout.Rect, []Guide) {
	xs, ys := s.lines(rect, siblings)

	if d, edge, ok := s.nearest(xProbes(rect, edges), xs); ok {
		rect = shift(rect, Vertical, edge, d, resize)
	}
	if d, edge, ok := s.nearest(yProbes(rect, edges), ys); ok {
		rect = shift(rect, Horizontal, edge, d, resize)
	}

	var guides []Guide
	guides = append(guides, s.visible(Vertical, xProbes(rect, edges), xs)...)
	guides = append(guides, s.visible(Horizontal, yProbes(rect, edges), ys)...)
	return rect, guides
}

func xProbes(r layout.Rect, e Edges) []probe {
	var out []probe
	if e.Left {
		out = append(out, probe{r.X, "start"})
	}
	if e.Center {
		out = append(out, probe{r.CenterX(), "center"})
	}
	if e.Right {
		out = append(out, probe{r.Right(), "end"})
	}
	return out
}

func yProbes(r layout.Rect, e Edges) []probe {
	var out []probe
	if e.Top {
		out = append(out, probe{r.Y, "start"})
	}
	if e.Center {
		out = append(out, probe{r.CenterY(), "center"})
	}
	if e.Bottom {
		out = append(out, probe{r.Bottom(), "end"})
	}
	return out
}

// lines collects candidate guide positions from siblings: their edges and
// centres, plus positions that would repeat the gap between two neighbours.
func (s Snapper) lines(rect layout.Rect, siblings []layout.Placed) (xs, ys []line) {
	for _, sib := range siblings {
		r := sib.Rect
		xs = append(xs,
			line{r.X, GuideEdge, sib.ID},
			line{r.Right(), GuideEdge, sib.ID},
			line{r.CenterX(), GuideCenter, sib.ID},
		)
		ys = append(ys,
			line{r.Y, GuideEdge, sib.ID},
			line{r.Bottom(), GuideEdge, sib.ID},
			line{r.CenterY(), GuideCenter, sib.ID},
		)
	}
	xs = append(xs, spacing(rect, siblings, Vertical)...)
	ys = append(ys, spacing(rect, siblings, Horizontal)...)
	return xs, ys
}

// spacing proposes start and end positions that keep the dragged rect at the
// same distance from its neighbour as the neighbour keeps from the next one.
// Only siblings overlapping the rect on the other axis count as a row or
// column.
func spacing(rect layout.Rect, siblings []layout.Placed, axis Axis) []line {
	var band []layout.Placed
	for _, sib := range siblings {
		if axis == Vertical && overlaps(sib.Rect.Y, sib.Rect.Bottom(), rect.Y, rect.Bottom()) {
			band = append(band, sib)
		}
		if axis == Horizontal && overlaps(sib.Rect.X, sib.Rect.Right(), rect.X, rect.Right()) {
			band = append(band, sib)
		}
	}
	start := func(r layout.Rect) float64 {
		if axis == Vertical {
			return r.X
		}
		return r.Y
	}
	end := func(r layout.Rect) float64 {
		if axis == Vertical {
			return r.Right()
		}
		return r.Bottom()
	}
	sort.Slice(band, func(i, j int) bool { return start(band[i].Rect) < start(band[j].Rect) })

	var out []line
	for i := 0; i+1 < len(band); i++ {
		a, b := band[i], band[i+1]
		gap := start(b.Rect) - end(a.Rect)
		if gap <= 0 {
			continue
		}
		// after b, or before a, at the same gap
		out = append(out,
			line{end(b.Rect) + gap, GuideSpacing, b.ID},
			line{start(a.Rect) - gap, GuideSpacing, a.ID},
		)
	}
	return out
}

func overlaps(a0, a1, b0, b1 float64) bool {
	return a0 < b1 && b0 < a1
}

// nearest finds the smallest offset that brings a probe onto a line within
// the threshold.
func (s Snapper) nearest(probes []probe, lines []line) (delta float64, edge string, ok bool) {
	best := math.Inf(1)
	for _, p := range probes {
		for _, l := range lines {
			if l.kind == GuideSpacing && p.edge == "center" {
				continue
			}
			d := l.pos - p.pos
			if math.Abs(d) <= s.Threshold && math.Abs(d) < math.Abs(best) {
				best, edge, ok = d, p.edge, true
			}
		}
	}
	return best, edge, ok
}

func (s Snapper) visible(axis Axis, probes []probe, lines []line) []Guide {
	seen := make(map[Guide]bool)
	var out []Guide
	for _, p := range probes {
		for _, l := range lines {
			if l.kind == GuideSpacing && p.edge == "center" {
				continue
			}
			if math.Abs(l.pos-p.pos) > s.Show {
				continue
			}
			g := Guide{Axis: axis, Pos: l.pos, Kind: l.kind, Ref: l.ref}
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

func shift(r layout.Rect, axis Axis, edge string, d float64, resize bool) layout.Rect {
	if !resize {
		if axis == Vertical {
			r.X += d
		} else {
			r.Y += d
		}
		return r
	}
	switch {
	case axis == Vertical && edge == "start":
		r.X += d
		r.W -= d
	case axis == Vertical && edge == "end":
		r.W += d
	case axis == Horizontal && edge == "start":
		r.Y += d
		r.H -= d
	case axis == Horizontal && edge == "end":
		r.H += d
	}
	return r
}
