package liveedit

import (
	"math"

	"github.com/goliatone/go-iform/pkg/layout"
)

// Handle is a grab point on the selected field.
type Handle string

const (
	HandleNone Handle = ""
	HandleBody Handle = "body"
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

// ResizeHandles lists the eight resize handles, corners first.
var ResizeHandles = []Handle{HandleNW, HandleNE, HandleSE, HandleSW, HandleN, HandleE, HandleS, HandleW}

// HandleSize is the side of a handle square.
const HandleSize = 8.0

// MinFieldSize bounds resizing.
const MinFieldSize = 10.0

// Corner reports whether h resizes both dimensions.
func (h Handle) Corner() bool {
	switch h {
	case HandleNE, HandleNW, HandleSE, HandleSW:
		return true
	}
	return false
}

// edges returns the rect edges h moves.
func (h Handle) edges() Edges {
	var e Edges
	switch h {
	case HandleN, HandleNE, HandleNW:
		e.Top = true
	case HandleS, HandleSE, HandleSW:
		e.Bottom = true
	}
	switch h {
	case HandleW, HandleNW, HandleSW:
		e.Left = true
	case HandleE, HandleNE, HandleSE:
		e.Right = true
	}
	return e
}

// Handles returns the rect of every resize handle around r.
func Handles(r layout.Rect) map[Handle]layout.Rect {
	half := HandleSize / 2
	at := func(x, y float64) layout.Rect {
		return layout.Rect{X: x - half, Y: y - half, W: HandleSize, H: HandleSize}
	}
	return map[Handle]layout.Rect{
		HandleNW: at(r.X, r.Y),
		HandleN:  at(r.CenterX(), r.Y),
		HandleNE: at(r.Right(), r.Y),
		HandleE:  at(r.Right(), r.CenterY()),
		HandleSE: at(r.Right(), r.Bottom()),
		HandleS:  at(r.CenterX(), r.Bottom()),
		HandleSW: at(r.X, r.Bottom()),
		HandleW:  at(r.X, r.CenterY()),
	}
}

// HandleAt returns the handle of r under p. Handles win over the body.
func HandleAt(r layout.Rect, p layout.Point) Handle {
	hs := Handles(r)
	for _, h := range ResizeHandles {
		if hs[h].Contains(p) {
			return h
		}
	}
	if r.Contains(p) {
		return HandleBody
	}
	return HandleNone
}

// resize drags handle h of r by (dx, dy). With proportional set a corner
// keeps the aspect ratio of r, following the larger of the two moves.
func resize(r layout.Rect, h Handle, dx, dy float64, proportional bool) layout.Rect {
	e := h.edges()
	if proportional && h.Corner() && r.W > 0 && r.H > 0 {
		ratio := r.W / r.H
		sx, sy := dx, dy
		if e.Left {
			sx = -dx
		}
		if e.Top {
			sy = -dy
		}
		if math.Abs(sx) >= math.Abs(sy*ratio) {
			sy = sx / ratio
		} else {
			sx = sy * ratio
		}
		dx, dy = sx, sy
		if e.Left {
			dx = -sx
		}
		if e.Top {
			dy = -sy
		}
	}
	out := r
	if e.Left {
		w := math.Max(r.W-dx, MinFieldSize)
		out.X = r.Right() - w
		out.W = w
	}
	if e.Right {
		out.W = math.Max(r.W+dx, MinFieldSize)
	}
	if e.Top {
		h := math.Max(r.H-dy, MinFieldSize)
		out.Y = r.Bottom() - h
		out.H = h
	}
	if e.Bottom {
		out.H = math.Max(r.H+dy, MinFieldSize)
	}
	return out
}
