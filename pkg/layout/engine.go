package layout

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-iform/pkg/schema"
)

var (
	// ErrOverlap is wrapped when two grid fields claim the same cell.
	ErrOverlap = errors.New("layout: grid cells overlap")
	// ErrOutOfBounds is wrapped when a span runs past the section columns.
	ErrOutOfBounds = errors.New("layout: span exceeds section columns")
)

// Defaults used when the definition does not say otherwise.
const (
	DefaultHeaderHeight = 28.0
	DefaultActionHeight = 32.0
	DefaultActionWidth  = 96.0
	DefaultFieldWidth   = 200.0
	DefaultViewport     = 800.0
)

// kindHeights are natural heights for kinds taller than one row.
var kindHeights = map[schema.WidgetType]float64{
	schema.WidgetTextArea:  80,
	schema.WidgetTable:     160,
	schema.WidgetImage:     120,
	schema.WidgetRichText:  120,
	schema.WidgetGroupBox:  80,
	schema.WidgetSeparator: 8,
}

// Viewport is the space the form is laid out in.
type Viewport struct {
	Width float64
}

// Overrides carries runtime visibility and collapse state so conditional
// rules never need to rewrite the definition. Missing keys fall back to the
// definition's own flags.
type Overrides struct {
	Sections  map[string]bool
	Fields    map[string]bool
	Collapsed map[string]bool
}

func (o Overrides) sectionVisible(s schema.Section) bool {
	if v, ok := o.Sections[s.ID]; ok {
		return v
	}
	return s.Visible
}

func (o Overrides) fieldVisible(f schema.Field) bool {
	if v, ok := o.Fields[f.ID]; ok {
		return v
	}
	return f.Properties.Visible
}

func (o Overrides) collapsed(s schema.Section) bool {
	if !s.Collapsible {
		return false
	}
	if v, ok := o.Collapsed[s.ID]; ok {
		return v
	}
	return s.Collapsed
}

// SectionBox is the geometry of one rendered section.
type SectionBox struct {
	ID        string
	Rect      Rect
	Header    Rect
	Body      Rect
	Collapsed bool
	Mode      schema.LayoutMode
	Direction schema.Direction

	// grid metrics; physical column boxes and row bands
	Columns []Rect
	Rows    []Rect
	RowGap  float64
	ColGap  float64
	// RowHeight is the nominal height of rows appended below the last one.
	RowHeight float64
}

// Result is the full placement of a form.
type Result struct {
	Mode     schema.LayoutMode
	Sections []SectionBox
	Fields   map[string]Rect
	// FieldSection maps a placed field to its section id.
	FieldSection map[string]string
	Actions      map[string]Rect
	ActionBar    Rect
	Size         Size
}

// Section returns the box for id.
func (r Result) Section(id string) (SectionBox, bool) {
	for _, s := range r.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return SectionBox{}, false
}

// Option customises an Engine.
type Option func(*Engine)

// WithHeaderHeight sets the section header height.
func WithHeaderHeight(h float64) Option {
	return func(e *Engine) {
		if h >= 0 {
			e.headerHeight = h
		}
	}
}

// WithActionHeight sets the action bar height.
func WithActionHeight(h float64) Option {
	return func(e *Engine) {
		if h > 0 {
			e.actionHeight = h
		}
	}
}

// Engine places sections, fields and actions.
type Engine struct {
	headerHeight float64
	actionHeight float64
}

// New returns an engine with default metrics.
func New(opts ...Option) *Engine {
	e := &Engine{headerHeight: DefaultHeaderHeight, actionHeight: DefaultActionHeight}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

type frame struct {
	settings schema.Settings
	dir      schema.Direction
	left     float64
	right    float64
	width    float64
	colGap   float64
	rowGap   float64
	rowH     float64
}

// Arrange lays out def inside vp. Sections stack vertically; the action bar is
// placed last and never moves section content except for top_right actions,
// which reserve a band above the first section.
func (e *Engine) Arrange(def *schema.FormDefinition, vp Viewport, ov Overrides) (Result, error) {
	if def == nil {
		return Result{}, fmt.Errorf("layout: definition is nil")
	}
	st := def.Settings
	width := vp.Width
	if width <= 0 {
		width = DefaultViewport
	}
	width = clamp(width, st.MinWidth, st.MaxWidth)

	fr := frame{
		settings: st,
		dir:      def.Direction(),
		left:     st.Margins.Left,
		right:    width - st.Margins.Right,
		colGap:   st.ColumnGap,
		rowGap:   st.RowGap,
		rowH:     st.RowHeight,
	}
	if fr.rowH <= 0 {
		fr.rowH = schema.DefaultRowHeight
	}
	fr.width = fr.right - fr.left
	if fr.width < 0 {
		fr.width = 0
	}

	mode := st.LayoutMode
	if mode == "" {
		mode = schema.LayoutGrid
	}
	res := Result{
		Mode:         mode,
		Fields:       make(map[string]Rect),
		FieldSection: make(map[string]string),
		Actions:      make(map[string]Rect),
	}

	y := st.Margins.Top
	if hasTopActions(def.Actions) {
		y += e.actionHeight + fr.rowGap
	}

	placed := 0
	for _, section := range def.Sections {
		if !ov.sectionVisible(section) {
			continue
		}
		if placed > 0 {
			y += fr.rowGap
		}
		box := SectionBox{
			ID:        section.ID,
			Mode:      mode,
			Direction: fr.dir,
			Collapsed: ov.collapsed(section),
			RowGap:    fr.rowGap,
			ColGap:    fr.colGap,
			RowHeight: fr.rowH,
		}
		box.Header = Rect{X: fr.left, Y: y, W: fr.width, H: e.headerHeight}
		bodyTop := y + e.headerHeight

		bodyHeight := 0.0
		if !box.Collapsed {
			var (
				fields map[string]Rect
				err    error
			)
			switch mode {
			case schema.LayoutAbsolute:
				fields, bodyHeight = e.absolute(section, fr, bodyTop, ov)
			case schema.LayoutFlow:
				fields, bodyHeight = e.flow(section, fr, bodyTop, ov)
			default:
				fields, bodyHeight, err = e.grid(section, fr, bodyTop, ov, &box)
				if err != nil {
					return Result{}, err
				}
			}
			for id, rect := range fields {
				res.Fields[id] = rect
				res.FieldSection[id] = section.ID
			}
		}
		box.Body = Rect{X: fr.left, Y: bodyTop, W: fr.width, H: bodyHeight}
		box.Rect = Rect{X: fr.left, Y: y, W: fr.width, H: e.headerHeight + bodyHeight}
		res.Sections = append(res.Sections, box)
		y = box.Rect.Bottom()
		placed++
	}

	bottom := e.actions(def.Actions, fr, st.Margins.Top, y, &res)
	res.Size = Size{W: width, H: bottom + st.Margins.Bottom}
	return res, nil
}

func naturalHeight(field schema.Field, rowH float64) float64 {
	if field.Layout.Height > 0 {
		return field.Layout.Height
	}
	if h, ok := kindHeights[field.WidgetType]; ok {
		return h
	}
	return rowH
}

func naturalWidth(field schema.Field, available float64) float64 {
	w := field.Layout.Width
	if w <= 0 {
		w = DefaultFieldWidth
	}
	w = clamp(w, field.Layout.MinWidth, field.Layout.MaxWidth)
	if available > 0 && w > available {
		w = available
	}
	return w
}
