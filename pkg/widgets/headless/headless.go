// Package headless implements the widget toolkit in memory. It backs the CLI,
// the HTTP validator and every test that needs live controls without a
// display.
package headless

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/widgets"
)

// Toolkit builds headless controls and remembers them by id.
type Toolkit struct {
	mu       sync.Mutex
	controls map[string]*Control
	placed   map[string]layout.Rect
	built    int
	cleared  int
	revealed string
}

// New returns an empty toolkit.
func New() *Toolkit {
	return &Toolkit{controls: make(map[string]*Control), placed: make(map[string]layout.Rect)}
}

// Place records where a control is drawn.
func (t *Toolkit) Place(id string, rect layout.Rect) {
	t.mu.Lock()
	t.placed[id] = rect
	t.mu.Unlock()
}

// Placed returns the last rect given to Place for id.
func (t *Toolkit) Placed(id string) (layout.Rect, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.placed[id]
	return r, ok
}

// Clear tears down every control. Controls built earlier are forgotten.
func (t *Toolkit) Clear() {
	t.mu.Lock()
	t.controls = make(map[string]*Control)
	t.placed = make(map[string]layout.Rect)
	t.cleared++
	t.mu.Unlock()
}

// Reveal has nothing to scroll; it remembers the last control asked for.
func (t *Toolkit) Reveal(id string) {
	t.mu.Lock()
	t.revealed = id
	t.mu.Unlock()
}

// Revealed returns the id given to the latest Reveal.
func (t *Toolkit) Revealed() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revealed
}

// Cleared reports how many times the container was cleared.
func (t *Toolkit) Cleared() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cleared
}

// Build implements widgets.Toolkit.
func (t *Toolkit) Build(spec widgets.ControlSpec) (widgets.Control, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("headless: control id is required")
	}
	c := &Control{spec: spec, enabled: spec.Enabled, visible: spec.Visible, readonly: spec.ReadOnly}
	t.mu.Lock()
	t.controls[spec.ID] = c
	t.built++
	t.mu.Unlock()
	return c, nil
}

// Control returns the most recently built control for id.
func (t *Toolkit) Control(id string) (*Control, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.controls[id]
	return c, ok
}

// Built reports how many controls were created.
func (t *Toolkit) Built() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.built
}

// Control is an in-memory widget. All methods are meant to be called from
// the UI loop; the mutex only protects test inspection from other goroutines.
type Control struct {
	mu       sync.Mutex
	spec     widgets.ControlSpec
	value    any
	enabled  bool
	visible  bool
	readonly bool
	errMsg   string
	focused  bool
	options  []widgets.Option
	display  string
	onChange []func(any)
}

var (
	_ widgets.Control       = (*Control)(nil)
	_ widgets.OptionControl = (*Control)(nil)
)

func (c *Control) ID() string              { return c.spec.ID }
func (c *Control) Kind() schema.WidgetType { return c.spec.Kind }

// Spec returns the spec the control was built from.
func (c *Control) Spec() widgets.ControlSpec { return c.spec }

func (c *Control) Value() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// SetValue coerces value to the control's kind. List-backed controls only
// accept values present in their options, mirroring toolkits that display
// nothing for an unknown entry.
func (c *Control) SetValue(value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(value)
}

func (c *Control) setLocked(value any) error {
	if value == nil || value == "" {
		c.value = nil
		c.display = ""
		return nil
	}
	switch c.spec.Kind {
	case schema.WidgetComboBox, schema.WidgetRadioGroup:
		opt, ok := widgets.FindOption(c.options, value)
		if !ok {
			c.value = nil
			c.display = ""
			return fmt.Errorf("%w: %v", widgets.ErrUnknownOption, value)
		}
		c.value = opt.Value
		c.display = opt.Label
		return nil
	case schema.WidgetCheckbox:
		b, err := toBool(value)
		if err != nil {
			return err
		}
		c.value = b
	case schema.WidgetNumberInput:
		n, err := toNumber(value)
		if err != nil {
			return err
		}
		c.value = int64(n)
	case schema.WidgetDecimalInput, schema.WidgetSlider, schema.WidgetProgress:
		n, err := toNumber(value)
		if err != nil {
			return err
		}
		if c.spec.Min != nil && n < *c.spec.Min && c.spec.Kind != schema.WidgetDecimalInput {
			n = *c.spec.Min
		}
		if c.spec.Max != nil && n > *c.spec.Max && c.spec.Kind != schema.WidgetDecimalInput {
			n = *c.spec.Max
		}
		c.value = n
	case schema.WidgetDatePicker, schema.WidgetTimePicker, schema.WidgetDateTimePicker:
		switch v := value.(type) {
		case time.Time:
			c.value = v.Format(c.spec.Format)
		default:
			c.value = fmt.Sprint(v)
		}
	case schema.WidgetRichText:
		c.value = widgets.SanitizeRichText(fmt.Sprint(value))
	default:
		c.value = value
	}
	c.display = fmt.Sprint(c.value)
	return nil
}

// Input simulates a user edit: the value is stored and change listeners run.
// Disabled or read-only controls ignore input.
func (c *Control) Input(value any) error {
	c.mu.Lock()
	if !c.enabled || c.readonly {
		c.mu.Unlock()
		return fmt.Errorf("headless: control %s does not accept input", c.spec.ID)
	}
	if err := c.setLocked(value); err != nil {
		c.mu.Unlock()
		return err
	}
	current := c.value
	listeners := append([]func(any){}, c.onChange...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(current)
	}
	return nil
}

// Display returns the text the control currently shows.
func (c *Control) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

func (c *Control) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

func (c *Control) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Control) SetVisible(visible bool) {
	c.mu.Lock()
	c.visible = visible
	c.mu.Unlock()
}

func (c *Control) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Control) SetReadOnly(readonly bool) {
	c.mu.Lock()
	c.readonly = readonly
	c.mu.Unlock()
}

func (c *Control) ReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readonly
}

func (c *Control) ShowError(message string) {
	c.mu.Lock()
	c.errMsg = message
	c.mu.Unlock()
}

func (c *Control) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

func (c *Control) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Control) OnChange(fn func(value any)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

func (c *Control) Focus() {
	c.mu.Lock()
	c.focused = true
	c.mu.Unlock()
}

// Focused reports whether Focus was called.
func (c *Control) Focused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// Blur clears the focus flag.
func (c *Control) Blur() {
	c.mu.Lock()
	c.focused = false
	c.mu.Unlock()
}

func (c *Control) SetOptions(options []widgets.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = append([]widgets.Option(nil), options...)
	if c.value != nil {
		if opt, ok := widgets.FindOption(c.options, c.value); ok {
			c.display = opt.Label
			return
		}
		c.value = nil
		c.display = ""
	}
}

func (c *Control) Options() []widgets.Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]widgets.Option(nil), c.options...)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("headless: %q is not a boolean", b)
		}
		return parsed, nil
	default:
		if n, ok := schema.Number(v); ok {
			return n != 0, nil
		}
		return false, fmt.Errorf("headless: %v is not a boolean", v)
	}
}

func toNumber(v any) (float64, error) {
	if n, ok := schema.Number(v); ok {
		return n, nil
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("headless: %q is not a number", s)
		}
		return n, nil
	}
	return 0, fmt.Errorf("headless: %v is not a number", v)
}
