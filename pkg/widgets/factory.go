package widgets

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-iform/pkg/schema"
)

// ErrNoToolkit is returned when a factory has no toolkit to build with.
var ErrNoToolkit = errors.New("widgets: toolkit is required")

// DefaultRequiredMarker is appended to required field labels.
const DefaultRequiredMarker = "*"

// FactoryOption customises a Factory.
type FactoryOption func(*Factory)

// Factory turns schema fields into controls through a Toolkit.
type Factory struct {
	toolkit   Toolkit
	theme     Theme
	registry  *Registry
	overrides map[string]Toolkit
	language  string
	marker    string
	logger    *slog.Logger
}

// WithTheme sets the theme used for base styles.
func WithTheme(t Theme) FactoryOption {
	return func(f *Factory) {
		f.theme = t
	}
}

// WithRegistry replaces the variant registry.
func WithRegistry(reg *Registry) FactoryOption {
	return func(f *Factory) {
		if reg != nil {
			f.registry = reg
		}
	}
}

// WithOverride routes controls whose resolved variant equals name to toolkit
// instead of the default toolkit.
func WithOverride(name string, toolkit Toolkit) FactoryOption {
	return func(f *Factory) {
		if name == "" || toolkit == nil {
			return
		}
		if f.overrides == nil {
			f.overrides = make(map[string]Toolkit)
		}
		f.overrides[name] = toolkit
	}
}

// WithLanguage selects which bilingual variant labels use.
func WithLanguage(lang string) FactoryOption {
	return func(f *Factory) {
		f.language = lang
	}
}

// WithRequiredMarker overrides the required indicator.
func WithRequiredMarker(marker string) FactoryOption {
	return func(f *Factory) {
		f.marker = marker
	}
}

// WithLogger sets the logger used to report rejected style overrides.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory returns a factory building through toolkit.
func NewFactory(toolkit Toolkit, opts ...FactoryOption) *Factory {
	f := &Factory{
		toolkit:  toolkit,
		theme:    ThemeFromManifest(DefaultManifest(), ""),
		registry: NewRegistry(),
		marker:   DefaultRequiredMarker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Theme returns the active theme.
func (f *Factory) Theme() Theme {
	return f.theme
}

// Spec resolves the full control description for field: base control for the
// kind, then theme defaults, then the sanitised style override, then the
// icon, then the required indicator.
func (f *Factory) Spec(field schema.Field, dir schema.Direction) (ControlSpec, error) {
	spec, err := baseSpec(field)
	if err != nil {
		return ControlSpec{}, err
	}
	spec.Label = field.Label(f.language)
	spec.Placeholder = field.Placeholder(f.language)
	spec.Tooltip = field.Tooltip(f.language)
	spec.Direction = dir
	spec.ReadOnly = field.Properties.ReadOnly
	spec.Enabled = field.Properties.Enabled
	spec.Visible = field.Properties.Visible
	spec.Prefix = field.Properties.Prefix
	spec.Suffix = field.Properties.Suffix
	spec.InputMask = field.Properties.InputMask
	if field.DataBinding.Format != "" {
		spec.Format = field.DataBinding.Format
	}
	if variant, ok := f.registry.Resolve(field); ok {
		spec.Variant = variant
	}

	spec.Style = f.theme.BaseStyle(field.WidgetType, spec.ReadOnly)
	override, rejected := NewSanitizer(f.theme.Tokens).Override(field.StyleOverride)
	for _, reason := range rejected {
		f.logger.Warn("widgets: style override rejected", "field", field.ID, "error", reason)
	}
	spec.Style = spec.Style.Merge(override)

	spec.IconMarkup = SanitizeIcon(field.Properties.Icon)

	if field.Required() {
		spec.Required = true
		spec.RequiredMarker = f.marker
	}

	if src := field.ComboSource; src != nil {
		spec.AllowEmpty = src.AllowEmpty
		switch src.Type {
		case schema.ComboStatic:
			spec.Options = make([]Option, 0, len(src.Items))
			for _, item := range src.Items {
				label := item.Label(f.language)
				if label == "" {
					label = fmt.Sprint(item.Value)
				}
				spec.Options = append(spec.Options, Option{Value: item.Value, Label: label})
			}
		case schema.ComboQuery, schema.ComboAPI:
			spec.LazyOptions = true
		}
	}
	return spec, nil
}

// Build produces one control for field. It never waits on option data.
func (f *Factory) Build(field schema.Field, dir schema.Direction) (Control, error) {
	spec, err := f.Spec(field, dir)
	if err != nil {
		return nil, err
	}
	toolkit := f.toolkit
	if alt, ok := f.overrides[spec.Variant]; ok {
		toolkit = alt
	}
	if toolkit == nil {
		return nil, ErrNoToolkit
	}
	control, err := toolkit.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("widgets: build %s (%s): %w", field.ID, field.WidgetType, err)
	}
	if len(spec.Options) > 0 {
		if oc, ok := control.(OptionControl); ok {
			oc.SetOptions(spec.Options)
		}
	}
	return control, nil
}

// baseSpec is the single dispatch point over widget kinds. A kind missing here
// fails the build.
func baseSpec(field schema.Field) (ControlSpec, error) {
	spec := ControlSpec{ID: field.ID, Kind: field.WidgetType}
	switch field.WidgetType {
	case schema.WidgetTextInput:
	case schema.WidgetTextArea:
		spec.Multiline = true
	case schema.WidgetNumberInput:
		spec.Numeric = true
	case schema.WidgetDecimalInput:
		spec.Numeric = true
		spec.Decimals = 2
	case schema.WidgetComboBox:
		spec.AllowEmpty = true
	case schema.WidgetCheckbox:
	case schema.WidgetRadioGroup:
	case schema.WidgetDatePicker:
		spec.Format = "2006-01-02"
	case schema.WidgetTimePicker:
		spec.Format = "15:04"
	case schema.WidgetDateTimePicker:
		spec.Format = "2006-01-02T15:04"
	case schema.WidgetButton:
	case schema.WidgetLabel:
	case schema.WidgetSeparator:
	case schema.WidgetImage:
	case schema.WidgetGroupBox:
	case schema.WidgetTable:
	case schema.WidgetFilePicker:
	case schema.WidgetColorPicker:
	case schema.WidgetSlider:
		spec.Numeric = true
		lo, hi := 0.0, 100.0
		spec.Min, spec.Max = &lo, &hi
	case schema.WidgetProgress:
		spec.Numeric = true
		lo, hi := 0.0, 100.0
		spec.Min, spec.Max = &lo, &hi
	case schema.WidgetRichText:
		spec.Multiline = true
	default:
		return ControlSpec{}, fmt.Errorf("widgets: unhandled widget type %q", field.WidgetType)
	}

	for _, rule := range field.Validation {
		n, ok := schema.Number(rule.Value)
		if !ok {
			continue
		}
		switch rule.Rule {
		case schema.RuleMinValue:
			v := n
			spec.Min = &v
		case schema.RuleMaxValue:
			v := n
			spec.Max = &v
		}
	}
	return spec, nil
}

// ActionControlID is the control id of an action button, kept apart from
// field ids.
func ActionControlID(actionID string) string {
	return "action:" + actionID
}

// BuildAction produces the button for an action bar entry.
func (f *Factory) BuildAction(action schema.Action, dir schema.Direction) (Control, error) {
	if f.toolkit == nil {
		return nil, ErrNoToolkit
	}
	spec := ControlSpec{
		ID:        ActionControlID(action.ID),
		Kind:      schema.WidgetButton,
		Variant:   string(action.Type),
		Label:     action.Label(f.language),
		Direction: dir,
		Enabled:   true,
		Visible:   action.Visible,
		Style:     f.theme.ActionStyle(action.Type),
	}
	control, err := f.toolkit.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("widgets: build action %s: %w", action.ID, err)
	}
	return control, nil
}
