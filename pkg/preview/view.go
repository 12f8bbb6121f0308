package preview

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/widgets"
)

type page struct {
	Sections []sectionView
	Actions  []actionView
}

type sectionView struct {
	ID        string
	Title     string
	Header    string
	Body      string
	Collapsed bool
	Fields    []fieldView
}

type fieldView struct {
	ID       string
	Kind     string
	Name     string
	Element  string
	Frame    string
	Label    string
	Marker   string
	Tooltip  string
	Icon     string
	Style    string
	Required bool
	Attrs    []attr
	Options  []optionView
}

// attr is one rendered HTML attribute; Bool attributes carry no value.
type attr struct {
	Name  string
	Value string
	Bool  bool
}

type optionView struct {
	Value string
	Label string
}

type actionView struct {
	ID       string
	Label    string
	Kind     string
	Variant  string
	Style    string
	Shortcut string
	Confirm  string
}

// inputTypes maps the kinds rendered as <input> to their type attribute.
var inputTypes = map[schema.WidgetType]string{
	schema.WidgetTextInput:      "text",
	schema.WidgetNumberInput:    "number",
	schema.WidgetDecimalInput:   "number",
	schema.WidgetCheckbox:       "checkbox",
	schema.WidgetDatePicker:     "date",
	schema.WidgetTimePicker:     "time",
	schema.WidgetDateTimePicker: "datetime-local",
	schema.WidgetFilePicker:     "file",
	schema.WidgetColorPicker:    "color",
	schema.WidgetSlider:         "range",
}

func element(kind schema.WidgetType) string {
	switch kind {
	case schema.WidgetLabel:
		return "text"
	case schema.WidgetSeparator:
		return "separator"
	case schema.WidgetButton:
		return "button"
	case schema.WidgetImage, schema.WidgetGroupBox, schema.WidgetTable, schema.WidgetProgress, schema.WidgetRichText:
		return "box"
	case schema.WidgetTextArea:
		return "textarea"
	case schema.WidgetComboBox:
		return "select"
	case schema.WidgetRadioGroup:
		return "radio"
	default:
		return "input"
	}
}

func buildPage(def *schema.FormDefinition, res layout.Result, factory *widgets.Factory, th widgets.Theme, lang string) (page, error) {
	var out page
	for _, box := range res.Sections {
		section := def.SectionByID(box.ID)
		if section == nil {
			continue
		}
		sv := sectionView{
			ID:        box.ID,
			Title:     section.Title(lang),
			Header:    frame(box.Header),
			Body:      frame(box.Body),
			Collapsed: box.Collapsed,
		}
		for _, field := range section.Fields {
			rect, ok := res.Fields[field.ID]
			if !ok {
				continue
			}
			spec, err := factory.Spec(field, box.Direction)
			if err != nil {
				return page{}, fmt.Errorf("preview: %w", err)
			}
			sv.Fields = append(sv.Fields, fieldFor(field, spec, rect))
		}
		out.Sections = append(out.Sections, sv)
	}

	for _, action := range def.Actions {
		rect, ok := res.Actions[action.ID]
		if !ok {
			continue
		}
		style := frame(rect)
		if themed := th.ActionStyle(action.Type).String(); themed != "" {
			style += "; " + themed
		}
		out.Actions = append(out.Actions, actionView{
			ID:       action.ID,
			Label:    action.Label(lang),
			Kind:     string(action.Action),
			Variant:  string(action.Type),
			Style:    style,
			Shortcut: action.Shortcut,
			Confirm:  action.ConfirmMessage(lang),
		})
	}
	return out, nil
}

func fieldFor(field schema.Field, spec widgets.ControlSpec, rect layout.Rect) fieldView {
	fv := fieldView{
		ID:       field.ID,
		Kind:     string(field.WidgetType),
		Name:     field.ID,
		Element:  element(field.WidgetType),
		Frame:    frame(rect),
		Label:    spec.Label,
		Tooltip:  spec.Tooltip,
		Icon:     spec.IconMarkup,
		Style:    spec.Style.String(),
		Required: spec.Required,
		Marker:   spec.RequiredMarker,
	}
	if field.DataBinding.Column != "" {
		fv.Name = field.DataBinding.Column
	}
	for _, opt := range spec.Options {
		fv.Options = append(fv.Options, optionView{Value: fmt.Sprint(opt.Value), Label: opt.Label})
	}
	if spec.AllowEmpty && fv.Element == "select" {
		fv.Options = append([]optionView{{}}, fv.Options...)
	}

	set := func(name, value string) {
		if value != "" {
			fv.Attrs = append(fv.Attrs, attr{Name: name, Value: value})
		}
	}
	flag := func(name string, on bool) {
		if on {
			fv.Attrs = append(fv.Attrs, attr{Name: name, Bool: true})
		}
	}
	if fv.Element == "input" {
		set("type", inputTypes[field.WidgetType])
	}
	set("id", field.ID)
	if fv.Element != "button" {
		set("name", fv.Name)
		set("placeholder", spec.Placeholder)
	}
	set("style", fv.Style)
	if fv.Element == "input" && spec.Numeric {
		if spec.Min != nil {
			set("min", number(*spec.Min))
		}
		if spec.Max != nil {
			set("max", number(*spec.Max))
		}
	}
	flag("readonly", spec.ReadOnly && fv.Element != "button")
	flag("disabled", !spec.Enabled)
	flag("required", spec.Required)
	return fv
}

func frame(r layout.Rect) string {
	return fmt.Sprintf("left: %s; top: %s; width: %s; height: %s", px(r.X), px(r.Y), px(r.W), px(r.H))
}

func px(v float64) string {
	return number(v) + "px"
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
