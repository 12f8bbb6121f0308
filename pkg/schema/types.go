package schema

import "encoding/json"

// WidgetType enumerates the control kinds a field can declare.
type WidgetType string

const (
	WidgetTextInput      WidgetType = "text_input"
	WidgetTextArea       WidgetType = "text_area"
	WidgetNumberInput    WidgetType = "number_input"
	WidgetDecimalInput   WidgetType = "decimal_input"
	WidgetComboBox       WidgetType = "combo_box"
	WidgetCheckbox       WidgetType = "checkbox"
	WidgetRadioGroup     WidgetType = "radio_group"
	WidgetDatePicker     WidgetType = "date_picker"
	WidgetTimePicker     WidgetType = "time_picker"
	WidgetDateTimePicker WidgetType = "datetime_picker"
	WidgetButton         WidgetType = "button"
	WidgetLabel          WidgetType = "label"
	WidgetSeparator      WidgetType = "separator"
	WidgetImage          WidgetType = "image"
	WidgetGroupBox       WidgetType = "group_box"
	WidgetTable          WidgetType = "table"
	WidgetFilePicker     WidgetType = "file_picker"
	WidgetColorPicker    WidgetType = "color_picker"
	WidgetSlider         WidgetType = "slider"
	WidgetProgress       WidgetType = "progress"
	WidgetRichText       WidgetType = "rich_text"
)

// WidgetTypes lists every supported widget kind in declaration order.
var WidgetTypes = []WidgetType{
	WidgetTextInput, WidgetTextArea, WidgetNumberInput, WidgetDecimalInput,
	WidgetComboBox, WidgetCheckbox, WidgetRadioGroup, WidgetDatePicker,
	WidgetTimePicker, WidgetDateTimePicker, WidgetButton, WidgetLabel,
	WidgetSeparator, WidgetImage, WidgetGroupBox, WidgetTable, WidgetFilePicker,
	WidgetColorPicker, WidgetSlider, WidgetProgress, WidgetRichText,
}

// Valid reports whether the widget type is a known member.
func (w WidgetType) Valid() bool {
	for _, known := range WidgetTypes {
		if w == known {
			return true
		}
	}
	return false
}

// RuleKind names a validation rule.
type RuleKind string

const (
	RuleRequired   RuleKind = "required"
	RuleMinLength  RuleKind = "min_length"
	RuleMaxLength  RuleKind = "max_length"
	RuleMinValue   RuleKind = "min_value"
	RuleMaxValue   RuleKind = "max_value"
	RulePattern    RuleKind = "pattern"
	RuleEmail      RuleKind = "email"
	RulePhone      RuleKind = "phone"
	RuleIBAN       RuleKind = "iban"
	RuleNationalID RuleKind = "national_id"
	RuleDateRange  RuleKind = "date_range"
	RuleUnique     RuleKind = "unique"
	RuleCustom     RuleKind = "custom"
)

// RuleKinds lists every supported validation rule.
var RuleKinds = []RuleKind{
	RuleRequired, RuleMinLength, RuleMaxLength, RuleMinValue, RuleMaxValue,
	RulePattern, RuleEmail, RulePhone, RuleIBAN, RuleNationalID, RuleDateRange,
	RuleUnique, RuleCustom,
}

// Valid reports whether the rule kind is a known member.
func (k RuleKind) Valid() bool {
	for _, known := range RuleKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Async reports whether the rule needs the data bridge.
func (k RuleKind) Async() bool {
	return k == RuleUnique
}

// Direction is the reading direction of a form.
type Direction string

const (
	DirectionRTL Direction = "rtl"
	DirectionLTR Direction = "ltr"
)

// LayoutMode selects the placement algorithm.
type LayoutMode string

const (
	LayoutGrid     LayoutMode = "grid"
	LayoutAbsolute LayoutMode = "absolute"
	LayoutFlow     LayoutMode = "flow"
)

// ActionType is the visual role of an action button.
type ActionType string

const (
	ActionPrimary   ActionType = "primary"
	ActionSecondary ActionType = "secondary"
	ActionDanger    ActionType = "danger"
	ActionSuccess   ActionType = "success"
)

// ActionKind is what an action does when triggered.
type ActionKind string

const (
	ActionSave     ActionKind = "save"
	ActionCancel   ActionKind = "cancel"
	ActionCustom   ActionKind = "custom"
	ActionNavigate ActionKind = "navigate"
)

// ActionPosition anchors an action within the action bar.
type ActionPosition string

const (
	PositionFooterLeft   ActionPosition = "footer_left"
	PositionFooterRight  ActionPosition = "footer_right"
	PositionFooterCenter ActionPosition = "footer_center"
	PositionTopRight     ActionPosition = "top_right"
)

// RuleAction is the effect of a conditional rule.
type RuleAction string

const (
	RuleHideSection RuleAction = "hide_section"
	RuleShowSection RuleAction = "show_section"
	RuleHideField   RuleAction = "hide_field"
	RuleShowField   RuleAction = "show_field"
)

// ComboSourceType selects where list-backed controls get their options.
type ComboSourceType string

const (
	ComboQuery  ComboSourceType = "query"
	ComboStatic ComboSourceType = "static"
	ComboAPI    ComboSourceType = "api"
)

// FormDefinition is the root of an .iform document.
type FormDefinition struct {
	Version     string            `json:"version"`
	FormID      string            `json:"formId"`
	NameAr      string            `json:"nameAr,omitempty"`
	NameEn      string            `json:"nameEn,omitempty"`
	TargetTable string            `json:"targetTable,omitempty"`
	Settings    Settings          `json:"settings"`
	Sections    []Section         `json:"sections"`
	Actions     []Action          `json:"actions"`
	Rules       []Rule            `json:"rules"`
	Events      map[string]string `json:"events,omitempty"`
}

// Margins are the container paddings in layout units.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Settings holds form-wide layout and locale settings.
type Settings struct {
	Direction  Direction  `json:"direction,omitempty"`
	LayoutMode LayoutMode `json:"layoutMode,omitempty"`
	Language   string     `json:"language,omitempty"`
	Columns    int        `json:"columns,omitempty"`
	ColumnGap  float64    `json:"columnGap,omitempty"`
	RowGap     float64    `json:"rowGap,omitempty"`
	RowHeight  float64    `json:"rowHeight,omitempty"`
	Margins    Margins    `json:"margins"`
	MinWidth   float64    `json:"minWidth,omitempty"`
	MaxWidth   float64    `json:"maxWidth,omitempty"`
}

// Section groups fields into a collapsible container.
type Section struct {
	ID          string  `json:"id"`
	TitleAr     string  `json:"titleAr,omitempty"`
	TitleEn     string  `json:"titleEn,omitempty"`
	Collapsed   bool    `json:"collapsed"`
	Collapsible bool    `json:"collapsible"`
	Columns     int     `json:"columns,omitempty"`
	Visible     bool    `json:"visible"`
	Condition   string  `json:"condition,omitempty"`
	Fields      []Field `json:"fields"`
}

// UnmarshalJSON decodes a section, defaulting Visible to true.
func (s *Section) UnmarshalJSON(data []byte) error {
	type alias Section
	out := alias{Visible: true}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = Section(out)
	return nil
}

// Layout positions a field. Grid mode reads row/col/spans, absolute mode reads
// x/y, every mode honours width/height and the width bounds when set.
type Layout struct {
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Colspan   int     `json:"colspan,omitempty"`
	Rowspan   int     `json:"rowspan,omitempty"`
	MinWidth  float64 `json:"minWidth,omitempty"`
	MaxWidth  float64 `json:"maxWidth,omitempty"`
	Alignment string  `json:"alignment,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
}

// Spans returns colspan/rowspan with the implicit minimum of one.
func (l Layout) Spans() (int, int) {
	cs, rs := l.Colspan, l.Rowspan
	if cs < 1 {
		cs = 1
	}
	if rs < 1 {
		rs = 1
	}
	return cs, rs
}

// Properties are the behavioural flags of a field.
type Properties struct {
	ReadOnly  bool   `json:"readonly"`
	Enabled   bool   `json:"enabled"`
	Visible   bool   `json:"visible"`
	Icon      string `json:"icon,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Suffix    string `json:"suffix,omitempty"`
	InputMask string `json:"inputMask,omitempty"`
}

// UnmarshalJSON decodes properties, defaulting Enabled and Visible to true.
func (p *Properties) UnmarshalJSON(data []byte) error {
	type alias Properties
	out := alias{Enabled: true, Visible: true}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*p = Properties(out)
	return nil
}

// StyleOverride is merged over the active theme, never replacing it.
type StyleOverride struct {
	FontFamily   string `json:"fontFamily,omitempty"`
	FontSize     string `json:"fontSize,omitempty"`
	FontWeight   string `json:"fontWeight,omitempty"`
	Color        string `json:"color,omitempty"`
	Background   string `json:"background,omitempty"`
	Border       string `json:"border,omitempty"`
	BorderRadius string `json:"borderRadius,omitempty"`
	Custom       string `json:"custom,omitempty"`
}

// Empty reports whether no override is set.
func (s StyleOverride) Empty() bool {
	return s == StyleOverride{}
}

// ComboItem is one static option.
type ComboItem struct {
	Value   any    `json:"value"`
	LabelAr string `json:"labelAr,omitempty"`
	LabelEn string `json:"labelEn,omitempty"`
}

// QuerySpec identifies a list-backed data source. Identifiers are resolved by
// the data bridge against its allow-list.
type QuerySpec struct {
	Table         string `json:"table"`
	ValueColumn   string `json:"valueColumn"`
	DisplayColumn string `json:"displayColumn"`
	FilterColumn  string `json:"filterColumn,omitempty"`
	FilterValue   any    `json:"filterValue,omitempty"`
	OrderColumn   string `json:"orderColumn,omitempty"`
}

// ComboSource configures how a list-backed control is populated.
type ComboSource struct {
	Type       ComboSourceType `json:"type"`
	Query      *QuerySpec      `json:"query,omitempty"`
	Items      []ComboItem     `json:"items,omitempty"`
	Endpoint   string          `json:"endpoint,omitempty"`
	Default    any             `json:"default,omitempty"`
	AllowEmpty bool            `json:"allowEmpty"`
}

// DataBinding maps a field onto a storage column.
type DataBinding struct {
	Table  string `json:"table,omitempty"`
	Column string `json:"column,omitempty"`
	Type   string `json:"type,omitempty"`
	Format string `json:"format,omitempty"`
}

// ValidationRule is one declarative check attached to a field.
type ValidationRule struct {
	Rule      RuleKind `json:"rule"`
	Value     any      `json:"value,omitempty"`
	MessageAr string   `json:"messageAr,omitempty"`
	MessageEn string   `json:"messageEn,omitempty"`
}

// Field is one data-entry element.
type Field struct {
	ID            string           `json:"id"`
	WidgetType    WidgetType       `json:"widgetType"`
	LabelAr       string           `json:"labelAr,omitempty"`
	LabelEn       string           `json:"labelEn,omitempty"`
	PlaceholderAr string           `json:"placeholderAr,omitempty"`
	PlaceholderEn string           `json:"placeholderEn,omitempty"`
	TooltipAr     string           `json:"tooltipAr,omitempty"`
	TooltipEn     string           `json:"tooltipEn,omitempty"`
	Layout        Layout           `json:"layout"`
	Properties    Properties       `json:"properties"`
	StyleOverride StyleOverride    `json:"styleOverride"`
	ComboSource   *ComboSource     `json:"comboSource,omitempty"`
	DataBinding   DataBinding      `json:"dataBinding"`
	Validation    []ValidationRule `json:"validation"`
}

// UnmarshalJSON decodes a field, seeding the property defaults when the
// properties object is absent.
func (f *Field) UnmarshalJSON(data []byte) error {
	type alias Field
	out := alias{Properties: Properties{Enabled: true, Visible: true}}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*f = Field(out)
	return nil
}

// HasRule reports whether the field declares the given rule kind.
func (f Field) HasRule(kind RuleKind) bool {
	for _, rule := range f.Validation {
		if rule.Rule == kind {
			return true
		}
	}
	return false
}

// Required reports whether a required rule is attached.
func (f Field) Required() bool {
	return f.HasRule(RuleRequired)
}

// Editable reports whether the widget kind holds a user value.
func (f Field) Editable() bool {
	switch f.WidgetType {
	case WidgetButton, WidgetLabel, WidgetSeparator, WidgetGroupBox, WidgetProgress, WidgetImage:
		return false
	default:
		return true
	}
}

// Column returns the storage column for the field, falling back to its id.
func (f Field) Column() string {
	if f.DataBinding.Column != "" {
		return f.DataBinding.Column
	}
	return f.ID
}

// Action is a button in the action bar.
type Action struct {
	ID               string         `json:"id"`
	Type             ActionType     `json:"type"`
	LabelAr          string         `json:"labelAr,omitempty"`
	LabelEn          string         `json:"labelEn,omitempty"`
	Action           ActionKind     `json:"action"`
	Position         ActionPosition `json:"position,omitempty"`
	Width            float64        `json:"width,omitempty"`
	Shortcut         string         `json:"shortcut,omitempty"`
	ConfirmMessageAr string         `json:"confirmMessageAr,omitempty"`
	ConfirmMessageEn string         `json:"confirmMessageEn,omitempty"`
	Visible          bool           `json:"visible"`
	EnabledCondition string         `json:"enabledCondition,omitempty"`
	Target           string         `json:"target,omitempty"`
}

// UnmarshalJSON decodes an action, defaulting Visible to true.
func (a *Action) UnmarshalJSON(data []byte) error {
	type alias Action
	out := alias{Visible: true}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*a = Action(out)
	return nil
}

// Rule toggles a section or field when a trigger field takes a value.
type Rule struct {
	TriggerField string     `json:"triggerField"`
	TriggerValue any        `json:"triggerValue"`
	Action       RuleAction `json:"action"`
	Target       string     `json:"target"`
}
