package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Documented defaults filled by MergeWithDefaults.
const (
	DefaultDirection  = DirectionRTL
	DefaultLayoutMode = LayoutGrid
	DefaultLanguage   = "ar"
	DefaultColumnGap  = 16.0
	DefaultRowGap     = 12.0
	DefaultRowHeight  = 36.0
	DefaultMargin     = 16.0
)

// EffectiveColumns resolves the grid column count for a section.
func (s Settings) EffectiveColumns(section Section) int {
	if section.Columns > 0 {
		return section.Columns
	}
	if s.Columns > 0 {
		return s.Columns
	}
	return DefaultColumns
}

// MergeWithDefaults fills optional keys with their documented defaults in
// place and returns def for chaining. Values already present are kept.
func MergeWithDefaults(def *FormDefinition) *FormDefinition {
	if def == nil {
		return nil
	}
	if def.Version == "" {
		def.Version = CurrentVersion
	}
	st := &def.Settings
	if st.Direction == "" {
		st.Direction = DefaultDirection
	}
	if st.LayoutMode == "" {
		st.LayoutMode = DefaultLayoutMode
	}
	if st.Language == "" {
		st.Language = DefaultLanguage
	}
	if st.Columns <= 0 {
		st.Columns = DefaultColumns
	}
	if st.ColumnGap == 0 {
		st.ColumnGap = DefaultColumnGap
	}
	if st.RowGap == 0 {
		st.RowGap = DefaultRowGap
	}
	if st.RowHeight <= 0 {
		st.RowHeight = DefaultRowHeight
	}
	if st.Margins == (Margins{}) {
		st.Margins = Margins{Top: DefaultMargin, Right: DefaultMargin, Bottom: DefaultMargin, Left: DefaultMargin}
	}

	if def.Sections == nil {
		def.Sections = []Section{}
	}
	for i := range def.Sections {
		section := &def.Sections[i]
		if section.Fields == nil {
			section.Fields = []Field{}
		}
		for j := range section.Fields {
			field := &section.Fields[j]
			if field.Layout.Colspan < 1 {
				field.Layout.Colspan = 1
			}
			if field.Layout.Rowspan < 1 {
				field.Layout.Rowspan = 1
			}
			if field.Validation == nil {
				field.Validation = []ValidationRule{}
			}
		}
	}

	if def.Actions == nil {
		def.Actions = []Action{}
	}
	for i := range def.Actions {
		action := &def.Actions[i]
		if action.Position == "" {
			action.Position = PositionFooterRight
		}
		if action.Type == "" {
			action.Type = ActionSecondary
		}
	}
	if def.Rules == nil {
		def.Rules = []Rule{}
	}
	return def
}

// NewDefaultForm returns an empty two-section form used as the editor's
// starting point. A random id is generated when formID is blank.
func NewDefaultForm(formID string) *FormDefinition {
	formID = strings.TrimSpace(formID)
	if formID == "" {
		formID = "form_" + shortID()
	}
	def := &FormDefinition{
		Version: CurrentVersion,
		FormID:  formID,
		NameAr:  "نموذج جديد",
		NameEn:  "New form",
		Sections: []Section{
			{ID: "section_main", TitleAr: "البيانات الأساسية", TitleEn: "Main", Collapsible: true, Visible: true, Fields: []Field{}},
			{ID: "section_details", TitleAr: "التفاصيل", TitleEn: "Details", Collapsible: true, Visible: true, Fields: []Field{}},
		},
		Actions: []Action{
			{ID: "save", Type: ActionPrimary, LabelAr: "حفظ", LabelEn: "Save", Action: ActionSave, Position: PositionFooterLeft, Shortcut: "Ctrl+S", Visible: true},
			{ID: "cancel", Type: ActionSecondary, LabelAr: "إلغاء", LabelEn: "Cancel", Action: ActionCancel, Position: PositionFooterLeft, Shortcut: "Escape", Visible: true},
		},
		Rules: []Rule{},
	}
	return MergeWithDefaults(def)
}

// NewField returns a field of the given kind with default properties and a
// generated id.
func NewField(kind WidgetType) Field {
	return Field{
		ID:         fmt.Sprintf("%s_%s", kind, shortID()),
		WidgetType: kind,
		Layout:     Layout{Colspan: 1, Rowspan: 1},
		Properties: Properties{Enabled: true, Visible: true},
		Validation: []ValidationRule{},
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Marshal encodes def as canonical indented JSON. Nil collections are written
// as empty arrays so the output always re-validates.
func Marshal(def *FormDefinition) ([]byte, error) {
	if def == nil {
		return nil, fmt.Errorf("schema: marshal nil definition")
	}
	out := def.Clone()
	if out.Sections == nil {
		out.Sections = []Section{}
	}
	for i := range out.Sections {
		if out.Sections[i].Fields == nil {
			out.Sections[i].Fields = []Field{}
		}
		for j := range out.Sections[i].Fields {
			if out.Sections[i].Fields[j].Validation == nil {
				out.Sections[i].Fields[j].Validation = []ValidationRule{}
			}
		}
	}
	if out.Actions == nil {
		out.Actions = []Action{}
	}
	if out.Rules == nil {
		out.Rules = []Rule{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("schema: marshal: %w", err)
	}
	return buf.Bytes(), nil
}
