package schema_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-iform/pkg/schema"
)

func TestNewDefaultForm(t *testing.T) {
	def := schema.NewDefaultForm("")
	if !strings.HasPrefix(def.FormID, "form_") {
		t.Fatalf("expected generated form id, got %q", def.FormID)
	}
	if len(def.Sections) != 2 || def.Sections[0].ID != "section_main" || def.Sections[1].ID != "section_details" {
		t.Fatalf("unexpected sections: %#v", def.Sections)
	}
	if def.Settings.LayoutMode != schema.LayoutGrid || def.Settings.Columns != schema.DefaultColumns {
		t.Fatalf("defaults not merged: %#v", def.Settings)
	}
	if err := schema.Check(def); err != nil {
		t.Fatalf("default form should validate: %v", err)
	}

	encoded, err := schema.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := schema.Parse(encoded); err != nil {
		t.Fatalf("default form should reparse: %v", err)
	}
}

func TestMergeWithDefaults_KeepsExplicitValues(t *testing.T) {
	def := &schema.FormDefinition{
		Version:  "1.0",
		FormID:   "x",
		Settings: schema.Settings{Direction: schema.DirectionLTR, Columns: 4, RowHeight: 50},
		Sections: []schema.Section{{ID: "s", Fields: []schema.Field{{ID: "a", WidgetType: schema.WidgetTextInput}}}},
		Actions:  []schema.Action{{ID: "go", Action: schema.ActionNavigate}},
	}
	schema.MergeWithDefaults(def)

	if def.Settings.Direction != schema.DirectionLTR || def.Settings.Columns != 4 || def.Settings.RowHeight != 50 {
		t.Fatalf("explicit settings overwritten: %#v", def.Settings)
	}
	if def.Settings.ColumnGap != schema.DefaultColumnGap || def.Settings.Margins.Top != schema.DefaultMargin {
		t.Fatalf("missing settings not filled: %#v", def.Settings)
	}
	field := def.Sections[0].Fields[0]
	if cs, rs := field.Layout.Colspan, field.Layout.Rowspan; cs != 1 || rs != 1 {
		t.Fatalf("spans not defaulted: %d x %d", cs, rs)
	}
	if def.Actions[0].Position != schema.PositionFooterRight || def.Actions[0].Type != schema.ActionSecondary {
		t.Fatalf("action defaults not applied: %#v", def.Actions[0])
	}
	if def.Rules == nil {
		t.Fatalf("rules should be an empty slice")
	}
}

func TestClone_IsDeep(t *testing.T) {
	def := schema.NewDefaultForm("deep")
	field := schema.NewField(schema.WidgetComboBox)
	field.ComboSource = &schema.ComboSource{
		Type:  schema.ComboStatic,
		Items: []schema.ComboItem{{Value: map[string]any{"k": 1.0}, LabelEn: "one"}},
	}
	field.Validation = []schema.ValidationRule{{Rule: schema.RuleDateRange, Value: map[string]any{"min": "today"}}}
	def.Sections[0].Fields = append(def.Sections[0].Fields, field)

	clone := def.Clone()
	cf := clone.FieldByID(field.ID)
	cf.ComboSource.Items[0].LabelEn = "changed"
	cf.ComboSource.Items[0].Value.(map[string]any)["k"] = 2.0
	cf.Validation[0].Value.(map[string]any)["min"] = "2020-01-01"
	clone.Sections[0].TitleEn = "changed"

	orig := def.FieldByID(field.ID)
	if orig.ComboSource.Items[0].LabelEn != "one" {
		t.Fatalf("combo items aliased")
	}
	if orig.ComboSource.Items[0].Value.(map[string]any)["k"] != 1.0 {
		t.Fatalf("combo item value aliased")
	}
	if orig.Validation[0].Value.(map[string]any)["min"] != "today" {
		t.Fatalf("rule value aliased")
	}
	if def.Sections[0].TitleEn == "changed" {
		t.Fatalf("sections aliased")
	}
}

func TestText_LanguageSelection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		lang, ar, en, want string
	}{
		{"ar", "اسم", "Name", "اسم"},
		{"ar-SA", "اسم", "Name", "اسم"},
		{"en", "اسم", "Name", "Name"},
		{"en-GB", "اسم", "Name", "Name"},
		{"fr", "اسم", "Name", "Name"},
		{"", "اسم", "Name", "اسم"},
		{"en", "اسم", "", "اسم"},
		{"ar", "", "Name", "Name"},
	}
	for _, tc := range cases {
		if got := schema.Text(tc.lang, tc.ar, tc.en); got != tc.want {
			t.Fatalf("Text(%q) = %q, want %q", tc.lang, got, tc.want)
		}
	}
}
