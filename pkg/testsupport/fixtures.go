package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iform/pkg/schema"
)

// EmployeeForm is the shared fixture: a grid form with a query-backed combo,
// a conditional section and one field for most rule kinds.
const EmployeeForm = `{
  "version": "2.0",
  "formId": "employee",
  "nameAr": "بيانات الموظف",
  "nameEn": "Employee",
  "targetTable": "employees",
  "settings": {
    "direction": "ltr",
    "layoutMode": "grid",
    "language": "en",
    "columns": 2,
    "columnGap": 10,
    "rowGap": 10,
    "rowHeight": 30,
    "margins": {"top": 10, "right": 10, "bottom": 10, "left": 10}
  },
  "sections": [
    {
      "id": "section_main",
      "titleAr": "البيانات الأساسية",
      "titleEn": "Main",
      "collapsible": true,
      "fields": [
        {
          "id": "employee_code",
          "widgetType": "text_input",
          "labelAr": "رقم الموظف",
          "labelEn": "Employee code",
          "layout": {"row": 0, "col": 0},
          "dataBinding": {"column": "code", "type": "string"},
          "validation": [
            {"rule": "required"},
            {"rule": "pattern", "value": "^EMP-\\d{4}$", "messageAr": "صيغة الرقم غير صحيحة", "messageEn": "Code must look like EMP-0000"}
          ]
        },
        {
          "id": "full_name",
          "widgetType": "text_input",
          "labelEn": "Full name",
          "layout": {"row": 0, "col": 1},
          "validation": [
            {"rule": "required"},
            {"rule": "min_length", "value": 3},
            {"rule": "max_length", "value": 60}
          ]
        },
        {
          "id": "status",
          "widgetType": "combo_box",
          "labelEn": "Status",
          "layout": {"row": 1, "col": 0},
          "comboSource": {
            "type": "query",
            "query": {"table": "statuses", "valueColumn": "id", "displayColumn": "name"},
            "allowEmpty": false
          },
          "validation": [{"rule": "required"}]
        },
        {
          "id": "is_manager",
          "widgetType": "checkbox",
          "labelEn": "Manager",
          "layout": {"row": 1, "col": 1}
        },
        {
          "id": "notes",
          "widgetType": "text_area",
          "labelEn": "Notes",
          "layout": {"row": 2, "col": 0, "colspan": 2}
        }
      ]
    },
    {
      "id": "section_manager",
      "titleEn": "Team",
      "visible": false,
      "fields": [
        {
          "id": "team_size",
          "widgetType": "number_input",
          "labelEn": "Team size",
          "layout": {"row": 0, "col": 0},
          "validation": [
            {"rule": "min_value", "value": 1},
            {"rule": "max_value", "value": 500}
          ]
        }
      ]
    },
    {
      "id": "section_contact",
      "titleEn": "Contact",
      "fields": [
        {
          "id": "email",
          "widgetType": "text_input",
          "labelEn": "Email",
          "layout": {"row": 0, "col": 0},
          "validation": [{"rule": "email"}, {"rule": "unique"}]
        },
        {
          "id": "phone",
          "widgetType": "text_input",
          "labelEn": "Phone",
          "layout": {"row": 0, "col": 1},
          "validation": [{"rule": "phone"}]
        }
      ]
    }
  ],
  "actions": [
    {"id": "save", "type": "primary", "labelEn": "Save", "action": "save", "position": "footer_left", "width": 100, "shortcut": "Ctrl+S"},
    {"id": "cancel", "type": "secondary", "labelEn": "Cancel", "action": "cancel", "position": "footer_left", "width": 100, "shortcut": "Escape", "confirmMessageEn": "Discard changes?"},
    {"id": "print", "type": "success", "labelEn": "Print", "action": "custom", "position": "footer_right", "width": 80, "target": "print_card"}
  ],
  "rules": [
    {"triggerField": "is_manager", "triggerValue": true, "action": "show_section", "target": "section_manager"}
  ],
  "events": {"after_save": "notify_hr"}
}`

// Employee parses EmployeeForm and fills the defaults.
func Employee(t testing.TB) *schema.FormDefinition {
	t.Helper()
	def, err := schema.Parse([]byte(EmployeeForm))
	if err != nil {
		t.Fatalf("parse employee fixture: %v", err)
	}
	return schema.MergeWithDefaults(def)
}

// MustParse parses payload or fails the test.
func MustParse(t testing.TB, payload string) *schema.FormDefinition {
	t.Helper()
	def, err := schema.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return schema.MergeWithDefaults(def)
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
