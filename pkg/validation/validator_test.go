package validation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/bridge/memory"
	"github.com/goliatone/go-iform/pkg/eventloop"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/testsupport"
	"github.com/goliatone/go-iform/pkg/validation"
)

func rule(kind schema.RuleKind, value any) schema.ValidationRule {
	return schema.ValidationRule{Rule: kind, Value: value}
}

func field(kind schema.WidgetType, rules ...schema.ValidationRule) schema.Field {
	return schema.Field{ID: "f", WidgetType: kind, Validation: rules, Properties: schema.Properties{Enabled: true, Visible: true}}
}

func TestValidateField_EmployeeCodeScenario(t *testing.T) {
	def := testsupport.Employee(t)
	code := def.FieldByID("employee_code")
	if code == nil {
		t.Fatalf("fixture lost employee_code")
	}
	v := validation.New(validation.WithLanguage("en"))

	got := v.ValidateField(*code, "EMP-12")
	if diff := cmp.Diff([]string{"Code must look like EMP-0000"}, got); diff != "" {
		t.Fatalf("pattern failure mismatch (-want +got):\n%s", diff)
	}
	if got := v.ValidateField(*code, "EMP-1234"); len(got) != 0 {
		t.Fatalf("expected EMP-1234 to pass, got %v", got)
	}
	if got := v.ValidateField(*code, ""); len(got) != 1 || got[0] != "This field is required" {
		t.Fatalf("expected only the required message for a blank value, got %v", got)
	}
}

func TestValidateField_Rules(t *testing.T) {
	t.Parallel()

	fixed := func() time.Time { return time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC) }
	v := validation.New(
		validation.WithLanguage("en"),
		validation.WithClock(fixed),
		validation.WithPredicate("even", func(_ schema.Field, value any) bool {
			n, ok := schema.Number(value)
			return ok && int(n)%2 == 0
		}),
	)

	cases := []struct {
		name  string
		field schema.Field
		value any
		ok    bool
	}{
		{"required blank", field(schema.WidgetTextInput, rule(schema.RuleRequired, nil)), "  ", false},
		{"required checkbox unchecked", field(schema.WidgetCheckbox, rule(schema.RuleRequired, nil)), false, false},
		{"required checkbox checked", field(schema.WidgetCheckbox, rule(schema.RuleRequired, nil)), true, true},
		{"optional blank skips rules", field(schema.WidgetTextInput, rule(schema.RuleEmail, nil)), "", true},
		{"min length counts runes", field(schema.WidgetTextInput, rule(schema.RuleMinLength, 3.0)), "علي", true},
		{"min length short", field(schema.WidgetTextInput, rule(schema.RuleMinLength, 3.0)), "ab", false},
		{"max length nfc", field(schema.WidgetTextInput, rule(schema.RuleMaxLength, 1.0)), "é", true},
		{"min value", field(schema.WidgetNumberInput, rule(schema.RuleMinValue, 1.0)), 0, false},
		{"max value string input", field(schema.WidgetNumberInput, rule(schema.RuleMaxValue, 500.0)), "499", true},
		{"value not numeric", field(schema.WidgetNumberInput, rule(schema.RuleMinValue, 1.0)), "many", false},
		{"pattern capped", field(schema.WidgetTextInput, rule(schema.RulePattern, "^a+$")), strings.Repeat("a", validation.MaxPatternInput+1), false},
		{"pattern at cap", field(schema.WidgetTextInput, rule(schema.RulePattern, "^a+$")), strings.Repeat("a", validation.MaxPatternInput), true},
		{"email ok", field(schema.WidgetTextInput, rule(schema.RuleEmail, nil)), "sara@example.com", true},
		{"email bad", field(schema.WidgetTextInput, rule(schema.RuleEmail, nil)), "sara@", false},
		{"phone ok", field(schema.WidgetTextInput, rule(schema.RulePhone, nil)), "+966 (50) 123-4567", true},
		{"phone bad", field(schema.WidgetTextInput, rule(schema.RulePhone, nil)), "12ab", false},
		{"iban ok", field(schema.WidgetTextInput, rule(schema.RuleIBAN, nil)), "SA03 8000 0000 6080 1016 7519", true},
		{"iban checksum", field(schema.WidgetTextInput, rule(schema.RuleIBAN, nil)), "GB83 WEST 1234 5698 7654 32", false},
		{"national id citizen", field(schema.WidgetTextInput, rule(schema.RuleNationalID, nil)), "1123456780", true},
		{"national id resident", field(schema.WidgetTextInput, rule(schema.RuleNationalID, nil)), "2123456788", true},
		{"national id prefix", field(schema.WidgetTextInput, rule(schema.RuleNationalID, nil)), "3123456786", false},
		{"national id custom length", field(schema.WidgetTextInput, rule(schema.RuleNationalID, 8.0)), "12345674", true},
		{"date in range", field(schema.WidgetDatePicker, rule(schema.RuleDateRange, map[string]any{"min": "2024-01-01", "max": "today"})), "2024-03-01", true},
		{"date after today", field(schema.WidgetDatePicker, rule(schema.RuleDateRange, map[string]any{"max": "today"})), "2024-03-02", false},
		{"date unparsable", field(schema.WidgetDatePicker, rule(schema.RuleDateRange, map[string]any{})), "yesterday-ish", false},
		{"custom ok", field(schema.WidgetNumberInput, rule(schema.RuleCustom, "even")), 4, true},
		{"custom fails", field(schema.WidgetNumberInput, rule(schema.RuleCustom, "even")), 3, false},
		{"custom unknown", field(schema.WidgetNumberInput, rule(schema.RuleCustom, "missing")), 3, false},
		{"unique skipped in real time", field(schema.WidgetTextInput, rule(schema.RuleUnique, nil)), "taken", true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := v.ValidateField(tc.field, tc.value)
			if (len(got) == 0) != tc.ok {
				t.Fatalf("ValidateField(%v) = %v, want ok=%v", tc.value, got, tc.ok)
			}
		})
	}
}

func TestValidateField_DefaultMessagesAreLocalised(t *testing.T) {
	f := field(schema.WidgetTextInput, rule(schema.RuleMinLength, 3.0))
	if got := validation.New(validation.WithLanguage("en")).ValidateField(f, "ab"); got[0] != "Must be at least 3 characters" {
		t.Fatalf("english default mismatch: %q", got[0])
	}
	if got := validation.New(validation.WithLanguage("ar")).ValidateField(f, "ab"); !strings.Contains(got[0], "3") || strings.Contains(got[0], "Must") {
		t.Fatalf("arabic default mismatch: %q", got[0])
	}
}

func TestValidateAll_CollectsEveryFailureInFormOrder(t *testing.T) {
	def := testsupport.Employee(t)
	allow := bridge.MustAllowList(bridge.Table{Name: "employees", Columns: []string{"email", "code"}})
	store := memory.New(allow)
	if err := store.Seed("employees", bridge.Record{"id": 1, "email": "taken@example.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	queue := eventloop.NewQueue()
	exec := &eventloop.Manual{}
	v := validation.New(
		validation.WithLanguage("en"),
		validation.WithBridge(store),
		validation.WithExecutor(exec),
		validation.WithDispatcher(queue),
	)

	values := map[string]any{
		"employee_code": "EMP-12",
		"full_name":     "Al",
		"email":         "taken@example.com",
	}
	var result *validation.Result
	v.ValidateAll(context.Background(), def.Fields(), values, validation.Scope{Table: "employees"}, func(r validation.Result) {
		result = &r
	})
	queue.Flush()
	if result != nil {
		t.Fatalf("result delivered before the unique check completed")
	}
	if exec.Run() != 1 {
		t.Fatalf("expected exactly one unique check")
	}
	queue.Flush()
	if result == nil {
		t.Fatalf("no result delivered")
	}

	if result.Valid {
		t.Fatalf("expected invalid result")
	}
	want := []string{"employee_code", "full_name", "status", "email"}
	if diff := cmp.Diff(want, result.Order); diff != "" {
		t.Fatalf("failing field order mismatch (-want +got):\n%s", diff)
	}
	if first, _ := result.First(); first != "employee_code" {
		t.Fatalf("first failing field = %q", first)
	}
	if got := result.Errors["email"]; len(got) != 1 || got[0] != "This value is already in use" {
		t.Fatalf("unique failure missing: %v", got)
	}
}

func TestValidateAll_BridgeFailureIsAValidationError(t *testing.T) {
	allow := bridge.MustAllowList(bridge.Table{Name: "employees", Columns: []string{"email"}})
	store := memory.New(allow, memory.WithHook(func(context.Context, string) error {
		return errors.New("offline")
	}))
	v := validation.New(validation.WithLanguage("en"), validation.WithBridge(store))

	f := field(schema.WidgetTextInput, rule(schema.RuleUnique, nil))
	f.ID = "email"
	var result validation.Result
	v.ValidateAll(context.Background(), []schema.Field{f}, map[string]any{"email": "a@b.co"}, validation.Scope{Table: "employees"}, func(r validation.Result) {
		result = r
	})
	if result.Valid || len(result.Errors["email"]) != 1 {
		t.Fatalf("unreachable bridge must fail closed: %#v", result)
	}
}

func TestCheckDefinition_UnknownPredicateFailsLoad(t *testing.T) {
	v := validation.New(validation.WithPredicate("known", func(schema.Field, any) bool { return true }))
	doc := `{"version":"2.0","formId":"f","sections":[{"id":"s","fields":[
		{"id":"a","widgetType":"text_input","layout":{"row":0,"col":0},"validation":[{"rule":"custom","value":"known"}]},
		{"id":"b","widgetType":"text_input","layout":{"row":0,"col":1},"validation":[{"rule":"custom","value":"nope"}]}
	]}]}`
	_, err := schema.Parse([]byte(doc), schema.WithCheck(v.CheckDefinition))
	var serr *schema.SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if !serr.Has("sections[0].fields[1].validation[0].value") || serr.Has("sections[0].fields[0]") {
		t.Fatalf("violation paths mismatch: %v", serr.Violations)
	}
}
