package visibility_test

import (
	"testing"

	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/testsupport"
	"github.com/goliatone/go-iform/pkg/visibility"
	"github.com/goliatone/go-iform/pkg/visibility/expr"
)

func TestResolve_TriggerRules(t *testing.T) {
	def := testsupport.Employee(t)
	eval := expr.New()

	out, err := visibility.Resolve(def, eval, visibility.Context{Values: map[string]any{"is_manager": false}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.SectionVisible("section_manager") {
		t.Fatalf("manager section must stay hidden for non-managers")
	}
	out, err = visibility.Resolve(def, eval, visibility.Context{Values: map[string]any{"is_manager": true}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !out.SectionVisible("section_manager") || !out.SectionVisible("section_main") {
		t.Fatalf("expected manager section visible: %v", out.Sections)
	}
	if !out.FieldVisible("team_size") {
		t.Fatalf("field flags must follow the declaration")
	}
}

func TestResolve_ConditionsAndActions(t *testing.T) {
	def := testsupport.Employee(t)
	def.SectionByID("section_contact").Condition = `status == "active"`
	def.Actions[0].EnabledCondition = "full_name"
	def.Actions[1].EnabledCondition = "full_name =="
	def.Rules = append(def.Rules, schema.Rule{TriggerField: "status", TriggerValue: 2.0, Action: schema.RuleHideField, Target: "notes"})

	out, err := visibility.Resolve(def, expr.New(), visibility.Context{Values: map[string]any{"status": 2, "full_name": "Sara"}})
	if err == nil {
		t.Fatalf("expected the broken cancel condition to be reported")
	}
	if out.SectionVisible("section_contact") {
		t.Fatalf("contact section condition must hide the section")
	}
	if out.FieldVisible("notes") {
		t.Fatalf("hide_field rule with a numeric trigger must hide notes")
	}
	if !out.ActionEnabled("save") || out.ActionEnabled("cancel") {
		t.Fatalf("action enablement mismatch: %v", out.Actions)
	}
	if !out.ActionEnabled("print") {
		t.Fatalf("actions without a condition are enabled")
	}
}

func TestTriggers(t *testing.T) {
	def := testsupport.Employee(t)
	ids, all := visibility.Triggers(def)
	if !ids["is_manager"] || all {
		t.Fatalf("unexpected triggers %v all=%v", ids, all)
	}
	def.Actions[0].EnabledCondition = "full_name"
	if _, all := visibility.Triggers(def); !all {
		t.Fatalf("conditions depend on every field")
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		value, trigger any
		want           bool
	}{
		{true, true, true},
		{"true", true, true},
		{false, true, false},
		{nil, true, false},
		{2, 2.0, true},
		{"2", 2.0, true},
		{nil, "", true},
		{"a", "b", false},
	}
	for _, tc := range cases {
		if got := visibility.Matches(tc.value, tc.trigger); got != tc.want {
			t.Fatalf("Matches(%v, %v) = %v", tc.value, tc.trigger, got)
		}
	}
}
