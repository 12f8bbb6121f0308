package expr

import (
	"testing"

	"github.com/goliatone/go-iform/pkg/visibility"
)

func TestEvaluator(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"is_manager": true,
		"flag":       "true",
		"status":     "active",
		"team_size":  12,
		"ratio":      "0.5",
		"address":    map[string]any{"city": "Riyadh"},
		"a.b":        "flat",
		"empty":      "",
	}
	ctx := visibility.Context{Values: values, Extras: map[string]any{"role": "admin"}}

	cases := []struct {
		rule string
		want bool
	}{
		{"", true},
		{"is_manager", true},
		{"!is_manager", false},
		{"empty", false},
		{"missing", false},
		{"flag == true", true},
		{`status == "active"`, true},
		{"status == active", true},
		{`status != 'active'`, false},
		{"team_size == 12", true},
		{"team_size >= 12 && team_size < 13", true},
		{"team_size > 12", false},
		{"ratio <= 0.5", true},
		{"missing > 1", false},
		{"missing != 1", true},
		{"missing == null", true},
		{"status != null", true},
		{`address.city == "Riyadh"`, true},
		{`a.b == "flat"`, true},
		{`extras.role == "admin"`, true},
		{`EXTRAS.role == "user"`, false},
		{"(is_manager || missing) && !(team_size < 5)", true},
		{"missing || status == 'active'", true},
	}
	e := New()
	for _, tc := range cases {
		got, err := e.Eval("subject", tc.rule, ctx)
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestEvaluatorErrors(t *testing.T) {
	t.Parallel()

	e := New()
	for _, rule := range []string{
		"a = 1",
		"a & b",
		`a == "open`,
		"(a",
		"a ==",
		"a < \"text\"",
		"== 1",
		"a b",
	} {
		if _, err := e.Eval("subject", rule, visibility.Context{}); err == nil {
			t.Fatalf("Eval(%q) expected an error", rule)
		}
		if err := e.Check(rule); err == nil {
			t.Fatalf("Check(%q) expected an error", rule)
		}
	}
}

func TestEvaluatorCachesParsedRules(t *testing.T) {
	e := New()
	for i := 0; i < 3; i++ {
		if _, err := e.Eval("s", "x > 1", visibility.Context{Values: map[string]any{"x": i}}); err != nil {
			t.Fatalf("eval: %v", err)
		}
	}
	if len(e.cache) != 1 {
		t.Fatalf("expected one cached rule, got %d", len(e.cache))
	}
}
