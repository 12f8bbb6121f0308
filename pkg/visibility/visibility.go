// Package visibility decides which sections and fields of a form are shown
// and which actions are enabled for a given set of values. Declarative
// trigger rules, section conditions and action enabled conditions all
// resolve here.
package visibility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Evaluator evaluates a condition string. subject names the element the
// condition belongs to and is only used for error reporting.
type Evaluator interface {
	Eval(subject, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the current field
// values; Extras carries host data such as user roles or feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(subject, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(subject, rule string, ctx Context) (bool, error) {
	return fn(subject, rule, ctx)
}

// Outcome is the resolved visibility of a form.
type Outcome struct {
	Sections map[string]bool
	Fields   map[string]bool
	Actions  map[string]bool
}

// SectionVisible reports whether section id is shown. Unknown ids are shown.
func (o Outcome) SectionVisible(id string) bool {
	v, ok := o.Sections[id]
	return !ok || v
}

// FieldVisible reports whether field id is shown.
func (o Outcome) FieldVisible(id string) bool {
	v, ok := o.Fields[id]
	return !ok || v
}

// ActionEnabled reports whether action id is enabled.
func (o Outcome) ActionEnabled(id string) bool {
	v, ok := o.Actions[id]
	return !ok || v
}

// Resolve computes the outcome for values. The declared visible flags are the
// starting point; a section condition replaces its section's flag; trigger
// rules apply in order, a matching rule applying its action and a
// non-matching rule applying the inverse. Condition errors hide the section
// or disable the action and are returned joined.
func Resolve(def *schema.FormDefinition, eval Evaluator, ctx Context) (Outcome, error) {
	out := Outcome{
		Sections: make(map[string]bool),
		Fields:   make(map[string]bool),
		Actions:  make(map[string]bool),
	}
	if def == nil {
		return out, nil
	}
	var errs []error
	for _, section := range def.Sections {
		visible := section.Visible
		if section.Condition != "" && eval != nil {
			ok, err := eval.Eval(section.ID, section.Condition, ctx)
			if err != nil {
				errs = append(errs, fmt.Errorf("visibility: section %s: %w", section.ID, err))
			}
			visible = ok && err == nil
		}
		out.Sections[section.ID] = visible
		for _, field := range section.Fields {
			out.Fields[field.ID] = field.Properties.Visible
		}
	}
	for _, rule := range def.Rules {
		show := Matches(ctx.Values[rule.TriggerField], rule.TriggerValue)
		switch rule.Action {
		case schema.RuleHideSection, schema.RuleHideField:
			show = !show
		}
		switch rule.Action {
		case schema.RuleShowSection, schema.RuleHideSection:
			out.Sections[rule.Target] = show
		case schema.RuleShowField, schema.RuleHideField:
			out.Fields[rule.Target] = show
		}
	}
	for _, action := range def.Actions {
		enabled := true
		if action.EnabledCondition != "" && eval != nil {
			ok, err := eval.Eval(action.ID, action.EnabledCondition, ctx)
			if err != nil {
				errs = append(errs, fmt.Errorf("visibility: action %s: %w", action.ID, err))
			}
			enabled = ok && err == nil
		}
		out.Actions[action.ID] = enabled
	}
	return out, errors.Join(errs...)
}

// Triggers returns the field ids whose changes can alter the outcome: rule
// triggers, plus every field when any condition is declared.
func Triggers(def *schema.FormDefinition) (ids map[string]bool, all bool) {
	ids = make(map[string]bool)
	if def == nil {
		return ids, false
	}
	for _, rule := range def.Rules {
		ids[rule.TriggerField] = true
	}
	for _, section := range def.Sections {
		if section.Condition != "" {
			all = true
		}
	}
	for _, action := range def.Actions {
		if action.EnabledCondition != "" {
			all = true
		}
	}
	return ids, all
}

// Matches compares a field value with a rule trigger value. Numbers compare
// by value, booleans match their string forms and nil matches the empty
// string.
func Matches(value, trigger any) bool {
	if blank(value) && blank(trigger) {
		return true
	}
	if a, ok := schema.Number(value); ok {
		if b, ok := schema.Number(trigger); ok {
			return a == b
		}
	}
	if b, ok := trigger.(bool); ok {
		return asBool(value) == b
	}
	if b, ok := value.(bool); ok {
		return asBool(trigger) == b
	}
	return fmt.Sprint(value) == fmt.Sprint(trigger)
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	if n, ok := schema.Number(v); ok {
		return n != 0
	}
	return false
}
