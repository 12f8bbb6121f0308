package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Built-in variant identifiers exposed by the registry.
const (
	VariantMasked     = "masked"
	VariantSearchable = "searchable"
	VariantCurrency   = "currency"
	VariantPassword   = "password"
)

// Matcher decides whether a variant applies to the supplied field.
type Matcher func(field schema.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects control variants for fields based on registered matchers.
// Higher priority wins; ties fall back to registration order. Hosts register
// their own variants and pair them with a Toolkit through WithOverride to
// substitute controls.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher with the provided name and priority.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the variant name for a field.
func (r *Registry) Resolve(field schema.Field) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

func (r *Registry) registerBuiltins() {
	r.Register(VariantMasked, 90, func(field schema.Field) bool {
		return field.WidgetType == schema.WidgetTextInput && strings.TrimSpace(field.Properties.InputMask) != ""
	})

	r.Register(VariantSearchable, 80, func(field schema.Field) bool {
		if field.WidgetType != schema.WidgetComboBox || field.ComboSource == nil {
			return false
		}
		return field.ComboSource.Type == schema.ComboQuery || field.ComboSource.Type == schema.ComboAPI
	})

	r.Register(VariantCurrency, 70, func(field schema.Field) bool {
		if field.WidgetType != schema.WidgetDecimalInput {
			return false
		}
		return field.Properties.Prefix != "" || field.Properties.Suffix != "" ||
			strings.EqualFold(field.DataBinding.Format, "currency")
	})

	r.Register(VariantPassword, 60, func(field schema.Field) bool {
		return field.WidgetType == schema.WidgetTextInput && strings.EqualFold(field.DataBinding.Format, "password")
	})
}
