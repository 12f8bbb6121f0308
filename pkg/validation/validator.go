// Package validation runs the declarative field rules of a form. Failures are
// results, never errors: a Result lists every failing field with its
// localised messages.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/eventloop"
	"github.com/goliatone/go-iform/pkg/schema"
)

// Predicate backs the custom rule. It receives the field and its value.
type Predicate func(field schema.Field, value any) bool

type predicates struct {
	mu    sync.RWMutex
	funcs map[string]Predicate
}

func (p *predicates) get(name string) (Predicate, bool) {
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn, ok := p.funcs[name]
	return fn, ok
}

// Result is the outcome of a full validation pass.
type Result struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors,omitempty"`
	// Order lists failing field ids in form order.
	Order []string `json:"order,omitempty"`
}

// First returns the first failing field in form order.
func (r Result) First() (string, bool) {
	if len(r.Order) == 0 {
		return "", false
	}
	return r.Order[0], true
}

// Scope identifies the record a full validation runs against, so unique
// checks can skip the row being edited.
type Scope struct {
	Table    string
	RecordID any
}

// Option customises a Validator.
type Option func(*Validator)

// WithLanguage selects message language.
func WithLanguage(lang string) Option {
	return func(v *Validator) {
		v.lang = lang
	}
}

// WithClock overrides the clock used for the "today" keyword.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithPredicate registers a custom rule predicate.
func WithPredicate(name string, fn Predicate) Option {
	return func(v *Validator) {
		if name != "" && fn != nil {
			v.predicates.funcs[name] = fn
		}
	}
}

// WithBridge sets the data bridge used by unique checks.
func WithBridge(b bridge.DataBridge) Option {
	return func(v *Validator) {
		v.bridge = b
	}
}

// WithExecutor sets where unique checks run.
func WithExecutor(exec eventloop.Executor) Option {
	return func(v *Validator) {
		if exec != nil {
			v.exec = exec
		}
	}
}

// WithDispatcher sets where completions are delivered.
func WithDispatcher(d eventloop.Dispatcher) Option {
	return func(v *Validator) {
		v.dispatch = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Validator evaluates rules for fields.
type Validator struct {
	lang       string
	now        func() time.Time
	predicates *predicates
	bridge     bridge.DataBridge
	exec       eventloop.Executor
	dispatch   eventloop.Dispatcher
	logger     *slog.Logger
}

// New returns a validator. Without an executor unique checks run inline.
func New(opts ...Option) *Validator {
	v := &Validator{
		now:        time.Now,
		predicates: &predicates{funcs: make(map[string]Predicate)},
		exec:       eventloop.Inline{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Register adds a custom predicate after construction.
func (v *Validator) Register(name string, fn Predicate) {
	if name == "" || fn == nil {
		return
	}
	v.predicates.mu.Lock()
	v.predicates.funcs[name] = fn
	v.predicates.mu.Unlock()
}

// Language returns the message language.
func (v *Validator) Language() string {
	return v.lang
}

// ValidateField runs the synchronous rules of field against value and returns
// the failure messages in rule order. unique never runs here. A blank value
// only fails required; every other rule is skipped.
func (v *Validator) ValidateField(field schema.Field, value any) []string {
	e := env{field: field, now: v.now, predicates: v.predicates}
	empty := IsEmpty(value)
	if field.WidgetType == schema.WidgetCheckbox {
		b, _ := value.(bool)
		empty = !b
	}
	var messages []string
	for _, rule := range field.Validation {
		if rule.Rule.Async() {
			continue
		}
		if empty && rule.Rule != schema.RuleRequired {
			continue
		}
		fn, ok := checks[rule.Rule]
		if !ok {
			v.logger.Warn("validation: rule has no checker", "field", field.ID, "rule", rule.Rule)
			continue
		}
		if !fn(rule, value, e) {
			messages = append(messages, messageFor(rule, v.lang))
		}
	}
	return messages
}

type uniqueCheck struct {
	field schema.Field
	rule  schema.ValidationRule
	value any
}

// ValidateAll runs every rule on every editable field, including unique
// checks through the bridge, and delivers the collected Result to done on the
// dispatcher. Failures never short-circuit.
func (v *Validator) ValidateAll(ctx context.Context, fields []schema.Field, values map[string]any, scope Scope, done func(Result)) {
	errs := make(map[string][]string)
	index := make(map[string]int, len(fields))
	var pending []uniqueCheck
	for i, field := range fields {
		index[field.ID] = i
		if !field.Editable() {
			continue
		}
		value := values[field.ID]
		if msgs := v.ValidateField(field, value); len(msgs) > 0 {
			errs[field.ID] = append(errs[field.ID], msgs...)
		}
		if IsEmpty(value) {
			continue
		}
		for _, rule := range field.Validation {
			if rule.Rule.Async() {
				pending = append(pending, uniqueCheck{field: field, rule: rule, value: value})
			}
		}
	}

	finish := func() {
		res := Result{Valid: len(errs) == 0, Errors: errs}
		for id := range errs {
			res.Order = append(res.Order, id)
		}
		sort.Slice(res.Order, func(i, j int) bool { return index[res.Order[i]] < index[res.Order[j]] })
		if len(errs) == 0 {
			res.Errors = nil
		}
		if done != nil {
			done(res)
		}
	}
	if len(pending) == 0 {
		v.post(finish)
		return
	}

	// completions run on the dispatcher; mu covers callers without one
	var mu sync.Mutex
	remaining := len(pending)
	for _, uc := range pending {
		uc := uc
		v.exec.Go(func() {
			ok, err := v.unique(ctx, uc, scope)
			v.post(func() {
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					v.logger.Warn("validation: unique check failed", "field", uc.field.ID, "error", err)
					errs[uc.field.ID] = append(errs[uc.field.ID], unverifiable.text(v.lang))
				case !ok:
					errs[uc.field.ID] = append(errs[uc.field.ID], messageFor(uc.rule, v.lang))
				}
				remaining--
				if remaining == 0 {
					finish()
				}
			})
		})
	}
}

func (v *Validator) unique(ctx context.Context, uc uniqueCheck, scope Scope) (bool, error) {
	if v.bridge == nil {
		return false, fmt.Errorf("validation: no data bridge for unique check on %s", uc.field.ID)
	}
	table := uc.field.DataBinding.Table
	if table == "" {
		table = scope.Table
	}
	if table == "" {
		return false, fmt.Errorf("validation: no table for unique check on %s", uc.field.ID)
	}
	return v.bridge.CheckUnique(ctx, table, uc.field.Column(), uc.value, scope.RecordID)
}

func (v *Validator) post(fn func()) {
	if v.dispatch == nil {
		fn()
		return
	}
	if !v.dispatch.Post(fn) {
		v.logger.Debug("validation: dispatcher closed, dropping completion")
	}
}

// CheckDefinition reports custom rules naming predicates this validator does
// not know. It plugs into schema.WithCheck so unknown predicates fail at load.
func (v *Validator) CheckDefinition(def *schema.FormDefinition) []schema.Violation {
	if def == nil {
		return nil
	}
	var out []schema.Violation
	for i, section := range def.Sections {
		for j, field := range section.Fields {
			for k, rule := range field.Validation {
				if rule.Rule != schema.RuleCustom {
					continue
				}
				name, _ := rule.Value.(string)
				if _, ok := v.predicates.get(name); !ok {
					out = append(out, schema.Violation{
						Path:   fmt.Sprintf("sections[%d].fields[%d].validation[%d].value", i, j, k),
						Reason: fmt.Sprintf("unknown custom predicate %q", name),
					})
				}
			}
		}
	}
	return out
}
