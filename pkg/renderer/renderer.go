// Package renderer turns a form definition into live controls and runs the
// form: record loading, combo sources, conditional rules, validation, saving
// and the action bar. A Renderer belongs to one UI loop; every method must be
// called from it, and bridge work comes back to it through the dispatcher.
package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/eventloop"
	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/state"
	"github.com/goliatone/go-iform/pkg/validation"
	"github.com/goliatone/go-iform/pkg/visibility"
	"github.com/goliatone/go-iform/pkg/visibility/expr"
	"github.com/goliatone/go-iform/pkg/widgets"
)

// Renderer runs one form.
type Renderer struct {
	toolkit        widgets.Toolkit
	factory        *widgets.Factory
	ownFactory     bool
	factoryOpts    []widgets.FactoryOption
	validator      *validation.Validator
	ownValidator   bool
	validationOpts []validation.Option
	schemaOpts     []schema.Option
	engine         *layout.Engine
	viewport       layout.Viewport
	surface        Surface
	eval           visibility.Evaluator
	extras         map[string]any
	bridge         bridge.DataBridge
	exec           eventloop.Executor
	dispatch       eventloop.Dispatcher
	confirmer      Confirmer
	handlers       map[string]Handler
	navigate       func(ctx context.Context, target string) error
	endpoints      EndpointLoader
	lang           string
	logger         *slog.Logger
	loadHooks      []func(formChanged bool)

	def      *schema.FormDefinition
	controls map[string]widgets.Control
	actions  map[string]widgets.Control
	machine  *state.Machine
	geometry layout.Result
	outcome  visibility.Outcome
	pinned   map[string]bool
	disabled map[string]bool
	collapse map[string]bool

	table    string
	recordID any

	// combo race guard: values set before a combo's options arrive wait in
	// pending and are applied when the options load.
	combosLoaded bool
	comboWait    map[string]bool
	pending      map[string]any
	options      map[string][]widgets.Option

	// generation invalidates async completions from an earlier load or a
	// closed form.
	generation uint64
	busy       string
	closed     bool
	lastError  string
}

// New returns a renderer building controls through toolkit.
func New(toolkit widgets.Toolkit, opts ...Option) *Renderer {
	r := &Renderer{
		toolkit:  toolkit,
		engine:   layout.New(),
		viewport: layout.Viewport{Width: layout.DefaultViewport},
		eval:     expr.New(),
		exec:     eventloop.Inline{},
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
		machine:  state.NewMachine(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.surface == nil {
		if s, ok := toolkit.(Surface); ok {
			r.surface = s
		}
	}
	r.ownFactory = r.factory == nil
	r.ownValidator = r.validator == nil
	if r.ownValidator {
		r.validator = r.newValidator(r.lang)
	}
	return r
}

func (r *Renderer) newValidator(lang string) *validation.Validator {
	return validation.New(append([]validation.Option{
		validation.WithLanguage(lang),
		validation.WithBridge(r.bridge),
		validation.WithExecutor(r.exec),
		validation.WithDispatcher(r.dispatch),
		validation.WithLogger(r.logger),
	}, r.validationOpts...)...)
}

// LoadForm parses an .iform payload and loads it. An invalid document leaves
// the current form untouched.
func (r *Renderer) LoadForm(ctx context.Context, data []byte) error {
	def, err := schema.Parse(data, r.loaderOptions()...)
	if err != nil {
		return err
	}
	return r.LoadDefinition(ctx, schema.MergeWithDefaults(def))
}

func (r *Renderer) loaderOptions() []schema.Option {
	opts := append([]schema.Option{schema.WithLogger(r.logger)}, r.schemaOpts...)
	if r.validator != nil {
		opts = append(opts, schema.WithCheck(r.validator.CheckDefinition))
	}
	return append(opts, schema.WithCheck(r.checkConditions))
}

// checkConditions rejects section and action conditions that do not parse.
func (r *Renderer) checkConditions(def *schema.FormDefinition) []schema.Violation {
	checker, ok := r.eval.(interface{ Check(string) error })
	if !ok {
		return nil
	}
	var out []schema.Violation
	for i, s := range def.Sections {
		if err := checker.Check(s.Condition); err != nil {
			out = append(out, schema.Violation{Path: fmt.Sprintf("sections[%d].condition", i), Reason: err.Error()})
		}
	}
	for i, a := range def.Actions {
		if err := checker.Check(a.EnabledCondition); err != nil {
			out = append(out, schema.Violation{Path: fmt.Sprintf("actions[%d].enabledCondition", i), Reason: err.Error()})
		}
	}
	return out
}

// LoadDefinition builds controls for def, lays them out and starts loading
// list-backed options. The definition is copied. Outstanding async work from
// a previous form is discarded and the edit state starts over.
func (r *Renderer) LoadDefinition(ctx context.Context, def *schema.FormDefinition) error {
	if def == nil {
		return ErrNoForm
	}
	if err := schema.Check(def, r.loaderOptions()...); err != nil {
		return err
	}
	def = def.Clone()
	lang := r.lang
	if lang == "" {
		lang = def.Settings.Language
	}
	if r.ownFactory {
		r.factory = widgets.NewFactory(r.toolkit, append([]widgets.FactoryOption{widgets.WithLanguage(lang), widgets.WithLogger(r.logger)}, r.factoryOpts...)...)
	}
	if r.ownValidator && r.validator.Language() != lang {
		r.validator = r.newValidator(lang)
	}

	r.generation++
	r.closed = false
	r.busy = ""
	r.lastError = ""
	r.def = def
	r.table = def.TargetTable
	r.recordID = nil
	r.pinned = make(map[string]bool)
	r.disabled = make(map[string]bool)
	r.collapse = make(map[string]bool)
	r.pending = make(map[string]any)
	r.comboWait = make(map[string]bool)
	r.options = make(map[string][]widgets.Option)
	r.combosLoaded = true

	if err := r.build(); err != nil {
		r.teardown()
		r.def = nil
		return err
	}
	r.machine = state.NewMachine()
	if err := r.machine.Loaded(r.Data()); err != nil {
		return err
	}
	r.refresh()
	r.loadCombos(ctx)
	r.fire(ctx, EventLoad, Event{})
	r.loaded(true)
	return nil
}

// OnLoad registers fn to run after a form definition or a record finishes
// loading. formChanged is true when a new definition replaced the old one.
// Changes made through Mutate do not count as loads.
func (r *Renderer) OnLoad(fn func(formChanged bool)) {
	if fn != nil {
		r.loadHooks = append(r.loadHooks, fn)
	}
}

func (r *Renderer) loaded(formChanged bool) {
	for _, fn := range r.loadHooks {
		fn(formChanged)
	}
}

// build creates every control from r.def.
func (r *Renderer) build() error {
	r.teardown()
	r.controls = make(map[string]widgets.Control)
	r.actions = make(map[string]widgets.Control)
	dir := r.def.Direction()
	for _, field := range r.def.Fields() {
		control, err := r.factory.Build(field, dir)
		if err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
		id := field.ID
		control.OnChange(func(value any) { r.changed(id, value) })
		r.controls[id] = control
	}
	for _, action := range r.def.Actions {
		control, err := r.factory.BuildAction(action, dir)
		if err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
		r.actions[action.ID] = control
	}
	return nil
}

func (r *Renderer) teardown() {
	if r.surface != nil && (r.controls != nil || r.actions != nil) {
		r.surface.Clear()
	}
	r.controls = nil
	r.actions = nil
}

// Definition returns a copy of the loaded definition.
func (r *Renderer) Definition() *schema.FormDefinition {
	return r.def.Clone()
}

// Mutate applies fn to a copy of the definition and, when the result passes
// the schema checks, swaps it in and rebuilds the controls. Field values and
// the edit state survive the rebuild. On error nothing changes.
func (r *Renderer) Mutate(fn func(def *schema.FormDefinition) error) error {
	if r.def == nil {
		return ErrNoForm
	}
	if r.busy == busySave {
		return &state.StateError{Op: "mutate", From: r.machine.State(), Err: state.ErrBusy}
	}
	next := r.def.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := schema.Check(next, r.loaderOptions()...); err != nil {
		return err
	}
	values := r.Data()
	prev := r.def
	r.def = next
	err := r.build()
	if err != nil {
		r.def = prev
		if rerr := r.build(); rerr != nil {
			r.logger.Error("renderer: restore after failed rebuild", "error", rerr)
		}
	}
	if err == nil {
		r.dropStaleOptions(prev)
	}
	r.restoreOptions()
	// new or re-pointed list sources start loading before values are written
	// back, so their values wait in pending for the options
	r.loadCombos(context.Background())
	r.apply(values)
	r.refresh()
	return err
}

// dropStaleOptions forgets loaded options of fields that were removed or
// whose combo source changed.
func (r *Renderer) dropStaleOptions(prev *schema.FormDefinition) {
	for id := range r.options {
		now := r.def.FieldByID(id)
		was := prev.FieldByID(id)
		if now == nil || was == nil || !reflect.DeepEqual(now.ComboSource, was.ComboSource) {
			delete(r.options, id)
			delete(r.pending, id)
		}
	}
}

// State returns the lifecycle state.
func (r *Renderer) State() state.State {
	return r.machine.State()
}

// Machine exposes the lifecycle for inspection.
func (r *Renderer) Machine() *state.Machine {
	return r.machine
}

// Geometry returns the current placement.
func (r *Renderer) Geometry() layout.Result {
	return r.geometry
}

// LastError returns the user facing message of the latest bridge failure.
func (r *Renderer) LastError() string {
	return r.lastError
}

// Language returns the effective language.
func (r *Renderer) Language() string {
	if r.lang != "" || r.def == nil {
		return r.lang
	}
	return r.def.Settings.Language
}

// Relayout arranges the form for a new viewport.
func (r *Renderer) Relayout(vp layout.Viewport) error {
	r.viewport = vp
	return r.arrange()
}

// SetSectionCollapsed collapses or expands a collapsible section.
func (r *Renderer) SetSectionCollapsed(id string, collapsed bool) error {
	if r.def == nil {
		return ErrNoForm
	}
	if r.def.SectionByID(id) == nil {
		return fmt.Errorf("renderer: unknown section %s", id)
	}
	r.collapse[id] = collapsed
	return r.arrange()
}

func (r *Renderer) arrange() error {
	if r.def == nil {
		return ErrNoForm
	}
	ov := layout.Overrides{Sections: r.outcome.Sections, Fields: r.fieldVisibility(), Collapsed: r.collapse}
	res, err := r.engine.Arrange(r.def, r.viewport, ov)
	if err != nil {
		return err
	}
	r.geometry = res
	if r.surface == nil {
		return nil
	}
	for id, rect := range res.Fields {
		r.surface.Place(id, rect)
	}
	for id, rect := range res.Actions {
		r.surface.Place(widgets.ActionControlID(id), rect)
	}
	return nil
}

// Close tears the form down. With unsaved changes the confirmer is asked
// first; declining, or having no confirmer, keeps the form open and returns
// ErrUnsavedChanges. Async work still in flight is discarded on arrival.
func (r *Renderer) Close(ctx context.Context) error {
	if r.closed || r.def == nil {
		r.closed = true
		return nil
	}
	if r.machine.IsDirty() {
		if r.confirmer == nil {
			return ErrUnsavedChanges
		}
		ok, err := r.confirmer.Confirm(ctx, schema.Text(r.Language(), msgDiscardAr, msgDiscardEn))
		if err != nil {
			return fmt.Errorf("renderer: confirm close: %w", err)
		}
		if !ok {
			return ErrUnsavedChanges
		}
	}
	r.generation++
	r.closed = true
	r.busy = ""
	r.teardown()
	return nil
}

// Closed reports whether Close completed.
func (r *Renderer) Closed() bool {
	return r.closed
}

const (
	msgDiscardAr = "توجد تغييرات غير محفوظة. هل تريد تجاهلها؟"
	msgDiscardEn = "There are unsaved changes. Discard them?"
)

// post delivers fn on the UI loop when gen is still current.
func (r *Renderer) post(gen uint64, fn func()) {
	run := func() {
		if r.closed || gen != r.generation {
			r.logger.Debug("renderer: discarding stale completion", "generation", gen)
			return
		}
		fn()
	}
	if r.dispatch == nil {
		run()
		return
	}
	if !r.dispatch.Post(run) {
		r.logger.Debug("renderer: dispatcher closed, dropping completion")
	}
}
