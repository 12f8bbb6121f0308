// Package tui fills a loaded form from the terminal: one prompt per visible
// editable field in form order, then validation and save through the
// renderer, re-asking only the fields that failed.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-iform/pkg/renderer"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/validation"
	"github.com/goliatone/go-iform/pkg/widgets"
)

// DefaultAttempts is how many save rounds a session runs before giving up.
const DefaultAttempts = 3

// noneOption labels the empty choice of optional lists.
const noneOption = "(none)"

type Option func(*Session)

// WithDriver replaces the survey driver.
func WithDriver(d PromptDriver) Option {
	return func(s *Session) {
		if d != nil {
			s.driver = d
		}
	}
}

// WithPump sets the function that drains the renderer's dispatcher after an
// asynchronous call, so completions run before the session reads them.
func WithPump(fn func()) Option {
	return func(s *Session) {
		if fn != nil {
			s.pump = fn
		}
	}
}

// WithValidator sets the validator used to check answers as they are typed.
func WithValidator(v *validation.Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithAttempts bounds the validate/re-ask rounds.
func WithAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session drives one fill of a loaded form.
type Session struct {
	r         *renderer.Renderer
	driver    PromptDriver
	pump      func()
	validator *validation.Validator
	attempts  int
	logger    *slog.Logger
}

// NewSession binds a session to r, which must already hold a form.
func NewSession(r *renderer.Renderer, opts ...Option) (*Session, error) {
	if r == nil || r.Definition() == nil {
		return nil, renderer.ErrNoForm
	}
	s := &Session{
		r:        r,
		pump:     func() {},
		attempts: DefaultAttempts,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver()
	}
	if s.validator == nil {
		s.validator = validation.New(validation.WithLanguage(r.Language()))
	}
	return s, nil
}

// Run fills every field and saves, re-asking failing fields until the form
// validates or the attempts run out.
func (s *Session) Run(ctx context.Context) (renderer.SaveResult, error) {
	if err := s.Fill(ctx); err != nil {
		return renderer.SaveResult{}, err
	}
	return s.Submit(ctx)
}

// Fill asks for every visible editable field in form order. Visibility is
// checked again before each prompt, so rule-driven sections follow answers.
func (s *Session) Fill(ctx context.Context) error {
	def := s.r.Definition()
	if name := def.Name(s.r.Language()); name != "" {
		if err := s.driver.Info(ctx, name); err != nil {
			return err
		}
	}
	for _, section := range def.Sections {
		for _, field := range section.Fields {
			if err := s.ask(ctx, field); err != nil {
				return err
			}
		}
	}
	return nil
}

// Submit saves, and on validation failure shows the messages and re-asks the
// failing fields before trying again.
func (s *Session) Submit(ctx context.Context) (renderer.SaveResult, error) {
	for attempt := 1; ; attempt++ {
		res, err := s.save(ctx)
		if err != nil {
			return res, err
		}
		if res.Err == nil {
			return res, nil
		}
		if !errors.Is(res.Err, renderer.ErrInvalid) {
			if res.Message != "" {
				_ = s.driver.Info(ctx, res.Message)
			}
			return res, res.Err
		}
		if attempt >= s.attempts {
			return res, fmt.Errorf("%w after %d attempts", ErrGaveUp, attempt)
		}
		def := s.r.Definition()
		for _, id := range res.Validation.Order {
			field := def.FieldByID(id)
			if field == nil {
				continue
			}
			msg := fmt.Sprintf("%s: %s", field.Label(s.r.Language()), strings.Join(res.Validation.Errors[id], "; "))
			if err := s.driver.Info(ctx, msg); err != nil {
				return res, err
			}
			if err := s.ask(ctx, *field); err != nil {
				return res, err
			}
		}
	}
}

func (s *Session) save(ctx context.Context) (renderer.SaveResult, error) {
	var (
		out  renderer.SaveResult
		done bool
	)
	if err := s.r.Save(ctx, func(res renderer.SaveResult) {
		out, done = res, true
	}); err != nil {
		return renderer.SaveResult{}, err
	}
	s.pump()
	if !done {
		return renderer.SaveResult{}, ErrIncomplete
	}
	s.logger.Debug("tui: save finished", "form", s.r.Definition().FormID, "error", out.Err)
	return out, nil
}

func (s *Session) ask(ctx context.Context, field schema.Field) error {
	if !field.Editable() || !s.r.FieldVisible(field.ID) {
		return nil
	}
	control, ok := s.r.Control(field.ID)
	if !ok || !control.Enabled() || control.ReadOnly() {
		return nil
	}
	lang := s.r.Language()
	message := field.Label(lang)
	if field.Required() {
		message += " " + widgets.DefaultRequiredMarker
	}
	help := field.Tooltip(lang)
	current := control.Value()

	var (
		value any
		err   error
	)
	switch field.WidgetType {
	case schema.WidgetCheckbox:
		b, _ := current.(bool)
		value, err = s.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: b, Help: help})
	case schema.WidgetComboBox, schema.WidgetRadioGroup:
		value, err = s.choose(ctx, field, control, message, help)
	case schema.WidgetTextArea, schema.WidgetRichText:
		value, err = s.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: text(current), Help: help, Validator: s.checker(field)})
	default:
		var raw string
		raw, err = s.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   text(current),
			Help:      inputHelp(field, help),
			Validator: s.checker(field),
		})
		if err == nil {
			value, err = convert(field, raw)
		}
	}
	if err != nil {
		return err
	}
	return s.r.SetFieldValue(field.ID, value)
}

func (s *Session) choose(ctx context.Context, field schema.Field, control widgets.Control, message, help string) (any, error) {
	oc, ok := control.(widgets.OptionControl)
	if !ok {
		return nil, fmt.Errorf("tui: %s has no options", field.ID)
	}
	options := oc.Options()
	allowEmpty := field.ComboSource == nil || field.ComboSource.AllowEmpty
	labels := make([]string, 0, len(options)+1)
	values := make([]any, 0, len(options)+1)
	if allowEmpty {
		labels = append(labels, noneOption)
		values = append(values, nil)
	}
	def := 0
	current := control.Value()
	for _, opt := range options {
		if current != nil && widgets.SameValue(opt.Value, current) {
			def = len(labels)
		}
		labels = append(labels, opt.Label)
		values = append(values, opt.Value)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("tui: %s has no options", field.ID)
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: def, Help: help})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(values) {
		return nil, fmt.Errorf("tui: selection %d out of range", idx)
	}
	return values[idx], nil
}

// checker validates typed text against the field's own rules. Unique checks
// need the bridge and are left to the save.
func (s *Session) checker(field schema.Field) func(string) error {
	return func(raw string) error {
		value, err := convert(field, raw)
		if err != nil {
			return err
		}
		if msgs := s.validator.ValidateField(field, value); len(msgs) > 0 {
			return errors.New(strings.Join(msgs, "; "))
		}
		return nil
	}
}

func convert(field schema.Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch field.WidgetType {
	case schema.WidgetNumberInput, schema.WidgetSlider:
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", raw)
		}
		return n, nil
	case schema.WidgetDecimalInput:
		if raw == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return f, nil
	default:
		return raw, nil
	}
}

func inputHelp(field schema.Field, help string) string {
	var format string
	switch field.WidgetType {
	case schema.WidgetDatePicker:
		format = "YYYY-MM-DD"
	case schema.WidgetTimePicker:
		format = "HH:MM"
	case schema.WidgetDateTimePicker:
		format = "YYYY-MM-DDTHH:MM"
	default:
		return help
	}
	if help == "" {
		return format
	}
	return help + " (" + format + ")"
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
