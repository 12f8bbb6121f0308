package renderer

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/eventloop"
	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/validation"
	"github.com/goliatone/go-iform/pkg/visibility"
	"github.com/goliatone/go-iform/pkg/widgets"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Surface is the container controls are drawn in. Clear tears every control
// down before a rebuild. Reveal scrolls a control into view.
type Surface interface {
	Place(controlID string, rect layout.Rect)
	Reveal(controlID string)
	Clear()
}

// EndpointLoader fetches options for api combo sources.
type EndpointLoader func(ctx context.Context, endpoint string) ([]bridge.Item, error)

// Option customises a Renderer.
type Option func(*Renderer)

// WithBridge sets the data bridge used for records, combos and unique checks.
func WithBridge(b bridge.DataBridge) Option {
	return func(r *Renderer) {
		r.bridge = b
	}
}

// WithExecutor sets where bridge calls run. Defaults to inline.
func WithExecutor(exec eventloop.Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithDispatcher sets the UI loop completions are posted to. Without one
// completions run on the executor's goroutine.
func WithDispatcher(d eventloop.Dispatcher) Option {
	return func(r *Renderer) {
		r.dispatch = d
	}
}

// WithFactory replaces the widget factory built from the toolkit.
func WithFactory(f *widgets.Factory) Option {
	return func(r *Renderer) {
		r.factory = f
	}
}

// WithFactoryOptions adds options to the factory built on each load.
func WithFactoryOptions(opts ...widgets.FactoryOption) Option {
	return func(r *Renderer) {
		r.factoryOpts = append(r.factoryOpts, opts...)
	}
}

// WithValidator replaces the validator built on each load.
func WithValidator(v *validation.Validator) Option {
	return func(r *Renderer) {
		r.validator = v
	}
}

// WithValidationOptions adds options to the validator built on each load.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(r *Renderer) {
		r.validationOpts = append(r.validationOpts, opts...)
	}
}

// WithSchemaOptions adds loader options used by LoadForm and Mutate.
func WithSchemaOptions(opts ...schema.Option) Option {
	return func(r *Renderer) {
		r.schemaOpts = append(r.schemaOpts, opts...)
	}
}

// WithEngine sets the layout engine.
func WithEngine(e *layout.Engine) Option {
	return func(r *Renderer) {
		if e != nil {
			r.engine = e
		}
	}
}

// WithViewport sets the initial viewport.
func WithViewport(vp layout.Viewport) Option {
	return func(r *Renderer) {
		r.viewport = vp
	}
}

// WithSurface sets the drawing container. A toolkit that implements Surface
// is used when none is given.
func WithSurface(s Surface) Option {
	return func(r *Renderer) {
		r.surface = s
	}
}

// WithEvaluator sets the condition evaluator.
func WithEvaluator(e visibility.Evaluator) Option {
	return func(r *Renderer) {
		if e != nil {
			r.eval = e
		}
	}
}

// WithExtras exposes host values to conditions under the extras. prefix.
func WithExtras(extras map[string]any) Option {
	return func(r *Renderer) {
		r.extras = extras
	}
}

// WithConfirmer sets the prompt used before discarding changes and for
// actions that carry a confirmation message.
func WithConfirmer(c Confirmer) Option {
	return func(r *Renderer) {
		r.confirmer = c
	}
}

// WithHandler registers an event or custom action handler under id.
func WithHandler(id string, h Handler) Option {
	return func(r *Renderer) {
		if id == "" || h == nil {
			return
		}
		r.handlers[id] = h
	}
}

// WithNavigator handles navigate actions.
func WithNavigator(fn func(ctx context.Context, target string) error) Option {
	return func(r *Renderer) {
		r.navigate = fn
	}
}

// WithEndpointLoader loads api combo sources.
func WithEndpointLoader(fn EndpointLoader) Option {
	return func(r *Renderer) {
		r.endpoints = fn
	}
}

// WithLanguage overrides the form's language setting.
func WithLanguage(lang string) Option {
	return func(r *Renderer) {
		r.lang = lang
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
