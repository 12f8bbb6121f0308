// Package preview renders a form definition as a standalone HTML page that
// reproduces the computed layout with absolutely positioned elements.
package preview

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-iform/pkg/layout"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/widgets"
)

type Option func(*config)

type config struct {
	templateFS  fs.FS
	templateDir string
	theme       *widgets.Theme
	language    string
	width       float64
	overrides   layout.Overrides
	layout      *layout.Engine
	logger      *slog.Logger
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk ahead of the
// embedded bundle.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		if _, err := os.Stat(path); err == nil {
			cfg.templateDir = path
		}
	}
}

// WithTheme sets the token set used for CSS variables and control styles.
func WithTheme(t widgets.Theme) Option {
	return func(cfg *config) {
		cfg.theme = &t
	}
}

// WithLanguage overrides the form's own display language.
func WithLanguage(lang string) Option {
	return func(cfg *config) {
		cfg.language = lang
	}
}

// WithViewport sets the width the layout is computed for.
func WithViewport(width float64) Option {
	return func(cfg *config) {
		cfg.width = width
	}
}

// WithOverrides applies runtime visibility and collapse state.
func WithOverrides(ov layout.Overrides) Option {
	return func(cfg *config) {
		cfg.overrides = ov
	}
}

// WithLayoutEngine replaces the default layout engine.
func WithLayoutEngine(e *layout.Engine) Option {
	return func(cfg *config) {
		if e != nil {
			cfg.layout = e
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Renderer turns definitions into HTML pages.
type Renderer struct {
	templates *engine
	cfg       config
	theme     widgets.Theme
}

// New constructs a preview renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		layout:     layout.New(),
		logger:     slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	eng, err := newEngine(cfg.templateDir, cfg.templateFS)
	if err != nil {
		return nil, err
	}

	th := widgets.ThemeFromManifest(widgets.DefaultManifest(), "")
	if cfg.theme != nil {
		th = *cfg.theme
	}
	return &Renderer{templates: eng, cfg: cfg, theme: th}, nil
}

// With returns a renderer sharing r's templates with options applied over
// r's settings. Template options are ignored.
func (r *Renderer) With(options ...Option) *Renderer {
	cfg := r.cfg
	cfg.theme = nil
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	th := r.theme
	if cfg.theme != nil {
		th = *cfg.theme
	}
	cfg.templateDir, cfg.templateFS = r.cfg.templateDir, r.cfg.templateFS
	return &Renderer{templates: r.templates, cfg: cfg, theme: th}
}

func (r *Renderer) Name() string {
	return "preview"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render lays def out and renders the page. def is not modified.
func (r *Renderer) Render(_ context.Context, def *schema.FormDefinition) ([]byte, error) {
	if def == nil {
		return nil, fmt.Errorf("preview: definition is nil")
	}
	res, err := r.cfg.layout.Arrange(def, layout.Viewport{Width: r.cfg.width}, r.cfg.overrides)
	if err != nil {
		return nil, fmt.Errorf("preview: arrange %s: %w", def.FormID, err)
	}

	lang := r.cfg.language
	if lang == "" {
		lang = def.Settings.Language
	}
	if lang == "" {
		lang = schema.DefaultLanguage
	}

	factory := widgets.NewFactory(nil,
		widgets.WithTheme(r.theme),
		widgets.WithLanguage(lang),
		widgets.WithLogger(r.cfg.logger),
	)
	page, err := buildPage(def, res, factory, r.theme, lang)
	if err != nil {
		return nil, err
	}

	out, err := r.templates.render(FormTemplate, pongo2.Context{
		"lang":      lang,
		"dir":       string(def.Direction()),
		"title":     def.Name(lang),
		"form_id":   def.FormID,
		"mode":      string(res.Mode),
		"frame":     fmt.Sprintf("width: %s; height: %s", px(res.Size.W), px(res.Size.H)),
		"base_css":  defaultStylesheet(),
		"theme_css": r.theme.CSSVarsStyle(),
		"sections":  page.Sections,
		"actions":   page.Actions,
	})
	if err != nil {
		return nil, err
	}
	r.cfg.logger.Debug("preview rendered", "form", def.FormID, "sections", len(page.Sections), "bytes", len(out))
	return out, nil
}
