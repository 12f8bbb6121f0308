// Package httpapi serves stored .iform documents over HTTP: listing,
// canonical JSON, an HTML preview, server-side validation of submitted
// values and a check for unsaved documents.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/preview"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/validation"
	"github.com/goliatone/go-iform/pkg/visibility"
	"github.com/goliatone/go-iform/pkg/visibility/expr"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Option customises a Server.
type Option func(*Server)

// WithPreview replaces the default preview renderer.
func WithPreview(r *preview.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.preview = r
		}
	}
}

// WithBridge enables unique checks during validation.
func WithBridge(b bridge.DataBridge) Option {
	return func(s *Server) {
		s.bridge = b
	}
}

// WithLanguage sets the language used for messages when a request does not
// ask for one.
func WithLanguage(lang string) Option {
	return func(s *Server) {
		s.lang = lang
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server exposes a form registry over HTTP.
type Server struct {
	registry *schema.Registry
	preview  *preview.Renderer
	bridge   bridge.DataBridge
	eval     visibility.Evaluator
	lang     string
	logger   *slog.Logger
}

// New builds a server over registry.
func New(registry *schema.Registry, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, errors.New("httpapi: registry is required")
	}
	s := &Server{registry: registry, eval: expr.New(), logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.preview == nil {
		r, err := preview.New(preview.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.preview = r
	}
	return s, nil
}

// Handler returns a router with every route mounted at the root.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the form routes on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.listForms)
		r.Post("/check", s.checkDocument)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getForm)
			r.Get("/preview", s.previewForm)
			r.Post("/validate", s.validateForm)
		})
	})
}

type formSummary struct {
	ID      string `json:"id"`
	FormID  string `json:"form_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	names, err := s.registry.Names(r.Context())
	if err != nil {
		s.logger.Error("httpapi: list forms", "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, "INTERNAL", "could not list forms")
		return
	}
	lang := s.language(r)
	out := make([]formSummary, 0, len(names))
	for _, name := range names {
		def, err := s.registry.Get(r.Context(), name)
		if err != nil {
			out = append(out, formSummary{ID: name, Error: err.Error()})
			continue
		}
		out = append(out, formSummary{ID: name, FormID: def.FormID, Name: def.Name(lang), Version: def.Version})
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"forms": out})
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*schema.FormDefinition, bool) {
	name := chi.URLParam(r, "id")
	def, err := s.registry.Get(r.Context(), name)
	if err != nil {
		writeFormError(w, s.logger, name, err)
		return nil, false
	}
	return schema.MergeWithDefaults(def), true
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	def, ok := s.load(w, r)
	if !ok {
		return
	}
	data, err := schema.Marshal(def)
	if err != nil {
		s.logger.Error("httpapi: marshal form", "form", def.FormID, "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, "INTERNAL", "could not encode form")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// previewForm accepts ?lang= and ?width= to override the document's own
// language and the default viewport.
func (s *Server) previewForm(w http.ResponseWriter, r *http.Request) {
	def, ok := s.load(w, r)
	if !ok {
		return
	}
	var opts []preview.Option
	if lang := r.URL.Query().Get("lang"); lang != "" {
		opts = append(opts, preview.WithLanguage(lang))
	}
	if raw := r.URL.Query().Get("width"); raw != "" {
		width, err := strconv.ParseFloat(raw, 64)
		if err != nil || width <= 0 {
			writeError(w, s.logger, http.StatusBadRequest, "INVALID_WIDTH", "width must be a positive number")
			return
		}
		opts = append(opts, preview.WithViewport(width))
	}
	renderer := s.preview.With(opts...)
	out, err := renderer.Render(r.Context(), def)
	if err != nil {
		s.logger.Error("httpapi: render preview", "form", def.FormID, "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, "INTERNAL", "could not render preview")
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// ValidateRequest is the body of POST /forms/{id}/validate. Values are keyed
// by field id.
type ValidateRequest struct {
	Values   map[string]any `json:"values"`
	RecordID any            `json:"record_id,omitempty"`
	Extras   map[string]any `json:"extras,omitempty"`
}

// validateForm answers 200 with a valid result and 422 with the failures.
// Hidden fields are not validated.
// checkDocument reports every problem in an unsaved document posted by a
// designer, without touching the registry.
func (s *Server) checkDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", "could not read body: "+err.Error())
		return
	}
	res := validation.CheckDocument(data, schema.WithLogger(s.logger))
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, s.logger, status, res)
}

func (s *Server) validateForm(w http.ResponseWriter, r *http.Request) {
	def, ok := s.load(w, r)
	if !ok {
		return
	}
	var req ValidateRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return
	}

	outcome, err := visibility.Resolve(def, s.eval, visibility.Context{Values: req.Values, Extras: req.Extras})
	if err != nil {
		s.logger.Warn("httpapi: visibility conditions failed", "form", def.FormID, "error", err)
	}
	var fields []schema.Field
	for _, section := range def.Sections {
		if !outcome.SectionVisible(section.ID) {
			continue
		}
		for _, field := range section.Fields {
			if outcome.FieldVisible(field.ID) {
				fields = append(fields, field)
			}
		}
	}

	validator := validation.New(
		validation.WithLanguage(s.language(r)),
		validation.WithBridge(s.bridge),
		validation.WithLogger(s.logger),
	)
	res, err := validateAll(r.Context(), validator, fields, req.Values, validation.Scope{Table: def.TargetTable, RecordID: req.RecordID})
	if err != nil {
		writeError(w, s.logger, http.StatusServiceUnavailable, "CANCELLED", err.Error())
		return
	}
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, s.logger, status, res)
}

// validateAll blocks until the validator reports or ctx ends.
func validateAll(ctx context.Context, v *validation.Validator, fields []schema.Field, values map[string]any, scope validation.Scope) (validation.Result, error) {
	done := make(chan validation.Result, 1)
	v.ValidateAll(ctx, fields, values, scope, func(res validation.Result) { done <- res })
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return validation.Result{}, ctx.Err()
	}
}

func (s *Server) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	if s.lang != "" {
		return s.lang
	}
	return schema.DefaultLanguage
}
