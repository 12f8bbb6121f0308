// Package iform is the top-level entry point for working with .iform form
// documents. It re-exports the common types and wraps the loader, the HTML
// preview and the OpenAPI importer for callers that want one import.
package iform

import (
	"context"
	"net/http"

	"github.com/goliatone/go-iform/pkg/importer"
	"github.com/goliatone/go-iform/pkg/preview"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/widgets"
)

// FormDefinition is a parsed .iform document.
type FormDefinition = schema.FormDefinition

// SchemaError rejects a document with every violation found.
type SchemaError = schema.SchemaError

// PreviewOption configures GenerateHTML.
type PreviewOption = preview.Option

// Load parses and validates a JSON or YAML payload and fills the documented
// defaults.
func Load(data []byte, opts ...schema.Option) (*FormDefinition, error) {
	def, err := schema.Parse(data, opts...)
	if err != nil {
		return nil, err
	}
	return schema.MergeWithDefaults(def), nil
}

// GenerateHTML loads the payload and renders it as a static preview page. It
// is the simplest entry point for callers that just want HTML output.
func GenerateHTML(ctx context.Context, data []byte, options ...PreviewOption) ([]byte, error) {
	def, err := Load(data)
	if err != nil {
		return nil, err
	}
	r, err := preview.New(options...)
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, def)
}

// WithThemeVariant selects a variant of the built-in theme, e.g. "dark".
func WithThemeVariant(variant string) PreviewOption {
	return preview.WithTheme(widgets.ThemeFromManifest(widgets.DefaultManifest(), variant))
}

// ImportOpenAPI builds a form from the request body of operationID in the
// OpenAPI document at location, a file path or an http(s) URL.
func ImportOpenAPI(ctx context.Context, location, operationID string, options ...importer.Option) (*FormDefinition, error) {
	raw, err := importer.Fetch(ctx, location, nil, &http.Client{Timeout: importer.DefaultFetchTimeout})
	if err != nil {
		return nil, err
	}
	return importer.New(options...).Import(ctx, raw, operationID)
}
