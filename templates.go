package iform

import (
	"io/fs"

	"github.com/goliatone/go-iform/pkg/preview"
	"github.com/goliatone/go-iform/pkg/schema"
)

// EmbeddedTemplates exposes the built-in preview templates so callers can
// copy or extend them without importing the preview package directly.
func EmbeddedTemplates() fs.FS {
	return preview.TemplatesFS()
}

// NewRegistry returns a caching registry over the .iform documents in dir.
func NewRegistry(dir string, opts ...schema.Option) *schema.Registry {
	return schema.NewRegistry(schema.NewFileStore(dir), opts...)
}
