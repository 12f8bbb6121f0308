package preview

import (
	"embed"
	"io/fs"
	"strings"
)

//go:embed templates/*.html templates/*.css
var embeddedTemplates embed.FS

const (
	// FormTemplate is the entry template rendered for a form.
	FormTemplate = "form.html"
	// StylesheetName is the base stylesheet inlined into every preview.
	StylesheetName = "preview.css"
)

// TemplatesFS exposes the built-in template bundle rooted at the template
// names, so callers can copy it as a starting point for their own.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

func defaultStylesheet() string {
	data, err := fs.ReadFile(embeddedTemplates, "templates/"+StylesheetName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
