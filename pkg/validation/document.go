package validation

import (
	"errors"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-iform/pkg/schema"
)

// DocumentIssue is one problem found in a .iform document, with the id of the
// field it sits under when there is one.
type DocumentIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// DocumentResult is the outcome of CheckDocument, shaped for designer
// previews.
type DocumentResult struct {
	Valid  bool            `json:"valid"`
	Issues []DocumentIssue `json:"issues,omitempty"`
	Notes  []string        `json:"notes,omitempty"`
}

// CheckDocument decodes data and reports every violation instead of failing
// on the first. Legacy rewrites are returned as notes.
func CheckDocument(data []byte, opts ...schema.Option) DocumentResult {
	res, err := schema.Decode(data, opts...)
	if err == nil {
		out := DocumentResult{Valid: true}
		for _, note := range res.Notes {
			out.Notes = append(out.Notes, note.String())
		}
		return out
	}

	var schemaErr *schema.SchemaError
	if !errors.As(err, &schemaErr) {
		return DocumentResult{Issues: []DocumentIssue{{Message: strings.TrimSpace(err.Error())}}}
	}

	var raw any
	_ = yaml.Unmarshal(data, &raw)

	out := DocumentResult{}
	for _, v := range schemaErr.Violations {
		out.Issues = append(out.Issues, DocumentIssue{
			Path:    v.Path,
			Field:   fieldAt(raw, v.Path),
			Message: v.Reason,
		})
	}
	if len(out.Issues) == 0 {
		out.Issues = []DocumentIssue{{Message: schemaErr.Error()}}
	}
	return out
}

// fieldAt walks a path such as sections[0].fields[2].validation[1] through the
// raw document and returns the id of the innermost field it passes.
func fieldAt(doc any, path string) string {
	if doc == nil || !strings.Contains(path, "fields[") {
		return ""
	}
	current := doc
	field := ""
	inFields := false
	for _, segment := range pathSegments(path) {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return field
			}
			inFields = segment == "fields"
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return field
			}
			current = node[idx]
			if inFields {
				if m, ok := current.(map[string]any); ok {
					if id, ok := m["id"].(string); ok {
						field = id
					}
				}
			}
			inFields = false
		default:
			return field
		}
	}
	return field
}

// pathSegments splits sections[0].fields[2] into sections, 0, fields, 2.
func pathSegments(path string) []string {
	replacer := strings.NewReplacer("[", ".", "]", "")
	parts := strings.Split(replacer.Replace(path), ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
