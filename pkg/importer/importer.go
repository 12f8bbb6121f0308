// Package importer builds .iform definitions from the request body schema of
// an OpenAPI 3 operation.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Extension keys read from the document.
const (
	ExtTable   = "x-iform-table"
	ExtLabelAr = "x-iform-label-ar"
	ExtWidget  = "x-iform-widget"
	ExtOrder   = "x-iform-order"
)

// textAreaThreshold is the maxLength above which strings become text areas.
const textAreaThreshold = 255

var (
	ErrNoOperation   = errors.New("importer: operation not found")
	ErrAmbiguous     = errors.New("importer: several operations carry a request body")
	ErrNoRequestBody = errors.New("importer: operation has no object request body")
)

type Option func(*Importer)

// WithColumns sets the grid column count of the generated section.
func WithColumns(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.columns = n
		}
	}
}

// WithDirection sets the generated form direction.
func WithDirection(dir schema.Direction) Option {
	return func(im *Importer) {
		if dir != "" {
			im.direction = dir
		}
	}
}

// WithValidation validates the whole document before mapping.
func WithValidation(on bool) Option {
	return func(im *Importer) {
		im.validate = on
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// Importer maps OpenAPI request schemas onto form definitions.
type Importer struct {
	columns   int
	direction schema.Direction
	validate  bool
	logger    *slog.Logger
}

func New(opts ...Option) *Importer {
	im := &Importer{
		columns:   schema.DefaultColumns,
		direction: schema.DefaultDirection,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(im)
		}
	}
	return im
}

// Operation describes one importable operation.
type Operation struct {
	ID      string
	Method  string
	Path    string
	Summary string
}

// Operations lists the operations with a request body, sorted by id.
func (im *Importer) Operations(ctx context.Context, raw []byte) ([]Operation, error) {
	doc, err := im.load(ctx, raw)
	if err != nil {
		return nil, err
	}
	var out []Operation
	for _, c := range candidates(doc) {
		out = append(out, Operation{ID: c.id, Method: c.method, Path: c.path, Summary: c.op.Summary})
	}
	return out, nil
}

// Import builds a definition from the operation named operationID. An empty
// id selects the only operation with a request body.
func (im *Importer) Import(ctx context.Context, raw []byte, operationID string) (*schema.FormDefinition, error) {
	doc, err := im.load(ctx, raw)
	if err != nil {
		return nil, err
	}
	target, err := pick(candidates(doc), operationID)
	if err != nil {
		return nil, err
	}

	body := requestSchema(target.op.RequestBody)
	if body == nil || len(body.Properties) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRequestBody, target.id)
	}

	def := &schema.FormDefinition{
		Version:     schema.CurrentVersion,
		FormID:      identifier(target.id),
		NameEn:      target.op.Summary,
		TargetTable: stringExt(target.op.Extensions, ExtTable),
		Settings: schema.Settings{
			Direction:  im.direction,
			LayoutMode: schema.LayoutGrid,
			Columns:    im.columns,
		},
	}
	if def.NameEn == "" {
		def.NameEn = humanize(def.FormID)
	}
	if def.Settings.Direction == schema.DirectionLTR {
		def.Settings.Language = "en"
	}

	section := schema.Section{ID: "section_main", TitleEn: def.NameEn, Collapsible: true, Visible: true}
	row, col := 0, 0
	for _, name := range propertyOrder(body) {
		field, ok := im.field(name, body.Properties[name].Value, contains(body.Required, name))
		if !ok {
			continue
		}
		if field.WidgetType == schema.WidgetTextArea {
			if col > 0 {
				row, col = row+1, 0
			}
			field.Layout = schema.Layout{Row: row, Col: 0, Colspan: im.columns, Rowspan: 1}
			section.Fields = append(section.Fields, field)
			row++
			continue
		}
		field.Layout = schema.Layout{Row: row, Col: col, Colspan: 1, Rowspan: 1}
		section.Fields = append(section.Fields, field)
		col++
		if col == im.columns {
			row, col = row+1, 0
		}
	}
	def.Sections = []schema.Section{section}
	def.Actions = []schema.Action{
		{ID: "save", Type: schema.ActionPrimary, LabelAr: "حفظ", LabelEn: "Save", Action: schema.ActionSave, Position: schema.PositionFooterLeft, Shortcut: "Ctrl+S", Visible: true},
		{ID: "cancel", Type: schema.ActionSecondary, LabelAr: "إلغاء", LabelEn: "Cancel", Action: schema.ActionCancel, Position: schema.PositionFooterLeft, Shortcut: "Escape", Visible: true},
	}
	schema.MergeWithDefaults(def)

	if err := schema.Check(def); err != nil {
		return nil, fmt.Errorf("importer: %s: %w", target.id, err)
	}
	im.logger.Debug("importer: operation mapped", "operation", target.id, "fields", len(section.Fields))
	return def, nil
}

func (im *Importer) load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if len(raw) == 0 {
		return nil, errors.New("importer: document payload is empty")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("importer: load document: %w", err)
	}
	if im.validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("importer: validate: %w", err)
		}
	}
	return doc, nil
}

type candidate struct {
	id     string
	method string
	path   string
	op     *openapi3.Operation
}

func candidates(doc *openapi3.T) []candidate {
	if doc.Paths == nil {
		return nil
	}
	var out []candidate
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil || op.RequestBody == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, candidate{id: id, method: strings.ToUpper(method), path: path, op: op})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func pick(list []candidate, id string) (candidate, error) {
	if id == "" {
		switch len(list) {
		case 0:
			return candidate{}, ErrNoOperation
		case 1:
			return list[0], nil
		default:
			ids := make([]string, 0, len(list))
			for _, c := range list {
				ids = append(ids, c.id)
			}
			return candidate{}, fmt.Errorf("%w: %s", ErrAmbiguous, strings.Join(ids, ", "))
		}
	}
	for _, c := range list {
		if c.id == id {
			return c, nil
		}
	}
	return candidate{}, fmt.Errorf("%w: %s", ErrNoOperation, id)
}

// requestSchema returns the first form-like media type schema, with allOf
// members folded in.
func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	var ref *openapi3.SchemaRef
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			ref = mt.Schema
			break
		}
	}
	if ref == nil {
		keys := make([]string, 0, len(content))
		for k := range content {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if mt := content[k]; mt != nil && mt.Schema != nil {
				ref = mt.Schema
				break
			}
		}
	}
	if ref == nil || ref.Value == nil {
		return nil
	}
	return flatten(ref.Value)
}

func flatten(s *openapi3.Schema) *openapi3.Schema {
	if len(s.AllOf) == 0 {
		return s
	}
	out := &openapi3.Schema{Properties: openapi3.Schemas{}}
	for name, prop := range s.Properties {
		out.Properties[name] = prop
	}
	out.Required = append(out.Required, s.Required...)
	for _, member := range s.AllOf {
		if member == nil || member.Value == nil {
			continue
		}
		m := flatten(member.Value)
		for name, prop := range m.Properties {
			if _, ok := out.Properties[name]; !ok {
				out.Properties[name] = prop
			}
		}
		out.Required = append(out.Required, m.Required...)
	}
	return out
}

// propertyOrder sorts by x-iform-order, then required first, then name.
func propertyOrder(s *openapi3.Schema) []string {
	names := make([]string, 0, len(s.Properties))
	for name, prop := range s.Properties {
		if prop == nil || prop.Value == nil {
			continue
		}
		names = append(names, name)
	}
	order := func(name string) (int, bool) {
		n, ok := schema.Number(s.Properties[name].Value.Extensions[ExtOrder])
		return int(n), ok
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, iok := order(names[i])
		oj, jok := order(names[j])
		if iok != jok {
			return iok
		}
		if iok && oi != oj {
			return oi < oj
		}
		ri, rj := contains(s.Required, names[i]), contains(s.Required, names[j])
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})
	return names
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func stringExt(ext map[string]any, key string) string {
	if v, ok := ext[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// humanize turns a snake_case id into a title-cased label. Casers keep state,
// so each call gets its own.
func humanize(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

// identifier turns an operation id into a snake_case form id.
func identifier(raw string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			prevLower = false
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevLower = true
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		}
	}
	return strings.Trim(b.String(), "_")
}
