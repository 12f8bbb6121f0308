package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported document versions. Anything else, newer ones included, is
// rejected rather than guessed at.
var SupportedVersions = []string{"1.0", "1.1", "2.0"}

// CurrentVersion is written by NewDefaultForm and the importer.
const CurrentVersion = "2.0"

// CheckFunc contributes extra semantic violations for a decoded definition.
// The validation engine registers one to reject unknown custom predicates.
type CheckFunc func(def *FormDefinition) []Violation

// Option customises Parse and Decode.
type Option func(*loaderConfig)

type loaderConfig struct {
	logger   *slog.Logger
	location string
	checks   []CheckFunc
}

// WithLogger routes normalisation notes to logger at info level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *loaderConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithLocation labels errors with the document origin.
func WithLocation(location string) Option {
	return func(cfg *loaderConfig) {
		cfg.location = location
	}
}

// WithCheck appends an extra semantic check.
func WithCheck(check CheckFunc) Option {
	return func(cfg *loaderConfig) {
		if check != nil {
			cfg.checks = append(cfg.checks, check)
		}
	}
}

// Result is a decoded definition together with the legacy rewrites that were
// applied to reach the canonical shape.
type Result struct {
	Definition *FormDefinition
	Notes      []Note
}

// Parse decodes and validates a JSON or YAML .iform payload. On failure it
// returns a *SchemaError and no definition.
func Parse(data []byte, opts ...Option) (*FormDefinition, error) {
	res, err := Decode(data, opts...)
	if err != nil {
		return nil, err
	}
	return res.Definition, nil
}

// LoadDocument parses a Document, labelling errors with its location.
func LoadDocument(doc Document, opts ...Option) (*FormDefinition, error) {
	opts = append([]Option{WithLocation(doc.Location())}, opts...)
	return Parse(doc.Raw(), opts...)
}

// Decode runs the full pipeline: syntax, legacy normalisation, structural
// check, typed decode and semantic checks.
func Decode(data []byte, opts ...Option) (Result, error) {
	cfg := loaderConfig{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptyDocument, cfg.location)
	}

	raw, err := parseRaw(data)
	if err != nil {
		vs := &violations{}
		vs.add("", "%v", err)
		return Result{}, vs.err(cfg.location)
	}

	notes := normaliseDocument(raw)
	for _, note := range notes {
		cfg.logger.Info("schema: normalised legacy shape", "location", cfg.location, "path", note.Path, "note", note.Message)
	}

	canonical, err := json.Marshal(raw)
	if err != nil {
		return Result{}, fmt.Errorf("schema: re-encode document: %w", err)
	}

	vs := &violations{}
	if err := documentStructure.check(canonical, vs); err != nil {
		return Result{}, err
	}
	if len(vs.list) > 0 {
		return Result{}, vs.err(cfg.location)
	}

	var def FormDefinition
	if err := json.Unmarshal(canonical, &def); err != nil {
		vs.add("", "decode: %v", err)
		return Result{}, vs.err(cfg.location)
	}

	checkDefinition(&def, vs)
	for _, check := range cfg.checks {
		for _, v := range check(&def) {
			vs.add(v.Path, "%s", v.Reason)
		}
	}
	if err := vs.err(cfg.location); err != nil {
		return Result{}, err
	}

	return Result{Definition: &def, Notes: notes}, nil
}

// parseRaw accepts JSON first and falls back to YAML, producing a generic map
// with string keys.
func parseRaw(data []byte) (map[string]any, error) {
	var doc map[string]any
	jsonErr := json.Unmarshal(data, &doc)
	if jsonErr == nil {
		if doc == nil {
			return nil, fmt.Errorf("document root must be an object")
		}
		return doc, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return nil, fmt.Errorf("invalid JSON: %v", jsonErr)
	}

	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid JSON or YAML: %v", err)
	}
	root, ok := yamlToJSON(node).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be an object")
	}
	return root, nil
}

// yamlToJSON converts YAML-decoded values into the shapes encoding/json
// produces so both inputs follow one code path.
func yamlToJSON(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = yamlToJSON(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprint(k)] = yamlToJSON(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = yamlToJSON(v)
		}
		return out
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint64:
		return float64(typed)
	default:
		return value
	}
}

// Check runs the semantic checks on an already typed definition. It is used for
// definitions built in memory, such as those produced by the live editor.
func Check(def *FormDefinition, opts ...Option) error {
	cfg := loaderConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	vs := &violations{}
	if def == nil {
		vs.add("", "definition is nil")
		return vs.err(cfg.location)
	}
	checkEnums(def, vs)
	checkDefinition(def, vs)
	for _, check := range cfg.checks {
		for _, v := range check(def) {
			vs.add(v.Path, "%s", v.Reason)
		}
	}
	return vs.err(cfg.location)
}

// SupportedVersion reports whether the loader understands version.
func SupportedVersion(version string) bool {
	for _, v := range SupportedVersions {
		if v == strings.TrimSpace(version) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
