package widgets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Theme is the resolved token set a factory styles controls with.
type Theme struct {
	Name    string
	Variant string
	Tokens  map[string]string
}

// Token names read by the factory and the preview.
const (
	TokenFontFamily       = "font.family"
	TokenFontSize         = "font.size"
	TokenTextColor        = "text.color"
	TokenInputBackground  = "input.background"
	TokenInputBorder      = "input.border"
	TokenInputRadius      = "input.radius"
	TokenReadonlyBack     = "input.readonly.background"
	TokenRequiredColor    = "required.color"
	TokenErrorColor       = "error.color"
	TokenSectionBorder    = "section.border"
	TokenButtonPrimary    = "button.primary"
	TokenButtonSecondary  = "button.secondary"
	TokenButtonDanger     = "button.danger"
	TokenButtonSuccess    = "button.success"
	TokenButtonForeground = "button.foreground"
)

// DefaultManifest is the built-in theme with a dark variant.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    "iform",
		Version: "1.0.0",
		Tokens: map[string]string{
			TokenFontFamily:       "Tahoma, Arial, sans-serif",
			TokenFontSize:         "13px",
			TokenTextColor:        "#1f2933",
			TokenInputBackground:  "#ffffff",
			TokenInputBorder:      "1px solid #c5ccd3",
			TokenInputRadius:      "4px",
			TokenReadonlyBack:     "#f1f3f5",
			TokenRequiredColor:    "#d64545",
			TokenErrorColor:       "#d64545",
			TokenSectionBorder:    "1px solid #dde2e6",
			TokenButtonPrimary:    "#2563eb",
			TokenButtonSecondary:  "#6b7280",
			TokenButtonDanger:     "#dc2626",
			TokenButtonSuccess:    "#16a34a",
			TokenButtonForeground: "#ffffff",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					TokenTextColor:       "#e5e7eb",
					TokenInputBackground: "#1f2937",
					TokenInputBorder:     "1px solid #374151",
					TokenReadonlyBack:    "#111827",
					TokenSectionBorder:   "1px solid #374151",
				},
			},
		},
	}
}

// ThemeFromSelection flattens a go-theme selection into a Theme, applying the
// selected variant's tokens over the manifest's.
func ThemeFromSelection(sel *theme.Selection) Theme {
	if sel == nil || sel.Manifest == nil {
		return ThemeFromManifest(DefaultManifest(), "")
	}
	out := ThemeFromManifest(sel.Manifest, sel.Variant)
	if sel.Theme != "" {
		out.Name = sel.Theme
	}
	return out
}

// ThemeFromManifest resolves variant tokens over the base manifest tokens.
func ThemeFromManifest(m *theme.Manifest, variant string) Theme {
	if m == nil {
		m = DefaultManifest()
	}
	tokens := make(map[string]string, len(m.Tokens))
	for k, v := range m.Tokens {
		tokens[k] = v
	}
	if v, ok := m.Variants[variant]; ok {
		for k, val := range v.Tokens {
			tokens[k] = val
		}
	}
	return Theme{Name: m.Name, Variant: variant, Tokens: tokens}
}

// RendererConfig exposes the theme in the go-theme renderer shape, deriving
// CSS custom properties from the tokens.
func (t Theme) RendererConfig() *theme.RendererConfig {
	return &theme.RendererConfig{
		Theme:   t.Name,
		Variant: t.Variant,
		Tokens:  copyTokens(t.Tokens),
		CSSVars: t.CSSVars(),
	}
}

// CSSVars maps token names to --custom-property names, keeping only values
// that pass the style allow-list.
func (t Theme) CSSVars() map[string]string {
	out := make(map[string]string, len(t.Tokens))
	for name, value := range t.Tokens {
		if !tokenValueSafe(value) {
			continue
		}
		out["--"+strings.ReplaceAll(name, ".", "-")] = value
	}
	return out
}

// CSSVarsStyle renders CSSVars as a :root block with sorted keys.
func (t Theme) CSSVarsStyle() string {
	vars := t.CSSVars()
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}

func tokenValueSafe(value string) bool {
	for _, kind := range []valueKind{kindColor, kindLength, kindBorder, kindFontFamily} {
		if validValue(kind, value) {
			return true
		}
	}
	return false
}

// BaseStyle returns the theme defaults for a widget kind.
func (t Theme) BaseStyle(kind schema.WidgetType, readonly bool) Style {
	s := NewSanitizer(t.Tokens)
	var out Style
	set := func(property, token string) {
		value, ok := t.Tokens[token]
		if !ok {
			return
		}
		if decl, err := s.Declaration(property, value); err == nil {
			out = out.Set(decl.Property, decl.Value)
		}
	}
	set("font-family", TokenFontFamily)
	set("font-size", TokenFontSize)
	set("color", TokenTextColor)

	switch kind {
	case schema.WidgetButton:
		set("background", TokenButtonSecondary)
		set("color", TokenButtonForeground)
		set("border-radius", TokenInputRadius)
	case schema.WidgetLabel, schema.WidgetSeparator, schema.WidgetImage, schema.WidgetProgress:
	case schema.WidgetGroupBox:
		set("border", TokenSectionBorder)
	default:
		set("background", TokenInputBackground)
		set("border", TokenInputBorder)
		set("border-radius", TokenInputRadius)
		if readonly {
			set("background", TokenReadonlyBack)
		}
	}
	return out
}

// ActionStyle returns the themed style for an action button type.
func (t Theme) ActionStyle(kind schema.ActionType) Style {
	token := TokenButtonSecondary
	switch kind {
	case schema.ActionPrimary:
		token = TokenButtonPrimary
	case schema.ActionDanger:
		token = TokenButtonDanger
	case schema.ActionSuccess:
		token = TokenButtonSuccess
	}
	style := t.BaseStyle(schema.WidgetButton, false)
	if value, ok := t.Tokens[token]; ok && validColor(value) {
		style = style.Set("background", value)
	}
	return style
}

func copyTokens(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ManifestSelector implements go-theme's ThemeSelector over registered
// manifests, falling back to defaults when name or variant are blank.
type ManifestSelector struct {
	mu             sync.RWMutex
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

// NewManifestSelector registers manifests; the first becomes the default.
func NewManifestSelector(manifests ...*theme.Manifest) *ManifestSelector {
	sel := &ManifestSelector{manifests: make(map[string]*theme.Manifest)}
	for _, m := range manifests {
		sel.Register(m)
	}
	return sel
}

// Register adds or replaces a manifest.
func (s *ManifestSelector) Register(m *theme.Manifest) {
	if m == nil || m.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defaultTheme == "" {
		s.defaultTheme = m.Name
	}
	s.manifests[m.Name] = m
}

// Select implements theme.ThemeSelector.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name == "" {
		name = s.defaultTheme
	}
	if variant == "" {
		variant = s.defaultVariant
	}
	m, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("widgets: unknown theme %q", name)
	}
	if variant != "" {
		if _, ok := m.Variants[variant]; !ok {
			return nil, fmt.Errorf("widgets: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: m}, nil
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)
