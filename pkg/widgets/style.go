package widgets

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Declaration is one property/value pair of a style.
type Declaration struct {
	Property string
	Value    string
}

// Style is an ordered list of sanitised declarations. Later declarations for
// the same property replace earlier ones.
type Style []Declaration

// Set replaces or appends property.
func (s Style) Set(property, value string) Style {
	for i := range s {
		if s[i].Property == property {
			s[i].Value = value
			return s
		}
	}
	return append(s, Declaration{Property: property, Value: value})
}

// Get returns the value for property.
func (s Style) Get(property string) (string, bool) {
	for _, d := range s {
		if d.Property == property {
			return d.Value, true
		}
	}
	return "", false
}

// Merge overlays other on s.
func (s Style) Merge(other Style) Style {
	out := append(Style(nil), s...)
	for _, d := range other {
		out = out.Set(d.Property, d.Value)
	}
	return out
}

// String renders the style as "prop: value; prop: value". Every value has
// passed validation before it reaches a Style.
func (s Style) String() string {
	parts := make([]string, 0, len(s))
	for _, d := range s {
		parts = append(parts, d.Property+": "+d.Value)
	}
	return strings.Join(parts, "; ")
}

type valueKind int

const (
	kindColor valueKind = iota
	kindLength
	kindBorder
	kindFontFamily
	kindFontWeight
	kindFontStyle
	kindAlign
	kindBorderStyle
)

// allowedProperties is the full set of properties a style override may set.
var allowedProperties = map[string]valueKind{
	"color":            kindColor,
	"background":       kindColor,
	"background-color": kindColor,
	"border":           kindBorder,
	"border-color":     kindColor,
	"border-width":     kindLength,
	"border-style":     kindBorderStyle,
	"border-radius":    kindLength,
	"font-family":      kindFontFamily,
	"font-size":        kindLength,
	"font-weight":      kindFontWeight,
	"font-style":       kindFontStyle,
	"text-align":       kindAlign,
	"padding":          kindLength,
}

var (
	hexColor    = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	rgbColor    = regexp.MustCompile(`^rgba?\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*(?:,\s*(?:0|1|0?\.\d+)\s*)?\)$`)
	lengthValue = regexp.MustCompile(`^(?:0|\d{1,4}(?:\.\d{1,3})?(?:px|pt|em|rem|%))$`)
	fontFamily  = regexp.MustCompile(`^[A-Za-z0-9 ,'\-]{1,80}$`)
	tokenRef    = regexp.MustCompile(`^@([a-z0-9][a-z0-9.\-]*)$`)
)

var namedColors = map[string]struct{}{
	"black": {}, "white": {}, "red": {}, "green": {}, "blue": {}, "gray": {},
	"grey": {}, "orange": {}, "yellow": {}, "purple": {}, "navy": {}, "teal": {},
	"maroon": {}, "silver": {}, "transparent": {}, "inherit": {},
}

var fontWeights = map[string]struct{}{
	"normal": {}, "bold": {}, "lighter": {}, "bolder": {}, "100": {}, "200": {},
	"300": {}, "400": {}, "500": {}, "600": {}, "700": {}, "800": {}, "900": {},
}

var borderStyles = map[string]struct{}{
	"none": {}, "solid": {}, "dashed": {}, "dotted": {}, "double": {},
}

// Sanitizer validates style values against the allow-lists. Values of the form
// @token are resolved from the theme first and the resolved value is
// validated like any other.
type Sanitizer struct {
	tokens map[string]string
}

// NewSanitizer returns a sanitizer resolving @token references from tokens.
func NewSanitizer(tokens map[string]string) Sanitizer {
	return Sanitizer{tokens: tokens}
}

// Declaration validates one property/value pair.
func (s Sanitizer) Declaration(property, value string) (Declaration, error) {
	property = strings.ToLower(strings.TrimSpace(property))
	value = strings.TrimSpace(value)
	kind, ok := allowedProperties[property]
	if !ok {
		return Declaration{}, fmt.Errorf("widgets: style property %q not allowed", property)
	}
	if m := tokenRef.FindStringSubmatch(value); m != nil {
		resolved, ok := s.tokens[m[1]]
		if !ok {
			return Declaration{}, fmt.Errorf("widgets: unknown theme token %q", m[1])
		}
		value = strings.TrimSpace(resolved)
	}
	if !validValue(kind, value) {
		return Declaration{}, fmt.Errorf("widgets: invalid value %q for %s", value, property)
	}
	return Declaration{Property: property, Value: value}, nil
}

// Override converts a field's styleOverride into a Style, returning the
// rejected entries alongside.
func (s Sanitizer) Override(o schema.StyleOverride) (Style, []error) {
	var (
		out  Style
		errs []error
	)
	add := func(property, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		decl, err := s.Declaration(property, value)
		if err != nil {
			errs = append(errs, err)
			return
		}
		out = out.Set(decl.Property, decl.Value)
	}
	add("font-family", o.FontFamily)
	add("font-size", o.FontSize)
	add("font-weight", o.FontWeight)
	add("color", o.Color)
	add("background", o.Background)
	add("border", o.Border)
	add("border-radius", o.BorderRadius)

	for _, chunk := range strings.Split(o.Custom, ";") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		property, value, found := strings.Cut(chunk, ":")
		if !found {
			errs = append(errs, fmt.Errorf("widgets: malformed style declaration %q", chunk))
			continue
		}
		add(property, value)
	}
	return out, errs
}

func validValue(kind valueKind, value string) bool {
	if value == "" || strings.ContainsAny(value, ";{}<>\\\"") {
		return false
	}
	switch kind {
	case kindColor:
		return validColor(value)
	case kindLength:
		return lengthValue.MatchString(value)
	case kindBorder:
		return validBorder(value)
	case kindFontFamily:
		return fontFamily.MatchString(value)
	case kindFontWeight:
		_, ok := fontWeights[value]
		return ok
	case kindFontStyle:
		return value == "normal" || value == "italic"
	case kindAlign:
		switch value {
		case "left", "right", "center", "start", "end", "justify":
			return true
		}
		return false
	case kindBorderStyle:
		_, ok := borderStyles[value]
		return ok
	}
	return false
}

func validColor(value string) bool {
	if hexColor.MatchString(value) || rgbColor.MatchString(value) {
		return true
	}
	_, ok := namedColors[strings.ToLower(value)]
	return ok
}

// validBorder accepts up to one width, one style and one colour in any order.
func validBorder(value string) bool {
	parts := strings.Fields(value)
	if len(parts) == 0 || len(parts) > 3 {
		return false
	}
	var width, style, color bool
	for _, part := range parts {
		switch {
		case !width && lengthValue.MatchString(part):
			width = true
		case !style && isBorderStyle(part):
			style = true
		case !color && validColor(part):
			color = true
		default:
			return false
		}
	}
	return true
}

func isBorderStyle(v string) bool {
	_, ok := borderStyles[v]
	return ok
}
