package widgets_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/widgets"
	"github.com/goliatone/go-iform/pkg/widgets/headless"
)

func TestFactory_BuildsEveryWidgetKind(t *testing.T) {
	factory := widgets.NewFactory(headless.New())
	for _, kind := range schema.WidgetTypes {
		field := schema.NewField(kind)
		control, err := factory.Build(field, schema.DirectionRTL)
		if err != nil {
			t.Fatalf("build %s: %v", kind, err)
		}
		if control.Kind() != kind || control.ID() != field.ID {
			t.Fatalf("control mismatch for %s: %s/%s", kind, control.Kind(), control.ID())
		}
	}
}

func TestFactory_RejectsUnknownKind(t *testing.T) {
	factory := widgets.NewFactory(headless.New())
	_, err := factory.Build(schema.Field{ID: "x", WidgetType: "hologram"}, schema.DirectionLTR)
	if err == nil || !strings.Contains(err.Error(), "unhandled widget type") {
		t.Fatalf("expected unhandled kind error, got %v", err)
	}
}

func TestFactory_SpecLayersThemeOverrideAndRequired(t *testing.T) {
	factory := widgets.NewFactory(headless.New(), widgets.WithLanguage("en"))
	field := schema.NewField(schema.WidgetTextInput)
	field.LabelEn = "Code"
	field.StyleOverride = schema.StyleOverride{
		Color:  "@required.color",
		Border: "2px dashed #00ff00",
		Custom: "font-style: italic; background-image: url(javascript:alert(1)); color: expression(alert(1))",
	}
	field.Validation = []schema.ValidationRule{{Rule: schema.RuleRequired}}

	spec, err := factory.Spec(field, schema.DirectionLTR)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.Label != "Code" {
		t.Fatalf("label mismatch: %q", spec.Label)
	}
	if !spec.Required || spec.RequiredMarker != widgets.DefaultRequiredMarker {
		t.Fatalf("required indicator missing: %#v", spec)
	}
	if got, _ := spec.Style.Get("color"); got != "#d64545" {
		t.Fatalf("override colour token not resolved over theme, got %q", got)
	}
	if got, _ := spec.Style.Get("border"); got != "2px dashed #00ff00" {
		t.Fatalf("override border not applied, got %q", got)
	}
	if got, _ := spec.Style.Get("font-family"); got == "" {
		t.Fatalf("theme font not applied")
	}
	if got, _ := spec.Style.Get("font-style"); got != "italic" {
		t.Fatalf("custom allowed declaration dropped, got %q", got)
	}
	rendered := spec.Style.String()
	for _, banned := range []string{"javascript", "expression", "background-image"} {
		if strings.Contains(rendered, banned) {
			t.Fatalf("unsafe style leaked: %s", rendered)
		}
	}
}

func TestSanitizer_Declaration(t *testing.T) {
	t.Parallel()

	s := widgets.NewSanitizer(map[string]string{"brand": "#123456", "evil": "red; display:none"})
	cases := []struct {
		property, value string
		ok              bool
	}{
		{"color", "#abc", true},
		{"color", "rgb(1, 2, 3)", true},
		{"color", "teal", true},
		{"color", "@brand", true},
		{"color", "@evil", false},
		{"color", "@missing", false},
		{"color", "red; position: fixed", false},
		{"border", "1px solid #000", true},
		{"border", "1px solid url(x)", false},
		{"font-size", "12px", true},
		{"font-size", "calc(100% - 1px)", false},
		{"font-family", "Tahoma, 'Noto Kufi'", true},
		{"font-family", "x</style><script>", false},
		{"position", "absolute", false},
		{"font-weight", "700", true},
	}
	for _, tc := range cases {
		_, err := s.Declaration(tc.property, tc.value)
		if (err == nil) != tc.ok {
			t.Fatalf("Declaration(%q, %q) err=%v, want ok=%v", tc.property, tc.value, err, tc.ok)
		}
	}
}

func TestFactory_StaticOptionsAppliedLazyDeferred(t *testing.T) {
	factory := widgets.NewFactory(headless.New(), widgets.WithLanguage("en"))

	static := schema.NewField(schema.WidgetComboBox)
	static.ComboSource = &schema.ComboSource{
		Type:  schema.ComboStatic,
		Items: []schema.ComboItem{{Value: 1.0, LabelEn: "Active"}, {Value: 2.0, LabelEn: "Suspended"}},
	}
	control, err := factory.Build(static, schema.DirectionLTR)
	if err != nil {
		t.Fatalf("build static: %v", err)
	}
	oc := control.(widgets.OptionControl)
	if len(oc.Options()) != 2 {
		t.Fatalf("static options not applied: %#v", oc.Options())
	}
	if err := control.SetValue(2); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if control.(*headless.Control).Display() != "Suspended" {
		t.Fatalf("display mismatch: %q", control.(*headless.Control).Display())
	}

	lazy := schema.NewField(schema.WidgetComboBox)
	lazy.ComboSource = &schema.ComboSource{Type: schema.ComboQuery, Query: &schema.QuerySpec{Table: "t", ValueColumn: "id", DisplayColumn: "name"}}
	spec, err := factory.Spec(lazy, schema.DirectionLTR)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if !spec.LazyOptions || len(spec.Options) != 0 || spec.Variant != widgets.VariantSearchable {
		t.Fatalf("query combo should be lazy and searchable: %#v", spec)
	}
	lc, err := factory.Build(lazy, schema.DirectionLTR)
	if err != nil {
		t.Fatalf("build lazy: %v", err)
	}
	if err := lc.SetValue(2); !errors.Is(err, widgets.ErrUnknownOption) {
		t.Fatalf("value before options should be rejected, got %v", err)
	}
}

func TestFactory_OverrideToolkitForVariant(t *testing.T) {
	var calls int
	custom := widgets.ToolkitFunc(func(spec widgets.ControlSpec) (widgets.Control, error) {
		calls++
		return headless.New().Build(spec)
	})
	factory := widgets.NewFactory(headless.New(), widgets.WithOverride(widgets.VariantMasked, custom))

	field := schema.NewField(schema.WidgetTextInput)
	field.Properties.InputMask = "000-000"
	if _, err := factory.Build(field, schema.DirectionLTR); err != nil {
		t.Fatalf("build: %v", err)
	}
	plain := schema.NewField(schema.WidgetTextInput)
	if _, err := factory.Build(plain, schema.DirectionLTR); err != nil {
		t.Fatalf("build: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected override toolkit used once, got %d", calls)
	}
}

func TestRegistry_PriorityAndOrder(t *testing.T) {
	reg := widgets.NewRegistry()
	reg.Register("custom-date", 100, func(f schema.Field) bool { return f.WidgetType == schema.WidgetDatePicker })
	reg.Register("custom-date-late", 100, func(f schema.Field) bool { return f.WidgetType == schema.WidgetDatePicker })

	if got, ok := reg.Resolve(schema.Field{WidgetType: schema.WidgetDatePicker}); !ok || got != "custom-date" {
		t.Fatalf("expected first registration to win ties, got %q", got)
	}
	currency := schema.Field{WidgetType: schema.WidgetDecimalInput, Properties: schema.Properties{Suffix: "SAR"}}
	if got, _ := reg.Resolve(currency); got != widgets.VariantCurrency {
		t.Fatalf("expected currency variant, got %q", got)
	}
	if _, ok := reg.Resolve(schema.Field{WidgetType: schema.WidgetLabel}); ok {
		t.Fatalf("label should not resolve a variant")
	}
}

func TestSanitizeIcon(t *testing.T) {
	input := `  <svg viewBox="0 0 24 24"><script>alert('x')</script><path d="M0 0h24v24H0z" onclick="x()"/></svg>`
	got := widgets.SanitizeIcon(input)
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") {
		t.Fatalf("expected script and handlers removed, got %q", got)
	}
	if !strings.Contains(got, "<svg") || !strings.Contains(got, "<path") {
		t.Fatalf("expected svg/path to remain, got %q", got)
	}
	if widgets.SanitizeIcon("calendar") != "calendar" {
		t.Fatalf("plain icon names should pass through")
	}
}

func TestTheme_VariantTokensAndCSSVars(t *testing.T) {
	selector := widgets.NewManifestSelector(widgets.DefaultManifest())
	sel, err := selector.Select("", "dark")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	th := widgets.ThemeFromSelection(sel)
	if th.Tokens[widgets.TokenInputBackground] != "#1f2937" {
		t.Fatalf("variant token not applied: %q", th.Tokens[widgets.TokenInputBackground])
	}
	vars := th.CSSVars()
	if vars["--input-background"] != "#1f2937" {
		t.Fatalf("css var not derived: %#v", vars)
	}
	if _, err := selector.Select("missing", ""); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
	if _, err := selector.Select("iform", "sepia"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}
