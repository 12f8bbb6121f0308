package importer

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-iform/pkg/schema"
)

// field maps one property. Objects and arrays have no single-control form
// and are skipped.
func (im *Importer) field(name string, prop *openapi3.Schema, required bool) (schema.Field, bool) {
	typ := schemaType(prop.Type)
	kind, binding, ok := widgetFor(typ, prop)
	if !ok {
		im.logger.Warn("importer: property skipped", "property", name, "type", typ)
		return schema.Field{}, false
	}
	if override := stringExt(prop.Extensions, ExtWidget); override != "" {
		kind = schema.WidgetType(override)
	}

	f := schema.Field{
		ID:         identifier(name),
		WidgetType: kind,
		LabelEn:    prop.Title,
		LabelAr:    stringExt(prop.Extensions, ExtLabelAr),
		TooltipEn:  prop.Description,
		Properties: schema.Properties{Enabled: true, Visible: true, ReadOnly: prop.ReadOnly},
		DataBinding: schema.DataBinding{
			Column: name,
			Type:   binding,
			Format: prop.Format,
		},
		Validation: rulesFor(prop, required),
	}
	if f.LabelEn == "" {
		f.LabelEn = humanize(identifier(name))
	}
	if len(prop.Enum) > 0 {
		f.WidgetType = schema.WidgetComboBox
		src := &schema.ComboSource{Type: schema.ComboStatic, AllowEmpty: !required, Default: prop.Default}
		for _, v := range prop.Enum {
			src.Items = append(src.Items, schema.ComboItem{Value: v, LabelEn: fmt.Sprint(v)})
		}
		f.ComboSource = src
	}
	return f, true
}

func schemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, t := range types.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}

func widgetFor(typ string, prop *openapi3.Schema) (schema.WidgetType, string, bool) {
	switch typ {
	case "boolean":
		return schema.WidgetCheckbox, "bool", true
	case "integer":
		return schema.WidgetNumberInput, "int", true
	case "number":
		return schema.WidgetDecimalInput, "decimal", true
	case "string", "":
		if typ == "" && len(prop.Properties) > 0 {
			return "", "", false
		}
		switch prop.Format {
		case "date":
			return schema.WidgetDatePicker, "date", true
		case "date-time":
			return schema.WidgetDateTimePicker, "datetime", true
		case "time":
			return schema.WidgetTimePicker, "time", true
		case "binary", "byte":
			return schema.WidgetFilePicker, "blob", true
		}
		if prop.MaxLength != nil && *prop.MaxLength > textAreaThreshold {
			return schema.WidgetTextArea, "string", true
		}
		return schema.WidgetTextInput, "string", true
	default:
		return "", "", false
	}
}

func rulesFor(prop *openapi3.Schema, required bool) []schema.ValidationRule {
	var rules []schema.ValidationRule
	if required {
		rules = append(rules, schema.ValidationRule{Rule: schema.RuleRequired})
	}
	if prop.MinLength > 0 {
		rules = append(rules, schema.ValidationRule{Rule: schema.RuleMinLength, Value: int(prop.MinLength)})
	}
	if prop.MaxLength != nil {
		rules = append(rules, schema.ValidationRule{Rule: schema.RuleMaxLength, Value: int(*prop.MaxLength)})
	}
	if prop.Pattern != "" {
		rules = append(rules, schema.ValidationRule{Rule: schema.RulePattern, Value: prop.Pattern})
	}
	if prop.Min != nil {
		rules = append(rules, schema.ValidationRule{Rule: schema.RuleMinValue, Value: *prop.Min})
	}
	if prop.Max != nil {
		rules = append(rules, schema.ValidationRule{Rule: schema.RuleMaxValue, Value: *prop.Max})
	}
	switch prop.Format {
	case "email":
		rules = append(rules, schema.ValidationRule{Rule: schema.RuleEmail})
	case "iban":
		rules = append(rules, schema.ValidationRule{Rule: schema.RuleIBAN})
	case "phone", "tel":
		rules = append(rules, schema.ValidationRule{Rule: schema.RulePhone})
	}
	return rules
}
