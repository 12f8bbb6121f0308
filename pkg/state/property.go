package state

import (
	"fmt"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Property names a field attribute the live editor may change.
type Property string

const (
	PropWidth    Property = "width"
	PropHeight   Property = "height"
	PropLabelAr  Property = "labelAr"
	PropLabelEn  Property = "labelEn"
	PropReadOnly Property = "readonly"
	PropEnabled  Property = "enabled"
	PropVisible  Property = "visible"
)

// Get reads the property from field.
func (p Property) Get(field schema.Field) (any, error) {
	switch p {
	case PropWidth:
		return field.Layout.Width, nil
	case PropHeight:
		return field.Layout.Height, nil
	case PropLabelAr:
		return field.LabelAr, nil
	case PropLabelEn:
		return field.LabelEn, nil
	case PropReadOnly:
		return field.Properties.ReadOnly, nil
	case PropEnabled:
		return field.Properties.Enabled, nil
	case PropVisible:
		return field.Properties.Visible, nil
	}
	return nil, fmt.Errorf("state: unknown property %q", p)
}

// Set writes value into field, checking its type.
func (p Property) Set(field *schema.Field, value any) error {
	switch p {
	case PropWidth, PropHeight:
		n, ok := schema.Number(value)
		if !ok || n < 0 {
			return fmt.Errorf("state: %s must be a non-negative number, got %v", p, value)
		}
		if p == PropWidth {
			field.Layout.Width = n
		} else {
			field.Layout.Height = n
		}
	case PropLabelAr, PropLabelEn:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("state: %s must be a string, got %T", p, value)
		}
		if p == PropLabelAr {
			field.LabelAr = s
		} else {
			field.LabelEn = s
		}
	case PropReadOnly, PropEnabled, PropVisible:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("state: %s must be a boolean, got %T", p, value)
		}
		switch p {
		case PropReadOnly:
			field.Properties.ReadOnly = b
		case PropEnabled:
			field.Properties.Enabled = b
		default:
			field.Properties.Visible = b
		}
	default:
		return fmt.Errorf("state: unknown property %q", p)
	}
	return nil
}
