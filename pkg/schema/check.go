package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// DefaultColumns applies when neither the section nor the settings set a
// column count.
const DefaultColumns = 2

func checkDefinition(def *FormDefinition, vs *violations) {
	if !SupportedVersion(def.Version) {
		vs.unsupported = true
		vs.add("version", "unsupported version %q (supported: %v)", def.Version, SupportedVersions)
	}
	if def.FormID == "" {
		vs.add("formId", "must not be empty")
	}

	sectionIDs := make(map[string]string)
	fieldIDs := make(map[string]string)
	for i, section := range def.Sections {
		spath := fmt.Sprintf("sections[%d]", i)
		if section.ID == "" {
			vs.add(spath+".id", "must not be empty")
		} else if prev, dup := sectionIDs[section.ID]; dup {
			vs.add(spath+".id", "duplicate section id %q (first declared at %s)", section.ID, prev)
		} else {
			sectionIDs[section.ID] = spath
		}

		for j, field := range section.Fields {
			fpath := fmt.Sprintf("%s.fields[%d]", spath, j)
			if field.ID == "" {
				vs.add(fpath+".id", "must not be empty")
			} else if prev, dup := fieldIDs[field.ID]; dup {
				vs.add(fpath+".id", "duplicate field id %q (first declared at %s)", field.ID, prev)
			} else {
				fieldIDs[field.ID] = fpath
			}
			checkField(fpath, field, vs)
		}

		if def.Settings.LayoutMode == "" || def.Settings.LayoutMode == LayoutGrid {
			checkGrid(spath, section, def.Settings.EffectiveColumns(section), vs)
		}
	}

	actionIDs := make(map[string]struct{})
	for i, action := range def.Actions {
		apath := fmt.Sprintf("actions[%d]", i)
		if action.ID == "" {
			vs.add(apath+".id", "must not be empty")
			continue
		}
		if _, dup := actionIDs[action.ID]; dup {
			vs.add(apath+".id", "duplicate action id %q", action.ID)
		}
		actionIDs[action.ID] = struct{}{}
	}

	for i, rule := range def.Rules {
		rpath := fmt.Sprintf("rules[%d]", i)
		if _, ok := fieldIDs[rule.TriggerField]; !ok {
			vs.add(rpath+".triggerField", "unknown field %q", rule.TriggerField)
		}
		switch rule.Action {
		case RuleHideSection, RuleShowSection:
			if _, ok := sectionIDs[rule.Target]; !ok {
				vs.add(rpath+".target", "unknown section %q", rule.Target)
			}
		case RuleHideField, RuleShowField:
			if _, ok := fieldIDs[rule.Target]; !ok {
				vs.add(rpath+".target", "unknown field %q", rule.Target)
			}
		}
	}
}

func checkField(path string, field Field, vs *violations) {
	for k, rule := range field.Validation {
		rpath := fmt.Sprintf("%s.validation[%d]", path, k)
		switch rule.Rule {
		case RulePattern:
			expr, ok := rule.Value.(string)
			if !ok || expr == "" {
				vs.add(rpath+".value", "pattern requires a non-empty string")
				continue
			}
			if _, err := regexp.Compile(expr); err != nil {
				vs.add(rpath+".value", "pattern does not compile: %v", err)
			}
		case RuleMinLength, RuleMaxLength:
			n, ok := Number(rule.Value)
			if !ok || n < 0 || n != float64(int(n)) {
				vs.add(rpath+".value", "%s requires a non-negative integer", rule.Rule)
			}
		case RuleMinValue, RuleMaxValue:
			if _, ok := Number(rule.Value); !ok {
				vs.add(rpath+".value", "%s requires a number", rule.Rule)
			}
		case RuleCustom:
			if name, ok := rule.Value.(string); !ok || name == "" {
				vs.add(rpath+".value", "custom requires a predicate name")
			}
		case RuleDateRange:
			switch rule.Value.(type) {
			case map[string]any, map[string]string:
			default:
				vs.add(rpath+".value", "date_range requires an object with min and/or max")
			}
		}
	}

	if src := field.ComboSource; src != nil {
		cpath := path + ".comboSource"
		switch src.Type {
		case ComboQuery:
			if src.Query == nil || src.Query.Table == "" || src.Query.ValueColumn == "" || src.Query.DisplayColumn == "" {
				vs.add(cpath+".query", "query source requires table, valueColumn and displayColumn")
			}
		case ComboAPI:
			if src.Endpoint == "" {
				vs.add(cpath+".endpoint", "api source requires an endpoint")
			}
		}
	}
}

// checkGrid reports cells claimed by more than one field and spans that
// overflow the section's columns. Overlaps are never resolved silently.
func checkGrid(path string, section Section, columns int, vs *violations) {
	occupied := make(map[[2]int]string)
	for j, field := range section.Fields {
		fpath := fmt.Sprintf("%s.fields[%d].layout", path, j)
		colspan, rowspan := field.Layout.Spans()
		if field.Layout.Col+colspan > columns {
			vs.add(fpath, "field %q spans columns %d..%d beyond the %d available", field.ID, field.Layout.Col, field.Layout.Col+colspan-1, columns)
			continue
		}
		for r := field.Layout.Row; r < field.Layout.Row+rowspan; r++ {
			for c := field.Layout.Col; c < field.Layout.Col+colspan; c++ {
				cell := [2]int{r, c}
				if owner, taken := occupied[cell]; taken {
					vs.add(fpath, "field %q overlaps field %q at row %d col %d", field.ID, owner, r, c)
					continue
				}
				occupied[cell] = field.ID
			}
		}
	}
}

// checkEnums covers what the structural check enforces for parsed documents,
// for definitions assembled in memory.
func checkEnums(def *FormDefinition, vs *violations) {
	if d := def.Settings.Direction; d != "" && d != DirectionRTL && d != DirectionLTR {
		vs.add("settings.direction", "unknown direction %q", d)
	}
	switch def.Settings.LayoutMode {
	case "", LayoutGrid, LayoutAbsolute, LayoutFlow:
	default:
		vs.add("settings.layoutMode", "unknown layout mode %q", def.Settings.LayoutMode)
	}
	for i, section := range def.Sections {
		for j, field := range section.Fields {
			fpath := fmt.Sprintf("sections[%d].fields[%d]", i, j)
			if !field.WidgetType.Valid() {
				vs.add(fpath+".widgetType", "unknown widget type %q", field.WidgetType)
			}
			for k, rule := range field.Validation {
				if !rule.Rule.Valid() {
					vs.add(fmt.Sprintf("%s.validation[%d].rule", fpath, k), "unknown rule %q", rule.Rule)
				}
			}
			if src := field.ComboSource; src != nil {
				switch src.Type {
				case ComboQuery, ComboStatic, ComboAPI:
				default:
					vs.add(fpath+".comboSource.type", "unknown source type %q", src.Type)
				}
			}
		}
	}
	for i, action := range def.Actions {
		apath := fmt.Sprintf("actions[%d]", i)
		switch action.Type {
		case ActionPrimary, ActionSecondary, ActionDanger, ActionSuccess:
		default:
			vs.add(apath+".type", "unknown action type %q", action.Type)
		}
		switch action.Action {
		case ActionSave, ActionCancel, ActionCustom, ActionNavigate:
		default:
			vs.add(apath+".action", "unknown action kind %q", action.Action)
		}
		switch action.Position {
		case "", PositionFooterLeft, PositionFooterRight, PositionFooterCenter, PositionTopRight:
		default:
			vs.add(apath+".position", "unknown position %q", action.Position)
		}
	}
	for i, rule := range def.Rules {
		switch rule.Action {
		case RuleHideSection, RuleShowSection, RuleHideField, RuleShowField:
		default:
			vs.add(fmt.Sprintf("rules[%d].action", i), "unknown rule action %q", rule.Action)
		}
	}
}

// Number converts the numeric shapes a rule parameter or field value may take
// into a float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
