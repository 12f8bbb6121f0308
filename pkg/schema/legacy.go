package schema

import (
	"fmt"
	"strings"
)

// Note records a rewrite applied while normalising a legacy document shape.
type Note struct {
	Path    string
	Message string
}

func (n Note) String() string {
	return n.Path + ": " + n.Message
}

// opaqueKeys hold caller data whose keys must not be rewritten.
var opaqueKeys = map[string]struct{}{
	"events":       {},
	"value":        {},
	"default":      {},
	"filterValue":  {},
	"triggerValue": {},
}

// legacyValidationOrder fixes the order in which flat validation maps expand.
var legacyValidationOrder = []string{
	"required", "min_length", "max_length", "min_value", "max_value", "pattern",
	"email", "phone", "iban", "national_id", "date_range", "unique", "custom",
}

type normaliser struct {
	notes []Note
}

func (n *normaliser) note(path, format string, args ...any) {
	n.notes = append(n.notes, Note{Path: path, Message: fmt.Sprintf(format, args...)})
}

// normaliseDocument rewrites snake_case keys, flat validation maps and the
// data_type binding key into the canonical shape. Every rewrite is noted.
func normaliseDocument(doc map[string]any) []Note {
	n := &normaliser{}
	// flat rule maps expand before key rewriting so their snake_case rule
	// names are not mistaken for legacy keys
	eachField(doc, n.expandValidation)
	n.walk("", doc)
	eachField(doc, n.field)
	return n.notes
}

func eachField(doc map[string]any, fn func(path string, field map[string]any)) {
	sections, _ := doc["sections"].([]any)
	for i, rawSection := range sections {
		section, ok := rawSection.(map[string]any)
		if !ok {
			continue
		}
		fields, _ := section["fields"].([]any)
		for j, rawField := range fields {
			field, ok := rawField.(map[string]any)
			if !ok {
				continue
			}
			fn(fmt.Sprintf("sections[%d].fields[%d]", i, j), field)
		}
	}
}

func (n *normaliser) walk(path string, value any) {
	switch typed := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(typed) {
			child := typed[key]
			canonical := camelKey(key)
			if canonical != key {
				if _, exists := typed[canonical]; !exists {
					delete(typed, key)
					typed[canonical] = child
					n.note(joinPath(path, key), "renamed legacy key to %q", canonical)
				}
			}
			if _, opaque := opaqueKeys[canonical]; opaque {
				continue
			}
			n.walk(joinPath(path, canonical), child)
		}
	case []any:
		for i, item := range typed {
			n.walk(fmt.Sprintf("%s[%d]", path, i), item)
		}
	}
}

func (n *normaliser) expandValidation(path string, field map[string]any) {
	if flat, ok := field["validation"].(map[string]any); ok {
		rules := make([]any, 0, len(flat))
		for _, name := range legacyValidationOrder {
			param, present := flat[name]
			if !present {
				continue
			}
			delete(flat, name)
			if flag, isBool := param.(bool); isBool {
				if !flag {
					n.note(path+".validation."+name, "dropped disabled legacy rule")
					continue
				}
				rules = append(rules, map[string]any{"rule": name})
				continue
			}
			rules = append(rules, map[string]any{"rule": name, "value": param})
		}
		for _, name := range sortedKeys(flat) {
			// unknown names stay visible so the structural check rejects them
			rules = append(rules, map[string]any{"rule": name, "value": flat[name]})
		}
		field["validation"] = rules
		n.note(path+".validation", "expanded legacy flat rule map into %d rule objects", len(rules))
	}
}

func (n *normaliser) field(path string, field map[string]any) {
	if rules, ok := field["validation"].([]any); ok {
		for i, raw := range rules {
			rule, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if msg, ok := rule["message"].(string); ok {
				if _, hasEn := rule["messageEn"]; !hasEn {
					rule["messageEn"] = msg
				}
				delete(rule, "message")
				n.note(fmt.Sprintf("%s.validation[%d]", path, i), "moved legacy message to messageEn")
			}
		}
	}

	if binding, ok := field["dataBinding"].(map[string]any); ok {
		if legacy, present := binding["dataType"]; present {
			if _, hasType := binding["type"]; !hasType {
				binding["type"] = legacy
			}
			delete(binding, "dataType")
			n.note(path+".dataBinding", "replaced legacy data_type key with type")
		}
	}
}

// camelKey converts snake_case to lowerCamelCase. Keys without underscores are
// returned unchanged.
func camelKey(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	parts := strings.Split(key, "_")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 || b.Len() == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
