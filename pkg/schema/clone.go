package schema

// Clone returns a deep copy of the definition. Callers outside the owning
// component only ever receive clones.
func (d *FormDefinition) Clone() *FormDefinition {
	if d == nil {
		return nil
	}
	out := *d
	if d.Sections != nil {
		out.Sections = make([]Section, len(d.Sections))
		for i, s := range d.Sections {
			out.Sections[i] = s.Clone()
		}
	}
	if d.Actions != nil {
		out.Actions = append([]Action(nil), d.Actions...)
	}
	if d.Rules != nil {
		out.Rules = make([]Rule, len(d.Rules))
		for i, r := range d.Rules {
			r.TriggerValue = cloneValue(r.TriggerValue)
			out.Rules[i] = r
		}
	}
	if d.Events != nil {
		out.Events = make(map[string]string, len(d.Events))
		for k, v := range d.Events {
			out.Events[k] = v
		}
	}
	return &out
}

// Clone deep copies the section and its fields.
func (s Section) Clone() Section {
	out := s
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = f.Clone()
		}
	}
	return out
}

// Clone deep copies the field.
func (f Field) Clone() Field {
	out := f
	if f.ComboSource != nil {
		src := *f.ComboSource
		src.Default = cloneValue(src.Default)
		if src.Query != nil {
			q := *src.Query
			q.FilterValue = cloneValue(q.FilterValue)
			src.Query = &q
		}
		if src.Items != nil {
			src.Items = make([]ComboItem, len(f.ComboSource.Items))
			for i, item := range f.ComboSource.Items {
				item.Value = cloneValue(item.Value)
				src.Items[i] = item
			}
		}
		out.ComboSource = &src
	}
	if f.Validation != nil {
		out.Validation = make([]ValidationRule, len(f.Validation))
		for i, rule := range f.Validation {
			rule.Value = cloneValue(rule.Value)
			out.Validation[i] = rule
		}
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = cloneValue(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, val := range typed {
			out[k] = val
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// SectionByID returns a pointer to the section with id, or nil.
func (d *FormDefinition) SectionByID(id string) *Section {
	if d == nil {
		return nil
	}
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i]
		}
	}
	return nil
}

// FieldByID returns a pointer to the field with id, or nil.
func (d *FormDefinition) FieldByID(id string) *Field {
	section, index, ok := d.FieldLocation(id)
	if !ok {
		return nil
	}
	return &d.Sections[section].Fields[index]
}

// FieldLocation returns the section and field indexes of id.
func (d *FormDefinition) FieldLocation(id string) (section, index int, ok bool) {
	if d == nil {
		return 0, 0, false
	}
	for i := range d.Sections {
		for j := range d.Sections[i].Fields {
			if d.Sections[i].Fields[j].ID == id {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// SectionOf returns the section that owns field id.
func (d *FormDefinition) SectionOf(id string) *Section {
	section, _, ok := d.FieldLocation(id)
	if !ok {
		return nil
	}
	return &d.Sections[section]
}

// Fields returns every field in declaration order.
func (d *FormDefinition) Fields() []Field {
	if d == nil {
		return nil
	}
	var out []Field
	for _, s := range d.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// ActionByID returns the action with id.
func (d *FormDefinition) ActionByID(id string) (Action, bool) {
	if d == nil {
		return Action{}, false
	}
	for _, a := range d.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Direction returns the effective reading direction.
func (d *FormDefinition) Direction() Direction {
	if d == nil || d.Settings.Direction == "" {
		return DefaultDirection
	}
	return d.Settings.Direction
}
