package state

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-iform/pkg/schema"
)

// ErrUnknownField is wrapped when a command names a field that is not in the
// definition.
var ErrUnknownField = errors.New("state: unknown field")

// Command is one invertible live-edit mutation. Revert undoes exactly what
// Apply did.
type Command interface {
	Name() string
	Apply(def *schema.FormDefinition) error
	Revert(def *schema.FormDefinition) error
}

// Placement is where a field sits: its section, its index among the section
// fields and its layout.
type Placement struct {
	Section string
	Index   int
	Layout  schema.Layout
}

// PlacementOf reads the placement of id from def.
func PlacementOf(def *schema.FormDefinition, id string) (Placement, error) {
	si, fi, ok := def.FieldLocation(id)
	if !ok {
		return Placement{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	return Placement{Section: def.Sections[si].ID, Index: fi, Layout: def.Sections[si].Fields[fi].Layout}, nil
}

func insertField(def *schema.FormDefinition, sectionID string, index int, field schema.Field) error {
	section := def.SectionByID(sectionID)
	if section == nil {
		return fmt.Errorf("state: unknown section %s", sectionID)
	}
	if def.FieldByID(field.ID) != nil {
		return fmt.Errorf("state: field %s already exists", field.ID)
	}
	if index < 0 || index > len(section.Fields) {
		index = len(section.Fields)
	}
	section.Fields = append(section.Fields, schema.Field{})
	copy(section.Fields[index+1:], section.Fields[index:])
	section.Fields[index] = field.Clone()
	return nil
}

func extractField(def *schema.FormDefinition, id string) (schema.Field, Placement, error) {
	si, fi, ok := def.FieldLocation(id)
	if !ok {
		return schema.Field{}, Placement{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	section := &def.Sections[si]
	field := section.Fields[fi]
	section.Fields = append(section.Fields[:fi], section.Fields[fi+1:]...)
	return field, Placement{Section: section.ID, Index: fi, Layout: field.Layout}, nil
}

// AddField inserts Field into Section at Index (appends when out of range).
type AddField struct {
	Section string
	Index   int
	Field   schema.Field
}

func (c *AddField) Name() string { return "add " + c.Field.ID }

func (c *AddField) Apply(def *schema.FormDefinition) error {
	return insertField(def, c.Section, c.Index, c.Field)
}

func (c *AddField) Revert(def *schema.FormDefinition) error {
	_, _, err := extractField(def, c.Field.ID)
	return err
}

// RemoveField deletes a field. Apply captures the field and its position so
// Revert can reinsert it unchanged.
type RemoveField struct {
	FieldID string

	removed schema.Field
	from    Placement
}

func (c *RemoveField) Name() string { return "remove " + c.FieldID }

func (c *RemoveField) Apply(def *schema.FormDefinition) error {
	field, from, err := extractField(def, c.FieldID)
	if err != nil {
		return err
	}
	c.removed, c.from = field, from
	return nil
}

func (c *RemoveField) Revert(def *schema.FormDefinition) error {
	if c.removed.ID == "" {
		return fmt.Errorf("state: remove %s was never applied", c.FieldID)
	}
	return insertField(def, c.from.Section, c.from.Index, c.removed)
}

// MoveField relocates a field between positions, sections or grid cells.
type MoveField struct {
	FieldID string
	From    Placement
	To      Placement
}

// NewMoveField captures the current placement of id as the undo target.
func NewMoveField(def *schema.FormDefinition, id string, to Placement) (*MoveField, error) {
	from, err := PlacementOf(def, id)
	if err != nil {
		return nil, err
	}
	return &MoveField{FieldID: id, From: from, To: to}, nil
}

func (c *MoveField) Name() string { return "move " + c.FieldID }

func (c *MoveField) Apply(def *schema.FormDefinition) error { return c.place(def, c.To) }

func (c *MoveField) Revert(def *schema.FormDefinition) error { return c.place(def, c.From) }

func (c *MoveField) place(def *schema.FormDefinition, p Placement) error {
	if def.SectionByID(p.Section) == nil {
		return fmt.Errorf("state: unknown section %s", p.Section)
	}
	field, _, err := extractField(def, c.FieldID)
	if err != nil {
		return err
	}
	field.Layout = p.Layout
	return insertField(def, p.Section, p.Index, field)
}

// ResizeField swaps a field's layout between two states.
type ResizeField struct {
	FieldID string
	From    schema.Layout
	To      schema.Layout
}

// NewResizeField captures the current layout of id as the undo target.
func NewResizeField(def *schema.FormDefinition, id string, to schema.Layout) (*ResizeField, error) {
	field := def.FieldByID(id)
	if field == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	return &ResizeField{FieldID: id, From: field.Layout, To: to}, nil
}

func (c *ResizeField) Name() string { return "resize " + c.FieldID }

func (c *ResizeField) Apply(def *schema.FormDefinition) error { return setLayout(def, c.FieldID, c.To) }

func (c *ResizeField) Revert(def *schema.FormDefinition) error {
	return setLayout(def, c.FieldID, c.From)
}

func setLayout(def *schema.FormDefinition, id string, l schema.Layout) error {
	field := def.FieldByID(id)
	if field == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	field.Layout = l
	return nil
}

// ChangeProperty sets one editable property of a field.
type ChangeProperty struct {
	FieldID  string
	Property Property
	From     any
	To       any
}

// NewChangeProperty captures the current property value as the undo target.
func NewChangeProperty(def *schema.FormDefinition, id string, prop Property, to any) (*ChangeProperty, error) {
	field := def.FieldByID(id)
	if field == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	from, err := prop.Get(*field)
	if err != nil {
		return nil, err
	}
	return &ChangeProperty{FieldID: id, Property: prop, From: from, To: to}, nil
}

func (c *ChangeProperty) Name() string { return fmt.Sprintf("set %s.%s", c.FieldID, c.Property) }

func (c *ChangeProperty) Apply(def *schema.FormDefinition) error { return c.set(def, c.To) }

func (c *ChangeProperty) Revert(def *schema.FormDefinition) error { return c.set(def, c.From) }

func (c *ChangeProperty) set(def *schema.FormDefinition, value any) error {
	field := def.FieldByID(c.FieldID)
	if field == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, c.FieldID)
	}
	return c.Property.Set(field, value)
}
