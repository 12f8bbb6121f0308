package liveedit

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/state"
)

// batch applies several commands as one undo step. A failing member reverts
// the ones already applied.
type batch struct {
	name string
	cmds []state.Command
}

func (b *batch) Name() string { return b.name }

func (b *batch) Apply(def *schema.FormDefinition) error {
	for i, cmd := range b.cmds {
		if err := cmd.Apply(def); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = b.cmds[j].Revert(def)
			}
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func (b *batch) Revert(def *schema.FormDefinition) error {
	for i := len(b.cmds) - 1; i >= 0; i-- {
		if err := b.cmds[i].Revert(def); err != nil {
			return fmt.Errorf("%s: %w", b.cmds[i].Name(), err)
		}
	}
	return nil
}

func newBatch(cmds []state.Command) *batch {
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name())
	}
	return &batch{name: strings.Join(names, ", "), cmds: cmds}
}

// replace swaps the whole definition. The toolbar reset uses it so the reset
// itself can be undone.
type replace struct {
	from *schema.FormDefinition
	to   *schema.FormDefinition
}

func (c *replace) Name() string { return "reset" }

func (c *replace) Apply(def *schema.FormDefinition) error {
	*def = *c.to.Clone()
	return nil
}

func (c *replace) Revert(def *schema.FormDefinition) error {
	*def = *c.from.Clone()
	return nil
}
