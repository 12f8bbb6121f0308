package state

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-iform/pkg/schema"
)

// DefaultHistoryDepth bounds the undo stack.
const DefaultHistoryDepth = 100

var (
	// ErrNothingToUndo is returned by Undo on an empty stack.
	ErrNothingToUndo = errors.New("state: nothing to undo")
	// ErrNothingToRedo is returned by Redo on an empty stack.
	ErrNothingToRedo = errors.New("state: nothing to redo")
)

// History is a bounded undo/redo stack of commands. Pushing a new command
// clears the redo side; the oldest command falls off when the stack is full.
type History struct {
	depth int
	undo  []Command
	redo  []Command
}

// NewHistory returns a history holding at most depth commands.
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

// Do applies cmd to def and records it. A failing command is not recorded.
func (h *History) Do(def *schema.FormDefinition, cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("state: nil command")
	}
	if err := cmd.Apply(def); err != nil {
		return fmt.Errorf("state: %s: %w", cmd.Name(), err)
	}
	h.Push(cmd)
	return nil
}

// Push records an already applied command.
func (h *History) Push(cmd Command) {
	h.undo = append(h.undo, cmd)
	if len(h.undo) > h.depth {
		h.undo = append([]Command(nil), h.undo[len(h.undo)-h.depth:]...)
	}
	h.redo = nil
}

// Undo reverts the latest command.
func (h *History) Undo(def *schema.FormDefinition) (Command, error) {
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	if err := cmd.Revert(def); err != nil {
		return nil, fmt.Errorf("state: undo %s: %w", cmd.Name(), err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	return cmd, nil
}

// Redo reapplies the latest undone command.
func (h *History) Redo(def *schema.FormDefinition) (Command, error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	if err := cmd.Apply(def); err != nil {
		return nil, fmt.Errorf("state: redo %s: %w", cmd.Name(), err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	return cmd, nil
}

// Clear drops both stacks. Reloading a form clears history; saving does not.
func (h *History) Clear() {
	h.undo, h.redo = nil, nil
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Len returns the undo and redo depths.
func (h *History) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}
