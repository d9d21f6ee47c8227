// Package undo keeps the undo and redo stacks over history entries.
//
// The engine only tracks which entries can be undone or redone. Applying the
// effect of an entry to the task collection is the caller's job; Undo and
// Redo take a callback and move the entry between stacks only when the
// callback succeeds.
package undo

import (
	"errors"
	"fmt"

	"github.com/nibzard/todo-go/internal/history"
)

var (
	// ErrNothingToUndo is returned by Undo when the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by Redo when the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrCorruptHistory is returned by Replay when UNDO or REDO markers do
	// not line up with the stacks they refer to.
	ErrCorruptHistory = errors.New("history is inconsistent with undo state")
)

// Engine holds the two stacks. The top of each stack is the last element.
type Engine struct {
	undo []*history.Entry
	redo []*history.Entry
}

// New returns an engine with empty stacks.
func New() *Engine {
	return &Engine{}
}

// Clone returns an engine with copies of both stacks.
func (e *Engine) Clone() *Engine {
	return &Engine{
		undo: append([]*history.Entry(nil), e.undo...),
		redo: append([]*history.Entry(nil), e.redo...),
	}
}

// Push records a new user action. Any redo state is discarded.
func (e *Engine) Push(entry *history.Entry) {
	e.undo = append(e.undo, entry)
	e.redo = nil
}

// Undo pops the most recent action and hands it to apply. If apply fails
// both stacks are left unchanged and its error is returned.
func (e *Engine) Undo(apply func(*history.Entry) error) (*history.Entry, error) {
	top, ok := e.PeekUndo()
	if !ok {
		return nil, ErrNothingToUndo
	}
	if apply != nil {
		if err := apply(top); err != nil {
			return nil, err
		}
	}
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, top)
	return top, nil
}

// Redo pops the most recently undone action and hands it to apply. If apply
// fails both stacks are left unchanged and its error is returned.
func (e *Engine) Redo(apply func(*history.Entry) error) (*history.Entry, error) {
	top, ok := e.PeekRedo()
	if !ok {
		return nil, ErrNothingToRedo
	}
	if apply != nil {
		if err := apply(top); err != nil {
			return nil, err
		}
	}
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, top)
	return top, nil
}

// PeekUndo returns the entry Undo would act on.
func (e *Engine) PeekUndo() (*history.Entry, bool) {
	if len(e.undo) == 0 {
		return nil, false
	}
	return e.undo[len(e.undo)-1], true
}

// PeekRedo returns the entry Redo would act on.
func (e *Engine) PeekRedo() (*history.Entry, bool) {
	if len(e.redo) == 0 {
		return nil, false
	}
	return e.redo[len(e.redo)-1], true
}

// CanUndo reports whether the undo stack is non-empty.
func (e *Engine) CanUndo() bool { return len(e.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (e *Engine) CanRedo() bool { return len(e.redo) > 0 }

// UndoLen returns the depth of the undo stack.
func (e *Engine) UndoLen() int { return len(e.undo) }

// RedoLen returns the depth of the redo stack.
func (e *Engine) RedoLen() int { return len(e.redo) }

// Replay rebuilds the stacks from a history log in append order.
// Reversible entries are pushed, UNDO and REDO markers move the entry named
// by their target, which must be on top of the corresponding stack.
func Replay(entries []*history.Entry) (*Engine, error) {
	e := New()
	for _, entry := range entries {
		switch {
		case entry.Action.Reversible():
			e.Push(entry)
		case entry.Action == history.ActionUndo:
			top, ok := e.PeekUndo()
			if !ok || top.ID != entry.Payload.Target {
				return nil, fmt.Errorf("%w: entry %s undoes %s which is not the latest action",
					ErrCorruptHistory, entry.ID, entry.Payload.Target)
			}
			_, _ = e.Undo(nil)
		case entry.Action == history.ActionRedo:
			top, ok := e.PeekRedo()
			if !ok || top.ID != entry.Payload.Target {
				return nil, fmt.Errorf("%w: entry %s redoes %s which is not the latest undone action",
					ErrCorruptHistory, entry.ID, entry.Payload.Target)
			}
			_, _ = e.Redo(nil)
		default:
			return nil, fmt.Errorf("%w: entry %s has unknown action %q", ErrCorruptHistory, entry.ID, entry.Action)
		}
	}
	return e, nil
}
