// Package history records every mutation of a task collection together with
// the payload needed to reverse it.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nibzard/todo-go/internal/schema"
	"github.com/nibzard/todo-go/internal/todo"
	"github.com/nibzard/todo-go/internal/utils"
)

// Action is the kind of mutation an entry records.
type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionComplete Action = "COMPLETE"
	ActionRemove   Action = "REMOVE"
	ActionUndo     Action = "UNDO"
	ActionRedo     Action = "REDO"
)

// Reversible reports whether entries of this action go on the undo stack.
// UNDO and REDO entries only mark stack movements.
func (a Action) Reversible() bool {
	switch a {
	case ActionCreate, ActionComplete, ActionRemove:
		return true
	default:
		return false
	}
}

// Payload carries what is needed to reverse or replay an entry.
//
//	CREATE    Task   the created task
//	COMPLETE  Before the task before the change, After the task after it
//	REMOVE    Task   the removed task
//	UNDO/REDO Target id of the entry that was undone or redone
type Payload struct {
	Task   *todo.Task `json:"task,omitempty"`
	Before *todo.Task `json:"before,omitempty"`
	After  *todo.Task `json:"after,omitempty"`
	Target string     `json:"target,omitempty"`
}

// Entry is one record in the history log. Entries are immutable once
// appended.
type Entry struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// NewEntry builds an entry, deep-copying any tasks in the payload.
func NewEntry(id string, action Action, details string, at time.Time, payload Payload) *Entry {
	return &Entry{
		ID:        id,
		Action:    action,
		Details:   details,
		Timestamp: at,
		Payload: Payload{
			Task:   cloneTask(payload.Task),
			Before: cloneTask(payload.Before),
			After:  cloneTask(payload.After),
			Target: payload.Target,
		},
	}
}

func cloneTask(t *todo.Task) *todo.Task {
	if t == nil {
		return nil
	}
	c := t.Clone()
	return &c
}

// Validate checks that the payload has the shape its action requires.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return &todo.ValidationError{Path: "id", Err: fmt.Errorf("missing required field")}
	}
	p := e.Payload
	switch e.Action {
	case ActionCreate, ActionRemove:
		if p.Task == nil {
			return &todo.ValidationError{Path: "payload.task", Err: fmt.Errorf("required for %s", e.Action)}
		}
	case ActionComplete:
		if p.Before == nil || p.After == nil {
			return &todo.ValidationError{Path: "payload", Err: fmt.Errorf("before and after are required for %s", e.Action)}
		}
		if p.Before.ID != p.After.ID {
			return &todo.ValidationError{Path: "payload.after.id", Err: fmt.Errorf("does not match before.id")}
		}
	case ActionUndo, ActionRedo:
		if p.Target == "" {
			return &todo.ValidationError{Path: "payload.target", Err: fmt.Errorf("required for %s", e.Action)}
		}
	default:
		return &todo.ValidationError{Path: "action", Err: fmt.Errorf("unknown action %q", e.Action)}
	}
	return nil
}

// TaskID returns the id of the task the entry touches, if any.
func (e *Entry) TaskID() string {
	switch {
	case e.Payload.Task != nil:
		return e.Payload.Task.ID
	case e.Payload.After != nil:
		return e.Payload.After.ID
	default:
		return ""
	}
}

// Log is the append-only history of one user.
type Log struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewLog builds a log from entries in append order.
func NewLog(entries ...*Entry) (*Log, error) {
	l := &Log{
		entries: make([]*Entry, 0, len(entries)),
		byID:    make(map[string]*Entry, len(entries)),
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := l.byID[e.ID]; dup {
			return nil, fmt.Errorf("entry %d: duplicate id %q", i, e.ID)
		}
		l.entries = append(l.entries, e)
		l.byID[e.ID] = e
	}
	return l, nil
}

// Append adds an entry to the end of the log and returns it.
func (l *Log) Append(e *Entry) *Entry {
	l.entries = append(l.entries, e)
	l.byID[e.ID] = e
	return e
}

// With returns a new log holding l's entries followed by e, leaving l
// untouched. Entries are shared, not copied.
func (l *Log) With(e *Entry) *Log {
	next := &Log{
		entries: make([]*Entry, len(l.entries), len(l.entries)+1),
		byID:    make(map[string]*Entry, len(l.byID)+1),
	}
	copy(next.entries, l.entries)
	for id, entry := range l.byID {
		next.byID[id] = entry
	}
	next.Append(e)
	return next
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns all entries, oldest first.
func (l *Log) Entries() []*Entry {
	out := make([]*Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Find returns the entry with the given id.
func (l *Log) Find(id string) (*Entry, bool) {
	e, ok := l.byID[id]
	return e, ok
}

// Recent returns the n most recent entries, newest first. n <= 0 returns
// every entry.
func (l *Log) Recent(n int) []*Entry {
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]*Entry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Load reads, schema-validates and parses a history file.
func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &todo.PersistenceError{Op: "read", Path: path, Err: err}
	}

	if err := schema.Validate(schema.History, data); err != nil {
		return nil, &todo.PersistenceError{Op: "validate", Path: path, Err: err}
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &todo.PersistenceError{Op: "parse", Path: path, Err: err}
	}

	l, err := NewLog(entries...)
	if err != nil {
		return nil, &todo.PersistenceError{Op: "validate", Path: path, Err: err}
	}
	return l, nil
}

// Save writes the full log to path with 2-space indentation.
func (l *Log) Save(path string) error {
	entries := l.entries
	if entries == nil {
		entries = []*Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &todo.PersistenceError{Op: "marshal", Path: path, Err: err}
	}
	data = append(data, '\n')

	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return &todo.PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}
