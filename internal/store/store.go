// Package store is the per-user task store. It owns the task collection,
// the history log and the undo/redo engine of one signed-in user and keeps
// the two data files in step with memory.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todo-go/internal/datadir"
	"github.com/nibzard/todo-go/internal/history"
	"github.com/nibzard/todo-go/internal/todo"
	"github.com/nibzard/todo-go/internal/undo"
)

// ErrMissingTaskFile is returned by Open when the task file is gone but the
// history still records actions.
var ErrMissingTaskFile = errors.New("task file missing while history has entries")

// Store is one user's session. It is not safe for concurrent use.
type Store struct {
	username    string
	tasksPath   string
	historyPath string

	tasks  *todo.Collection
	log    *history.Log
	engine *undo.Engine

	clock  Clock
	ids    IDGenerator
	policy todo.CompletePolicy
	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator sets the generator for task and entry ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithPolicy sets the completion policy.
func WithPolicy(p todo.CompletePolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger. Operations log at debug level.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the data files of username from dir, creating empty ones when
// missing, and rebuilds the undo/redo stacks from the history.
func Open(dir, username string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(username) == "" {
		return nil, &todo.ValidationError{Path: "username", Err: fmt.Errorf("must not be empty")}
	}
	if err := datadir.Ensure(dir); err != nil {
		return nil, err
	}

	s := &Store{
		username:    username,
		tasksPath:   datadir.TasksPath(dir, username),
		historyPath: datadir.HistoryPath(dir, username),
		clock:       RealClock{},
		ids:         UUIDGenerator{},
		policy:      todo.PolicyOnce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}

	hist, err := history.Load(s.historyPath)
	if errors.Is(err, fs.ErrNotExist) {
		hist, _ = history.NewLog()
		if err = hist.Save(s.historyPath); err == nil {
			s.logger.Info("created history file", "user", username, "path", s.historyPath)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}

	tasks, err := todo.Load(s.tasksPath)
	if errors.Is(err, fs.ErrNotExist) {
		if hist.Len() > 0 {
			return nil, &todo.PersistenceError{Op: "read", Path: s.tasksPath, Err: ErrMissingTaskFile}
		}
		tasks, _ = todo.NewCollection()
		if err = tasks.Save(s.tasksPath); err == nil {
			s.logger.Info("created task file", "user", username, "path", s.tasksPath)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open task file: %w", err)
	}

	engine, err := undo.Replay(hist.Entries())
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", s.historyPath, err)
	}

	s.tasks = tasks
	s.log = hist
	s.engine = engine
	s.logger.Debug("store opened", "user", username, "tasks", tasks.Len(), "history", hist.Len(),
		"undo", engine.UndoLen(), "redo", engine.RedoLen())
	return s, nil
}

// Username returns the user the store belongs to.
func (s *Store) Username() string { return s.username }

// TasksPath returns the task file path.
func (s *Store) TasksPath() string { return s.tasksPath }

// HistoryPath returns the history file path.
func (s *Store) HistoryPath() string { return s.historyPath }

// Policy returns the completion policy in effect.
func (s *Store) Policy() todo.CompletePolicy { return s.policy }

// CreateTask adds a pending task. Title and description are stored trimmed.
func (s *Store) CreateTask(title, description string) (todo.Task, error) {
	title, err := todo.ValidateTitle(title)
	if err != nil {
		return todo.Task{}, err
	}

	now := s.clock.Now()
	task := todo.Task{
		ID:          s.ids.NewID(),
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
	}

	next := s.tasks.Clone()
	if err := next.Insert(task); err != nil {
		return todo.Task{}, err
	}

	entry := history.NewEntry(s.ids.NewID(), history.ActionCreate,
		fmt.Sprintf("Created task: \"%s\"", task.Title), now, history.Payload{Task: &task})
	if err := s.record(next, entry); err != nil {
		return todo.Task{}, err
	}

	s.logger.Debug("task created", "user", s.username, "task", task.ID)
	return task, nil
}

// CompleteTask marks a task completed. Under the toggle policy a completed
// task goes back to pending; under the once policy it fails with
// todo.ErrAlreadyCompleted.
func (s *Store) CompleteTask(id string) (todo.Task, error) {
	before, ok := s.tasks.Get(id)
	if !ok {
		return todo.Task{}, fmt.Errorf("complete task %q: %w", id, todo.ErrNotFound)
	}

	now := s.clock.Now()
	after := before.Clone()
	var details string
	switch {
	case !before.Completed:
		after.MarkCompleted(now)
		details = fmt.Sprintf("Completed task: \"%s\"", before.Title)
	case s.policy == todo.PolicyToggle:
		after.MarkPending()
		details = fmt.Sprintf("Uncompleted task: \"%s\"", before.Title)
	default:
		return todo.Task{}, fmt.Errorf("complete task %q: %w", before.Title, todo.ErrAlreadyCompleted)
	}

	next := s.tasks.Clone()
	if err := next.Replace(after); err != nil {
		return todo.Task{}, err
	}

	entry := history.NewEntry(s.ids.NewID(), history.ActionComplete, details, now,
		history.Payload{Before: &before, After: &after})
	if err := s.record(next, entry); err != nil {
		return todo.Task{}, err
	}

	s.logger.Debug("task completion changed", "user", s.username, "task", id, "completed", after.Completed)
	return after, nil
}

// RemoveTask deletes a task and returns it.
func (s *Store) RemoveTask(id string) (todo.Task, error) {
	next := s.tasks.Clone()
	removed, err := next.Delete(id)
	if err != nil {
		return todo.Task{}, fmt.Errorf("remove task: %w", err)
	}

	entry := history.NewEntry(s.ids.NewID(), history.ActionRemove,
		fmt.Sprintf("Removed task: \"%s\"", removed.Title), s.clock.Now(), history.Payload{Task: &removed})
	if err := s.record(next, entry); err != nil {
		return todo.Task{}, err
	}

	s.logger.Debug("task removed", "user", s.username, "task", id)
	return removed, nil
}

// AllTasks returns every task in creation order.
func (s *Store) AllTasks() []todo.Task { return s.tasks.All() }

// PendingTasks returns tasks not yet completed, in creation order.
func (s *Store) PendingTasks() []todo.Task { return s.tasks.Pending() }

// CompletedTasks returns completed tasks, in creation order.
func (s *Store) CompletedTasks() []todo.Task { return s.tasks.Completed() }

// TaskAt returns the task at a 1-indexed position in AllTasks order.
func (s *Store) TaskAt(n int) (todo.Task, error) { return s.tasks.At(n) }

// Task looks a task up by id.
func (s *Store) Task(id string) (todo.Task, error) {
	task, ok := s.tasks.Get(id)
	if !ok {
		return todo.Task{}, fmt.Errorf("%w: %q", todo.ErrNotFound, id)
	}
	return task, nil
}

// History returns the n most recent entries, newest first. n <= 0 returns
// all of them.
func (s *Store) History(n int) []*history.Entry { return s.log.Recent(n) }

// CanUndo reports whether Undo has an entry to act on.
func (s *Store) CanUndo() bool { return s.engine.CanUndo() }

// CanRedo reports whether Redo has an entry to act on.
func (s *Store) CanRedo() bool { return s.engine.CanRedo() }

// UndoDepth returns the number of undoable actions.
func (s *Store) UndoDepth() int { return s.engine.UndoLen() }

// RedoDepth returns the number of redoable actions.
func (s *Store) RedoDepth() int { return s.engine.RedoLen() }

// Undo reverses the most recent action and returns its entry. It fails with
// undo.ErrNothingToUndo when there is nothing left to reverse.
func (s *Store) Undo() (*history.Entry, error) {
	entry, err := s.engine.Undo(func(e *history.Entry) error {
		next := s.tasks.Clone()
		if err := revert(next, e); err != nil {
			return fmt.Errorf("undo %s: %w", e.ID, err)
		}
		marker := history.NewEntry(s.ids.NewID(), history.ActionUndo, "Undid: "+e.Details,
			s.clock.Now(), history.Payload{Target: e.ID})
		return s.commit(next, marker)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("undo", "user", s.username, "action", entry.Action, "task", entry.TaskID())
	return entry, nil
}

// Redo reapplies the most recently undone action and returns its entry. It
// fails with undo.ErrNothingToRedo when nothing was undone since the last
// new action.
func (s *Store) Redo() (*history.Entry, error) {
	entry, err := s.engine.Redo(func(e *history.Entry) error {
		next := s.tasks.Clone()
		if err := apply(next, e); err != nil {
			return fmt.Errorf("redo %s: %w", e.ID, err)
		}
		marker := history.NewEntry(s.ids.NewID(), history.ActionRedo, "Redid: "+e.Details,
			s.clock.Now(), history.Payload{Target: e.ID})
		return s.commit(next, marker)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("redo", "user", s.username, "action", entry.Action, "task", entry.TaskID())
	return entry, nil
}

// record commits a new user action and pushes it onto the undo stack.
func (s *Store) record(next *todo.Collection, entry *history.Entry) error {
	if err := s.commit(next, entry); err != nil {
		return err
	}
	s.engine.Push(entry)
	return nil
}

// commit writes next and the log extended by entry, then swaps them into
// memory. Memory is untouched on failure. If the history write fails the
// previous task file is written back.
func (s *Store) commit(next *todo.Collection, entry *history.Entry) error {
	nextLog := s.log.With(entry)

	if err := next.Save(s.tasksPath); err != nil {
		s.logger.Error("save tasks", "user", s.username, "err", err)
		return err
	}
	if err := nextLog.Save(s.historyPath); err != nil {
		s.logger.Error("save history", "user", s.username, "err", err)
		if rbErr := s.tasks.Save(s.tasksPath); rbErr != nil {
			s.logger.Error("restore task file", "user", s.username, "err", rbErr)
		}
		return err
	}

	s.tasks = next
	s.log = nextLog
	return nil
}

// revert applies the inverse of a recorded action.
func revert(c *todo.Collection, e *history.Entry) error {
	switch e.Action {
	case history.ActionCreate:
		_, err := c.Delete(e.Payload.Task.ID)
		return err
	case history.ActionComplete:
		return c.Replace(*e.Payload.Before)
	case history.ActionRemove:
		return c.Insert(*e.Payload.Task)
	default:
		return fmt.Errorf("action %s cannot be undone", e.Action)
	}
}

// apply replays the forward effect of a recorded action.
func apply(c *todo.Collection, e *history.Entry) error {
	switch e.Action {
	case history.ActionCreate:
		return c.Insert(*e.Payload.Task)
	case history.ActionComplete:
		return c.Replace(*e.Payload.After)
	case history.ActionRemove:
		_, err := c.Delete(e.Payload.Task.ID)
		return err
	default:
		return fmt.Errorf("action %s cannot be redone", e.Action)
	}
}
