package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nibzard/todo-go/internal/schema"
	"github.com/nibzard/todo-go/internal/utils"
)

// CompletePolicy decides what completing an already completed task does.
type CompletePolicy string

const (
	// PolicyOnce rejects completing a completed task with ErrAlreadyCompleted.
	PolicyOnce CompletePolicy = "once"
	// PolicyToggle flips the completion state on every call.
	PolicyToggle CompletePolicy = "toggle"
)

// ParseCompletePolicy normalizes a policy name. The empty string maps to
// PolicyOnce.
func ParseCompletePolicy(s string) (CompletePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "once", "one-way", "oneway":
		return PolicyOnce, nil
	case "toggle":
		return PolicyToggle, nil
	default:
		return "", fmt.Errorf("invalid complete policy %q, must be one of: once, toggle", s)
	}
}

// Task represents a single to-do item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

// Equal reports whether two tasks match in every field.
func (t Task) Equal(other Task) bool {
	if t.ID != other.ID || t.Title != other.Title || t.Description != other.Description ||
		t.Completed != other.Completed || !t.CreatedAt.Equal(other.CreatedAt) {
		return false
	}
	if (t.CompletedAt == nil) != (other.CompletedAt == nil) {
		return false
	}
	return t.CompletedAt == nil || t.CompletedAt.Equal(*other.CompletedAt)
}

// MarkCompleted sets completed and completedAt together.
func (t *Task) MarkCompleted(at time.Time) {
	t.Completed = true
	t.CompletedAt = &at
}

// MarkPending clears completed and completedAt together.
func (t *Task) MarkPending() {
	t.Completed = false
	t.CompletedAt = nil
}

// TimeToComplete returns how long the task took, or false if it is pending.
func (t Task) TimeToComplete() (time.Duration, bool) {
	if !t.Completed || t.CompletedAt == nil {
		return 0, false
	}
	return t.CompletedAt.Sub(t.CreatedAt), true
}

// Validate checks the task invariants.
func (t *Task) Validate() error {
	if t.ID == "" {
		return &ValidationError{Path: "id", Err: fmt.Errorf("missing required field")}
	}
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Path: "title", Err: fmt.Errorf("must not be empty")}
	}
	if t.Completed && t.CompletedAt == nil {
		return &ValidationError{Path: "completedAt", Err: fmt.Errorf("required when completed is true")}
	}
	if !t.Completed && t.CompletedAt != nil {
		return &ValidationError{Path: "completedAt", Err: fmt.Errorf("must be absent when completed is false")}
	}
	return nil
}

// ValidateTitle trims a title and rejects an empty result.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Path: "title", Err: fmt.Errorf("task title cannot be empty")}
	}
	return trimmed, nil
}

// Collection is the set of tasks owned by one user, keyed by id.
type Collection struct {
	tasks map[string]Task
}

// NewCollection builds a collection, rejecting invalid tasks and duplicate ids.
func NewCollection(tasks ...Task) (*Collection, error) {
	c := &Collection{tasks: make(map[string]Task, len(tasks))}
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return nil, &ValidationError{Path: fmt.Sprintf("[%d].%s", i, ve.Path), Err: ve.Err}
			}
			return nil, err
		}
		if err := c.Insert(task); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Clone returns an independent working copy.
func (c *Collection) Clone() *Collection {
	out := &Collection{tasks: make(map[string]Task, len(c.tasks))}
	for id, task := range c.tasks {
		out.tasks[id] = task.Clone()
	}
	return out
}

// Len returns the number of tasks.
func (c *Collection) Len() int {
	return len(c.tasks)
}

// Get returns a task by ID.
func (c *Collection) Get(id string) (Task, bool) {
	task, ok := c.tasks[id]
	if !ok {
		return Task{}, false
	}
	return task.Clone(), true
}

// Insert adds a task. It fails with ErrDuplicateID if the id is taken.
func (c *Collection) Insert(task Task) error {
	if _, exists := c.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, task.ID)
	}
	c.tasks[task.ID] = task.Clone()
	return nil
}

// Replace overwrites an existing task. It fails with ErrNotFound if absent.
func (c *Collection) Replace(task Task) error {
	if _, exists := c.tasks[task.ID]; !exists {
		return fmt.Errorf("%w: %q", ErrNotFound, task.ID)
	}
	c.tasks[task.ID] = task.Clone()
	return nil
}

// Delete removes a task and returns it. It fails with ErrNotFound if absent.
func (c *Collection) Delete(id string) (Task, error) {
	task, exists := c.tasks[id]
	if !exists {
		return Task{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(c.tasks, id)
	return task, nil
}

// All returns every task ordered by createdAt ascending.
func (c *Collection) All() []Task {
	out := make([]Task, 0, len(c.tasks))
	for _, task := range c.tasks {
		out = append(out, task.Clone())
	}
	SortTasks(out)
	return out
}

// Pending returns tasks that are not completed, in creation order.
func (c *Collection) Pending() []Task {
	return filter(c.All(), func(t Task) bool { return !t.Completed })
}

// Completed returns completed tasks, in creation order.
func (c *Collection) Completed() []Task {
	return filter(c.All(), func(t Task) bool { return t.Completed })
}

// At returns the task at a 1-indexed position in All order.
func (c *Collection) At(n int) (Task, error) {
	all := c.All()
	if n < 1 || n > len(all) {
		return Task{}, fmt.Errorf("%w: task number %d not found, you have %d tasks", ErrOutOfRange, n, len(all))
	}
	return all[n-1], nil
}

// SortTasks sorts tasks by createdAt ascending, then by id.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func filter(tasks []Task, keep func(Task) bool) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if keep(task) {
			out = append(out, task)
		}
	}
	return out
}

// Load reads, schema-validates and parses a task file. A missing file is
// reported with an error satisfying errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}

	if err := schema.Validate(schema.Tasks, data); err != nil {
		return nil, &PersistenceError{Op: "validate", Path: path, Err: err}
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, &PersistenceError{Op: "parse", Path: path, Err: err}
	}

	c, err := NewCollection(tasks...)
	if err != nil {
		return nil, &PersistenceError{Op: "validate", Path: path, Err: err}
	}
	return c, nil
}

// Save writes the collection to path with 2-space indentation.
func (c *Collection) Save(path string) error {
	return SaveTasks(path, c.All())
}

// SaveTasks writes tasks to path as a pretty-printed JSON array.
func SaveTasks(path string, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "marshal", Path: path, Err: err}
	}

	// Add trailing newline
	data = append(data, '\n')

	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}
