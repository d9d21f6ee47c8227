// Package ui renders tasks for the terminal and runs the interactive dashboard.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/nibzard/todo-go/internal/history"
	"github.com/nibzard/todo-go/internal/todo"
)

// TaskStore is the part of the task store the dashboard drives.
type TaskStore interface {
	Username() string
	AllTasks() []todo.Task
	CreateTask(title, description string) (todo.Task, error)
	CompleteTask(id string) (todo.Task, error)
	RemoveTask(id string) (todo.Task, error)
	Undo() (*history.Entry, error)
	Redo() (*history.Entry, error)
	History(n int) []*history.Entry
}

// DashboardOption configures the dashboard.
type DashboardOption func(*dashboardConfig)

type dashboardConfig struct {
	styles       Styles
	historyLimit int
}

// WithStyles sets the styles used by the dashboard.
func WithStyles(s Styles) DashboardOption {
	return func(c *dashboardConfig) { c.styles = s }
}

// WithHistoryLimit sets how many entries the history panel shows.
func WithHistoryLimit(n int) DashboardOption {
	return func(c *dashboardConfig) { c.historyLimit = n }
}

// RunDashboard starts the interactive dashboard for a signed-in store.
func RunDashboard(ctx context.Context, s TaskStore, opts ...DashboardOption) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("dashboard requires a TTY")
	}

	model := newDashboardModel(s, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

type mode int

const (
	modeList mode = iota
	modeAddTitle
	modeAddDescription
	modeConfirmRemove
	modeHistory
	modeHelp
)

type dashboardModel struct {
	store        TaskStore
	styles       Styles
	historyLimit int

	tasks   []todo.Task
	cursor  int
	mode    mode
	input   textinput.Model
	title   string
	status  string
	isError bool
}

func newDashboardModel(s TaskStore, opts ...DashboardOption) *dashboardModel {
	cfg := &dashboardConfig{
		styles:       NewStyles(true),
		historyLimit: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	m := &dashboardModel{
		store:        s,
		styles:       cfg.styles,
		historyLimit: cfg.historyLimit,
		input:        ti,
		status:       "Press a to add a task, h for history, ? for help.",
	}
	m.refresh()
	return m
}

func (m *dashboardModel) Init() tea.Cmd {
	return nil
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAddTitle, modeAddDescription:
			return m.updateInput(msg)
		case modeConfirmRemove:
			return m.updateConfirm(msg.String())
		case modeHistory, modeHelp:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			default:
				m.mode = modeList
			}
			return m, nil
		default:
			return m.updateList(msg.String())
		}
	case tea.WindowSizeMsg:
		if msg.Width > 20 {
			m.input.Width = msg.Width - 20
		}
	}
	return m, nil
}

func (m *dashboardModel) updateList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "a":
		m.mode = modeAddTitle
		m.input.Placeholder = "Task title"
		m.input.SetValue("")
		m.setStatus("Enter a title, then press enter (esc to cancel).")
		return m, m.input.Focus()
	case "c":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		updated, err := m.store.CompleteTask(task.ID)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.refresh()
		if updated.Completed {
			m.setStatus(fmt.Sprintf("Completed task: \"%s\"", updated.Title))
		} else {
			m.setStatus(fmt.Sprintf("Uncompleted task: \"%s\"", updated.Title))
		}
	case "x":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmRemove
		m.setStatus(fmt.Sprintf("Remove \"%s\"? y/n", task.Title))
	case "u":
		entry, err := m.store.Undo()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.refresh()
		m.setStatus("Undid: " + entry.Details)
	case "r":
		entry, err := m.store.Redo()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.refresh()
		m.setStatus("Redid: " + entry.Details)
	case "h":
		m.mode = modeHistory
	case "?":
		m.mode = modeHelp
	}
	return m, nil
}

func (m *dashboardModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.resetInput()
		m.setStatus("Cancelled.")
		return m, nil
	case "enter":
		value := m.input.Value()
		if m.mode == modeAddTitle {
			title, err := todo.ValidateTitle(value)
			if err != nil {
				m.setError(err)
				return m, nil
			}
			m.title = title
			m.mode = modeAddDescription
			m.input.SetValue("")
			m.input.Placeholder = "Description (optional)"
			m.setStatus("Enter a description, or press enter to skip.")
			return m, nil
		}

		created, err := m.store.CreateTask(m.title, value)
		m.resetInput()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.refresh()
		for i, task := range m.tasks {
			if task.ID == created.ID {
				m.cursor = i
			}
		}
		m.setStatus(fmt.Sprintf("Created task: \"%s\"", created.Title))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *dashboardModel) updateConfirm(key string) (tea.Model, tea.Cmd) {
	m.mode = modeList
	if key != "y" && key != "Y" {
		m.setStatus("Cancelled.")
		return m, nil
	}
	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	removed, err := m.store.RemoveTask(task.ID)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.refresh()
	m.setStatus(fmt.Sprintf("Removed task: \"%s\"", removed.Title))
	return m, nil
}

func (m *dashboardModel) View() string {
	var b strings.Builder
	s := m.styles

	title := "todo: " + m.store.Username()
	b.WriteString(s.Heading.Render(title) + "\n")
	b.WriteString(s.Heading.Render(strings.Repeat("=", len(title))) + "\n\n")

	switch m.mode {
	case modeHistory:
		entries := m.store.History(m.historyLimit)
		RenderHistory(&b, s, entries, len(m.store.History(0)))
		b.WriteString("\n" + s.Muted.Render("Press any key to go back.") + "\n")
		return b.String()
	case modeHelp:
		writeHelp(&b, s)
		return b.String()
	}

	RenderSummary(&b, s, m.tasks)
	b.WriteString("\n")
	writeTaskList(&b, s, m.tasks, m.cursor)

	if m.mode == modeAddTitle || m.mode == modeAddDescription {
		b.WriteString("\n" + m.input.View() + "\n")
	}

	b.WriteString("\n")
	if m.isError {
		b.WriteString(s.Error.Render(m.status) + "\n")
	} else {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(s.Muted.Render("j/k move | a add | c complete | x remove | u undo | r redo | h history | q quit") + "\n")
	return b.String()
}

func writeTaskList(b *strings.Builder, s Styles, tasks []todo.Task, cursor int) {
	if len(tasks) == 0 {
		b.WriteString(s.Muted.Render("No tasks yet. Press a to add one.") + "\n")
		return
	}
	for i, task := range tasks {
		prefix := "  "
		if i == cursor {
			prefix = s.Selected.Render("> ")
		}
		b.WriteString(prefix + taskLine(s, Row{Position: i + 1, Task: task}) + "\n")
	}
}

func writeHelp(b *strings.Builder, s Styles) {
	b.WriteString(s.Heading.Render("Keyboard Shortcuts") + "\n\n")
	b.WriteString("  j, down      Move down\n")
	b.WriteString("  k, up        Move up\n")
	b.WriteString("  a            Add a task\n")
	b.WriteString("  c            Complete the selected task\n")
	b.WriteString("  x            Remove the selected task\n")
	b.WriteString("  u            Undo the last action\n")
	b.WriteString("  r            Redo the last undone action\n")
	b.WriteString("  h            Show history\n")
	b.WriteString("  ?            Show this help screen\n")
	b.WriteString("  q, ctrl+c    Quit\n\n")
	b.WriteString(s.Muted.Render("Press any key to go back.") + "\n")
}

func (m *dashboardModel) refresh() {
	m.tasks = m.store.AllTasks()
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *dashboardModel) selected() (todo.Task, bool) {
	if len(m.tasks) == 0 {
		m.setStatus("No tasks.")
		return todo.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m *dashboardModel) resetInput() {
	m.mode = modeList
	m.title = ""
	m.input.SetValue("")
	m.input.Blur()
}

func (m *dashboardModel) setStatus(msg string) {
	m.status = msg
	m.isError = false
}

func (m *dashboardModel) setError(err error) {
	m.status = "Error: " + err.Error()
	m.isError = true
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
