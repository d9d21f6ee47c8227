package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/todo-go/internal/history"
	"github.com/nibzard/todo-go/internal/todo"
)

// timeLayout is used for every timestamp shown to the user.
const timeLayout = "2006-01-02 15:04"

// Styles holds the lipgloss styles used by the renderers and the dashboard.
type Styles struct {
	Heading   lipgloss.Style
	Pending   lipgloss.Style
	Completed lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style
	Error     lipgloss.Style
	Selected  lipgloss.Style
}

// NewStyles returns the color styles, or plain styles when color is false.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return Styles{
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		Pending:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Completed: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		Accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		Selected:  lipgloss.NewStyle().Bold(true),
	}
}

// Row is a task together with its 1-indexed position in the full list.
// Commands address tasks by that position, so filtered views keep it.
type Row struct {
	Position int
	Task     todo.Task
}

// Rows numbers subset by each task's position in all.
func Rows(all, subset []todo.Task) []Row {
	positions := make(map[string]int, len(all))
	for i, task := range all {
		positions[task.ID] = i + 1
	}
	rows := make([]Row, 0, len(subset))
	for _, task := range subset {
		rows = append(rows, Row{Position: positions[task.ID], Task: task})
	}
	return rows
}

// RenderSummary writes task counts and the completion rate.
func RenderSummary(w io.Writer, s Styles, all []todo.Task) {
	completed := 0
	for _, task := range all {
		if task.Completed {
			completed++
		}
	}
	line := fmt.Sprintf("Total: %d  Pending: %d  Completed: %d", len(all), len(all)-completed, completed)
	if len(all) > 0 {
		line += fmt.Sprintf("  Completion rate: %d%%", completed*100/len(all))
	}
	fmt.Fprintln(w, s.Accent.Render(line))
}

// RenderTasks writes a heading followed by one line per row. Verbose adds
// the description and timestamps.
func RenderTasks(w io.Writer, s Styles, heading string, rows []Row, verbose bool) {
	writeHeading(w, s, heading)
	if len(rows) == 0 {
		fmt.Fprintln(w, s.Muted.Render("No tasks found."))
		return
	}
	for _, row := range rows {
		fmt.Fprintln(w, taskLine(s, row))
		if !verbose {
			continue
		}
		if row.Task.Description != "" {
			fmt.Fprintln(w, "   "+row.Task.Description)
		}
		fmt.Fprintln(w, s.Muted.Render("   Created: "+row.Task.CreatedAt.Local().Format(timeLayout)))
		if row.Task.CompletedAt != nil {
			fmt.Fprintln(w, s.Completed.Render("   Completed: "+row.Task.CompletedAt.Local().Format(timeLayout)))
		}
	}
}

// RenderTask writes every detail of one task, including how long it took
// to complete.
func RenderTask(w io.Writer, s Styles, row Row) {
	task := row.Task
	writeHeading(w, s, fmt.Sprintf("Task %d", row.Position))
	fmt.Fprintln(w, taskLine(s, row))
	if task.Description != "" {
		fmt.Fprintln(w, "   Description: "+task.Description)
	}
	fmt.Fprintln(w, s.Muted.Render("   ID: "+task.ID))
	fmt.Fprintln(w, s.Muted.Render("   Created: "+task.CreatedAt.Local().Format(timeLayout)))

	status := s.Pending.Render("PENDING")
	if task.Completed {
		status = s.Completed.Render("COMPLETED")
	}
	fmt.Fprintln(w, "   Status: "+status)

	if task.CompletedAt != nil {
		fmt.Fprintln(w, s.Completed.Render("   Completed: "+task.CompletedAt.Local().Format(timeLayout)))
	}
	if d, ok := task.TimeToComplete(); ok {
		fmt.Fprintln(w, s.Accent.Render("   Time to complete: "+FormatDuration(d)))
	}
}

// RenderHistory writes entries as given (callers pass them newest first)
// along with the total number of recorded actions.
func RenderHistory(w io.Writer, s Styles, entries []*history.Entry, total int) {
	writeHeading(w, s, "Action History")
	if total == 0 {
		fmt.Fprintln(w, s.Muted.Render("No actions performed yet."))
		return
	}
	fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf("Total actions: %d", total)))
	fmt.Fprintln(w)
	for i, entry := range entries {
		fmt.Fprintln(w, actionStyle(s, entry.Action).Render(fmt.Sprintf("%d. %s", i+1, entry.Details)))
		fmt.Fprintln(w, s.Muted.Render("   "+entry.Timestamp.Local().Format(timeLayout)))
	}
}

// FormatDuration renders a completion time with the two most significant
// units, rounded down to whole minutes.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%d day(s), %d hour(s)", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%d hour(s), %d minute(s)", hours, minutes%60)
	default:
		return fmt.Sprintf("%d minute(s)", minutes)
	}
}

func writeHeading(w io.Writer, s Styles, heading string) {
	fmt.Fprintln(w, s.Heading.Render(heading))
	fmt.Fprintln(w, s.Heading.Render(strings.Repeat("=", len(heading))))
}

func taskLine(s Styles, row Row) string {
	if row.Task.Completed {
		return s.Completed.Render(fmt.Sprintf("%d. [x] %s", row.Position, row.Task.Title))
	}
	return s.Pending.Render(fmt.Sprintf("%d. [ ] %s", row.Position, row.Task.Title))
}

func actionStyle(s Styles, action history.Action) lipgloss.Style {
	switch action {
	case history.ActionCreate:
		return s.Muted
	case history.ActionComplete:
		return s.Completed
	case history.ActionRemove:
		return s.Pending
	default:
		return s.Accent
	}
}
