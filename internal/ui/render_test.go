package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/todo-go/internal/history"
	"github.com/nibzard/todo-go/internal/todo"
)

var created = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func sampleTasks() []todo.Task {
	done := created.Add(26*time.Hour + time.Minute)
	return []todo.Task{
		{ID: "t1", Title: "Buy milk", Description: "2 liters", CreatedAt: created},
		{ID: "t2", Title: "Pay bills", Completed: true, CreatedAt: created.Add(time.Minute), CompletedAt: &done},
		{ID: "t3", Title: "Call mom", CreatedAt: created.Add(2 * time.Minute)},
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 minute(s)"},
		{59 * time.Second, "0 minute(s)"},
		{45 * time.Minute, "45 minute(s)"},
		{2*time.Hour + 5*time.Minute, "2 hour(s), 5 minute(s)"},
		{26 * time.Hour, "1 day(s), 2 hour(s)"},
		{-time.Hour, "0 minute(s)"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRowsKeepFullListPositions(t *testing.T) {
	all := sampleTasks()
	pending := []todo.Task{all[0], all[2]}

	rows := Rows(all, pending)
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}
	if rows[0].Position != 1 || rows[1].Position != 3 {
		t.Errorf("positions: got %d,%d, want 1,3", rows[0].Position, rows[1].Position)
	}
}

func TestRenderTasks(t *testing.T) {
	all := sampleTasks()
	var buf bytes.Buffer
	RenderTasks(&buf, NewStyles(false), "All Tasks", Rows(all, all), false)

	out := buf.String()
	for _, want := range []string{"All Tasks\n=========\n", "1. [ ] Buy milk\n", "2. [x] Pay bills\n", "3. [ ] Call mom\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2 liters") {
		t.Errorf("description shown without verbose:\n%s", out)
	}

	buf.Reset()
	RenderTasks(&buf, NewStyles(false), "All Tasks", Rows(all, all), true)
	if !strings.Contains(buf.String(), "   2 liters\n") {
		t.Errorf("verbose output missing description:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Completed: ") {
		t.Errorf("verbose output missing completion time:\n%s", buf.String())
	}
}

func TestRenderTasksEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderTasks(&buf, NewStyles(false), "Pending Tasks", nil, false)
	if !strings.Contains(buf.String(), "No tasks found.") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestRenderTask(t *testing.T) {
	all := sampleTasks()
	var buf bytes.Buffer
	RenderTask(&buf, NewStyles(false), Row{Position: 2, Task: all[1]})

	out := buf.String()
	for _, want := range []string{"Task 2", "ID: t2", "Status: COMPLETED", "Time to complete: 1 day(s), 2 hour(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	RenderTask(&buf, NewStyles(false), Row{Position: 1, Task: all[0]})
	if strings.Contains(buf.String(), "Time to complete") {
		t.Errorf("pending task should have no completion time:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Status: PENDING") {
		t.Errorf("expected pending status:\n%s", buf.String())
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, NewStyles(false), sampleTasks())
	want := "Total: 3  Pending: 2  Completed: 1  Completion rate: 33%\n"
	if buf.String() != want {
		t.Errorf("RenderSummary: got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	RenderSummary(&buf, NewStyles(false), nil)
	if strings.Contains(buf.String(), "rate") {
		t.Errorf("empty summary should omit completion rate: %q", buf.String())
	}
}

func TestRenderHistory(t *testing.T) {
	task := sampleTasks()[0]
	entries := []*history.Entry{
		history.NewEntry("h2", history.ActionRemove, `Removed task: "Buy milk"`, created.Add(time.Hour), history.Payload{Task: &task}),
		history.NewEntry("h1", history.ActionCreate, `Created task: "Buy milk"`, created, history.Payload{Task: &task}),
	}

	var buf bytes.Buffer
	RenderHistory(&buf, NewStyles(false), entries, 7)
	out := buf.String()
	if !strings.Contains(out, "Total actions: 7") {
		t.Errorf("missing total:\n%s", out)
	}
	first := strings.Index(out, `1. Removed task: "Buy milk"`)
	second := strings.Index(out, `2. Created task: "Buy milk"`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("entries not rendered in given order:\n%s", out)
	}

	buf.Reset()
	RenderHistory(&buf, NewStyles(false), nil, 0)
	if !strings.Contains(buf.String(), "No actions performed yet.") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestIsTTYNonFile(t *testing.T) {
	if IsTTY(&bytes.Buffer{}) {
		t.Error("IsTTY(bytes.Buffer): got true, want false")
	}
}
