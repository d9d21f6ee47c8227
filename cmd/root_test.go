// Package cmd provides tests for CLI command handlers.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/nibzard/todo-go/internal/auth"
	"github.com/nibzard/todo-go/internal/datadir"
	"github.com/nibzard/todo-go/internal/todo"
	"github.com/nibzard/todo-go/internal/undo"
)

// isolate points HOME and the config lookups at a temp dir and returns the
// default data directory under it.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	for _, key := range []string{
		"TODO_DATA_DIR", "TODO_USER", "TODO_COMPLETE_POLICY", "TODO_HISTORY_LIMIT",
		"TODO_COLOR", "TODO_LOG_LEVEL", "TODO_LOG_FORMAT", "TODO_LOG_TIMESTAMPS", "TODO_LOG_CALLER",
		passwordEnv,
	} {
		t.Setenv(key, "")
	}
	t.Setenv("NO_COLOR", "1")
	t.Chdir(t.TempDir())
	return filepath.Join(home, ".todo")
}

// runCLI runs the CLI with input on stdin and returns stdout.
func runCLI(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(Streams{In: strings.NewReader(input), Out: &out, Err: &errOut})
	a.authOpts = []auth.Option{auth.WithCost(bcrypt.MinCost)}
	err := a.run(context.Background(), args)
	return out.String(), err
}

// mustRun runs the CLI and fails the test on error.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("todo %s: %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// registerAlice creates the alice account and signs later commands in via
// TODO_PASSWORD.
func registerAlice(t *testing.T) {
	t.Helper()
	t.Setenv(passwordEnv, "secret1")
	mustRun(t, "register", "-username", "alice", "-email", "alice@example.com")
}

// TestRun tests the main entry point.
func TestRun(t *testing.T) {
	isolate(t)

	t.Run("shows help with -h flag", func(t *testing.T) {
		out, err := runCLI(t, "", "-h")
		if err != nil {
			t.Errorf("expected no error with -h, got %v", err)
		}
		if !strings.Contains(out, "Commands:") {
			t.Errorf("help output missing commands:\n%s", out)
		}
	})

	t.Run("shows help with help command", func(t *testing.T) {
		if _, err := runCLI(t, "", "help"); err != nil {
			t.Errorf("expected no error with help command, got %v", err)
		}
	})

	t.Run("shows version", func(t *testing.T) {
		out, err := runCLI(t, "", "version")
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if out != "todo version dev\n" {
			t.Errorf("version output: got %q", out)
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		_, err := runCLI(t, "", "frobnicate")
		if err == nil || !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("expected unknown command error, got %v", err)
		}
	})

	t.Run("invalid global config is rejected", func(t *testing.T) {
		_, err := runCLI(t, "", "-complete-policy", "sometimes", "version")
		if err == nil {
			t.Error("expected error for invalid complete policy")
		}
	})
}

func TestRegisterWithPrompts(t *testing.T) {
	dir := isolate(t)

	out, err := runCLI(t, "bob\nBob@Example.com\nhunter22\nhunter22\n", "register")
	if err != nil {
		t.Fatalf("register: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Registration successful! Welcome, bob.") {
		t.Errorf("register output:\n%s", out)
	}

	reg, err := auth.Open(datadir.UsersPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	user, ok := reg.Lookup("bob")
	if !ok {
		t.Fatal("bob not registered")
	}
	if user.Email != "bob@example.com" {
		t.Errorf("email: got %q, want bob@example.com", user.Email)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"mismatched passwords", "bob\nbob@example.com\nhunter22\nhunter23\n", nil},
		{"short password", "bob\nbob@example.com\nabc\nabc\n", auth.ErrWeakPassword},
		{"bad email", "bob\nnot-an-email\nhunter22\nhunter22\n", auth.ErrInvalidEmail},
		{"truncated input", "bob\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.input, "register")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTaskWorkflow(t *testing.T) {
	isolate(t)
	registerAlice(t)

	out := mustRun(t, "-user", "alice", "add", "Buy", "milk", "-d", "2 liters")
	if !strings.Contains(out, `Created task: "Buy milk"`) {
		t.Errorf("add output:\n%s", out)
	}
	mustRun(t, "-user", "alice", "add", "Pay bills")

	out = mustRun(t, "-user", "alice", "ls", "-v")
	for _, want := range []string{"1. [ ] Buy milk", "2. [ ] Pay bills", "2 liters", "Total: 2  Pending: 2  Completed: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("ls output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "-user", "alice", "done", "1")
	if !strings.Contains(out, `Completed task 1: "Buy milk"`) {
		t.Errorf("done output:\n%s", out)
	}

	out = mustRun(t, "-user", "alice", "ls", "pending")
	if !strings.Contains(out, "2. [ ] Pay bills") || strings.Contains(out, "Buy milk") {
		t.Errorf("pending output should keep full-list positions:\n%s", out)
	}

	out = mustRun(t, "-user", "alice", "show", "1")
	for _, want := range []string{"Task 1", "Status: COMPLETED", "Time to complete: 0 minute(s)", "Description: 2 liters"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "-user", "alice", "undo")
	if !strings.Contains(out, `Undone: COMPLETE - Completed task: "Buy milk"`) {
		t.Errorf("undo output:\n%s", out)
	}
	out = mustRun(t, "-user", "alice", "redo")
	if !strings.Contains(out, `Redone: COMPLETE - Completed task: "Buy milk"`) {
		t.Errorf("redo output:\n%s", out)
	}

	out = mustRun(t, "-user", "alice", "history", "-n", "2")
	for _, want := range []string{"Total actions: 5", `1. Redid: Completed task: "Buy milk"`, `2. Undid: Completed task: "Buy milk"`} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "3. ") {
		t.Errorf("history -n 2 printed more than two entries:\n%s", out)
	}
}

func TestSignInErrors(t *testing.T) {
	isolate(t)
	registerAlice(t)

	t.Run("wrong password", func(t *testing.T) {
		t.Setenv(passwordEnv, "wrong-password")
		_, err := runCLI(t, "", "-user", "alice", "ls")
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Errorf("error: got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := runCLI(t, "", "-user", "mallory", "ls")
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Errorf("error: got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("prompts for username", func(t *testing.T) {
		out, err := runCLI(t, "alice@example.com\n", "ls")
		if err != nil {
			t.Fatalf("ls: %v", err)
		}
		if !strings.Contains(out, "Username or email: ") || !strings.Contains(out, "No tasks found.") {
			t.Errorf("ls output:\n%s", out)
		}
	})

	t.Run("prompts for password", func(t *testing.T) {
		t.Setenv(passwordEnv, "")
		if _, err := runCLI(t, "secret1\n", "-user", "alice", "ls"); err != nil {
			t.Errorf("ls with prompted password: %v", err)
		}
	})
}

func TestAddedTaskErrors(t *testing.T) {
	isolate(t)
	registerAlice(t)
	mustRun(t, "-user", "alice", "add", "Only task")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"done out of range", []string{"done", "5"}, todo.ErrNotFound},
		{"show zero", []string{"show", "0"}, todo.ErrOutOfRange},
		{"rm out of range", []string{"rm", "-y", "2"}, todo.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "", append([]string{"-user", "alice"}, tt.args...)...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("done twice with once policy", func(t *testing.T) {
		mustRun(t, "-user", "alice", "done", "1")
		_, err := runCLI(t, "", "-user", "alice", "done", "1")
		if !errors.Is(err, todo.ErrAlreadyCompleted) {
			t.Errorf("error: got %v, want ErrAlreadyCompleted", err)
		}
	})

	t.Run("done twice with toggle policy", func(t *testing.T) {
		out := mustRun(t, "-user", "alice", "-complete-policy", "toggle", "done", "1")
		if !strings.Contains(out, `Uncompleted task 1: "Only task"`) {
			t.Errorf("toggle output:\n%s", out)
		}
	})

	t.Run("invalid numbers", func(t *testing.T) {
		for _, args := range [][]string{{"done"}, {"done", "one"}, {"show", "1", "2"}} {
			if _, err := runCLI(t, "", append([]string{"-user", "alice"}, args...)...); err == nil {
				t.Errorf("todo %v: expected error", args)
			}
		}
	})

	t.Run("empty title", func(t *testing.T) {
		if _, err := runCLI(t, "", "-user", "alice", "add", "-d", "no title"); err == nil {
			t.Error("expected error for missing title")
		}
	})

	t.Run("empty undo and redo", func(t *testing.T) {
		isolate(t)
		registerAlice(t)
		if _, err := runCLI(t, "", "-user", "alice", "undo"); !errors.Is(err, undo.ErrNothingToUndo) {
			t.Errorf("undo: got %v, want ErrNothingToUndo", err)
		}
		if _, err := runCLI(t, "", "-user", "alice", "redo"); !errors.Is(err, undo.ErrNothingToRedo) {
			t.Errorf("redo: got %v, want ErrNothingToRedo", err)
		}
	})
}

func TestRemoveConfirmation(t *testing.T) {
	isolate(t)
	registerAlice(t)
	mustRun(t, "-user", "alice", "add", "Keep me")

	out, err := runCLI(t, "n\n", "-user", "alice", "rm", "1")
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !strings.Contains(out, "Task removal cancelled.") {
		t.Errorf("rm output:\n%s", out)
	}

	out, err = runCLI(t, "y\n", "-user", "alice", "rm", "1")
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !strings.Contains(out, `Removed task: "Keep me"`) {
		t.Errorf("rm output:\n%s", out)
	}

	out = mustRun(t, "-user", "alice", "ls")
	if !strings.Contains(out, "No tasks found.") {
		t.Errorf("task still listed after rm:\n%s", out)
	}

	mustRun(t, "-user", "alice", "undo")
	out = mustRun(t, "-user", "alice", "ls")
	if !strings.Contains(out, "1. [ ] Keep me") {
		t.Errorf("undo did not restore removed task:\n%s", out)
	}
}

func TestUsersCommand(t *testing.T) {
	isolate(t)
	registerAlice(t)

	out := mustRun(t, "users")
	if !strings.Contains(out, "Registered users (1):") || !strings.Contains(out, "alice <alice@example.com>") {
		t.Errorf("users output:\n%s", out)
	}
	if !strings.Contains(out, "last login: never") {
		t.Errorf("expected no login yet:\n%s", out)
	}
	if strings.Contains(out, "$2a$") {
		t.Errorf("users output leaks password hash:\n%s", out)
	}
}

func TestConfigCommand(t *testing.T) {
	isolate(t)

	out := mustRun(t, "-history-limit", "3", "config")
	for _, want := range []string{"# No config files found", "history_limit = 3", "#   history_limit: flag", "#   complete_policy: default"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}

	if err := os.WriteFile("todo.toml", []byte("complete_policy = \"toggle\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out = mustRun(t, "config")
	if !strings.Contains(out, "# Loaded: todo.toml") || !strings.Contains(out, "#   complete_policy: project file") {
		t.Errorf("config output:\n%s", out)
	}

	out = mustRun(t, "config", "-example")
	if !strings.Contains(out, "# todo configuration file") {
		t.Errorf("example output:\n%s", out)
	}
}

func TestDoctorCommand(t *testing.T) {
	dir := isolate(t)

	out := mustRun(t, "doctor")
	if !strings.Contains(out, "Not found (will be created on first use)") {
		t.Errorf("doctor on empty home:\n%s", out)
	}

	registerAlice(t)
	mustRun(t, "-user", "alice", "add", "Check me")
	mustRun(t, "-user", "alice", "undo")

	out = mustRun(t, "doctor", "-v")
	for _, want := range []string{"User alice:", "2 entries, 0 undoable, 1 redoable", "All checks passed!"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "❌") {
		t.Errorf("doctor reported failures:\n%s", out)
	}

	// A task missing its title fails schema validation.
	tasksPath := datadir.TasksPath(dir, "alice")
	if err := os.WriteFile(tasksPath, []byte(`[{"id":"x","completed":false,"createdAt":"2026-01-01T00:00:00Z"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "", "doctor")
	if err == nil {
		t.Fatalf("expected doctor to fail:\n%s", out)
	}
	if !strings.Contains(out, "Validation failed:") {
		t.Errorf("doctor output:\n%s", out)
	}

	// History entries without a task file cannot be replayed.
	if err := os.Remove(tasksPath); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, "", "doctor")
	if err == nil {
		t.Fatalf("expected doctor to fail:\n%s", out)
	}
	if !strings.Contains(out, "task file missing while history has entries") {
		t.Errorf("doctor output:\n%s", out)
	}
}

func TestTailCommand(t *testing.T) {
	isolate(t)

	out := mustRun(t, "tail")
	if out != "No log file found.\n" {
		t.Errorf("tail without log: got %q", out)
	}

	registerAlice(t)
	out = mustRun(t, "tail", "-n", "1")
	if !strings.Contains(out, "registered user") {
		t.Errorf("tail output:\n%s", out)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Errorf("tail -n 1 printed more than one line:\n%s", out)
	}
}

func TestTUIRequiresTerminal(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "", "tui")
	if err == nil || !strings.Contains(err.Error(), "terminal") {
		t.Errorf("expected terminal error, got %v", err)
	}
}

func TestParseArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	d := fs.String("d", "", "")
	v := fs.Bool("v", false, "")

	got, err := parseArgs(fs, []string{"Buy", "-d", "desc", "milk", "-v"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if strings.Join(got, " ") != "Buy milk" {
		t.Errorf("positional: got %v, want [Buy milk]", got)
	}
	if *d != "desc" || !*v {
		t.Errorf("flags: got d=%q v=%v", *d, *v)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{[]string{"3"}, 3, false},
		{[]string{" 1 "}, 1, false},
		{[]string{"x"}, 0, true},
		{nil, 0, true},
		{[]string{"1", "2"}, 0, true},
	}
	for _, tt := range tests {
		got, err := parsePosition(tt.args, "todo done <n>")
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePosition(%v): err = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePosition(%v): got %d, want %d", tt.args, got, tt.want)
		}
	}
}

func TestUnregisterCommand(t *testing.T) {
	dir := isolate(t)
	registerAlice(t)
	mustRun(t, "-user", "alice", "add", "Doomed")

	out, err := runCLI(t, "no\n", "-user", "alice", "unregister")
	if err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if !strings.Contains(out, "Account deletion cancelled.") {
		t.Errorf("unregister output:\n%s", out)
	}

	out = mustRun(t, "-user", "alice", "unregister", "-y")
	if !strings.Contains(out, "Account alice deleted.") {
		t.Errorf("unregister output:\n%s", out)
	}
	if _, err := os.Stat(datadir.TasksPath(dir, "alice")); !os.IsNotExist(err) {
		t.Errorf("tasks file still present: %v", err)
	}
	if _, err := runCLI(t, "", "-user", "alice", "ls"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("sign in after unregister: got %v, want ErrInvalidCredentials", err)
	}
}

func TestSchemaCommand(t *testing.T) {
	isolate(t)

	out := mustRun(t, "schema", "history")
	if !strings.Contains(out, `"title": "todo history file"`) {
		t.Errorf("schema output:\n%s", out)
	}
	if _, err := runCLI(t, "", "schema", "nope"); err == nil {
		t.Error("expected error for unknown schema")
	}
	if _, err := runCLI(t, "", "schema"); err == nil {
		t.Error("expected usage error")
	}
}
