// Package logging provides tests for the application logger and tail output.
package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.InfoLevel},
		{"nonsense", log.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFormatter(t *testing.T) {
	tests := []struct {
		input string
		want  log.Formatter
	}{
		{"json", log.JSONFormatter},
		{"logfmt", log.LogfmtFormatter},
		{"text", log.TextFormatter},
		{"", log.TextFormatter},
	}

	for _, tt := range tests {
		if got := ParseFormatter(tt.input); got != tt.want {
			t.Errorf("ParseFormatter(%q): got %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, OptionsFromConfig("debug", "logfmt", false, false))

	logger.Debug("task created", "user", "alice", "task", "t1")

	out := buf.String()
	for _, want := range []string{"level=debug", "prefix=todo", `msg="task created"`, "user=alice", "task=t1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestOpenAppendsToLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	var stderr bytes.Buffer
	logger, err := openWithStderr(dir, OptionsFromConfig("info", "logfmt", false, false), &stderr)
	if err != nil {
		t.Fatalf("openWithStderr: %v", err)
	}
	logger.Info("first")
	logger.Debug("hidden")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	logger, err = openWithStderr(dir, OptionsFromConfig("info", "logfmt", false, false), &stderr)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	logger.Info("second")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "todo.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("expected both records, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %q", out)
	}
	if stderr.Len() != 0 {
		t.Errorf("expected nothing on stderr at info level, got %q", stderr.String())
	}
}

func TestOpenDebugCopiesToStderr(t *testing.T) {
	var stderr bytes.Buffer
	logger, err := openWithStderr(t.TempDir(), OptionsFromConfig("debug", "logfmt", false, false), &stderr)
	if err != nil {
		t.Fatalf("openWithStderr: %v", err)
	}
	defer logger.Close()

	logger.Debug("visible")
	if !strings.Contains(stderr.String(), "visible") {
		t.Errorf("expected debug record on stderr, got %q", stderr.String())
	}
}

func TestCloseNil(t *testing.T) {
	var logger *FileLogger
	if err := logger.Close(); err != nil {
		t.Errorf("Close on nil: got %v, want nil", err)
	}
}

func writeLines(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestTailLog(t *testing.T) {
	tests := []struct {
		name      string
		lines     int
		n         int
		wantLines int
	}{
		{"all lines", 5, 0, 5},
		{"last two", 5, 2, 2},
		{"more than available", 3, 10, 3},
		{"large file", 5000, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "todo.log")
			writeLines(t, path, tt.lines)

			var buf bytes.Buffer
			if err := TailLog(context.Background(), &buf, path, tt.n, false); err != nil {
				t.Fatalf("TailLog: %v", err)
			}

			got := strings.Count(buf.String(), "\n")
			if got != tt.wantLines {
				t.Errorf("lines: got %d, want %d (%q)", got, tt.wantLines, buf.String())
			}
		})
	}
}

func TestTailLogExactContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := TailLog(context.Background(), &buf, path, 2, false); err != nil {
		t.Fatalf("TailLog: %v", err)
	}
	if got, want := buf.String(), "two\nthree\n"; got != want {
		t.Errorf("TailLog: got %q, want %q", got, want)
	}
}

func TestTailLogMissingFile(t *testing.T) {
	err := TailLog(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.log"), 0, false)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestTailLogFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.log")
	if err := os.WriteFile(path, []byte("before\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- TailLog(ctx, out, path, 0, true)
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("after\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "after") {
		if time.Now().After(deadline) {
			t.Fatalf("followed output never showed appended line: %q", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("TailLog returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TailLog did not stop after cancel")
	}
	if !strings.HasPrefix(out.String(), "before\n") {
		t.Errorf("expected existing content first, got %q", out.String())
	}
}
