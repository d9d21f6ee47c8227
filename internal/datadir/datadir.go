// Package datadir provides constants and utilities for the todo data directory layout.
package datadir

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDir is the data directory used when none is configured.
	DefaultDir = "~/.todo"

	// UsersFile is the user registry file name.
	UsersFile = "users.json"

	// LogFile is the application log file name.
	LogFile = "todo.log"

	// ConfigFile is the user config file name.
	ConfigFile = "todo.toml"

	tasksPrefix   = "tasks_"
	historyPrefix = "history_"
)

// TasksPath returns the task file of a user within a data directory.
func TasksPath(dir, username string) string {
	return filepath.Join(dir, tasksPrefix+Slug(username)+".json")
}

// HistoryPath returns the history file of a user within a data directory.
func HistoryPath(dir, username string) string {
	return filepath.Join(dir, historyPrefix+Slug(username)+".json")
}

// UsersPath returns the user registry path within a data directory.
func UsersPath(dir string) string {
	return filepath.Join(dir, UsersFile)
}

// LogPath returns the log file path within a data directory.
func LogPath(dir string) string {
	return filepath.Join(dir, LogFile)
}

// ConfigPath returns the config file path within a data directory.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFile)
}

// Ensure creates the data directory if it does not exist.
func Ensure(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("data dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// Slug turns a username into a file name fragment. The lowercased name keeps
// the files recognizable, the hash of the raw name keeps distinct names apart.
func Slug(username string) string {
	return fmt.Sprintf("%s-%s", slugify(strings.ToLower(username)), hashName(username))
}

func slugify(input string) string {
	if strings.TrimSpace(input) == "" {
		return "user"
	}

	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_.")
	if slug == "" {
		return "user"
	}
	return slug
}

func hashName(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}
