package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todo-go/internal/datadir"
	"github.com/nibzard/todo-go/internal/todo"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Default values.
const (
	DefaultDataDir        = datadir.DefaultDir
	DefaultCompletePolicy = string(todo.PolicyOnce)
	DefaultHistoryLimit   = 10
	DefaultColor          = true
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config holds the full configuration for todo.
type Config struct {
	// Paths
	DataDir string `toml:"data_dir"`

	// Default user for signed-in commands
	User string `toml:"user"`

	// Store behaviour
	CompletePolicy string `toml:"complete_policy"`
	HistoryLimit   int    `toml:"history_limit"`

	// Output
	Color bool `toml:"color"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`
}

// Policy returns the parsed completion policy. Validate reports bad values;
// an invalid value here falls back to the once policy.
func (c *Config) Policy() todo.CompletePolicy {
	p, err := todo.ParseCompletePolicy(c.CompletePolicy)
	if err != nil {
		return todo.PolicyOnce
	}
	return p
}

// Validate checks values that cannot be checked while parsing.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if _, err := todo.ParseCompletePolicy(c.CompletePolicy); err != nil {
		return err
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be >= 0, got %d", c.HistoryLimit)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log_format %q, must be one of: text, json, logfmt", c.LogFormat)
	}
	return nil
}
