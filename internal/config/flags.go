package config

import (
	"flag"
)

// parseFlags defines and parses the global CLI flags. Flags are bound to the
// config fields with the current values as defaults, so flags left unset do
// not change anything. If sources is non-nil, set flags are recorded.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("todo", flag.ContinueOnError)
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Data directory for task, history and user files")
	fs.StringVar(&cfg.User, "user", cfg.User, "Username or email to sign in with")
	fs.StringVar(&cfg.CompletePolicy, "complete-policy", cfg.CompletePolicy, "Completion policy (once, toggle)")
	fs.IntVar(&cfg.HistoryLimit, "history-limit", cfg.HistoryLimit, "Default number of history entries to show")

	noColor := !cfg.Color
	fs.BoolVar(&noColor, "no-color", noColor, "Disable colored output")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Map flag names to source field names
	flagToSource := map[string]string{
		"data-dir":        "data_dir",
		"user":            "user",
		"complete-policy": "complete_policy",
		"history-limit":   "history_limit",
		"no-color":        "color",
		"log-level":       "log_level",
		"log-format":      "log_format",
		"log-timestamps":  "log_timestamps",
		"log-caller":      "log_caller",
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "no-color" {
			cfg.Color = !noColor
		}
		if sources == nil {
			return
		}
		if field, ok := flagToSource[f.Name]; ok {
			sources[field] = SourceFlag
		}
	})

	return nil
}
