package config

import (
	"os"
	"strconv"

	"github.com/nibzard/todo-go/internal/utils"
)

// loadFromEnv overrides config from environment variables. If sources is
// non-nil, it tracks the source of each value.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) {
	set := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}

	if v := os.Getenv("TODO_DATA_DIR"); v != "" {
		cfg.DataDir = v
		set("data_dir")
	}
	if v := os.Getenv("TODO_USER"); v != "" {
		cfg.User = v
		set("user")
	}
	if v := os.Getenv("TODO_COMPLETE_POLICY"); v != "" {
		cfg.CompletePolicy = v
		set("complete_policy")
	}
	if v := os.Getenv("TODO_HISTORY_LIMIT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.HistoryLimit = i
			set("history_limit")
		}
	}
	// https://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.Color = false
		set("color")
	}
	if v := os.Getenv("TODO_COLOR"); v != "" {
		cfg.Color = utils.BoolFromString(v)
		set("color")
	}

	// Logging configuration
	if v := os.Getenv("TODO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
		set("log_level")
	}
	if v := os.Getenv("TODO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
		set("log_format")
	}
	if v := os.Getenv("TODO_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = utils.BoolFromString(v)
		set("log_timestamps")
	}
	if v := os.Getenv("TODO_LOG_CALLER"); v != "" {
		cfg.LogCaller = utils.BoolFromString(v)
		set("log_caller")
	}
}
