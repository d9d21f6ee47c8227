package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# todo configuration file
# Values can be overridden by TODO_* environment variables or CLI flags

# Directory holding users.json, the per-user task and history files and
# todo.log (supports ~ expansion and %VAR% on Windows)
data_dir = "~/.todo"

# Default username or email for signed-in commands
# user = "alice"

# What "done" does on an already completed task:
#   once   - refuse with an error
#   toggle - mark it pending again
complete_policy = "once"

# Number of entries "todo history" shows by default (0 = all)
history_limit = 10

# Colored output (NO_COLOR in the environment turns this off)
color = true

# Logging
log_level = "info"      # debug, info, warn, error
log_format = "text"     # text, json, logfmt
log_timestamps = true
log_caller = false
`
}
