package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/todo-go/internal/auth"
	"github.com/nibzard/todo-go/internal/config"
	"github.com/nibzard/todo-go/internal/datadir"
	"github.com/nibzard/todo-go/internal/history"
	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/schema"
	"github.com/nibzard/todo-go/internal/store"
	"github.com/nibzard/todo-go/internal/todo"
	"github.com/nibzard/todo-go/internal/undo"
)

// doctorCommand checks config and validates every data file.
func (a *app) doctorCommand(args []string) error {
	flags := a.newFlagSet("todo doctor")
	verbose := flags.Bool("v", false, "Verbose output")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := noArgs(flags.Args()); err != nil {
		return err
	}

	w := a.streams.Out
	fmt.Fprintln(w, "Todo Doctor")
	fmt.Fprintln(w, "===========")
	fmt.Fprintln(w)

	allOK := true

	// Check config
	fmt.Fprintln(w, "Config:")
	if file := a.cws.GetConfigFile(); file != "" {
		fmt.Fprintf(w, "  ✅ File: %s\n", file)
	} else {
		fmt.Fprintln(w, "  ⚠️  No config file (using defaults)")
	}
	fmt.Fprintf(w, "  ✅ Complete policy: %s\n", a.cfg.Policy())
	if *verbose {
		for _, field := range sortedFields(a.cws.Sources) {
			fmt.Fprintf(w, "     %s: %s\n", field, a.cws.Sources[field])
		}
	}
	fmt.Fprintln(w)

	// Check data directory
	dir := a.cfg.DataDir
	fmt.Fprintf(w, "Data directory: %s\n", dir)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintln(w, "  ⚠️  Not found (will be created on first use)")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	case err != nil:
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		return fmt.Errorf("doctor checks failed")
	case !info.IsDir():
		fmt.Fprintln(w, "  ❌ Error: path is not a directory")
		return fmt.Errorf("doctor checks failed")
	default:
		fmt.Fprintln(w, "  ✅ OK")
	}
	fmt.Fprintln(w)

	// Check users file
	usersPath := datadir.UsersPath(dir)
	fmt.Fprintln(w, "Users:")
	usersOK := checkDataFile(w, "Registry", usersPath, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return schema.Validate(schema.Users, data)
	})
	if !usersOK {
		allOK = false
	}
	fmt.Fprintln(w)

	if usersOK {
		if _, err := os.Stat(usersPath); err == nil {
			reg, err := auth.Open(usersPath, a.authOpts...)
			if err != nil {
				fmt.Fprintf(w, "  ❌ %v\n", err)
				allOK = false
			} else if !a.checkUserFiles(w, reg.Users(), *verbose) {
				allOK = false
			}
		}
	}

	// Check log file
	logPath := datadir.LogPath(dir)
	fmt.Fprintf(w, "Log file: %s\n", logPath)
	if _, err := os.Stat(logPath); err != nil {
		fmt.Fprintln(w, "  ⚠️  Not found (will be created on first use)")
	} else {
		fmt.Fprintln(w, "  ✅ OK")
	}
	fmt.Fprintln(w)

	// Overall status
	if allOK {
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(w, "⚠️  Some checks failed. Fix or restore the files listed above.")
	return fmt.Errorf("doctor checks failed")
}

// checkUserFiles validates each user's task and history files.
func (a *app) checkUserFiles(w io.Writer, users []auth.User, verbose bool) bool {
	ok := true
	for _, u := range users {
		fmt.Fprintf(w, "User %s:\n", u.Username)
		tasksPath := datadir.TasksPath(a.cfg.DataDir, u.Username)
		tasksOK := checkDataFile(w, "Tasks", tasksPath, func(path string) error {
			c, err := todo.Load(path)
			if err == nil && verbose {
				fmt.Fprintf(w, "     %d tasks, %d pending\n", c.Len(), len(c.Pending()))
			}
			return err
		})
		historyOK := checkDataFile(w, "History", datadir.HistoryPath(a.cfg.DataDir, u.Username), func(path string) error {
			log, err := history.Load(path)
			if err != nil {
				return err
			}
			engine, err := undo.Replay(log.Entries())
			if err != nil {
				return err
			}
			if verbose {
				fmt.Fprintf(w, "     %d entries, %d undoable, %d redoable\n", log.Len(), engine.UndoLen(), engine.RedoLen())
			}
			if _, err := os.Stat(tasksPath); errors.Is(err, fs.ErrNotExist) && log.Len() > 0 {
				return store.ErrMissingTaskFile
			}
			return nil
		})
		ok = ok && tasksOK && historyOK
		fmt.Fprintln(w)
	}
	return ok
}

// checkDataFile reports on one data file. A missing file is a warning.
func checkDataFile(w io.Writer, label, path string, load func(string) error) bool {
	fmt.Fprintf(w, "  %s: %s\n", label, path)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(w, "  ⚠️  Not found (will be created on first use)")
			return true
		}
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		return false
	}
	if info.IsDir() {
		fmt.Fprintln(w, "  ❌ Error: path is a directory")
		return false
	}

	if err := load(path); err != nil {
		var schemaErr *schema.Error
		if errors.As(err, &schemaErr) {
			fmt.Fprintln(w, "  ❌ Validation failed:")
			for _, issue := range schemaErr.Issues {
				fmt.Fprintf(w, "     - %s\n", issue)
			}
			return false
		}
		fmt.Fprintf(w, "  ❌ %v\n", err)
		return false
	}
	fmt.Fprintln(w, "  ✅ Valid")
	return true
}

func sortedFields(sources map[string]config.ConfigSource) []string {
	fields := make([]string, 0, len(sources))
	for field := range sources {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// tailCommand prints the log file.
func (a *app) tailCommand(ctx context.Context, args []string) error {
	flags := a.newFlagSet("todo tail")
	follow := flags.Bool("f", false, "Follow the log (like tail -f)")
	flags.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := flags.Int("n", 0, "Number of lines to show (0 = all)")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := noArgs(flags.Args()); err != nil {
		return err
	}

	logPath := datadir.LogPath(a.cfg.DataDir)
	if _, err := os.Stat(logPath); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(a.streams.Out, "No log file found.")
		return nil
	}

	if *follow {
		fmt.Fprintf(a.streams.Err, "Tailing: %s (Ctrl+C to stop)\n", logPath)
	}
	err := logging.TailLog(ctx, a.streams.Out, logPath, *n, *follow)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// configCommand prints the effective configuration as TOML with the source
// of every value, or an example config file.
func (a *app) configCommand(args []string) error {
	flags := a.newFlagSet("todo config")
	example := flags.Bool("example", false, "Print an example config file")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := noArgs(flags.Args()); err != nil {
		return err
	}

	w := a.streams.Out
	if *example {
		fmt.Fprint(w, config.ExampleConfig())
		return nil
	}

	if len(a.cws.Files) == 0 {
		fmt.Fprintln(w, "# No config files found")
	}
	for _, file := range a.cws.Files {
		fmt.Fprintf(w, "# Loaded: %s\n", file)
	}
	if err := toml.NewEncoder(w).Encode(a.cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# Sources:")
	for _, field := range sortedFields(a.cws.Sources) {
		fmt.Fprintf(w, "#   %s: %s\n", field, a.cws.Sources[field])
	}
	return nil
}

// schemaCommand prints the JSON Schema a data file is validated against.
func (a *app) schemaCommand(args []string) error {
	names := map[string]string{
		"tasks":   schema.Tasks,
		"history": schema.History,
		"users":   schema.Users,
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: todo schema <tasks|history|users>")
	}
	name, ok := names[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown schema %q, must be one of: tasks, history, users", args[0])
	}

	data, err := schema.Raw(name)
	if err != nil {
		return err
	}
	_, err = a.streams.Out.Write(data)
	return err
}
