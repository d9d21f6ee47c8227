// Package cmd implements the CLI command structure for todo.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/nibzard/todo-go/internal/auth"
	"github.com/nibzard/todo-go/internal/config"
	"github.com/nibzard/todo-go/internal/datadir"
	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/store"
	"github.com/nibzard/todo-go/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// passwordEnv names the environment variable read before prompting for a
// password.
const passwordEnv = "TODO_PASSWORD"

// Streams are the standard streams a command reads from and writes to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run executes the todo CLI on the process streams.
func Run(ctx context.Context, args []string) error {
	return RunWithStreams(ctx, args, Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}

// RunWithStreams executes the todo CLI on the given streams.
func RunWithStreams(ctx context.Context, args []string, streams Streams) error {
	return newApp(streams).run(ctx, args)
}

type app struct {
	streams Streams
	in      *bufio.Reader

	cws    *config.ConfigWithSources
	cfg    *config.Config
	styles ui.Styles
	logger *logging.FileLogger

	authOpts  []auth.Option
	storeOpts []store.Option
}

func newApp(streams Streams) *app {
	if streams.In == nil {
		streams.In = strings.NewReader("")
	}
	if streams.Out == nil {
		streams.Out = io.Discard
	}
	if streams.Err == nil {
		streams.Err = io.Discard
	}
	return &app{streams: streams, in: bufio.NewReader(streams.In)}
}

func (a *app) run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(a.streams.Err)
	fs.Usage = func() {
		printUsage(fs, a.streams.Err)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cws = cws
	a.cfg = cws.Config
	a.styles = ui.NewStyles(a.cfg.Color)
	defer a.closeLogger()

	if *help {
		printUsage(fs, a.streams.Out)
		return nil
	}
	if *showVersion {
		return a.versionCommand()
	}

	// No subcommand lists every task
	subcommand := "ls"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "register":
		return a.registerCommand(remainingArgs)
	case "add":
		return a.addCommand(remainingArgs)
	case "done", "complete":
		return a.doneCommand(remainingArgs)
	case "rm", "remove":
		return a.rmCommand(remainingArgs)
	case "ls", "list":
		return a.lsCommand(remainingArgs)
	case "show":
		return a.showCommand(remainingArgs)
	case "undo":
		return a.undoCommand(remainingArgs)
	case "redo":
		return a.redoCommand(remainingArgs)
	case "history":
		return a.historyCommand(remainingArgs)
	case "tui":
		return a.tuiCommand(ctx, remainingArgs)
	case "users":
		return a.usersCommand(remainingArgs)
	case "unregister":
		return a.unregisterCommand(remainingArgs)
	case "doctor":
		return a.doctorCommand(remainingArgs)
	case "tail":
		return a.tailCommand(ctx, remainingArgs)
	case "config":
		return a.configCommand(remainingArgs)
	case "schema":
		return a.schemaCommand(remainingArgs)
	case "version":
		return a.versionCommand()
	case "help":
		printUsage(fs, a.streams.Out)
		return nil
	default:
		fmt.Fprintf(a.streams.Err, "Unknown command: %s\n", subcommand)
		printUsage(fs, a.streams.Err)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// log returns the application logger, opening the log file on first use.
func (a *app) log() *log.Logger {
	if a.logger != nil {
		return a.logger.Logger
	}
	opts := logging.OptionsFromConfig(a.cfg.LogLevel, a.cfg.LogFormat, a.cfg.LogTimestamps, a.cfg.LogCaller)
	logger, err := logging.Open(a.cfg.DataDir, opts)
	if err != nil {
		fmt.Fprintf(a.streams.Err, "Warning: logging disabled: %v\n", err)
		a.logger = &logging.FileLogger{Logger: logging.Discard()}
		return a.logger.Logger
	}
	a.logger = logger
	return a.logger.Logger
}

func (a *app) closeLogger() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// registry opens the user registry in the data directory.
func (a *app) registry() (*auth.Registry, error) {
	if err := datadir.Ensure(a.cfg.DataDir); err != nil {
		return nil, err
	}
	return auth.Open(datadir.UsersPath(a.cfg.DataDir), a.authOpts...)
}

// signIn authenticates the configured user and opens their task store.
func (a *app) signIn() (*store.Store, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}

	identifier := a.cfg.User
	if identifier == "" {
		identifier, err = a.prompt("Username or email: ")
		if err != nil {
			return nil, err
		}
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return nil, err
	}

	user, err := reg.Authenticate(identifier, password)
	if err != nil {
		a.log().Warn("sign in failed", "user", identifier)
		return nil, err
	}
	a.log().Debug("signed in", "user", user.Username)

	opts := []store.Option{
		store.WithPolicy(a.cfg.Policy()),
		store.WithLogger(a.log()),
	}
	opts = append(opts, a.storeOpts...)
	return store.Open(a.cfg.DataDir, user.Username, opts...)
}

// prompt writes label and reads one line of input.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.streams.Out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading input: unexpected end of input")
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (a *app) confirm(question string) (bool, error) {
	answer, err := a.prompt(question)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// readPassword returns TODO_PASSWORD if set, reads without echo from a
// terminal, and falls back to a plain line otherwise.
func (a *app) readPassword(label string) (string, error) {
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	if f, ok := a.streams.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.streams.Out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.streams.Out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	return a.prompt(label)
}

// newFlagSet returns a subcommand flag set reporting to the error stream.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.streams.Err)
	return fs
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// parsePosition parses a 1-indexed task number.
func parsePosition(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid task number %q", args[0])
	}
	return n, nil
}

func noArgs(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return nil
}

// versionCommand prints version information.
func (a *app) versionCommand() error {
	fmt.Fprintf(a.streams.Out, "todo version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Todo - A multi-user command line task manager with undo and redo")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  todo [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  register              Create an account")
	fmt.Fprintln(w, "  add <title> [-d text] Create a task")
	fmt.Fprintln(w, "  done <n>              Complete task number n")
	fmt.Fprintln(w, "  rm <n> [-y]           Remove task number n")
	fmt.Fprintln(w, "  ls [filter] [-v]      List tasks (all|pending|completed, default command)")
	fmt.Fprintln(w, "  show <n>              Show task details and time to complete")
	fmt.Fprintln(w, "  undo                  Undo the last action")
	fmt.Fprintln(w, "  redo                  Redo the last undone action")
	fmt.Fprintln(w, "  history [-n N]        Show recent actions, newest first")
	fmt.Fprintln(w, "  tui                   Launch the interactive dashboard")
	fmt.Fprintln(w, "  users                 List registered users")
	fmt.Fprintln(w, "  unregister [-y]       Delete your account and its tasks")
	fmt.Fprintln(w, "  doctor [-v]           Check config and data files")
	fmt.Fprintln(w, "  tail [-n N] [-f]      Print the log file")
	fmt.Fprintln(w, "  config [-example]     Print the effective configuration")
	fmt.Fprintln(w, "  schema <name>         Print a data file JSON Schema (tasks|history|users)")
	fmt.Fprintln(w, "  version               Show version information")
	fmt.Fprintln(w, "  help                  Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Task numbers refer to positions in 'todo ls all'.")
	fmt.Fprintf(w, "Signed-in commands read the password from %s or prompt for it.\n", passwordEnv)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
