package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nibzard/todo-go/internal/datadir"
	"github.com/nibzard/todo-go/internal/ui"
)

// registerCommand creates an account, prompting for anything not given.
func (a *app) registerCommand(args []string) error {
	fs := a.newFlagSet("todo register")
	username := fs.String("username", "", "Username (prompted if empty)")
	email := fs.String("email", "", "Email address (prompted if empty)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := noArgs(fs.Args()); err != nil {
		return err
	}

	reg, err := a.registry()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.streams.Out, a.styles.Heading.Render("Register"))
	if *username == "" {
		if *username, err = a.prompt("Username: "); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := a.readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	user, err := reg.Register(*username, *email, password)
	if err != nil {
		return err
	}
	a.log().Info("registered user", "user", user.Username, "id", user.ID)

	fmt.Fprintln(a.streams.Out, a.styles.Completed.Render(fmt.Sprintf("Registration successful! Welcome, %s.", user.Username)))
	fmt.Fprintf(a.streams.Out, "Sign in with: todo -user %s <command>\n", user.Username)
	return nil
}

// addCommand creates a task from the remaining words.
func (a *app) addCommand(args []string) error {
	fs := a.newFlagSet("todo add")
	description := fs.String("d", "", "Task description")
	fs.StringVar(description, "description", "", "Task description")

	words, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	title := strings.Join(words, " ")
	if strings.TrimSpace(title) == "" {
		return errors.New("usage: todo add <title> [-d description]")
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}
	task, err := s.CreateTask(title, *description)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.streams.Out, a.styles.Completed.Render(fmt.Sprintf("Created task: %q", task.Title)))
	fmt.Fprintln(a.streams.Out, a.styles.Muted.Render("ID: "+task.ID))
	return nil
}

// doneCommand completes the task at a position.
func (a *app) doneCommand(args []string) error {
	n, err := parsePosition(args, "todo done <n>")
	if err != nil {
		return err
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}
	task, err := s.TaskAt(n)
	if err != nil {
		return err
	}
	updated, err := s.CompleteTask(task.ID)
	if err != nil {
		return err
	}

	if updated.Completed {
		fmt.Fprintln(a.streams.Out, a.styles.Completed.Render(fmt.Sprintf("Completed task %d: %q", n, updated.Title)))
	} else {
		fmt.Fprintln(a.streams.Out, a.styles.Pending.Render(fmt.Sprintf("Uncompleted task %d: %q", n, updated.Title)))
	}
	return nil
}

// rmCommand removes the task at a position after confirmation.
func (a *app) rmCommand(args []string) error {
	fs := a.newFlagSet("todo rm")
	yes := fs.Bool("y", false, "Do not ask for confirmation")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	n, err := parsePosition(positional, "todo rm <n> [-y]")
	if err != nil {
		return err
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}
	task, err := s.TaskAt(n)
	if err != nil {
		return err
	}

	if !*yes {
		ok, err := a.confirm(fmt.Sprintf("Remove %q? [y/N]: ", task.Title))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.streams.Out, "Task removal cancelled.")
			return nil
		}
	}

	removed, err := s.RemoveTask(task.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.streams.Out, a.styles.Pending.Render(fmt.Sprintf("Removed task: %q", removed.Title)))
	return nil
}

// lsCommand lists all, pending or completed tasks.
func (a *app) lsCommand(args []string) error {
	fs := a.newFlagSet("todo ls")
	verbose := fs.Bool("v", false, "Show descriptions and timestamps")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("unexpected arguments: %v", positional[1:])
	}
	filter := "all"
	if len(positional) == 1 {
		filter = strings.ToLower(positional[0])
	}

	var heading string
	switch filter {
	case "all":
		heading = "All Tasks"
	case "pending":
		heading = "Pending Tasks"
	case "completed", "done":
		heading = "Completed Tasks"
	default:
		return fmt.Errorf("unknown filter %q, must be one of: all, pending, completed", filter)
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}

	all := s.AllTasks()
	subset := all
	switch heading {
	case "Pending Tasks":
		subset = s.PendingTasks()
	case "Completed Tasks":
		subset = s.CompletedTasks()
	}

	ui.RenderTasks(a.streams.Out, a.styles, heading, ui.Rows(all, subset), *verbose)
	fmt.Fprintln(a.streams.Out)
	ui.RenderSummary(a.streams.Out, a.styles, all)
	return nil
}

// showCommand prints every detail of one task.
func (a *app) showCommand(args []string) error {
	n, err := parsePosition(args, "todo show <n>")
	if err != nil {
		return err
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}
	task, err := s.TaskAt(n)
	if err != nil {
		return err
	}

	ui.RenderTask(a.streams.Out, a.styles, ui.Row{Position: n, Task: task})
	return nil
}

// undoCommand reverses the most recent action.
func (a *app) undoCommand(args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	s, err := a.signIn()
	if err != nil {
		return err
	}
	entry, err := s.Undo()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.streams.Out, a.styles.Accent.Render(fmt.Sprintf("Undone: %s - %s", entry.Action, entry.Details)))
	fmt.Fprintln(a.streams.Out, a.styles.Muted.Render("Original action time: "+entry.Timestamp.Local().Format("2006-01-02 15:04")))
	return nil
}

// redoCommand reapplies the most recently undone action.
func (a *app) redoCommand(args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	s, err := a.signIn()
	if err != nil {
		return err
	}
	entry, err := s.Redo()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.streams.Out, a.styles.Accent.Render(fmt.Sprintf("Redone: %s - %s", entry.Action, entry.Details)))
	fmt.Fprintln(a.streams.Out, a.styles.Muted.Render("Original action time: "+entry.Timestamp.Local().Format("2006-01-02 15:04")))
	return nil
}

// historyCommand prints recent actions, newest first.
func (a *app) historyCommand(args []string) error {
	fs := a.newFlagSet("todo history")
	n := fs.Int("n", a.cfg.HistoryLimit, "Number of entries to show (0 = all)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := noArgs(fs.Args()); err != nil {
		return err
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}
	ui.RenderHistory(a.streams.Out, a.styles, s.History(*n), len(s.History(0)))
	return nil
}

// tuiCommand signs in and launches the dashboard.
func (a *app) tuiCommand(ctx context.Context, args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	if !ui.IsTTY(a.streams.Out) {
		return errors.New("tui requires a terminal")
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}
	return ui.RunDashboard(ctx, s,
		ui.WithStyles(a.styles),
		ui.WithHistoryLimit(a.cfg.HistoryLimit),
	)
}

// usersCommand lists registered accounts without password hashes.
func (a *app) usersCommand(args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	reg, err := a.registry()
	if err != nil {
		return err
	}

	users := reg.Users()
	fmt.Fprintf(a.streams.Out, "Registered users (%d):\n", len(users))
	for _, u := range users {
		lastLogin := "never"
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(a.streams.Out, "  %s <%s>\n", u.Username, u.Email)
		fmt.Fprintln(a.streams.Out, a.styles.Muted.Render(fmt.Sprintf("      tasks: %s  last login: %s",
			datadir.TasksPath(a.cfg.DataDir, u.Username), lastLogin)))
	}
	return nil
}

// unregisterCommand deletes the signed-in account along with its task and
// history files.
func (a *app) unregisterCommand(args []string) error {
	fs := a.newFlagSet("todo unregister")
	yes := fs.Bool("y", false, "Do not ask for confirmation")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := noArgs(fs.Args()); err != nil {
		return err
	}

	s, err := a.signIn()
	if err != nil {
		return err
	}
	if !*yes {
		ok, err := a.confirm(fmt.Sprintf("Delete account %s and all its tasks? [y/N]: ", s.Username()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.streams.Out, "Account deletion cancelled.")
			return nil
		}
	}

	reg, err := a.registry()
	if err != nil {
		return err
	}
	if err := reg.Delete(s.Username()); err != nil {
		return err
	}
	for _, path := range []string{s.TasksPath(), s.HistoryPath()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	a.log().Info("deleted user", "user", s.Username())

	fmt.Fprintf(a.streams.Out, "Account %s deleted.\n", s.Username())
	return nil
}
