package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/notekeep-go/internal/cli/repl"
	"github.com/yndnr/notekeep-go/internal/infra/confloader"
)

// REPLCommand creates the interactive shell command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:    "repl",
		Aliases: []string{"shell"},
		Usage:   "Start an interactive shell sharing one session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "history-file", Usage: "History file (default next to the config file)"},
		},
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	rt := getRuntime(c)
	if rt == nil {
		return errors.New("cli not initialized")
	}
	if rt.interactive {
		return errors.New("already in interactive mode")
	}

	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	app := c.App
	in := bufio.NewReader(app.Reader)
	rt.interactive = true
	defer func() { rt.interactive = false }()

	historyFile := c.String("history-file")
	if historyFile == "" {
		historyFile = filepath.Join(filepath.Dir(rt.configPath), "history")
	}
	history := repl.NewHistory(historyFile)
	if err := history.Load(); err != nil {
		rt.log.Warn("failed to load history", "path", historyFile, "error", err)
	}
	st.OnClose("repl history", history.Save)

	if w := watchConfig(rt); w != nil {
		defer w.Stop()
	}

	// Each line runs on a fresh app that shares this runtime, so flags
	// parsed for one line never leak into the next.
	exec := func(ctx context.Context, args []string) error {
		line := App()
		line.Reader = in
		line.Writer = app.Writer
		line.ErrWriter = app.ErrWriter
		line.Metadata = map[string]interface{}{runtimeKey: rt}
		if err := line.RunContext(ctx, append([]string{app.Name}, args...)); err != nil {
			PrintError(app.Writer, err)
		}
		return nil
	}

	shell := repl.New(exec,
		repl.WithIO(in, app.Writer),
		repl.WithPrompt(func() string {
			if s := st.API.Auth.Session(); s.Identity != nil {
				return fmt.Sprintf("notekeep(%s)> ", s.Identity.Name)
			}
			return repl.DefaultPrompt
		}),
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandPaths(app.Commands))),
	)

	status(c, "notekeep %s interactive mode. Type 'help' for commands, 'exit' to quit.", app.Version)
	return shell.Run(c.Context)
}

// watchConfig reloads logging and output settings when the config file
// changes. It returns nil when there is no file to watch.
func watchConfig(rt *cliState) *confloader.Watcher {
	if _, err := os.Stat(rt.configPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.log))
	if err != nil {
		rt.log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(rt.configPath); err != nil {
		w.Stop()
		return nil
	}
	w.OnChange(func(string) { rt.reload() })
	w.StartAsync()
	return w
}

// commandPaths lists every command and alias, with subcommands as
// "parent child".
func commandPaths(cmds []*cli.Command) []string {
	var out []string
	for _, cmd := range cmds {
		if cmd.Name == "repl" || cmd.Hidden {
			continue
		}
		for _, name := range cmd.Names() {
			out = append(out, name)
			for _, sub := range cmd.Subcommands {
				out = append(out, name+" "+sub.Name)
			}
		}
	}
	return out
}
