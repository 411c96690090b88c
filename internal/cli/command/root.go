package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/notekeep-go/internal/cli/config"
	"github.com/yndnr/notekeep-go/internal/cli/connection"
	"github.com/yndnr/notekeep-go/internal/cli/output"
	"github.com/yndnr/notekeep-go/internal/core/domain"
	"github.com/yndnr/notekeep-go/internal/infra/buildinfo"
	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
)

const runtimeKey = "notekeep.runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "notekeep",
		Usage:                "Notes client with a persistent, self-refreshing session",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			RegisterCommand(),
			LoginCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			ProfileCommand(),
			NoteCommand(),
			ConfigCommand(),
			MetricsCommand(),
			VersionCommand(),
			REPLCommand(),
		},
		Before: before,
		After:  after,
		// Errors are returned to main, which prints them and sets the exit code.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default ~/.notekeep/cli.yaml)",
			EnvVars: []string{"NOTEKEEP_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "api",
			Usage: "Notes API base URL",
		},
		&cli.StringFlag{
			Name:  "refresh-url",
			Usage: "Credential refresh endpoint",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "state-dir",
			Usage: "Directory holding the persisted session",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config     string
	API        string
	RefreshURL string
	Output     string
	Wide       bool
	Verbose    bool
	LogLevel   string
	StateDir   string
	Ephemeral  bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:     c.String("config"),
		API:        c.String("api"),
		RefreshURL: c.String("refresh-url"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
		LogLevel:   c.String("log-level"),
		StateDir:   c.String("state-dir"),
		Ephemeral:  c.Bool("ephemeral"),
	}
}

// Overrides returns the configuration keys set explicitly by flags.
func (f *GlobalFlags) Overrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	set := func(flag, key string, v any) {
		if c.IsSet(flag) {
			m[key] = v
		}
	}
	set("api", "gateway.base_url", f.API)
	set("refresh-url", "gateway.refresh_url", f.RefreshURL)
	set("output", "output.format", f.Output)
	set("wide", "output.wide", f.Wide)
	set("log-level", "log.level", f.LogLevel)
	set("state-dir", "session.state_dir", f.StateDir)
	if f.Verbose {
		m["log.level"] = "debug"
	}
	return m
}

// cliState is the per-process state shared by every command.
type cliState struct {
	mu          sync.RWMutex
	cfg         *config.Config
	configPath  string
	overrides   map[string]any
	mgr         *connection.Manager
	log         logger.Logger
	ephemeral   bool
	interactive bool
}

func (rt *cliState) config() *config.Config {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.cfg
}

// reload re-reads the configuration file and applies the settings that
// can change without reopening the stack: logging and output.
func (rt *cliState) reload() {
	cfg, err := config.Load(rt.configPath, rt.overrides)
	if err != nil {
		rt.log.Warn("configuration reload failed", "path", rt.configPath, "error", err)
		return
	}
	logger.SetLevel(cfg.Log.Level)

	rt.mu.Lock()
	next := *rt.cfg
	next.Log = cfg.Log
	next.Output = cfg.Output
	rt.cfg = &next
	rt.mu.Unlock()

	rt.log.Info("configuration reloaded", "log_level", cfg.Log.Level, "output", cfg.Output.Format)
}

func getRuntime(c *cli.Context) *cliState {
	rt, _ := c.App.Metadata[runtimeKey].(*cliState)
	return rt
}

func before(c *cli.Context) error {
	if rt := getRuntime(c); rt != nil && rt.interactive {
		return nil
	}

	flags := ParseGlobalFlags(c)
	path := flags.Config
	if path == "" {
		path = config.DefaultConfigPath()
	}
	overrides := flags.Overrides(c)

	cfg, err := config.Load(path, overrides)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	c.App.Metadata[runtimeKey] = &cliState{
		cfg:        cfg,
		configPath: path,
		overrides:  overrides,
		mgr:        connection.NewManager(cfg, connection.Options{Ephemeral: flags.Ephemeral, Logger: log}),
		log:        log,
		ephemeral:  flags.Ephemeral,
	}
	return nil
}

func after(c *cli.Context) error {
	rt := getRuntime(c)
	if rt == nil || rt.interactive {
		return nil
	}
	return rt.mgr.Close()
}

// EnsureConnected returns the open client stack.
func EnsureConnected(c *cli.Context) (*connection.Stack, error) {
	rt := getRuntime(c)
	if rt == nil {
		return nil, errors.New("cli not initialized")
	}
	return rt.mgr.Stack(c.Context)
}

// backendName describes where the session is kept.
func backendName(c *cli.Context) string {
	rt := getRuntime(c)
	if rt == nil {
		return ""
	}
	if rt.ephemeral {
		return config.BackendMemory + " (ephemeral)"
	}
	return rt.config().Session.Backend
}

// commandContext bounds one command: a request, a refresh and a replay.
func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	timeout := 3 * config.Default().Gateway.Timeout
	if rt := getRuntime(c); rt != nil && rt.config().Gateway.Timeout > 0 {
		timeout = 3 * rt.config().Gateway.Timeout
	}
	return context.WithTimeout(c.Context, timeout)
}

// render writes v in the selected output format.
func render(c *cli.Context, v any) error {
	format, wide := string(output.FormatTable), false
	if rt := getRuntime(c); rt != nil {
		cfg := rt.config()
		format, wide = cfg.Output.Format, cfg.Output.Wide
	}
	if c.IsSet("output") {
		format = c.String("output")
	}
	if c.IsSet("wide") {
		wide = c.Bool("wide")
	}

	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	return output.NewFormatter(f, wide).Format(c.App.Writer, v)
}

// status prints a human-readable message to stderr.
func status(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(c.App.ErrWriter, format+"\n", args...)
}

// spin shows a spinner on stderr while a network call runs.
func spin(c *cli.Context, message string) func() {
	if rt := getRuntime(c); rt != nil && rt.config().Log.Level == "debug" {
		return func() {}
	}
	return output.Spin(c.App.ErrWriter, message)
}

// PrintError prints an error message, with a hint for common failures.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		fmt.Fprintln(w, "hint: run 'notekeep login' first")
	case errors.Is(err, domain.ErrUnauthorized):
		fmt.Fprintln(w, "hint: the session could not be refreshed; run 'notekeep login' again")
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(w, "hint: the API did not answer in time; check gateway.timeout")
	}
}

// until formats the time left before t.
func until(t time.Time, now time.Time) string {
	d := t.Sub(now).Round(time.Second)
	if d <= 0 {
		return "expired"
	}
	return "in " + d.String()
}
