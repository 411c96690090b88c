package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/notekeep-go/internal/cli/config"
)

// ConfigCommand creates the config command group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or create the CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: configShowAction,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPathAction,
			},
			{
				Name:  "init",
				Usage: "Write a configuration file with default values",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: configInitAction,
			},
		},
	}
}

func configShowAction(c *cli.Context) error {
	rt := getRuntime(c)
	if rt == nil {
		return errors.New("cli not initialized")
	}
	return render(c, configView{rt.config().Redacted()})
}

func configPathAction(c *cli.Context) error {
	rt := getRuntime(c)
	if rt == nil {
		return errors.New("cli not initialized")
	}
	fmt.Fprintln(c.App.Writer, rt.configPath)
	if _, err := os.Stat(rt.configPath); errors.Is(err, fs.ErrNotExist) {
		status(c, "(file does not exist; run 'notekeep config init')")
	}
	return nil
}

func configInitAction(c *cli.Context) error {
	rt := getRuntime(c)
	if rt == nil {
		return errors.New("cli not initialized")
	}

	cfg := config.Default()
	if c.IsSet("api") {
		cfg.Gateway.BaseURL = c.String("api")
	}
	if c.IsSet("refresh-url") {
		cfg.Gateway.RefreshURL = c.String("refresh-url")
	}
	if c.IsSet("state-dir") {
		cfg.Session.StateDir = c.String("state-dir")
	}

	if err := config.Save(cfg, rt.configPath, c.Bool("force")); err != nil {
		return err
	}
	status(c, "Wrote %s", rt.configPath)
	return nil
}
