package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/notekeep-go/internal/infra/buildinfo"
)

// MetricsCommand creates the metrics command.
func MetricsCommand() *cli.Command {
	return &cli.Command{
		Name:   "metrics",
		Usage:  "Print gateway metrics in Prometheus text format",
		Action: metricsAction,
	}
}

func metricsAction(c *cli.Context) error {
	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	return st.Gateway.Metrics().WriteText(c.App.Writer)
}

// VersionCommand creates the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show build information",
		Action: versionAction,
	}
}

func versionAction(c *cli.Context) error {
	return render(c, versionView{buildinfo.Get()})
}
