package main

import (
	"context"
	"os"

	"github.com/yndnr/notekeep-go/internal/cli/command"
	"github.com/yndnr/notekeep-go/internal/infra/shutdown"
)

func main() {
	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	app := command.App()
	if err := app.RunContext(ctx, os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
