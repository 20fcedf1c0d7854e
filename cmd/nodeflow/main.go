// Package main provides the nodeflow command: API server, worker, scheduler
// and one-off runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/nodeflow/pkg/log"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "nodeflow",
		Usage:                 "Run node-based workflows",
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), command.String("log-format"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			apiCommand(),
			workerCommand(),
			schedulerCommand(),
			runCommand(),
			standaloneCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
