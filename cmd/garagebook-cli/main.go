// Package main provides the entry point for garagebook-cli.
//
// garagebook-cli signs in to a garage booking service and manages its
// appointments and service types, either one command at a time or from
// the interactive shell.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/garagebook-go/internal/cli/command"
	"github.com/yndnr/garagebook-go/internal/infra/shutdown"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	h := shutdown.NewHandler(5 * time.Second)
	h.OnShutdown(func(context.Context) error {
		if zl := logger.Zap(logger.Default()); zl != nil {
			_ = zl.Sync()
		}
		return nil
	})

	ctx, stop := h.Context(context.Background())
	defer stop()

	err := command.App().RunContext(ctx, os.Args)
	if serr := h.Shutdown(); serr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", serr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", command.Describe(err))
	}
	return command.ExitCode(err)
}
