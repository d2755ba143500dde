// Package main provides the crossfs command line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/cross-org/fs/internal/cli"
	"github.com/cross-org/fs/internal/config"
	"github.com/cross-org/fs/internal/di"
	"github.com/cross-org/fs/internal/logger"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		fmt.Fprint(os.Stdout, cli.New(cli.Deps{}).Help())
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "crossfs: %v\n", err)
		return domainerrors.CodeValidation.ExitStatus()
	}

	injector := di.NewContainer(cfg)
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "crossfs: failed to bootstrap: %v\n", err)
		return domainerrors.CodeOf(err).ExitStatus()
	}

	log := do.MustInvoke[*logger.Logger](injector)
	app := do.MustInvoke[*cli.App](injector)

	// Interrupts end a running watch cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	runErr := app.Run(ctx, cfg.Args)
	stop()

	// Closes the watcher and anything else that implements do.Shutdowner.
	if err := injector.Shutdown(); err != nil {
		log.WithError(err).Error("shutdown error")
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "crossfs: %v\n", runErr)
		return domainerrors.CodeOf(runErr).ExitStatus()
	}
	return 0
}
