// Package main is the entry point for the wash cargo project manager.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/wash/cmd/wash/commands"
	"go.trai.ch/wash/internal/app"
	"go.trai.ch/wash/internal/core/domain"
	_ "go.trai.ch/wash/internal/wiring"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string, opts ...func(*app.App)) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet.
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	for _, opt := range opts {
		opt(components.App)
	}

	cli := commands.New(components.App, components.Logger)
	cli.SetArgs(args)

	if err := cli.Execute(ctx); err != nil {
		// Failed runs and lookups are already reported by the renderer.
		if errors.Is(err, domain.ErrRunFailed) || errors.Is(err, domain.ErrChecksFailed) {
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
