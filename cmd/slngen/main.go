package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/microsoft/slngen-sub001/cmd/slngen/cli"
	"github.com/microsoft/slngen-sub001/cmd/slngen/commands"
)

// Version information (set via ldflags during build)
var (
	version = "0.0.0-dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date
	cli.BuiltBy = builtBy
	cli.SetupVersion()

	commands.SetupGenerateCommand(cli.RootCommand(), cli.Console)
	cli.AddCommand(commands.NewVersionCommand(cli.Console))
	cli.AddCommand(commands.NewCompletionCommand())

	// The first signal cancels project loading, a second one exits immediately.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		<-sigChan
		os.Exit(130) // 128 + SIGINT
	}()

	err := cli.Execute(ctx)
	cancel()
	if err != nil {
		// SilenceErrors is set on the root command
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
