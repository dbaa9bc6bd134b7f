// Package main is the entry point for the pt CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ptrunner/pt/internal/cli"
	"github.com/ptrunner/pt/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCommand(version)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, domain.ErrConfigNotFound) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nRun 'pt init' to create a configuration file.")
		return cli.ExitFailure
	}

	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "Configuration error:\n%v\n", cfgErr)
		return cli.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if ctx.Err() != nil {
		return cli.ExitInterrupted
	}
	return cli.ExitFailure
}
