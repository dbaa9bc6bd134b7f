// Package app provides the dependency injection container for the CLI.
package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/infra/config"
	"github.com/ptrunner/pt/internal/infra/gitinfo"
	"github.com/ptrunner/pt/internal/infra/logging"
	"github.com/ptrunner/pt/internal/infra/scriptmeta"
	"github.com/ptrunner/pt/internal/infra/uv"
	"github.com/ptrunner/pt/internal/usecase"
)

// Options configure container construction from CLI flags.
type Options struct {
	Stdout     io.Writer
	Stderr     io.Writer
	ConfigPath string // explicit --config path, "" for discovery
	Profile    string // --profile flag, "" for env/default selection
	Verbose    bool
}

// Container wires ports to implementations and provides use-case
// factories. It is built once per invocation; the resolved configuration
// it holds is immutable.
type Container struct {
	Resolved *domain.Resolved
	Runner   domain.Runner
	Meta     domain.MetadataReader
	Git      domain.GitInfo
	Logger   *slog.Logger
	Stdout   io.Writer
	Stderr   io.Writer
}

// New discovers and resolves the configuration, then wires the execution
// ports.
func New(opts Options) (*Container, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	logger := logging.New(opts.Stderr, opts.Verbose)

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	loader := config.NewLoader(cwd, opts.ConfigPath)
	cfg, file, err := loader.Load()
	if err != nil {
		return nil, err
	}

	profile := config.SelectProfile(cfg, opts.Profile)
	resolved, err := config.Resolve(cfg, file, profile)
	if err != nil {
		return nil, err
	}

	return &Container{
		Resolved: resolved,
		Runner:   uv.NewExecutor(logger),
		Meta:     scriptmeta.NewReader(),
		Git:      gitinfo.New(resolved.Root),
		Logger:   logger,
		Stdout:   opts.Stdout,
		Stderr:   opts.Stderr,
	}, nil
}

// RunTask returns the single-task orchestrator.
func (c *Container) RunTask() *usecase.RunTask {
	return usecase.NewRunTask(c.Resolved, c.Runner, c.Meta, c.Git, c.Logger)
}

// RunScript returns the ad-hoc script use case.
func (c *Container) RunScript() *usecase.RunScript {
	return usecase.NewRunScript(c.RunTask(), c.Logger)
}

// RunMulti returns the multi-task scheduler.
func (c *Container) RunMulti() *usecase.RunMulti {
	return usecase.NewRunMulti(c.RunTask(), c.Logger, c.Stdout, c.Stderr)
}

// RunPipeline returns the pipeline use case.
func (c *Container) RunPipeline() *usecase.RunPipeline {
	return usecase.NewRunPipeline(c.Resolved, c.RunMulti(), c.Logger)
}

// WatchTask returns the watch-mode use case.
func (c *Container) WatchTask() *usecase.WatchTask {
	return usecase.NewWatchTask(c.Resolved, c.RunTask(), c.Logger, c.Stdout)
}
