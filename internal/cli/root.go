// Package cli provides the command-line interface for pt.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/app"
)

// Exit codes with fixed meanings.
const (
	ExitFailure     = 1
	ExitTimeout     = 124
	ExitInterrupted = 130
)

// ExitError carries a process exit code through cobra without printing
// anything; the output was already rendered by the command.
type ExitError struct {
	Code int
}

// Error implements error.
func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// commonOptions are the flags shared by every config-loading command.
type commonOptions struct {
	ConfigPath string
	Profile    string
	Verbose    bool
}

func (o *commonOptions) register(cmd *cobra.Command, withProfile bool) {
	cmd.Flags().StringVarP(&o.ConfigPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "Show verbose output")
	if withProfile {
		cmd.Flags().StringVarP(&o.Profile, "profile", "p", "", "Profile to use (dev, ci, prod, etc.)")
	}
}

func (o *commonOptions) container(cmd *cobra.Command) (*app.Container, error) {
	return app.New(app.Options{
		ConfigPath: o.ConfigPath,
		Profile:    o.Profile,
		Verbose:    o.Verbose,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
}

// NewRootCommand creates the root command for pt.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "pt",
		Short: "A task runner for Python projects using uv",
		Long: `pt is a declarative task runner. Tasks, profiles, and pipelines are
defined in pt.toml (or a [tool.pt] table in pyproject.toml); subprocesses
are dispatched through uv so each invocation gets an isolated dependency
environment.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents cobra from printing errors (main handles it)
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCommand(),
		newExecCommand(),
		newMultiCommand(),
		newPipelineCommand(),
		newWatchCommand(),
		newListCommand(),
		newTagsCommand(),
		newCheckCommand(),
		newInitCommand(),
	)
	return root
}
