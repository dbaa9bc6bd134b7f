package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/usecase"
)

// newWatchCommand creates the watch command.
func newWatchCommand() *cobra.Command {
	var opts commonOptions
	var patterns []string
	var ignore []string
	var debounce float64
	var noClear bool

	cmd := &cobra.Command{
		Use:   "watch <task> [args...]",
		Short: "Watch for file changes and re-run a task",
		Long: `Watch the project for file changes and re-run a task on every change.

Default pattern is **/*.py; use --pattern to watch other files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			task, err := c.Resolved.Lookup(args[0])
			if err != nil {
				return err
			}
			if err := requireUv(cmd); err != nil {
				return err
			}

			return c.WatchTask().Execute(cmd.Context(), usecase.WatchTaskInput{
				TaskName:    task.Name,
				Args:        args[1:],
				Patterns:    patterns,
				Ignore:      ignore,
				Debounce:    time.Duration(debounce * float64(time.Second)),
				ClearScreen: !noClear,
				Stdio: usecase.Stdio{
					Out: cmd.OutOrStdout(),
					Err: cmd.ErrOrStderr(),
				},
			})
		},
	}

	cmd.Flags().StringArrayVar(&patterns, "pattern", nil, "File patterns to watch (default: **/*.py)")
	cmd.Flags().StringArrayVarP(&ignore, "ignore", "i", nil, "Patterns to ignore")
	cmd.Flags().Float64Var(&debounce, "debounce", 0.5, "Debounce time in seconds")
	cmd.Flags().BoolVar(&noClear, "no-clear", false, "Don't clear screen on changes")
	opts.register(cmd, true)
	return cmd
}
