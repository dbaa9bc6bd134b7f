package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/app"
	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/usecase"
)

// newMultiCommand creates the multi command.
func newMultiCommand() *cobra.Command {
	var opts commonOptions
	var tags []string
	var matchAny bool
	var category string
	var parallel bool
	var sequential bool
	var onFailure string
	var output string

	cmd := &cobra.Command{
		Use:   "multi [task...]",
		Short: "Run multiple tasks",
		Long: `Run multiple tasks, sequentially or in parallel.

Name the tasks directly, or select them with --tag/--category.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			failureMode := domain.OnFailure(onFailure)
			if !failureMode.IsValid() {
				return domain.NewConfigError("invalid --on-failure %q (fail-fast, wait, continue)", onFailure)
			}
			outputMode := domain.OutputMode(output)
			if !outputMode.IsValid() {
				return domain.NewConfigError("invalid --output %q (buffered, interleaved)", output)
			}
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}

			names, err := selectTasks(c, cmd, args, tags, matchAny, category)
			if err != nil || len(names) == 0 {
				return err
			}
			if err := requireUv(cmd); err != nil {
				return err
			}

			out, err := c.RunMulti().Execute(cmd.Context(), usecase.RunMultiInput{
				TaskNames: names,
				Parallel:  parallel && !sequential,
				OnFailure: failureMode,
				Output:    outputMode,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			for _, name := range names {
				if r, ok := out.Results[name]; ok && r != nil {
					printStatus(cmd.OutOrStdout(), r)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", dimStyle.Render("-"), name, dimStyle.Render("not started"))
				}
			}

			switch {
			case out.Interrupted:
				return &ExitError{Code: ExitInterrupted}
			case out.Failed:
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Run tasks with these tags (repeatable)")
	cmd.Flags().BoolVar(&matchAny, "match-any", false, "Match ANY tag instead of ALL tags")
	cmd.Flags().StringVar(&category, "category", "", "Run all tasks in this category")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Run tasks in parallel")
	cmd.Flags().BoolVarP(&sequential, "sequential", "s", false, "Run tasks sequentially (default)")
	cmd.Flags().StringVar(&onFailure, "on-failure", string(domain.FailFast), "Behavior when a task fails (fail-fast, wait, continue)")
	cmd.Flags().StringVar(&output, "output", string(domain.OutputBuffered), "Output mode for parallel execution (buffered, interleaved)")
	opts.register(cmd, true)
	return cmd
}

// selectTasks applies the category > tags > explicit-names precedence. An
// empty selection is reported but is not an error.
func selectTasks(c *app.Container, cmd *cobra.Command, args, tags []string, matchAny bool, category string) ([]string, error) {
	warnIgnoredNames := func() {
		if len(args) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s task names are ignored when using --tag or --category\n", warnStyle.Render("Warning:"))
		}
	}

	switch {
	case category != "":
		warnIgnoredNames()
		tasks := c.Resolved.TasksByCategory(category)
		if len(tasks) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No tasks found in category: %s\n", category)
			return nil, nil
		}
		return taskNames(tasks), nil
	case len(tags) > 0:
		warnIgnoredNames()
		tasks := c.Resolved.TasksByTags(tags, !matchAny)
		if len(tasks) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No tasks found with tag(s): %v\n", tags)
			return nil, nil
		}
		return taskNames(tasks), nil
	case len(args) > 0:
		names := make([]string, len(args))
		for i, arg := range args {
			task, err := c.Resolved.Lookup(arg)
			if err != nil {
				return nil, err
			}
			names[i] = task.Name
		}
		return names, nil
	default:
		return nil, domain.NewConfigError("either specify task names or use --tag/--category")
	}
}

func taskNames(tasks []*domain.Task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	return names
}
