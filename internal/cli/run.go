package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/infra/uv"
	"github.com/ptrunner/pt/internal/usecase"
)

// newRunCommand creates the run command.
func newRunCommand() *cobra.Command {
	var opts commonOptions

	cmd := &cobra.Command{
		Use:   "run <task> [args...]",
		Short: "Run a task",
		Long: `Run a task defined in pt.toml.

Additional arguments are passed to the task's script or command.
The task name may be an alias.`,
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

			out, err := c.RunTask().Execute(cmd.Context(), usecase.RunTaskInput{
				TaskName: task.Name,
				Args:     args[1:],
				Stdio: usecase.Stdio{
					Out: cmd.OutOrStdout(),
					Err: cmd.ErrOrStderr(),
				},
			})
			if err != nil {
				return err
			}

			for _, name := range out.Order {
				if r := out.Results[name]; r.Status == domain.StatusSkipped {
					printStatus(cmd.ErrOrStderr(), r)
				}
			}
			if out.Root == nil {
				// A dependency failed before the task itself could start.
				return &ExitError{Code: ExitFailure}
			}
			if out.Root.Failed() {
				return &ExitError{Code: exitCodeFor(out.Root)}
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	opts.register(cmd, true)
	return cmd
}

func exitCodeFor(r *domain.TaskResult) int {
	if r.ExitCode != 0 {
		return r.ExitCode
	}
	return ExitFailure
}

// requireUv verifies the isolated runner is available before executing
// anything.
func requireUv(cmd *cobra.Command) error {
	if uv.Installed() {
		return nil
	}
	w := cmd.ErrOrStderr()
	printError(w, domain.ErrUvNotFound)
	fmt.Fprintln(w, "\nInstall uv:")
	fmt.Fprintln(w, "  Linux/macOS: curl -LsSf https://astral.sh/uv/install.sh | sh")
	fmt.Fprintln(w, "  pip:         pip install uv")
	fmt.Fprintln(w, "\nOr visit: https://docs.astral.sh/uv/getting-started/installation/")
	return &ExitError{Code: ExitFailure}
}
