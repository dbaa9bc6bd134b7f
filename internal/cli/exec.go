package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/usecase"
)

// newExecCommand creates the exec command.
func newExecCommand() *cobra.Command {
	var opts commonOptions

	cmd := &cobra.Command{
		Use:   "exec <script> [args...]",
		Short: "Run a Python script with pt context",
		Long: `Run a Python script with the project's configured environment
(global and profile env layers). The script can declare its dependencies
in a PEP 723 inline metadata block. No PYTHONPATH entries are added
beyond the inherited one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(script); err != nil {
				return domain.NewConfigError("script not found: %s", args[0])
			}
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			if err := requireUv(cmd); err != nil {
				return err
			}

			out, err := c.RunScript().Execute(cmd.Context(), usecase.RunScriptInput{
				ScriptPath: script,
				Args:       args[1:],
				Stdio: usecase.Stdio{
					Out: cmd.OutOrStdout(),
					Err: cmd.ErrOrStderr(),
				},
			})
			if err != nil {
				return err
			}
			if out.Result.Failed() {
				return &ExitError{Code: exitCodeFor(out.Result)}
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	opts.register(cmd, true)
	return cmd
}
