package cli

import (
	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/usecase"
)

// newPipelineCommand creates the pipeline command.
func newPipelineCommand() *cobra.Command {
	var opts commonOptions

	cmd := &cobra.Command{
		Use:   "pipeline <name>",
		Short: "Run a pipeline",
		Long:  `Run a pipeline defined in pt.toml. Stages execute in order; tasks within a stage follow the stage's parallel setting.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			if err := requireUv(cmd); err != nil {
				return err
			}

			out, err := c.RunPipeline().Execute(cmd.Context(), usecase.RunPipelineInput{Name: args[0]})
			if err != nil {
				return err
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
	opts.register(cmd, true)
	return cmd
}
