package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/infra/uv"
)

// newCheckCommand creates the check command.
func newCheckCommand() *cobra.Command {
	var opts commonOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the pt configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res := c.Resolved
			fmt.Fprintf(out, "%s Configuration valid: %s\n", successStyle.Render("✓"), res.ConfigFile)
			name := res.Config.Project.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(out, "  Project: %s\n", name)
			fmt.Fprintf(out, "  Tasks: %d\n", len(res.Tasks))
			fmt.Fprintf(out, "  Pipelines: %d\n", len(res.Config.Pipelines))
			fmt.Fprintf(out, "  Dependency groups: %d\n", len(res.Groups))

			if uv.Installed() {
				fmt.Fprintf(out, "%s uv is installed\n", successStyle.Render("✓"))
			} else {
				fmt.Fprintf(out, "%s uv is not installed\n", warnStyle.Render("!"))
			}
			return nil
		},
	}
	opts.register(cmd, true)
	return cmd
}
