package cli

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/infra/config"
)

//go:embed config_template.toml
var configTemplate string

// newInitCommand creates the init command.
func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new pt.toml configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			path := filepath.Join(cwd, config.ConfigFileName)

			if _, err := os.Stat(path); err == nil && !force {
				printError(cmd.ErrOrStderr(), fmt.Errorf("%w: %s (use --force to overwrite)", domain.ErrConfigExists, path))
				return &ExitError{Code: ExitFailure}
			}

			if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created %s\n", successStyle.Render("✓"), path)
			fmt.Fprintln(out, dimStyle.Render("\nEdit the file to add your tasks, then run:"))
			fmt.Fprintln(out, "  pt list        # List available tasks")
			fmt.Fprintln(out, "  pt run <task>  # Run a task")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	return cmd
}
