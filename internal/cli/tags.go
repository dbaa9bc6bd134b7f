package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newTagsCommand creates the tags command.
func newTagsCommand() *cobra.Command {
	var opts commonOptions

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List all tags used in tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}

			all := c.Resolved.AllTags()
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tags defined.")
				return nil
			}

			names := make([]string, 0, len(all))
			for tag := range all {
				names = append(names, tag)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Tags"))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TAG\tCOUNT\tTASKS")
			for _, tag := range names {
				tasks := all[tag]
				fmt.Fprintf(w, "%s\t%d\t%s\n", successStyle.Render(tag), len(tasks), strings.Join(tasks, ", "))
			}
			w.Flush()
			return nil
		},
	}
	opts.register(cmd, false)
	return cmd
}
