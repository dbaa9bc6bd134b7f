package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ptrunner/pt/internal/app"
	"github.com/ptrunner/pt/internal/domain"
)

// newListCommand creates the list command.
func newListCommand() *cobra.Command {
	var opts commonOptions
	var verbose bool
	var showAll bool
	var tags []string
	var matchAny bool
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tasks and pipelines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}

			tasks := filterTasks(c, tags, matchAny, category)
			printTasks(cmd, tasks, verbose, showAll)
			printPipelines(cmd, c.Resolved.Config.Pipelines, verbose)

			if len(tasks) == 0 && len(c.Resolved.Config.Pipelines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks or pipelines defined.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show task descriptions and dependencies")
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Show private tasks (starting with _)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Filter tasks by tag (repeatable)")
	cmd.Flags().BoolVar(&matchAny, "match-any", false, "Match ANY tag instead of ALL tags")
	cmd.Flags().StringVar(&category, "category", "", "Filter tasks by category")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "Profile to use (dev, ci, prod, etc.)")
	return cmd
}

func filterTasks(c *app.Container, tags []string, matchAny bool, category string) []*domain.Task {
	switch {
	case category != "":
		return c.Resolved.TasksByCategory(category)
	case len(tags) > 0:
		return c.Resolved.TasksByTags(tags, !matchAny)
	default:
		var tasks []*domain.Task
		for _, name := range c.Resolved.TaskNames(true) {
			tasks = append(tasks, c.Resolved.Tasks[name])
		}
		return tasks
	}
}

func printTasks(cmd *cobra.Command, tasks []*domain.Task, verbose, showAll bool) {
	visible := tasks[:0:0]
	for _, task := range tasks {
		if task.Private() && !showAll {
			continue
		}
		visible = append(visible, task)
	}
	if len(visible) == 0 {
		return
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Tasks"))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if verbose {
		fmt.Fprintln(w, "NAME\tALIASES\tDESCRIPTION\tCATEGORY\tTYPE\tDEPENDS ON\tTAGS")
		for _, task := range visible {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				nameStyle.Render(task.Name),
				orDash(strings.Join(task.Aliases, ", ")),
				orDash(task.Description),
				orDash(task.Category),
				string(task.Kind()),
				orDash(strings.Join(task.DependsOn, ", ")),
				orDash(strings.Join(task.Tags, ", ")),
			)
		}
	} else {
		for _, task := range visible {
			name := task.Name
			if len(task.Aliases) > 0 {
				name = fmt.Sprintf("%s (%s)", name, strings.Join(task.Aliases, ", "))
			}
			fmt.Fprintf(w, "%s\n", nameStyle.Render(name))
		}
	}
	w.Flush()
}

func printPipelines(cmd *cobra.Command, pipelines map[string]*domain.PipelineConfig, verbose bool) {
	if len(pipelines) == 0 {
		return
	}
	names := make([]string, 0, len(pipelines))
	for name := range pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("Pipelines"))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		pipe := pipelines[name]
		if verbose {
			var stages []string
			for _, s := range pipe.Stages {
				marker := ""
				if s.Parallel {
					marker = "*"
				}
				stages = append(stages, fmt.Sprintf("[%s]%s", strings.Join(s.Tasks, ", "), marker))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", nameStyle.Render(name), orDash(pipe.Description), strings.Join(stages, " -> "))
		} else {
			fmt.Fprintf(w, "%s\n", nameStyle.Render(name))
		}
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
