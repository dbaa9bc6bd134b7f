package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ptrunner/pt/internal/domain"
)

// Shared output styles.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// printStatus renders one task's outcome line.
func printStatus(w io.Writer, r *domain.TaskResult) {
	switch r.Status {
	case domain.StatusSucceeded:
		fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), r.Name)
	case domain.StatusIgnored:
		fmt.Fprintf(w, "%s %s %s\n", warnStyle.Render("!"), r.Name, dimStyle.Render(fmt.Sprintf("(exit %d, ignored)", r.ExitCode)))
	case domain.StatusSkipped:
		fmt.Fprintf(w, "%s %s %s\n", dimStyle.Render("-"), r.Name, dimStyle.Render("skipped: "+r.SkipReason))
	case domain.StatusTimeout:
		fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("✗"), r.Name, dimStyle.Render("timed out"))
	default:
		fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("✗"), r.Name, dimStyle.Render(fmt.Sprintf("(exit %d)", r.ExitCode)))
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
}
