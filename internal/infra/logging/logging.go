// Package logging configures the slog logger used across the CLI.
package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger on w. Verbose selects debug level; otherwise
// only warnings and errors surface so task output stays clean.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
