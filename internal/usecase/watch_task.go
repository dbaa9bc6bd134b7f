package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/infra/watcher"
)

// WatchTaskInput contains the parameters for watch mode.
type WatchTaskInput struct {
	Stdio       Stdio
	TaskName    string
	Args        []string
	Patterns    []string
	Ignore      []string
	Debounce    time.Duration
	ClearScreen bool
}

// WatchTask re-runs a task whenever matching files change under the
// project root. The loop ends on context cancellation; task failures keep
// the watch alive.
type WatchTask struct {
	res     *domain.Resolved
	runTask *RunTask
	log     *slog.Logger
	stdout  io.Writer
}

// NewWatchTask creates the use case.
func NewWatchTask(res *domain.Resolved, runTask *RunTask, log *slog.Logger, stdout io.Writer) *WatchTask {
	return &WatchTask{res: res, runTask: runTask, log: log, stdout: stdout}
}

// Execute runs the task once, then loops on debounced change batches.
func (uc *WatchTask) Execute(ctx context.Context, in WatchTaskInput) error {
	patterns := in.Patterns
	if len(patterns) == 0 {
		patterns = []string{"**/*.py"}
	}
	ignore := watcher.DefaultIgnorePatterns
	if len(in.Ignore) > 0 {
		ignore = append(append([]string{}, watcher.DefaultIgnorePatterns...), in.Ignore...)
	}

	w, err := watcher.New(uc.res.Root, watcher.Config{
		Patterns:       patterns,
		IgnorePatterns: ignore,
		Debounce:       in.Debounce,
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	uc.runOnce(ctx, in)
	fmt.Fprintf(uc.stdout, "\nWatching for changes (%s)... press Ctrl+C to stop\n", patterns)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			uc.log.Warn("watcher error", "error", err)
		case batch := <-w.Batches():
			if in.ClearScreen {
				fmt.Fprint(uc.stdout, "\033[2J\033[H")
			}
			uc.log.Debug("files changed", "count", len(batch))
			fmt.Fprintf(uc.stdout, "Changed: %d file(s), re-running %s\n", len(batch), in.TaskName)
			uc.runOnce(ctx, in)
			fmt.Fprintf(uc.stdout, "\nWatching for changes (%s)... press Ctrl+C to stop\n", patterns)
		}
	}
}

func (uc *WatchTask) runOnce(ctx context.Context, in WatchTaskInput) {
	out, err := uc.runTask.Execute(ctx, RunTaskInput{
		TaskName: in.TaskName,
		Args:     in.Args,
		Stdio:    in.Stdio,
	})
	switch {
	case err != nil:
		uc.log.Warn("run failed", "task", in.TaskName, "error", err)
	case out.Failed():
		uc.log.Debug("task failed, still watching", "task", in.TaskName)
	}
}
