package usecase

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/ptrunner/pt/internal/domain"
)

// RunScriptInput contains the parameters for running an ad-hoc script.
type RunScriptInput struct {
	Stdio      Stdio
	ScriptPath string
	Args       []string
}

// RunScriptOutput contains the result of the script run.
type RunScriptOutput struct {
	Result *domain.TaskResult
}

// RunScript executes a script outside any configured task, with the
// configured environment layers (global and selected profile) and the
// script's own inline metadata dependencies. No pythonpath entries are
// added; the child sees only the inherited PYTHONPATH.
type RunScript struct {
	runTask *RunTask
	log     *slog.Logger
}

// NewRunScript creates the use case.
func NewRunScript(runTask *RunTask, log *slog.Logger) *RunScript {
	return &RunScript{runTask: runTask, log: log}
}

// Execute wraps the script in an anonymous effective task and runs it
// through the orchestrator so env layering and metadata handling match
// configured tasks.
func (uc *RunScript) Execute(ctx context.Context, in RunScriptInput) (*RunScriptOutput, error) {
	task := &domain.Task{
		Name:   filepath.Base(in.ScriptPath),
		Script: in.ScriptPath,
	}
	result, err := uc.runTask.executeNode(ctx, task, in.Args, in.Stdio, nil, true)
	if err != nil {
		return nil, err
	}
	return &RunScriptOutput{Result: result}, nil
}
