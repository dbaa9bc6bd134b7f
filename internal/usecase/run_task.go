package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/infra/uv"
	"github.com/ptrunner/pt/internal/usecase/shared"
)

// stderrTailLines bounds the PT_ERROR_STDERR payload for the error handler.
const stderrTailLines = 20

// Stdio carries the live output sinks for an execution. Nil writers mean
// output is captured only.
type Stdio struct {
	Out io.Writer
	Err io.Writer
}

// RunTaskInput contains the parameters for running one task and its
// dependency closure.
type RunTaskInput struct {
	Stdio    Stdio
	TaskName string   // canonical task name (aliases already resolved)
	Args     []string // extra args appended to the root task's invocation
}

// RunTaskOutput contains the per-task results of the run. Order lists the
// executed tasks in dependency order, root last.
type RunTaskOutput struct {
	Results map[string]*domain.TaskResult
	Root    *domain.TaskResult
	Order   []string
}

// Failed reports whether the run failed overall.
func (o *RunTaskOutput) Failed() bool {
	for _, r := range o.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// RunTask executes a single task end to end: dependency graph, conditions,
// hooks, the subprocess itself, and the global error handler.
type RunTask struct {
	res    *domain.Resolved
	runner domain.Runner
	meta   domain.MetadataReader
	git    domain.GitInfo
	log    *slog.Logger
}

// NewRunTask creates the use case.
func NewRunTask(res *domain.Resolved, runner domain.Runner, meta domain.MetadataReader, git domain.GitInfo, log *slog.Logger) *RunTask {
	return &RunTask{res: res, runner: runner, meta: meta, git: git, log: log}
}

// Execute walks the task's dependency graph layer by layer and runs every
// member, the root task last. A dependency failure stops the run before
// its dependents start.
func (uc *RunTask) Execute(ctx context.Context, in RunTaskInput) (*RunTaskOutput, error) {
	graph, err := domain.BuildGraph(in.TaskName, uc.res.Tasks)
	if err != nil {
		return nil, err
	}

	out := &RunTaskOutput{Results: make(map[string]*domain.TaskResult)}

	for _, layer := range graph.Layers() {
		concurrent, sequential := uc.splitLayer(layer, graph)

		if len(concurrent) > 0 {
			var g errgroup.Group
			results := make([]*domain.TaskResult, len(concurrent))
			for i, name := range concurrent {
				g.Go(func() error {
					res, err := uc.executeNode(ctx, uc.res.Tasks[name], uc.rootArgs(name, in), in.Stdio, nil, false)
					results[i] = res
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			for i, name := range concurrent {
				out.Results[name] = results[i]
				out.Order = append(out.Order, name)
			}
		}

		for _, name := range sequential {
			res, err := uc.executeNode(ctx, uc.res.Tasks[name], uc.rootArgs(name, in), in.Stdio, nil, false)
			if err != nil {
				return nil, err
			}
			out.Results[name] = res
			out.Order = append(out.Order, name)
			if res.Failed() {
				break
			}
		}

		failed := false
		for _, name := range layer {
			if res, ok := out.Results[name]; ok && res.Failed() {
				failed = true
			}
		}
		if failed {
			break
		}
	}

	out.Root = out.Results[in.TaskName]
	return out, nil
}

func (uc *RunTask) rootArgs(name string, in RunTaskInput) []string {
	if name == in.TaskName {
		return in.Args
	}
	return nil
}

// splitLayer partitions a layer into tasks that may run concurrently and
// tasks that must run in order. A task is dispatched concurrently when it
// has dependents and every direct dependent declares parallel = true.
func (uc *RunTask) splitLayer(layer []string, graph *domain.Graph) (concurrent, sequential []string) {
	dependents := make(map[string][]string)
	for _, name := range graph.Order() {
		for _, dep := range uc.res.Tasks[name].DependsOn {
			dependents[dep] = append(dependents[dep], name)
		}
	}
	for _, name := range layer {
		deps := dependents[name]
		allParallel := len(deps) > 0
		for _, dependent := range deps {
			if !uc.res.Tasks[dependent].Parallel {
				allParallel = false
				break
			}
		}
		if allParallel {
			concurrent = append(concurrent, name)
		} else {
			sequential = append(sequential, name)
		}
	}
	if len(concurrent) == 1 {
		sequential = append(concurrent, sequential...)
		concurrent = nil
	}
	return concurrent, sequential
}

// executeNode runs one task: conditions, hooks, subprocess, error handler.
// The returned error is reserved for configuration problems; execution
// failures land in the result.
func (uc *RunTask) executeNode(ctx context.Context, task *domain.Task, args []string, stdio Stdio, extraEnv map[string]string, inHandler bool) (*domain.TaskResult, error) {
	env := shared.ChildEnv(uc.res, uc.git, task, extraEnv)

	if task.Condition != nil {
		if ok, reason := task.Condition.Evaluate(runtime.GOOS, shared.Lookup(env), uc.res.Root); !ok {
			uc.log.Debug("task gated out", "task", task.Name, "reason", reason)
			return &domain.TaskResult{Name: task.Name, Status: domain.StatusSkipped, SkipReason: reason}, nil
		}
	}
	if task.ConditionScript != "" {
		inv := uv.BuildHook(uc.scriptPath(task.ConditionScript), env, task.PythonPath, uc.res.EffectivePython(task), uc.workDir(task))
		res := uc.runner.Run(ctx, inv)
		if res.ExitCode != 0 {
			reason := fmt.Sprintf("condition script exited %d", res.ExitCode)
			return &domain.TaskResult{Name: task.Name, Status: domain.StatusSkipped, SkipReason: reason}, nil
		}
	}

	if task.Hooks.BeforeTask != "" {
		if code := uc.runHook(ctx, task, env, "before_task", task.Hooks.BeforeTask, nil); code != 0 {
			reason := fmt.Sprintf("before_task hook exited %d", code)
			uc.log.Warn("task skipped", "task", task.Name, "reason", reason)
			return &domain.TaskResult{Name: task.Name, Status: domain.StatusSkipped, SkipReason: reason}, nil
		}
	}

	if task.Kind() == domain.KindGroup {
		return &domain.TaskResult{Name: task.Name, Status: domain.StatusSucceeded}, nil
	}

	inv, err := uc.buildInvocation(task, args, env)
	if err != nil {
		return nil, err
	}
	inv.Stdout = stdio.Out
	inv.Stderr = stdio.Err

	started := time.Now()
	uc.log.Debug("running task", "task", task.Name, "program", inv.Program)
	res := uc.runner.Run(ctx, inv)
	uc.log.Debug("task finished", "task", task.Name, "exit", res.ExitCode, "duration", time.Since(started))

	result := &domain.TaskResult{
		Name:     task.Name,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
	}

	if res.Interrupted {
		result.Status = domain.StatusFailed
		uc.runHook(ctx, task, env, "after_task", task.Hooks.AfterTask, &res.ExitCode)
		return result, nil
	}

	switch {
	case res.TimedOut:
		result.Status = domain.StatusTimeout
	case res.ExitCode == 0:
		result.Status = domain.StatusSucceeded
	case task.IgnoreErrors:
		result.Status = domain.StatusIgnored
	default:
		result.Status = domain.StatusFailed
	}

	if res.ExitCode == 0 {
		uc.runHook(ctx, task, env, "after_success", task.Hooks.AfterSuccess, &res.ExitCode)
	} else {
		uc.runHook(ctx, task, env, "after_failure", task.Hooks.AfterFailure, &res.ExitCode)
	}
	uc.runHook(ctx, task, env, "after_task", task.Hooks.AfterTask, &res.ExitCode)

	if (result.Status == domain.StatusFailed || result.Status == domain.StatusTimeout) && !inHandler {
		uc.runErrorHandler(ctx, task, result, stdio)
	}
	return result, nil
}

// runHook executes a hook script with the hook env vars. Returns the hook
// exit code; zero when the hook is unset.
func (uc *RunTask) runHook(ctx context.Context, task *domain.Task, env map[string]string, hookType, script string, exitCode *int) int {
	if script == "" {
		return 0
	}
	hookEnv := make(map[string]string, len(env)+2)
	for k, v := range env {
		hookEnv[k] = v
	}
	hookEnv["PT_HOOK_TYPE"] = hookType
	if exitCode != nil {
		hookEnv["PT_TASK_EXIT_CODE"] = strconv.Itoa(*exitCode)
	}
	inv := uv.BuildHook(uc.scriptPath(script), hookEnv, task.PythonPath, uc.res.EffectivePython(task), uc.workDir(task))
	res := uc.runner.Run(ctx, inv)
	if res.ExitCode != 0 && hookType != "before_task" {
		uc.log.Warn("hook failed", "task", task.Name, "hook", hookType, "exit", res.ExitCode)
	}
	return res.ExitCode
}

// runErrorHandler invokes the global on_error_task with the failure
// context. The handler never recurses: its own failure is logged only,
// regardless of its ignore_errors setting.
func (uc *RunTask) runErrorHandler(ctx context.Context, failed *domain.Task, result *domain.TaskResult, stdio Stdio) {
	handler := uc.res.OnErrorTask()
	if handler == nil || handler.Name == failed.Name {
		return
	}
	extra := map[string]string{
		"PT_FAILED_TASK":  failed.Name,
		"PT_ERROR_CODE":   strconv.Itoa(result.ExitCode),
		"PT_ERROR_STDERR": tail(result.Stderr, stderrTailLines),
	}
	uc.log.Debug("invoking error handler", "handler", handler.Name, "failed_task", failed.Name)
	res, err := uc.executeNode(ctx, handler, nil, stdio, extra, true)
	if err != nil {
		uc.log.Warn("error handler could not run", "handler", handler.Name, "error", err)
		return
	}
	if res.Failed() {
		uc.log.Warn("error handler failed", "handler", handler.Name, "exit", res.ExitCode)
	}
}

// buildInvocation translates the task into its uv invocation, reading the
// script's inline metadata when present.
func (uc *RunTask) buildInvocation(task *domain.Task, args []string, env map[string]string) (domain.Invocation, error) {
	deps := uc.res.ExpandDependencies(task)
	spec := uv.BuildSpec{
		Env:          env,
		Cmd:          task.Cmd,
		Python:       uc.res.EffectivePython(task),
		Cwd:          uc.workDir(task),
		Args:         append(append([]string{}, task.Args...), args...),
		Dependencies: deps,
		PythonPath:   task.PythonPath,
		Timeout:      time.Duration(task.Timeout) * time.Second,
	}
	if task.Script != "" {
		spec.Script = uc.scriptPath(task.Script)
		meta, err := uc.meta.Read(spec.Script)
		if err != nil {
			return domain.Invocation{}, err
		}
		spec.MetaDependencies = meta.Dependencies
	}
	return uv.Build(spec), nil
}

// workDir returns the task's working directory, defaulting to the project
// root. A relative cwd is resolved against the root.
func (uc *RunTask) workDir(task *domain.Task) string {
	if task.Cwd == "" {
		return uc.res.Root
	}
	if filepath.IsAbs(task.Cwd) {
		return task.Cwd
	}
	return filepath.Join(uc.res.Root, task.Cwd)
}

// scriptPath resolves a script path against the project root.
func (uc *RunTask) scriptPath(script string) string {
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(uc.res.Root, script)
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
