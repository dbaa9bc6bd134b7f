package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunTask(res *domain.Resolved, runner *testutil.MockRunner) *RunTask {
	return NewRunTask(res, runner, &testutil.MockMetadataReader{}, nil, discardLogger())
}

func envValue(inv domain.Invocation, key string) (string, bool) {
	for _, kv := range inv.Env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// isHook reports whether an invocation carries the given PT_HOOK_TYPE.
func isHook(inv domain.Invocation, hookType string) bool {
	v, ok := envValue(inv, "PT_HOOK_TYPE")
	return ok && v == hookType
}

func TestRunTask_Success(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"hello": {Name: "hello", Cmd: "echo hi"},
	})
	runner := &testutil.MockRunner{Default: domain.ExecResult{ExitCode: 0, Stdout: "hi\n"}}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, out.Root.Status)
	assert.Equal(t, "hi\n", out.Root.Stdout)
	assert.False(t, out.Failed())
}

func TestRunTask_DependenciesRunFirst(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"all":   {Name: "all", Cmd: "echo all", DependsOn: []string{"build"}},
		"build": {Name: "build", Cmd: "echo build"},
	})
	runner := &testutil.MockRunner{}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "all"})
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "all"}, out.Order)

	recorded := runner.Recorded()
	require.Len(t, recorded, 2)
	name, _ := envValue(recorded[0], "PT_TASK_NAME")
	assert.Equal(t, "build", name)
}

func TestRunTask_DependencyFailureStopsRun(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"all":   {Name: "all", Cmd: "echo all", DependsOn: []string{"build"}},
		"build": {Name: "build", Cmd: "false"},
	})
	runner := &testutil.MockRunner{Default: domain.ExecResult{ExitCode: 2}}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "all"})
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Nil(t, out.Root, "root never started")
	assert.Len(t, runner.Recorded(), 1)
}

func TestRunTask_ConditionSkips(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"gated": {
			Name:      "gated",
			Cmd:       "echo",
			Condition: &domain.Condition{Platforms: []string{"plan9"}},
		},
	})
	runner := &testutil.MockRunner{}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "gated"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, out.Root.Status)
	assert.NotEmpty(t, out.Root.SkipReason)
	assert.Empty(t, runner.Recorded(), "subprocess never spawned")
	assert.False(t, out.Failed(), "skip is not a failure")
}

func TestRunTask_BeforeHookFailureSkips(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"guarded": {
			Name:  "guarded",
			Cmd:   "echo",
			Hooks: domain.HooksConfig{BeforeTask: "hooks/pre.py"},
		},
	})
	runner := &testutil.MockRunner{
		RunFunc: func(inv domain.Invocation) domain.ExecResult {
			if isHook(inv, "before_task") {
				return domain.ExecResult{ExitCode: 3}
			}
			return domain.ExecResult{}
		},
	}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "guarded"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, out.Root.Status)
	require.Len(t, runner.Recorded(), 1, "only the hook ran")
}

func TestRunTask_HookLifecycleOnSuccess(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"hooked": {
			Name: "hooked",
			Cmd:  "echo",
			Hooks: domain.HooksConfig{
				BeforeTask:   "hooks/pre.py",
				AfterSuccess: "hooks/ok.py",
				AfterFailure: "hooks/bad.py",
				AfterTask:    "hooks/post.py",
			},
		},
	})
	runner := &testutil.MockRunner{}

	_, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "hooked"})
	require.NoError(t, err)

	recorded := runner.Recorded()
	require.Len(t, recorded, 4) // before, task, after_success, after_task
	assert.True(t, isHook(recorded[0], "before_task"))
	assert.True(t, isHook(recorded[2], "after_success"))
	assert.True(t, isHook(recorded[3], "after_task"))

	code, ok := envValue(recorded[3], "PT_TASK_EXIT_CODE")
	require.True(t, ok)
	assert.Equal(t, "0", code)
}

func TestRunTask_HookLifecycleOnFailure(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"failing": {
			Name: "failing",
			Cmd:  "false",
			Hooks: domain.HooksConfig{
				AfterSuccess: "hooks/ok.py",
				AfterFailure: "hooks/bad.py",
				AfterTask:    "hooks/post.py",
			},
		},
	})
	runner := &testutil.MockRunner{
		RunFunc: func(inv domain.Invocation) domain.ExecResult {
			if _, isAnyHook := envValue(inv, "PT_HOOK_TYPE"); isAnyHook {
				return domain.ExecResult{}
			}
			return domain.ExecResult{ExitCode: 7}
		},
	}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "failing"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, out.Root.Status)
	assert.Equal(t, 7, out.Root.ExitCode)

	recorded := runner.Recorded()
	require.Len(t, recorded, 3) // task, after_failure, after_task
	assert.True(t, isHook(recorded[1], "after_failure"))
	assert.True(t, isHook(recorded[2], "after_task"))
	code, _ := envValue(recorded[1], "PT_TASK_EXIT_CODE")
	assert.Equal(t, "7", code)
}

func TestRunTask_IgnoreErrors(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"flaky": {Name: "flaky", Cmd: "false", IgnoreErrors: true},
	})
	res.Config.Project.OnErrorTask = "flaky" // would recurse if invoked
	runner := &testutil.MockRunner{Default: domain.ExecResult{ExitCode: 1}}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "flaky"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIgnored, out.Root.Status)
	assert.False(t, out.Failed())
	assert.Len(t, runner.Recorded(), 1, "error handler not invoked")
}

func TestRunTask_ErrorHandlerInvoked(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"boom":    {Name: "boom", Cmd: "false"},
		"_notify": {Name: "_notify", Cmd: "echo notify"},
	})
	res.Config.Project.OnErrorTask = "_notify"
	runner := &testutil.MockRunner{
		RunFunc: func(inv domain.Invocation) domain.ExecResult {
			if name, _ := envValue(inv, "PT_TASK_NAME"); name == "boom" {
				return domain.ExecResult{ExitCode: 9, Stderr: "kaboom\n"}
			}
			return domain.ExecResult{}
		},
	}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "boom"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, out.Root.Status)

	recorded := runner.Recorded()
	require.Len(t, recorded, 2)
	handler := recorded[1]
	failedTask, _ := envValue(handler, "PT_FAILED_TASK")
	errCode, _ := envValue(handler, "PT_ERROR_CODE")
	errStderr, _ := envValue(handler, "PT_ERROR_STDERR")
	assert.Equal(t, "boom", failedTask)
	assert.Equal(t, "9", errCode)
	assert.Equal(t, "kaboom", errStderr)
}

func TestRunTask_ErrorHandlerNotRecursive(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"boom":    {Name: "boom", Cmd: "false"},
		"_notify": {Name: "_notify", Cmd: "false"},
	})
	res.Config.Project.OnErrorTask = "_notify"
	runner := &testutil.MockRunner{Default: domain.ExecResult{ExitCode: 1}}

	_, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "boom"})
	require.NoError(t, err)
	assert.Len(t, runner.Recorded(), 2, "handler failure does not re-trigger the handler")
}

func TestRunTask_ErrorHandlerSkippedForItself(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"_notify": {Name: "_notify", Cmd: "false"},
	})
	res.Config.Project.OnErrorTask = "_notify"
	runner := &testutil.MockRunner{Default: domain.ExecResult{ExitCode: 1}}

	_, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "_notify"})
	require.NoError(t, err)
	assert.Len(t, runner.Recorded(), 1)
}

func TestRunTask_Timeout(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"slow":    {Name: "slow", Cmd: "sleep 10", Timeout: 1},
		"_notify": {Name: "_notify", Cmd: "echo"},
	})
	res.Config.Project.OnErrorTask = "_notify"
	runner := &testutil.MockRunner{
		RunFunc: func(inv domain.Invocation) domain.ExecResult {
			if name, _ := envValue(inv, "PT_TASK_NAME"); name == "slow" {
				return domain.ExecResult{ExitCode: 124, TimedOut: true}
			}
			return domain.ExecResult{}
		},
	}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "slow"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTimeout, out.Root.Status)
	assert.Equal(t, 124, out.Root.ExitCode)
	assert.True(t, out.Failed())

	recorded := runner.Recorded()
	require.Len(t, recorded, 2)
	errCode, _ := envValue(recorded[1], "PT_ERROR_CODE")
	assert.Equal(t, "124", errCode)
}

func TestRunTask_GroupTask(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"all":  {Name: "all", DependsOn: []string{"lint"}},
		"lint": {Name: "lint", Cmd: "ruff check"},
	})
	runner := &testutil.MockRunner{}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "all"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, out.Root.Status)
	assert.Len(t, runner.Recorded(), 1, "group task spawns no subprocess")
}

func TestRunTask_ParallelDependencies(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"all": {Name: "all", Cmd: "echo", DependsOn: []string{"a", "b"}, Parallel: true},
		"a":   {Name: "a", Cmd: "echo a"},
		"b":   {Name: "b", Cmd: "echo b"},
	})
	runner := &testutil.MockRunner{}

	out, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{TaskName: "all"})
	require.NoError(t, err)
	assert.False(t, out.Failed())
	assert.Len(t, runner.Recorded(), 3)
	require.Contains(t, out.Results, "a")
	require.Contains(t, out.Results, "b")
}

func TestRunTask_ArgsReachOnlyRoot(t *testing.T) {
	res := testutil.NewResolved(map[string]*domain.Task{
		"root": {Name: "root", Cmd: "echo", DependsOn: []string{"dep"}},
		"dep":  {Name: "dep", Cmd: "echo"},
	})
	runner := &testutil.MockRunner{}

	_, err := newRunTask(res, runner).Execute(context.Background(), RunTaskInput{
		TaskName: "root",
		Args:     []string{"--flag"},
	})
	require.NoError(t, err)

	recorded := runner.Recorded()
	require.Len(t, recorded, 2)
	assert.NotContains(t, strings.Join(recorded[0].Args, " "), "--flag")
	assert.Contains(t, recorded[1].Args[1], "--flag")
}
