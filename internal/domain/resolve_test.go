package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestResolveTasks_Inheritance(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"a": {
				Cmd:  strPtr("echo 1"),
				Args: []string{"x"},
				Env:  map[string]string{"A": "1"},
				Tags: []string{"t1"},
			},
			"b": {
				Extend: "a",
				Args:   []string{"y"},
				Env:    map[string]string{"B": "2"},
				Tags:   []string{"t2"},
			},
		},
	}

	tasks, err := cfg.ResolveTasks()
	require.NoError(t, err)

	b := tasks["b"]
	assert.Equal(t, "echo 1", b.Cmd)
	assert.Equal(t, []string{"x", "y"}, b.Args)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, b.Env)
	assert.Equal(t, []string{"t1", "t2"}, b.Tags)
}

func TestResolveTasks_ExtendCycle(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"a": {Extend: "b", Cmd: strPtr("true")},
			"b": {Extend: "a", Cmd: strPtr("true")},
		},
	}

	_, err := cfg.ResolveTasks()
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "extend", cycleErr.Kind)
	assert.Len(t, cycleErr.Nodes, 3)
	assert.Equal(t, cycleErr.Nodes[0], cycleErr.Nodes[2])
	assert.Contains(t, cycleErr.Nodes, "a")
	assert.Contains(t, cycleErr.Nodes, "b")
}

func TestResolveTasks_ThreeLevelChain(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"base": {
				Cmd:          strPtr("pytest"),
				Dependencies: []string{"pytest"},
				Timeout:      intPtr(60),
				PythonPath:   []string{"src"},
			},
			"mid": {
				Extend:       "base",
				Dependencies: []string{"pytest-cov", "pytest"},
				Env:          map[string]string{"COV": "1"},
				PythonPath:   []string{"tests", "src"},
			},
			"leaf": {
				Extend:  "mid",
				Args:    []string{"-x"},
				Timeout: intPtr(120),
				Env:     map[string]string{"COV": "0", "FAST": "1"},
			},
		},
	}

	tasks, err := cfg.ResolveTasks()
	require.NoError(t, err)

	leaf := tasks["leaf"]
	assert.Equal(t, "pytest", leaf.Cmd)
	assert.Equal(t, []string{"pytest", "pytest-cov"}, leaf.Dependencies, "union preserves first occurrence")
	assert.Equal(t, []string{"src", "tests"}, leaf.PythonPath)
	assert.Equal(t, 120, leaf.Timeout, "descendant override wins")
	assert.Equal(t, map[string]string{"COV": "0", "FAST": "1"}, leaf.Env)
}

func TestResolveTasks_ChildCompletesParent(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"abstract": {Env: map[string]string{"X": "1"}, DependsOn: []string{"other"}},
			"concrete": {Extend: "abstract", Script: strPtr("run.py")},
			"other":    {Cmd: strPtr("true")},
		},
	}

	tasks, err := cfg.ResolveTasks()
	require.NoError(t, err)
	assert.Equal(t, "run.py", tasks["concrete"].Script)
	assert.Equal(t, KindScript, tasks["concrete"].Kind())
	// The parent alone is a group task, legal because it has depends_on.
	assert.Equal(t, KindGroup, tasks["abstract"].Kind())
}

func TestResolveTasks_ScriptAndCmdExclusive(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"parent": {Script: strPtr("run.py")},
			"child":  {Extend: "parent", Cmd: strPtr("echo hi")},
		},
	}

	_, err := cfg.ResolveTasks()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestResolveTasks_NeitherScriptNorCmd(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"empty": {Description: strPtr("nothing to run")},
		},
	}

	_, err := cfg.ResolveTasks()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script or cmd")
}

func TestResolveTasks_HookFieldsOverrideIndividually(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"parent": {
				Cmd: strPtr("true"),
				Hooks: HooksConfig{
					BeforeTask: "hooks/setup.py",
					AfterTask:  "hooks/cleanup.py",
				},
			},
			"child": {
				Extend: "parent",
				Hooks:  HooksConfig{AfterTask: "hooks/other.py"},
			},
		},
	}

	tasks, err := cfg.ResolveTasks()
	require.NoError(t, err)
	assert.Equal(t, "hooks/setup.py", tasks["child"].Hooks.BeforeTask)
	assert.Equal(t, "hooks/other.py", tasks["child"].Hooks.AfterTask)
}

func TestResolveTasks_BoolOverride(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"parent": {Cmd: strPtr("true"), IgnoreErrors: boolPtr(true), Parallel: boolPtr(true)},
			"keeps":  {Extend: "parent"},
			"clears": {Extend: "parent", IgnoreErrors: boolPtr(false)},
		},
	}

	tasks, err := cfg.ResolveTasks()
	require.NoError(t, err)
	assert.True(t, tasks["keeps"].IgnoreErrors, "unset child keeps parent's true")
	assert.False(t, tasks["clears"].IgnoreErrors, "explicit false overrides")
	assert.True(t, tasks["clears"].Parallel)
}

func TestResolveTasks_Idempotent(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]*TaskConfig{
			"a": {Cmd: strPtr("echo"), Tags: []string{"z", "a"}, Aliases: []string{"x"}},
		},
	}

	first, err := cfg.ResolveTasks()
	require.NoError(t, err)
	second, err := cfg.ResolveTasks()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "z"}, first["a"].Tags, "tags sorted")
}
