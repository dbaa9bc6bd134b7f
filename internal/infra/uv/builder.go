// Package uv builds and executes invocations of the uv isolated runner.
package uv

import (
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ptrunner/pt/internal/domain"
)

const pathListSeparator = os.PathListSeparator

// BuildSpec carries everything the builder needs to produce an invocation.
// Env is the complete child environment; Dependencies are already
// group-expanded; MetaDependencies come from the script's inline block.
// Fields are ordered to minimize memory padding.
type BuildSpec struct {
	Env              map[string]string
	Script           string
	Cmd              string
	Python           string
	Cwd              string
	Args             []string
	Dependencies     []string
	MetaDependencies []string
	PythonPath       []string
	Timeout          time.Duration
}

// Build translates a spec into an invocation of the uv runner, or a plain
// shell subprocess when nothing requires isolation.
func Build(spec BuildSpec) domain.Invocation {
	env := composeEnv(spec.Env, spec.PythonPath)

	if spec.Script != "" {
		args := []string{"run"}
		if spec.Python != "" {
			args = append(args, "--python", spec.Python)
		}
		for _, dep := range MergeDependencies(spec.Dependencies, spec.MetaDependencies) {
			args = append(args, "--with", dep)
		}
		args = append(args, spec.Script)
		args = append(args, spec.Args...)
		return domain.Invocation{
			Program: "uv",
			Args:    args,
			Env:     env,
			Dir:     spec.Cwd,
			Timeout: spec.Timeout,
		}
	}

	// cmd tasks: the command string plus shell-quoted args is interpreted
	// by a single shell. Without dependencies or an interpreter pin the uv
	// wrapper adds nothing, so dispatch straight to the shell.
	shellCmd := spec.Cmd
	if len(spec.Args) > 0 {
		shellCmd += " " + JoinShellArgs(spec.Args)
	}
	if len(spec.Dependencies) == 0 && spec.Python == "" {
		return domain.Invocation{
			Program: "bash",
			Args:    []string{"-c", shellCmd},
			Env:     env,
			Dir:     spec.Cwd,
			Timeout: spec.Timeout,
		}
	}

	args := []string{"run"}
	if spec.Python != "" {
		args = append(args, "--python", spec.Python)
	}
	for _, dep := range spec.Dependencies {
		args = append(args, "--with", dep)
	}
	args = append(args, "--", "bash", "-c", shellCmd)
	return domain.Invocation{
		Program: "uv",
		Args:    args,
		Env:     env,
		Dir:     spec.Cwd,
		Timeout: spec.Timeout,
	}
}

// BuildHook produces the invocation for a hook or condition script. Hooks
// inherit the task's env, cwd, pythonpath, and interpreter but not its
// dependency list.
func BuildHook(script string, env map[string]string, pythonPath []string, python, cwd string) domain.Invocation {
	args := []string{"run"}
	if python != "" {
		args = append(args, "--python", python)
	}
	args = append(args, script)
	return domain.Invocation{
		Program: "uv",
		Args:    args,
		Env:     composeEnv(env, pythonPath),
		Dir:     cwd,
	}
}

// MergeDependencies combines inline-metadata dependencies with explicit
// task dependencies. On a package-name conflict the task's specifier wins;
// metadata entries keep their relative order ahead of task entries.
func MergeDependencies(taskDeps, metaDeps []string) []string {
	taskNames := make(map[string]bool, len(taskDeps))
	for _, dep := range taskDeps {
		taskNames[SpecifierName(dep)] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, dep := range metaDeps {
		name := SpecifierName(dep)
		if taskNames[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, dep)
	}
	return append(out, taskDeps...)
}

// SpecifierName extracts the package name from a PEP 508 specifier, e.g.
// "requests>=2.31" -> "requests", "rich[jupyter]==13.0" -> "rich".
func SpecifierName(spec string) string {
	name := strings.TrimSpace(spec)
	if i := strings.IndexAny(name, "=<>!~[@; "); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// JoinShellArgs renders args as a single shell-safe string.
func JoinShellArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = ShellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// ShellQuote single-quotes an argument for POSIX shells when needed.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$&|;<>()*?[]#~%{}`!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// composeEnv flattens the env map into key=value form, prepending the
// task's pythonpath entries to any inherited PYTHONPATH with duplicates
// removed.
func composeEnv(env map[string]string, pythonPath []string) []string {
	merged := make(map[string]string, len(env))
	for k, v := range env {
		merged[k] = v
	}
	if len(pythonPath) > 0 {
		merged["PYTHONPATH"] = PrependPath(pythonPath, merged["PYTHONPATH"])
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

// PrependPath joins paths ahead of an inherited path-list value, removing
// duplicates while preserving first occurrence.
func PrependPath(paths []string, inherited string) string {
	all := append([]string{}, paths...)
	if inherited != "" {
		all = append(all, strings.Split(inherited, string(pathListSeparator))...)
	}
	seen := make(map[string]bool, len(all))
	var out []string
	for _, p := range all {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return strings.Join(out, string(pathListSeparator))
}

// Installed reports whether the uv binary is on PATH.
func Installed() bool {
	_, err := exec.LookPath("uv")
	return err == nil
}
