// Package shared holds helpers used by several use cases.
package shared

import (
	"os"
	"sort"
	"strings"

	"github.com/ptrunner/pt/internal/domain"
)

// ciIndicators are the variables whose presence marks a CI environment.
var ciIndicators = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "TRAVIS", "JENKINS_URL", "BUILDKITE"}

// ChildEnv composes the full environment for a task's subprocess:
// process environment, then the profile-layered overlay, then the task's
// own env, then extra vars (hook and error-handler context), and finally
// the builtin PT_* vars wherever the name is still unclaimed.
func ChildEnv(res *domain.Resolved, git domain.GitInfo, task *domain.Task, extra map[string]string) map[string]string {
	env := environMap()
	for k, v := range res.EffectiveEnv(task) {
		env[k] = v
	}
	for k, v := range extra {
		env[k] = v
	}

	builtins := map[string]string{
		"PT_TASK_NAME":    task.Name,
		"PT_PROJECT_ROOT": res.Root,
		"PT_CONFIG_FILE":  res.ConfigFile,
		"PT_CI":           ciValue(env),
	}
	if res.Profile != "" {
		builtins["PT_PROFILE"] = res.Profile
	}
	if py := res.EffectivePython(task); py != "" {
		builtins["PT_PYTHON_VERSION"] = py
	}
	if task.Category != "" {
		builtins["PT_CATEGORY"] = task.Category
	}
	if len(task.Tags) > 0 {
		tags := append([]string{}, task.Tags...)
		sort.Strings(tags)
		builtins["PT_TAGS"] = strings.Join(tags, ",")
	}
	if git != nil {
		if branch := git.Branch(); branch != "" {
			builtins["PT_GIT_BRANCH"] = branch
		}
		if commit := git.Commit(); commit != "" {
			builtins["PT_GIT_COMMIT"] = commit
		}
	}
	for k, v := range builtins {
		if _, taken := env[k]; !taken {
			env[k] = v
		}
	}
	return env
}

// Lookup adapts an env map to the condition evaluator's interface.
func Lookup(env map[string]string) domain.EnvLookup {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func ciValue(env map[string]string) string {
	for _, name := range ciIndicators {
		if _, ok := env[name]; ok {
			return "true"
		}
	}
	return "false"
}
