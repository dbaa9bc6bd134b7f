package domain

import "sort"

// Resolved is the outcome of loading a configuration and applying the
// selected profile: the effective task set, the layered environment
// overlay, and the effective dependency-group map. It is built once per
// invocation and read-only afterwards.
// Fields are ordered to minimize memory padding.
type Resolved struct {
	Config     *Config
	Tasks      map[string]*Task
	BaseEnv    map[string]string   // global env_files < global env < profile env_files < profile env
	Groups     map[string][]string // global [dependencies] overlaid by the profile's
	Root       string              // project root directory
	ConfigFile string
	Profile    string // selected profile name, "" when none
	Python     string // profile python falling back to project python
}

// Lookup resolves a task name or alias to its task. The returned error is
// a TaskNotFoundError listing available public task names.
func (r *Resolved) Lookup(nameOrAlias string) (*Task, error) {
	if task, ok := r.Tasks[nameOrAlias]; ok {
		return task, nil
	}
	for _, task := range r.Tasks {
		for _, alias := range task.Aliases {
			if alias == nameOrAlias {
				return task, nil
			}
		}
	}
	return nil, &TaskNotFoundError{Name: nameOrAlias, Available: r.TaskNames(false)}
}

// TaskNames returns sorted task names; private tasks only when all is set.
func (r *Resolved) TaskNames(all bool) []string {
	names := make([]string, 0, len(r.Tasks))
	for name, task := range r.Tasks {
		if !all && task.Private() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TasksByTags returns tasks matching the tags, every tag when matchAll is
// set, any tag otherwise. Names are sorted.
func (r *Resolved) TasksByTags(tags []string, matchAll bool) []*Task {
	var out []*Task
	for _, name := range r.TaskNames(true) {
		task := r.Tasks[name]
		if matchAll && task.HasAllTags(tags) || !matchAll && task.HasAnyTag(tags) {
			out = append(out, task)
		}
	}
	return out
}

// TasksByCategory returns tasks in the category, sorted by name.
func (r *Resolved) TasksByCategory(category string) []*Task {
	var out []*Task
	for _, name := range r.TaskNames(true) {
		if task := r.Tasks[name]; task.Category == category {
			out = append(out, task)
		}
	}
	return out
}

// AllTags returns every tag in use mapped to the sorted names of the tasks
// carrying it.
func (r *Resolved) AllTags() map[string][]string {
	tags := make(map[string][]string)
	for _, name := range r.TaskNames(true) {
		for _, tag := range r.Tasks[name].Tags {
			tags[tag] = append(tags[tag], name)
		}
	}
	return tags
}

// EffectiveEnv returns the config-defined environment overlay for a task:
// the profile-layered base with the task's own env folded on top. Process
// environment and builtins are applied by the execution layer.
func (r *Resolved) EffectiveEnv(task *Task) map[string]string {
	return mergeEnv(r.BaseEnv, task.Env)
}

// EffectivePython returns the interpreter version for a task, preferring
// the task's own pin over the profile's over the project's.
func (r *Resolved) EffectivePython(task *Task) string {
	if task.Python != "" {
		return task.Python
	}
	return r.Python
}

// ExpandDependencies replaces dependency-group names in a task's
// dependencies with the group's package specifiers. A name is a group
// reference iff it is a key of the effective group map; group names win
// over identically-named packages. Order is preserved, duplicates removed.
func (r *Resolved) ExpandDependencies(task *Task) []string {
	var out []string
	for _, dep := range task.Dependencies {
		if pkgs, ok := r.Groups[dep]; ok {
			out = append(out, pkgs...)
			continue
		}
		out = append(out, dep)
	}
	return dedupe(out)
}

// OnErrorTask returns the configured global error-handler task, or nil.
func (r *Resolved) OnErrorTask() *Task {
	name := r.Config.Project.OnErrorTask
	if name == "" {
		return nil
	}
	return r.Tasks[name]
}
