package domain

import "sort"

// ResolveTasks flattens every extend chain and materializes the effective
// task set. Field merge rules, applied ancestor -> descendant:
//
//   - script, cmd, cwd, timeout, python, description, category,
//     ignore_errors, parallel, condition, condition_script, and each hook
//     field: descendant overrides when set
//   - dependencies, pythonpath, depends_on: union, first occurrence wins
//   - tags: union, then sorted
//   - aliases: union, deduplicated
//   - args: parent args first, then child args
//   - env: map union, child value wins per key
//
// Returns a CycleError when an extend chain loops, and a ConfigError when a
// resolved task has both script and cmd, or neither (group tasks with
// depends_on excepted).
func (c *Config) ResolveTasks() (map[string]*Task, error) {
	merged := make(map[string]*TaskConfig, len(c.Tasks))

	var resolve func(name string, chain []string) (*TaskConfig, error)
	resolve = func(name string, chain []string) (*TaskConfig, error) {
		if done, ok := merged[name]; ok {
			return done, nil
		}
		for i, seen := range chain {
			if seen == name {
				cycle := append(append([]string{}, chain[i:]...), name)
				return nil, &CycleError{Kind: "extend", Nodes: cycle}
			}
		}

		raw := c.Tasks[name]
		if raw.Extend == "" {
			merged[name] = raw
			return raw, nil
		}

		parent, err := resolve(raw.Extend, append(chain, name))
		if err != nil {
			return nil, err
		}
		flat := mergeTaskConfigs(parent, raw)
		merged[name] = flat
		return flat, nil
	}

	for _, name := range sortedKeys(c.Tasks) {
		if _, err := resolve(name, nil); err != nil {
			return nil, err
		}
	}

	tasks := make(map[string]*Task, len(merged))
	for name, flat := range merged {
		task, err := materializeTask(name, flat)
		if err != nil {
			return nil, err
		}
		tasks[name] = task
	}
	return tasks, nil
}

// mergeTaskConfigs folds a child over its resolved parent. The result has
// no extend field.
func mergeTaskConfigs(parent, child *TaskConfig) *TaskConfig {
	out := &TaskConfig{
		Script:          override(parent.Script, child.Script),
		Cmd:             override(parent.Cmd, child.Cmd),
		Cwd:             override(parent.Cwd, child.Cwd),
		Timeout:         override(parent.Timeout, child.Timeout),
		Python:          override(parent.Python, child.Python),
		Description:     override(parent.Description, child.Description),
		Category:        override(parent.Category, child.Category),
		IgnoreErrors:    override(parent.IgnoreErrors, child.IgnoreErrors),
		Parallel:        override(parent.Parallel, child.Parallel),
		ConditionScript: override(parent.ConditionScript, child.ConditionScript),
		Condition:       parent.Condition,

		Args:         append(append([]string{}, parent.Args...), child.Args...),
		Dependencies: unionFirst(parent.Dependencies, child.Dependencies),
		PythonPath:   unionFirst(parent.PythonPath, child.PythonPath),
		DependsOn:    unionFirst(parent.DependsOn, child.DependsOn),
		Tags:         unionFirst(parent.Tags, child.Tags),
		Aliases:      unionFirst(parent.Aliases, child.Aliases),

		Env:   mergeEnv(parent.Env, child.Env),
		Hooks: parent.Hooks,
	}
	if child.Condition != nil {
		out.Condition = child.Condition
	}
	if child.Hooks.BeforeTask != "" {
		out.Hooks.BeforeTask = child.Hooks.BeforeTask
	}
	if child.Hooks.AfterSuccess != "" {
		out.Hooks.AfterSuccess = child.Hooks.AfterSuccess
	}
	if child.Hooks.AfterFailure != "" {
		out.Hooks.AfterFailure = child.Hooks.AfterFailure
	}
	if child.Hooks.AfterTask != "" {
		out.Hooks.AfterTask = child.Hooks.AfterTask
	}
	return out
}

// materializeTask converts a flattened TaskConfig into an effective Task
// and enforces script/cmd exclusivity.
func materializeTask(name string, flat *TaskConfig) (*Task, error) {
	if flat.Script != nil && flat.Cmd != nil {
		return nil, NewConfigError("task %q: script and cmd are mutually exclusive", name)
	}
	if flat.Script == nil && flat.Cmd == nil && len(flat.DependsOn) == 0 {
		return nil, NewConfigError("task %q: must set either script or cmd (or depends_on for a group task)", name)
	}

	task := &Task{
		Name:            name,
		Script:          deref(flat.Script),
		Cmd:             deref(flat.Cmd),
		Cwd:             deref(flat.Cwd),
		Python:          deref(flat.Python),
		Description:     deref(flat.Description),
		Category:        deref(flat.Category),
		ConditionScript: deref(flat.ConditionScript),
		Args:            append([]string{}, flat.Args...),
		Dependencies:    append([]string{}, flat.Dependencies...),
		PythonPath:      dedupe(flat.PythonPath),
		DependsOn:       append([]string{}, flat.DependsOn...),
		Aliases:         append([]string{}, flat.Aliases...),
		Tags:            append([]string{}, flat.Tags...),
		Env:             mergeEnv(nil, flat.Env),
		Condition:       flat.Condition,
		Hooks:           flat.Hooks,
	}
	if flat.Timeout != nil {
		task.Timeout = *flat.Timeout
	}
	if flat.Parallel != nil {
		task.Parallel = *flat.Parallel
	}
	if flat.IgnoreErrors != nil {
		task.IgnoreErrors = *flat.IgnoreErrors
	}
	sort.Strings(task.Tags)
	return task, nil
}

func override[T any](parent, child *T) *T {
	if child != nil {
		return child
	}
	return parent
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// unionFirst concatenates two lists, keeping the first occurrence of each
// element.
func unionFirst(a, b []string) []string {
	return dedupe(append(append([]string{}, a...), b...))
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func mergeEnv(parent, child map[string]string) map[string]string {
	out := make(map[string]string, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}
