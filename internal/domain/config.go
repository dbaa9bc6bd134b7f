package domain

import (
	"regexp"
	"sort"
)

// Config is the root of a pt.toml document (or a [tool.pt] table inside
// pyproject.toml). Unknown keys are rejected at decode time by the loader.
type Config struct {
	Project      ProjectConfig              `toml:"project,omitempty"`
	Env          map[string]string          `toml:"env,omitempty"`
	Dependencies map[string][]string        `toml:"dependencies,omitempty"`
	Tasks        map[string]*TaskConfig     `toml:"tasks,omitempty"`
	Profiles     map[string]*ProfileConfig  `toml:"profiles,omitempty"`
	Pipelines    map[string]*PipelineConfig `toml:"pipelines,omitempty"`
}

// ProjectConfig holds the [project] table.
type ProjectConfig struct {
	Name           string   `toml:"name,omitempty"`
	Python         string   `toml:"python,omitempty"`
	DefaultProfile string   `toml:"default_profile,omitempty"`
	OnErrorTask    string   `toml:"on_error_task,omitempty"`
	EnvFiles       []string `toml:"env_files,omitempty"`
}

// TaskConfig is the raw [tasks.<name>] table, before inheritance and
// profile resolution. Optional scalars are pointers so the inheritance
// resolver can tell "unset" apart from a zero value.
type TaskConfig struct {
	Extend          string            `toml:"extend,omitempty"`
	Script          *string           `toml:"script,omitempty"`
	Cmd             *string           `toml:"cmd,omitempty"`
	Args            []string          `toml:"args,omitempty"`
	Dependencies    []string          `toml:"dependencies,omitempty"`
	Env             map[string]string `toml:"env,omitempty"`
	PythonPath      []string          `toml:"pythonpath,omitempty"`
	DependsOn       []string          `toml:"depends_on,omitempty"`
	Parallel        *bool             `toml:"parallel,omitempty"`
	Python          *string           `toml:"python,omitempty"`
	Cwd             *string           `toml:"cwd,omitempty"`
	Timeout         *int              `toml:"timeout,omitempty"`
	IgnoreErrors    *bool             `toml:"ignore_errors,omitempty"`
	Condition       *Condition        `toml:"condition,omitempty"`
	ConditionScript *string           `toml:"condition_script,omitempty"`
	Aliases         []string          `toml:"aliases,omitempty"`
	Tags            []string          `toml:"tags,omitempty"`
	Category        *string           `toml:"category,omitempty"`
	Hooks           HooksConfig       `toml:"hooks,omitempty"`
	Description     *string           `toml:"description,omitempty"`
}

// HooksConfig holds the optional [tasks.<name>.hooks] table. Each field is
// a script path; an empty string means the hook is not set.
type HooksConfig struct {
	BeforeTask   string `toml:"before_task,omitempty"`
	AfterSuccess string `toml:"after_success,omitempty"`
	AfterFailure string `toml:"after_failure,omitempty"`
	AfterTask    string `toml:"after_task,omitempty"`
}

// ProfileConfig holds a [profiles.<name>] table.
type ProfileConfig struct {
	Env          map[string]string   `toml:"env,omitempty"`
	EnvFiles     []string            `toml:"env_files,omitempty"`
	Python       string              `toml:"python,omitempty"`
	Dependencies map[string][]string `toml:"dependencies,omitempty"`
}

// PipelineConfig holds a [pipelines.<name>] table.
type PipelineConfig struct {
	Description string     `toml:"description,omitempty"`
	OnFailure   OnFailure  `toml:"on_failure,omitempty"`
	Output      OutputMode `toml:"output,omitempty"`
	Stages      []Stage    `toml:"stages"`
}

// Stage is one entry of a pipeline's stages array.
type Stage struct {
	Tasks    []string `toml:"tasks"`
	Parallel bool     `toml:"parallel,omitempty"`
}

// OnFailure controls scheduling behavior when a task fails.
type OnFailure string

// Valid on_failure values.
const (
	FailFast        OnFailure = "fail-fast"
	FailWait        OnFailure = "wait"
	FailContinue    OnFailure = "continue"
	defaultOnFailed           = FailFast
)

// IsValid returns true if the value is a known on_failure mode.
func (f OnFailure) IsValid() bool {
	switch f {
	case FailFast, FailWait, FailContinue:
		return true
	default:
		return false
	}
}

// OrDefault returns the mode, or fail-fast when unset.
func (f OnFailure) OrDefault() OnFailure {
	if f == "" {
		return defaultOnFailed
	}
	return f
}

// OutputMode controls how concurrent task output is presented.
type OutputMode string

// Valid output modes.
const (
	OutputBuffered    OutputMode = "buffered"
	OutputInterleaved OutputMode = "interleaved"
)

// IsValid returns true if the value is a known output mode.
func (m OutputMode) IsValid() bool {
	switch m {
	case OutputBuffered, OutputInterleaved:
		return true
	default:
		return false
	}
}

// OrDefault returns the mode, or buffered when unset.
func (m OutputMode) OrDefault() OutputMode {
	if m == "" {
		return OutputBuffered
	}
	return m
}

var (
	taskNameRe = regexp.MustCompile(`^_?[A-Za-z0-9_-]+$`)
	tagRe      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	pythonRe   = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)
)

// ValidTaskName reports whether name is a legal task identifier. A leading
// underscore marks the task as private.
func ValidTaskName(name string) bool { return taskNameRe.MatchString(name) }

// ValidTag reports whether s is a legal tag or category string.
func ValidTag(s string) bool { return tagRe.MatchString(s) }

// Validate checks the raw configuration against every invariant that does
// not require inheritance resolution: identifier shapes, alias uniqueness,
// timeouts, python version strings, referenced task existence, and pipeline
// option values. script/cmd exclusivity is checked after resolution, since
// a child task may complete its parent.
func (c *Config) Validate() error {
	seen := make(map[string]string) // name or alias -> owning task

	for name := range c.Tasks {
		if !ValidTaskName(name) {
			return NewConfigError("invalid task name %q: must match [A-Za-z0-9_-]+ with optional leading _", name)
		}
		seen[name] = name
	}

	for name, task := range c.Tasks {
		if err := c.validateTask(name, task, seen); err != nil {
			return err
		}
	}

	if c.Project.Python != "" && !pythonRe.MatchString(c.Project.Python) {
		return NewConfigError("project: invalid python version %q", c.Project.Python)
	}
	if t := c.Project.OnErrorTask; t != "" {
		if _, ok := c.Tasks[t]; !ok {
			return NewConfigError("project: on_error_task %q does not exist", t)
		}
	}
	if p := c.Project.DefaultProfile; p != "" {
		if _, ok := c.Profiles[p]; !ok {
			return NewConfigError("project: default_profile %q does not exist", p)
		}
	}

	for name, profile := range c.Profiles {
		if profile.Python != "" && !pythonRe.MatchString(profile.Python) {
			return NewConfigError("profile %q: invalid python version %q", name, profile.Python)
		}
	}

	for name, pipe := range c.Pipelines {
		if err := c.validatePipeline(name, pipe); err != nil {
			return err
		}
	}

	// Reject depends_on cycles before anything executes.
	return c.detectDependsOnCycles()
}

func (c *Config) validateTask(name string, task *TaskConfig, seen map[string]string) error {
	for _, alias := range task.Aliases {
		if !tagRe.MatchString(alias) {
			return NewConfigError("task %q: invalid alias %q", name, alias)
		}
		if owner, dup := seen[alias]; dup && owner != name {
			return NewConfigError("task %q: alias %q conflicts with task or alias of %q", name, alias, owner)
		}
		seen[alias] = name
	}
	for _, tag := range task.Tags {
		if !ValidTag(tag) {
			return NewConfigError("task %q: invalid tag %q", name, tag)
		}
	}
	if task.Category != nil && !ValidTag(*task.Category) {
		return NewConfigError("task %q: invalid category %q", name, *task.Category)
	}
	if task.Timeout != nil && *task.Timeout <= 0 {
		return NewConfigError("task %q: timeout must be > 0, got %d", name, *task.Timeout)
	}
	if task.Python != nil && !pythonRe.MatchString(*task.Python) {
		return NewConfigError("task %q: invalid python version %q", name, *task.Python)
	}
	if task.Extend != "" {
		if _, ok := c.Tasks[task.Extend]; !ok {
			return NewConfigError("task %q: extend target %q does not exist", name, task.Extend)
		}
	}
	for _, dep := range task.DependsOn {
		if _, ok := c.Tasks[dep]; !ok {
			return NewConfigError("task %q: depends_on target %q does not exist", name, dep)
		}
	}
	return nil
}

func (c *Config) validatePipeline(name string, pipe *PipelineConfig) error {
	if pipe.OnFailure != "" && !pipe.OnFailure.IsValid() {
		return NewConfigError("pipeline %q: invalid on_failure %q", name, pipe.OnFailure)
	}
	if pipe.Output != "" && !pipe.Output.IsValid() {
		return NewConfigError("pipeline %q: invalid output %q", name, pipe.Output)
	}
	if len(pipe.Stages) == 0 {
		return NewConfigError("pipeline %q: must declare at least one stage", name)
	}
	for i, stage := range pipe.Stages {
		if len(stage.Tasks) == 0 {
			return NewConfigError("pipeline %q: stage %d has no tasks", name, i+1)
		}
		for _, t := range stage.Tasks {
			if _, ok := c.Tasks[t]; !ok {
				return NewConfigError("pipeline %q: stage %d references unknown task %q", name, i+1, t)
			}
		}
	}
	return nil
}

// detectDependsOnCycles runs a coloring DFS over the whole depends_on
// relation so a cyclic config is rejected at load time.
func (c *Config) detectDependsOnCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(c.Tasks))

	var path []string
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			// Trim the path down to the cycle entry point.
			start := 0
			for i, n := range path {
				if n == name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), name)
			return &CycleError{Kind: "depends_on", Nodes: cycle}
		}
		color[name] = gray
		path = append(path, name)
		task := c.Tasks[name]
		for _, dep := range task.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	for _, name := range sortedKeys(c.Tasks) {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
