package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Condition is a declarative execution gate. All set sub-conditions must
// admit for the task to run.
type Condition struct {
	Platforms     []string          `toml:"platforms,omitempty"`
	EnvSet        []string          `toml:"env_set,omitempty"`
	EnvNotSet     []string          `toml:"env_not_set,omitempty"`
	EnvTrue       []string          `toml:"env_true,omitempty"`
	EnvEquals     map[string]string `toml:"env_equals,omitempty"`
	FilesExist    []string          `toml:"files_exist,omitempty"`
	FilesNotExist []string          `toml:"files_not_exist,omitempty"`
}

// EnvLookup resolves a variable name to its value, reporting presence.
type EnvLookup func(name string) (string, bool)

// Evaluate checks the condition against the current platform, an
// environment lookup, and paths relative to the project root. It returns
// whether the task is admitted, and a human-readable reason when it is not.
func (c *Condition) Evaluate(goos string, env EnvLookup, root string) (bool, string) {
	if len(c.Platforms) > 0 && !contains(c.Platforms, goos) {
		return false, fmt.Sprintf("platform %s not in [%s]", goos, strings.Join(c.Platforms, ", "))
	}
	for _, name := range c.EnvSet {
		if _, ok := env(name); !ok {
			return false, fmt.Sprintf("environment variable %s is not set", name)
		}
	}
	for _, name := range c.EnvNotSet {
		if _, ok := env(name); ok {
			return false, fmt.Sprintf("environment variable %s is set", name)
		}
	}
	for _, name := range c.EnvTrue {
		val, ok := env(name)
		if !ok || !Truthy(val) {
			return false, fmt.Sprintf("environment variable %s is not true", name)
		}
	}
	for _, name := range sortedKeys(c.EnvEquals) {
		want := c.EnvEquals[name]
		val, ok := env(name)
		if !ok || val != want {
			return false, fmt.Sprintf("environment variable %s != %q", name, want)
		}
	}
	for _, path := range c.FilesExist {
		if _, err := os.Stat(filepath.Join(root, path)); err != nil {
			return false, fmt.Sprintf("file %s does not exist", path)
		}
	}
	for _, path := range c.FilesNotExist {
		if _, err := os.Stat(filepath.Join(root, path)); err == nil {
			return false, fmt.Sprintf("file %s exists", path)
		}
	}
	return true, ""
}

// Truthy reports whether a variable value counts as enabled: one of
// 1, true, yes, on (case-insensitive).
func Truthy(val string) bool {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func contains(list []string, s string) bool {
	for _, have := range list {
		if have == s {
			return true
		}
	}
	return false
}
