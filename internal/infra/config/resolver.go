package config

import (
	"os"
	"path/filepath"

	"github.com/ptrunner/pt/internal/domain"
	"github.com/ptrunner/pt/internal/infra/envfile"
)

// ProfileEnvVar selects a profile when no --profile flag is given.
const ProfileEnvVar = "PT_PROFILE"

// SelectProfile applies the profile precedence: CLI flag, then PT_PROFILE,
// then the project's default_profile.
func SelectProfile(cfg *domain.Config, flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(ProfileEnvVar); env != "" {
		return env
	}
	return cfg.Project.DefaultProfile
}

// Resolve materializes the effective task set and environment layers for
// the selected profile. Env layering, lowest priority first: global
// env_files, global [env], profile env_files, profile env. Task env and
// builtins are applied by the execution layer.
func Resolve(cfg *domain.Config, configFile, profile string) (*domain.Resolved, error) {
	root := filepath.Dir(configFile)

	var prof *domain.ProfileConfig
	if profile != "" {
		p, ok := cfg.Profiles[profile]
		if !ok {
			return nil, domain.NewConfigError("profile %q does not exist", profile)
		}
		prof = p
	}

	baseEnv := make(map[string]string)
	if err := overlayEnvFiles(baseEnv, root, cfg.Project.EnvFiles); err != nil {
		return nil, err
	}
	for k, v := range cfg.Env {
		baseEnv[k] = v
	}
	if prof != nil {
		if err := overlayEnvFiles(baseEnv, root, prof.EnvFiles); err != nil {
			return nil, err
		}
		for k, v := range prof.Env {
			baseEnv[k] = v
		}
	}

	groups := make(map[string][]string, len(cfg.Dependencies))
	for name, pkgs := range cfg.Dependencies {
		groups[name] = append([]string{}, pkgs...)
	}
	if prof != nil {
		for name, pkgs := range prof.Dependencies {
			groups[name] = append([]string{}, pkgs...)
		}
	}

	python := cfg.Project.Python
	if prof != nil && prof.Python != "" {
		python = prof.Python
	}

	tasks, err := cfg.ResolveTasks()
	if err != nil {
		return nil, err
	}

	return &domain.Resolved{
		Config:     cfg,
		Tasks:      tasks,
		BaseEnv:    baseEnv,
		Groups:     groups,
		Root:       root,
		ConfigFile: configFile,
		Profile:    profile,
		Python:     python,
	}, nil
}

// overlayEnvFiles parses env files in declared order; later files override
// earlier keys. Paths are relative to the project root.
func overlayEnvFiles(into map[string]string, root string, files []string) error {
	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		vars, err := envfile.Parse(path)
		if err != nil {
			return err
		}
		for k, v := range vars {
			into[k] = v
		}
	}
	return nil
}
