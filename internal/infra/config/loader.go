// Package config locates, parses, and resolves pt configuration files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/ptrunner/pt/internal/domain"
)

// Config file names searched during discovery.
const (
	ConfigFileName    = "pt.toml"
	PyprojectFileName = "pyproject.toml"
)

// Loader discovers and parses the project configuration.
type Loader struct {
	startDir     string
	explicitPath string
}

// NewLoader creates a loader that searches upward from startDir. An
// explicit path, when non-empty, skips discovery.
func NewLoader(startDir, explicitPath string) *Loader {
	return &Loader{startDir: startDir, explicitPath: explicitPath}
}

// Load locates the config file, parses it in strict mode, and validates
// it. It returns the parsed config and the file it came from.
func (l *Loader) Load() (*domain.Config, string, error) {
	path, err := l.locate()
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", &domain.ConfigError{File: path, Msg: "cannot read config: " + err.Error()}
	}

	var cfg *domain.Config
	if filepath.Base(path) == PyprojectFileName {
		cfg, err = parsePyproject(path, data)
	} else {
		cfg, err = parseStrict(path, data)
	}
	if err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) && cfgErr.File == "" {
			cfgErr.File = path
		}
		return nil, "", err
	}
	return cfg, path, nil
}

// locate walks upward from the start directory. In each directory pt.toml
// wins over a pyproject.toml carrying a [tool.pt] table; the nearest hit
// wins overall.
func (l *Loader) locate() (string, error) {
	if l.explicitPath != "" {
		abs, err := filepath.Abs(l.explicitPath)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", &domain.ConfigError{File: l.explicitPath, Msg: "config file not found"}
		}
		return abs, nil
	}

	dir, err := filepath.Abs(l.startDir)
	if err != nil {
		return "", err
	}
	for {
		ptPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(ptPath); err == nil {
			return ptPath, nil
		}
		pyPath := filepath.Join(dir, PyprojectFileName)
		if data, err := os.ReadFile(pyPath); err == nil && hasToolPt(data) {
			return pyPath, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", domain.ErrConfigNotFound
		}
		dir = parent
	}
}

// parseStrict decodes a pt.toml document, rejecting unknown keys.
func parseStrict(path string, data []byte) (*domain.Config, error) {
	cfg := &domain.Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, decodeError(path, err)
	}
	return cfg, nil
}

// parsePyproject extracts the [tool.pt] table from a pyproject.toml and
// strict-decodes it. Keys outside [tool.pt] belong to other tools and are
// not validated.
func parsePyproject(path string, data []byte) (*domain.Config, error) {
	var outer struct {
		Tool map[string]any `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &outer); err != nil {
		return nil, decodeError(path, err)
	}
	sub, ok := outer.Tool["pt"]
	if !ok {
		return nil, &domain.ConfigError{File: path, Msg: "missing [tool.pt] table"}
	}
	// Round-trip the subtree through TOML so the same strict decoding
	// applies as for pt.toml.
	raw, err := toml.Marshal(sub)
	if err != nil {
		return nil, &domain.ConfigError{File: path, Msg: "re-encoding [tool.pt]: " + err.Error()}
	}
	cfg, err := parseStrict(path, raw)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func hasToolPt(data []byte) bool {
	var outer struct {
		Tool map[string]any `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &outer); err != nil {
		return false
	}
	_, ok := outer.Tool["pt"]
	return ok
}

// decodeError converts go-toml failures into ConfigErrors with location
// information.
func decodeError(path string, err error) error {
	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) {
		return &domain.ConfigError{
			File: path,
			Msg:  "unknown configuration keys:\n" + strictErr.String(),
		}
	}
	var decErr *toml.DecodeError
	if errors.As(err, &decErr) {
		row, _ := decErr.Position()
		return &domain.ConfigError{File: path, Line: row, Msg: decErr.Error()}
	}
	return &domain.ConfigError{File: path, Msg: fmt.Sprintf("invalid TOML: %v", err)}
}
