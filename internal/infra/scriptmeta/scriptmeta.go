// Package scriptmeta extracts the inline dependency manifest that scripts
// can embed in a "# /// script" comment block.
package scriptmeta

import (
	"errors"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ptrunner/pt/internal/domain"
)

const (
	blockOpen  = "# /// script"
	blockClose = "# ///"
)

// Reader implements domain.MetadataReader over the filesystem.
type Reader struct{}

// NewReader creates a new metadata reader.
func NewReader() *Reader { return &Reader{} }

var _ domain.MetadataReader = (*Reader)(nil)

// Read loads a script file and parses its metadata block. A script without
// a block yields the zero value.
func (r *Reader) Read(path string) (domain.ScriptMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ScriptMetadata{}, &domain.ConfigError{File: path, Msg: "cannot read script: " + err.Error()}
	}
	return Parse(path, string(data))
}

// Parse extracts the first block delimited by "# /// script" and "# ///",
// strips the comment prefix from each interior line, and decodes the
// result as TOML. Recognized keys: dependencies, requires-python.
func Parse(path, content string) (domain.ScriptMetadata, error) {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, " \t\r") == blockOpen {
			start = i
			break
		}
	}
	if start == -1 {
		return domain.ScriptMetadata{}, nil
	}

	var body []string
	closed := false
	for i := start + 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t\r")
		if line == blockClose {
			closed = true
			break
		}
		switch {
		case line == "#":
			body = append(body, "")
		case strings.HasPrefix(line, "# "):
			body = append(body, line[2:])
		default:
			return domain.ScriptMetadata{}, &domain.ConfigError{
				File: path, Line: i + 1,
				Msg: "malformed metadata block: line is not a comment",
			}
		}
	}
	if !closed {
		return domain.ScriptMetadata{}, &domain.ConfigError{
			File: path, Line: start + 1,
			Msg: "malformed metadata block: missing closing # ///",
		}
	}

	var meta struct {
		Dependencies   []string `toml:"dependencies"`
		RequiresPython string   `toml:"requires-python"`
	}
	if err := toml.Unmarshal([]byte(strings.Join(body, "\n")), &meta); err != nil {
		line := start + 1
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, _ := decErr.Position()
			line = start + 1 + row
		}
		return domain.ScriptMetadata{}, &domain.ConfigError{
			File: path, Line: line,
			Msg: "malformed metadata block: " + err.Error(),
		}
	}

	return domain.ScriptMetadata{
		Dependencies:   meta.Dependencies,
		RequiresPython: meta.RequiresPython,
	}, nil
}
