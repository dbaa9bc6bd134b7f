package scriptmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrunner/pt/internal/domain"
)

func TestParse_Block(t *testing.T) {
	content := `# /// script
# dependencies = ["requests", "rich>=13"]
# requires-python = ">=3.10"
# ///
import requests
`
	meta, err := Parse("script.py", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"requests", "rich>=13"}, meta.Dependencies)
	assert.Equal(t, ">=3.10", meta.RequiresPython)
}

func TestParse_NoBlock(t *testing.T) {
	meta, err := Parse("script.py", "import os\nprint(os.getcwd())\n")
	require.NoError(t, err)
	assert.Empty(t, meta.Dependencies)
	assert.Empty(t, meta.RequiresPython)
}

func TestParse_BlockAfterShebang(t *testing.T) {
	content := `#!/usr/bin/env python
# /// script
# dependencies = ["httpx"]
# ///
`
	meta, err := Parse("script.py", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"httpx"}, meta.Dependencies)
}

func TestParse_EmptyCommentLine(t *testing.T) {
	content := `# /// script
# dependencies = [
#     "requests",
# ]
#
# requires-python = ">=3.11"
# ///
`
	meta, err := Parse("script.py", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"requests"}, meta.Dependencies)
	assert.Equal(t, ">=3.11", meta.RequiresPython)
}

func TestParse_NonCommentInteriorLine(t *testing.T) {
	content := `# /// script
# dependencies = ["requests"]
import os
# ///
`
	_, err := Parse("script.py", content)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 3, cfgErr.Line)
}

func TestParse_Unterminated(t *testing.T) {
	content := `# /// script
# dependencies = ["requests"]
`
	_, err := Parse("script.py", content)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Msg, "missing closing")
}

func TestParse_InvalidTOML(t *testing.T) {
	content := `# /// script
# dependencies = not valid
# ///
`
	_, err := Parse("script.py", content)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Msg, "malformed metadata block")
}
