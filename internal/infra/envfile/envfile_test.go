package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrunner/pt/internal/domain"
)

func parseString(t *testing.T, content string) (map[string]string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return Parse(path)
}

func TestParse_Basic(t *testing.T) {
	vars, err := parseString(t, "FOO=bar\nBAZ=qux\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"FOO": "bar", "BAZ": "qux"}, vars)
}

func TestParse_CommentsAndBlanks(t *testing.T) {
	vars, err := parseString(t, `
# full-line comment
FOO=bar # trailing comment

  # indented comment
BAZ=qux
`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"FOO": "bar", "BAZ": "qux"}, vars)
}

func TestParse_Quotes(t *testing.T) {
	t.Setenv("WHO", "world")

	vars, err := parseString(t, `
SINGLE='hello $WHO'
DOUBLE="hello $WHO"
PLAIN=hello $WHO
HASH="value # not a comment"
`)
	require.NoError(t, err)
	assert.Equal(t, "hello $WHO", vars["SINGLE"], "single quotes are literal")
	assert.Equal(t, "hello world", vars["DOUBLE"])
	assert.Equal(t, "hello world", vars["PLAIN"])
	assert.Equal(t, "value # not a comment", vars["HASH"])
}

func TestParse_BracedExpansion(t *testing.T) {
	t.Setenv("BASE", "/opt")
	vars, err := parseString(t, "P=${BASE}/bin\n")
	require.NoError(t, err)
	assert.Equal(t, "/opt/bin", vars["P"])
}

func TestParse_UndefinedExpandsEmpty(t *testing.T) {
	vars, err := parseString(t, "X=$NOT_DEFINED_ANYWHERE/suffix\n")
	require.NoError(t, err)
	assert.Equal(t, "/suffix", vars["X"])
}

func TestParse_LaterKeyWins(t *testing.T) {
	vars, err := parseString(t, "X=1\nX=2\n")
	require.NoError(t, err)
	assert.Equal(t, "2", vars["X"])
}

func TestParse_InvalidLine(t *testing.T) {
	_, err := parseString(t, "FOO=ok\nnot a valid line\n")
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 2, cfgErr.Line)
}

func TestParse_InvalidKey(t *testing.T) {
	_, err := parseString(t, "9BAD=value\n")
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 1, cfgErr.Line)
}

func TestParse_RoundTrip(t *testing.T) {
	want := map[string]string{
		"ALPHA": "one",
		"BETA":  "two words here",
		"GAMMA": "with-dash_and.dot",
	}
	content := ""
	for k, v := range want {
		content += k + "=" + v + "\n"
	}

	got, err := parseString(t, content)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
