package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_HomeShortcut(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := Expand("~/.mcprelay/servers")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".mcprelay", "servers"), got)
}

func TestExpand_EnvAndBlank(t *testing.T) {
	root := t.TempDir()
	t.Setenv("MCPRELAY_TEST_ROOT", root)

	got, err := Expand("$MCPRELAY_TEST_ROOT/weather/../weather")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "weather"), got)

	got, err = Expand("   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandArgs(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandArgs([]string{"python", "~/weather/main.py", "--units", "metric"})
	require.NoError(t, err)
	assert.Equal(t, []string{"python", filepath.Join(home, "weather", "main.py"), "--units", "metric"}, got)
}
