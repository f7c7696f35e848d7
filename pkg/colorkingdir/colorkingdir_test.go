package colorkingdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_PathAccessors(t *testing.T) {
	d := New("/project/.colorking")

	assert.Equal(t, "/project/.colorking", d.Root())
	assert.Equal(t, "/project/.colorking/config.yaml", d.ConfigPath())
	assert.Equal(t, "/project/.colorking/.env", d.EnvPath())
	assert.Equal(t, "/project/.colorking/local", d.LocalDir())
	assert.Equal(t, "/project/.colorking/local/settings.db", d.SettingsPath())
	assert.Equal(t, "/project/.colorking/local/colorking.log", d.LogPath())
	assert.Equal(t, "/project/.colorking/prints", d.PrintsDir())
	assert.Equal(t, "/project/.colorking/.gitignore", d.GitignorePath())
}

func TestDir_RelativeRootIsAbsolute(t *testing.T) {
	d := New(DefaultName)

	assert.True(t, filepath.IsAbs(d.Root()))
	assert.Equal(t, DefaultName, filepath.Base(d.Root()))
}

func TestDir_Exists(t *testing.T) {
	tmp := t.TempDir()

	d := New(filepath.Join(tmp, "missing"))
	assert.False(t, d.Exists())

	d = New(tmp)
	assert.True(t, d.Exists())
}

func TestEnsureStructure(t *testing.T) {
	tmp := t.TempDir()
	d := New(filepath.Join(tmp, DefaultName))

	require.NoError(t, EnsureStructure(d))

	for _, dir := range []string{d.LocalDir(), d.PrintsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	data, err := os.ReadFile(d.GitignorePath())
	require.NoError(t, err)
	assert.Equal(t, "local/\n.env\n", string(data))
}

func TestEnsureStructure_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	d := New(tmp)

	require.NoError(t, EnsureStructure(d))
	require.NoError(t, os.WriteFile(d.GitignorePath(), []byte("custom\n"), 0o600))
	require.NoError(t, EnsureStructure(d))

	data, err := os.ReadFile(d.GitignorePath())
	require.NoError(t, err)
	assert.Equal(t, "custom\n", string(data))
}
