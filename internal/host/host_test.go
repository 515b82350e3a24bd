package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirRegistry_InstallMirrorsSourceTree(t *testing.T) {
	out := t.TempDir()
	reg := NewDirRegistry(OSFS{}, out)

	path, err := reg.Install("lists", "code/symbols.talon-list", []byte("list: user.x\n-\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "lists", "code", "symbols.talon-list"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "list: user.x\n-\n", string(data))
}

func TestDirRegistry_PurgeRemovesOnlyDomain(t *testing.T) {
	out := t.TempDir()
	reg := NewDirRegistry(OSFS{}, out)

	_, err := reg.Install("lists", "a.talon-list", []byte("x"))
	require.NoError(t, err)
	_, err = reg.Install("commands", "b.talon", []byte("y"))
	require.NoError(t, err)

	require.NoError(t, reg.Purge("lists"))

	_, err = os.Stat(filepath.Join(out, "lists"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "commands", "b.talon"))
	assert.NoError(t, err)
}

func TestDirRegistry_PurgeMissingDomainIsNoError(t *testing.T) {
	reg := NewDirRegistry(OSFS{}, t.TempDir())
	assert.NoError(t, reg.Purge("lists"))
}

func TestOSFS_ModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	mtime, err := OSFS{}.ModTime(path)
	require.NoError(t, err)
	assert.False(t, mtime.IsZero())

	_, err = OSFS{}.ModTime(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}
