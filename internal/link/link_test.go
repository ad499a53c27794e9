package link

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_File_PrefersHardlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	dst := filepath.Join(dir, "bin", "dst.txt")
	res, err := Create(src, dst)
	require.NoError(t, err)
	assert.Equal(t, KindHardlink, res.Kind)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestCreate_File_ReplacesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))

	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	res, err := Create(src, dst)
	require.NoError(t, err)
	assert.Equal(t, KindHardlink, res.Kind)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestCreate_Dir_UsesSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory symlinks require elevated privileges on windows")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("x"), 0o644))

	dst := filepath.Join(dir, "linked")
	res, err := Create(src, dst)
	require.NoError(t, err)
	assert.Equal(t, KindSymlink, res.Kind)

	data, err := os.ReadFile(filepath.Join(dst, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestCreate_MissingSourceErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Create(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	assert.Error(t, err)
}

func TestWithLongPath_NoopOnShortPath(t *testing.T) {
	assert.Equal(t, "short", withLongPath("short"))
}
