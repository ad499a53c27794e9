package versionfetch

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonghao/vx/internal/provider"
)

func TestCache_PutThenGet_WithinTTL(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Hour)
	require.NoError(t, err)

	versions := []provider.VersionInfo{{Version: "1.0.0"}}
	require.NoError(t, c.Put("node", versions, time.Now()))

	got, ok := c.Get("node")
	require.True(t, ok)
	assert.Equal(t, versions, got)
}

func TestCache_Get_ExpiredEntryMisses(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Hour)
	require.NoError(t, err)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, c.Put("node", []provider.VersionInfo{{Version: "1.0.0"}}, stale))

	_, ok := c.Get("node")
	assert.False(t, ok)
}

func TestCache_Get_MissingEntryMisses(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Hour)
	require.NoError(t, err)

	_, ok := c.Get("does-not-exist")
	assert.False(t, ok)
}

func TestCache_Invalidate_RemovesEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Put("node", []provider.VersionInfo{{Version: "1.0.0"}}, time.Now()))
	require.NoError(t, c.Invalidate("node"))

	_, ok := c.Get("node")
	assert.False(t, ok)
}

func TestCache_Invalidate_MissingEntryIsNotError(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Hour)
	require.NoError(t, err)

	assert.NoError(t, c.Invalidate("does-not-exist"))
}

func TestCache_Path_SanitizesSeparators(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Hour)
	require.NoError(t, err)

	got := c.path(filepath.Join("a", "b"))
	assert.Equal(t, "a_b.json", filepath.Base(got))
}
