package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteMarker_Installed(t *testing.T) {
	t.Parallel()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, s.Installed("nodejs", "node", "20.11.0"))

	err = s.WriteMarker("nodejs", "node", "20.11.0", Marker{URL: "https://example.com/node.tar.gz", InstalledAt: time.Now()})
	require.NoError(t, err)

	assert.True(t, s.Installed("nodejs", "node", "20.11.0"))

	m, err := s.ReadMarker("nodejs", "node", "20.11.0")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/node.tar.gz", m.URL)
}

func TestStore_Remove_IsAtomicAndIdempotent(t *testing.T) {
	t.Parallel()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.WriteMarker("nodejs", "node", "18.0.0", Marker{InstalledAt: time.Now()}))
	require.NoError(t, s.Remove("nodejs", "node", "18.0.0"))
	assert.False(t, s.Installed("nodejs", "node", "18.0.0"))

	// Removing again must not error.
	require.NoError(t, s.Remove("nodejs", "node", "18.0.0"))

	// No staging directories left behind.
	entries, err := filepath.Glob(filepath.Join(s.EntryDir("nodejs", "node", "18.0.0") + ".removing-*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLock_TryLock_SecondCallerBlocked(t *testing.T) {
	t.Parallel()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	l1, err := s.NewLock("nodejs", "node", "20.11.0")
	require.NoError(t, err)
	require.NoError(t, l1.TryLock())
	defer l1.Unlock()

	l2, err := s.NewLock("nodejs", "node", "20.11.0")
	require.NoError(t, err)
	err = l2.TryLock()
	require.Error(t, err)
}

func TestGC_RemovesOnlyUnreferencedEntries(t *testing.T) {
	t.Parallel()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.WriteMarker("nodejs", "node", "18.0.0", Marker{InstalledAt: time.Now()}))
	require.NoError(t, s.WriteMarker("nodejs", "node", "20.0.0", Marker{InstalledAt: time.Now()}))

	result, err := s.GC(func() (map[entryKey]struct{}, error) {
		return map[entryKey]struct{}{
			{Ecosystem: "nodejs", Runtime: "node", Version: "20.0.0"}: {},
		}, nil
	})
	require.NoError(t, err)

	require.Len(t, result.Removed, 1)
	assert.Equal(t, "18.0.0", result.Removed[0].Version)
	assert.False(t, s.Installed("nodejs", "node", "18.0.0"))
	assert.True(t, s.Installed("nodejs", "node", "20.0.0"))
}
