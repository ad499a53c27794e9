package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	scanPaths := map[string]string{"vx": "/some/bin"}
	doc := New(scanPaths, nil, nil)

	assert.NotNil(t, doc)
	assert.Equal(t, scanPaths, doc.scanPaths)
	assert.False(t, doc.isManagedTool("anything", "vx"))
}

func TestDoctor_ScanForUnmanaged(t *testing.T) {
	t.Run("detects unmanaged tools", func(t *testing.T) {
		tmpDir := t.TempDir()
		binDir := filepath.Join(tmpDir, "bin")
		require.NoError(t, os.MkdirAll(binDir, 0755))

		require.NoError(t, os.WriteFile(filepath.Join(binDir, "unmanaged-tool"), []byte("#!/bin/bash\necho hello"), 0755))

		doc := New(map[string]string{"vx": binDir}, nil, nil)
		unmanaged, err := doc.scanForUnmanaged()
		require.NoError(t, err)

		assert.Len(t, unmanaged["vx"], 1)
		assert.Equal(t, "unmanaged-tool", unmanaged["vx"][0].Name)
	})

	t.Run("does not detect managed tools", func(t *testing.T) {
		tmpDir := t.TempDir()
		binDir := filepath.Join(tmpDir, "bin")
		require.NoError(t, os.MkdirAll(binDir, 0755))

		require.NoError(t, os.WriteFile(filepath.Join(binDir, "managed-tool"), []byte("#!/bin/bash\necho hello"), 0755))

		managed := func(name, category string) bool {
			return name == "managed-tool" && category == "vx"
		}

		doc := New(map[string]string{"vx": binDir}, managed, nil)
		unmanaged, err := doc.scanForUnmanaged()
		require.NoError(t, err)

		assert.Empty(t, unmanaged["vx"])
	})

	t.Run("empty directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		binDir := filepath.Join(tmpDir, "bin")
		require.NoError(t, os.MkdirAll(binDir, 0755))

		doc := New(map[string]string{"vx": binDir}, nil, nil)
		unmanaged, err := doc.scanForUnmanaged()
		require.NoError(t, err)

		assert.Empty(t, unmanaged)
	})

	t.Run("skips hidden files", func(t *testing.T) {
		tmpDir := t.TempDir()
		binDir := filepath.Join(tmpDir, "bin")
		require.NoError(t, os.MkdirAll(binDir, 0755))

		require.NoError(t, os.WriteFile(filepath.Join(binDir, ".hidden"), []byte("#!/bin/bash"), 0755))

		doc := New(map[string]string{"vx": binDir}, nil, nil)
		unmanaged, err := doc.scanForUnmanaged()
		require.NoError(t, err)

		assert.Empty(t, unmanaged)
	})

	t.Run("scans runtime tool bin path", func(t *testing.T) {
		tmpDir := t.TempDir()
		goBinDir := filepath.Join(tmpDir, "go", "bin")
		require.NoError(t, os.MkdirAll(goBinDir, 0755))

		require.NoError(t, os.WriteFile(filepath.Join(goBinDir, "goimports"), []byte("#!/bin/bash"), 0755))

		doc := New(map[string]string{"go": goBinDir}, nil, nil)
		unmanaged, err := doc.scanForUnmanaged()
		require.NoError(t, err)

		assert.Len(t, unmanaged["go"], 1)
		assert.Equal(t, "goimports", unmanaged["go"][0].Name)
	})

	t.Run("does not detect runtime delegation tools", func(t *testing.T) {
		tmpDir := t.TempDir()
		goBinDir := filepath.Join(tmpDir, "go", "bin")
		require.NoError(t, os.MkdirAll(goBinDir, 0755))

		require.NoError(t, os.WriteFile(filepath.Join(goBinDir, "gopls"), []byte("#!/bin/bash"), 0755))

		managed := func(name, category string) bool {
			return name == "gopls" && category == "go"
		}

		doc := New(map[string]string{"go": goBinDir}, managed, nil)
		unmanaged, err := doc.scanForUnmanaged()
		require.NoError(t, err)

		assert.Empty(t, unmanaged["go"])
	})
}

func TestDoctor_DetectConflicts(t *testing.T) {
	t.Run("detects conflicts", func(t *testing.T) {
		tmpDir := t.TempDir()
		binDir := filepath.Join(tmpDir, "bin")
		goBinDir := filepath.Join(tmpDir, "go", "bin")
		require.NoError(t, os.MkdirAll(binDir, 0755))
		require.NoError(t, os.MkdirAll(goBinDir, 0755))

		require.NoError(t, os.WriteFile(filepath.Join(binDir, "mytool"), []byte("#!/bin/bash"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(goBinDir, "mytool"), []byte("#!/bin/bash"), 0755))

		doc := New(map[string]string{"vx": binDir, "go": goBinDir}, nil, nil)
		conflicts, err := doc.detectConflicts()
		require.NoError(t, err)

		assert.Len(t, conflicts, 1)
		assert.Equal(t, "mytool", conflicts[0].Name)
		assert.Len(t, conflicts[0].Locations, 2)
	})

	t.Run("no conflicts when unique", func(t *testing.T) {
		tmpDir := t.TempDir()
		binDir := filepath.Join(tmpDir, "bin")
		goBinDir := filepath.Join(tmpDir, "go", "bin")
		require.NoError(t, os.MkdirAll(binDir, 0755))
		require.NoError(t, os.MkdirAll(goBinDir, 0755))

		require.NoError(t, os.WriteFile(filepath.Join(binDir, "tool1"), []byte("#!/bin/bash"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(goBinDir, "tool2"), []byte("#!/bin/bash"), 0755))

		doc := New(map[string]string{"vx": binDir, "go": goBinDir}, nil, nil)
		conflicts, err := doc.detectConflicts()
		require.NoError(t, err)

		assert.Empty(t, conflicts)
	})
}

func TestDoctor_CheckShimIntegrity(t *testing.T) {
	t.Run("detects missing binary", func(t *testing.T) {
		tmpDir := t.TempDir()

		shims := []ShimEntry{{Name: "missing-tool", Path: filepath.Join(tmpDir, "missing-tool")}}
		doc := New(nil, nil, shims)
		issues := doc.checkShimIntegrity()

		require.Len(t, issues, 1)
		assert.Equal(t, StateIssueMissingBinary, issues[0].Kind)
		assert.Equal(t, "missing-tool", issues[0].Name)
	})

	t.Run("detects broken symlink", func(t *testing.T) {
		tmpDir := t.TempDir()
		symlink := filepath.Join(tmpDir, "broken-tool")
		require.NoError(t, os.Symlink("/nonexistent/target", symlink))

		shims := []ShimEntry{{Name: "broken-tool", Path: symlink}}
		doc := New(nil, nil, shims)
		issues := doc.checkShimIntegrity()

		require.Len(t, issues, 1)
		assert.Equal(t, StateIssueBrokenSymlink, issues[0].Kind)
		assert.Equal(t, "broken-tool", issues[0].Name)
	})

	t.Run("no issues when healthy", func(t *testing.T) {
		tmpDir := t.TempDir()
		storeDir := filepath.Join(tmpDir, "store", "go", "go", "1.25.0")
		require.NoError(t, os.MkdirAll(storeDir, 0755))

		binary := filepath.Join(storeDir, "go")
		require.NoError(t, os.WriteFile(binary, []byte("#!/bin/bash"), 0755))

		symlink := filepath.Join(tmpDir, "shim-go")
		require.NoError(t, os.Symlink(binary, symlink))

		shims := []ShimEntry{{Name: "go", Path: symlink}}
		doc := New(nil, nil, shims)
		issues := doc.checkShimIntegrity()

		assert.Empty(t, issues)
	})
}

func TestDoctor_Check(t *testing.T) {
	t.Run("full check with no issues", func(t *testing.T) {
		tmpDir := t.TempDir()
		binDir := filepath.Join(tmpDir, "bin")
		require.NoError(t, os.MkdirAll(binDir, 0755))

		doc := New(map[string]string{"vx": binDir}, nil, nil)
		result, err := doc.Check(context.Background())
		require.NoError(t, err)

		assert.False(t, result.HasIssues())
	})
}

func TestResult_HasIssues(t *testing.T) {
	t.Run("no issues", func(t *testing.T) {
		result := &Result{
			UnmanagedTools: make(map[string][]UnmanagedTool),
		}
		assert.False(t, result.HasIssues())
	})

	t.Run("has unmanaged tools", func(t *testing.T) {
		result := &Result{
			UnmanagedTools: map[string][]UnmanagedTool{
				"vx": {{Name: "tool", Path: "/path"}},
			},
		}
		assert.True(t, result.HasIssues())
	})

	t.Run("has conflicts", func(t *testing.T) {
		result := &Result{
			UnmanagedTools: make(map[string][]UnmanagedTool),
			Conflicts:      []Conflict{{Name: "tool"}},
		}
		assert.True(t, result.HasIssues())
	})

	t.Run("has state issues", func(t *testing.T) {
		result := &Result{
			UnmanagedTools: make(map[string][]UnmanagedTool),
			StateIssues:    []StateIssue{{Kind: StateIssueMissingBinary}},
		}
		assert.True(t, result.HasIssues())
	})
}

func TestResult_UnmanagedToolNames(t *testing.T) {
	result := &Result{
		UnmanagedTools: map[string][]UnmanagedTool{
			"vx": {{Name: "tool1", Path: "/path1"}},
			"go": {{Name: "tool2", Path: "/path2"}, {Name: "tool1", Path: "/path3"}},
		},
	}

	names := result.UnmanagedToolNames()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "tool1")
	assert.Contains(t, names, "tool2")
}
