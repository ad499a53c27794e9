// Package shim manages the two kinds of PATH entry vx places for an
// installed tool (spec.md §4.9): a global shim under ${VX_HOME}/shims/,
// a thin exec wrapper that defers to the resolver on every invocation
// rather than pointing at one fixed version, and a project-local
// .vx/bin/<tool> symlink resolved once at `vx sync` time. It also builds
// the vx-managed PATH prefix (project bin -> runtime bin dirs -> global
// shims) and the doctor.ShimEntry/ManagedFunc glue internal/doctor needs.
package shim

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/loonghao/vx/internal/doctor"
	"github.com/loonghao/vx/internal/link"
)

const posixShimTemplate = `#!/bin/sh
exec "%s" exec %q -- "$@"
`

const windowsShimTemplate = `@echo off
"%s" exec %q -- %%*
`

// WriteGlobalShim (re)writes the shim script for toolName under shimsDir,
// execing back into vxBinary so the actual store executable is chosen by
// the resolver at invocation time, not baked in here.
func WriteGlobalShim(shimsDir, vxBinary, toolName string) (string, error) {
	if err := os.MkdirAll(shimsDir, 0o755); err != nil {
		return "", err
	}

	name := toolName
	template := posixShimTemplate
	mode := os.FileMode(0o755)
	if runtime.GOOS == "windows" {
		name += ".cmd"
		template = windowsShimTemplate
	}

	path := filepath.Join(shimsDir, name)
	body := fmt.Sprintf(template, vxBinary, toolName)
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		return "", err
	}
	return path, nil
}

// WriteProjectBin creates (or replaces) a .vx/bin/<tool> entry under
// projectRoot pointing at the resolved store executable for this sync,
// via the link package's hardlink/symlink/junction/copy fallback chain.
func WriteProjectBin(projectRoot, toolName, storeExecutable string) (*link.Result, error) {
	binName := toolName
	if runtime.GOOS == "windows" {
		binName += filepath.Ext(storeExecutable)
	}
	dst := filepath.Join(projectRoot, ".vx", "bin", binName)
	return link.Create(storeExecutable, dst)
}

// ProjectBinDir returns the project-local bin directory PathEntries and
// doctor both expect to find .vx/bin entries under.
func ProjectBinDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".vx", "bin")
}

// PathEntries builds the vx-managed PATH prefix in spec.md §4.9's
// precedence order: project .vx/bin, then each runtime's bin directory
// (in the order given), then the global shims directory. Callers prepend
// this to the inherited process PATH; duplicates are removed here so a
// long-lived shell re-sourcing vx's env script repeatedly never grows an
// unbounded PATH.
func PathEntries(projectRoot string, runtimeBinDirs []string, shimsDir string) []string {
	var entries []string
	if projectRoot != "" {
		entries = append(entries, ProjectBinDir(projectRoot))
	}
	entries = append(entries, runtimeBinDirs...)
	if shimsDir != "" {
		entries = append(entries, shimsDir)
	}
	return dedup(entries)
}

func dedup(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Entries lists every shim currently written under shimsDir, for doctor's
// shim-integrity scan.
func Entries(shimsDir string) ([]doctor.ShimEntry, error) {
	files, err := os.ReadDir(shimsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]doctor.ShimEntry, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := strings.TrimSuffix(f.Name(), ".cmd")
		out = append(out, doctor.ShimEntry{Name: name, Path: filepath.Join(shimsDir, f.Name())})
	}
	return out, nil
}

// ManagedFunc reports a binary as vx-managed when a shim for it (with or
// without the .cmd suffix) exists under shimsDir. Project .vx/bin entries
// are not checked. It satisfies doctor.ManagedFunc.
func ManagedFunc(shimsDir string) doctor.ManagedFunc {
	return func(binaryName, category string) bool {
		candidates := []string{
			filepath.Join(shimsDir, binaryName),
			filepath.Join(shimsDir, binaryName+".cmd"),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				return true
			}
		}
		return false
	}
}
