package doctor

import (
	"context"
)

// ManagedFunc reports whether binaryName found in category's scan path is
// already vx-managed — a store-installed runtime binary, or (for the vx
// shim directory itself) a tool vx placed there. Keeping this a callback
// rather than a concrete dependency on the registry/store keeps doctor
// decoupled from how those are constructed.
type ManagedFunc func(binaryName, category string) bool

// ShimEntry is a PATH entry doctor expects to be a live symlink into the
// content-addressed store — a global shim or a project .vx/bin entry.
type ShimEntry struct {
	Name string // runtime or tool name, for diagnostics
	Path string // the symlink's own path
}

// Doctor checks the health of the vx-managed environment: orphaned
// binaries outside vx's control, tools shadowed by more than one PATH
// entry, and shims whose symlink targets have gone missing.
type Doctor struct {
	scanPaths map[string]string // category -> directory to scan
	managed   ManagedFunc
	shims     []ShimEntry
}

// Result contains the findings from a doctor check.
type Result struct {
	// UnmanagedTools maps category (runtime name or "vx") to unmanaged tools found.
	UnmanagedTools map[string][]UnmanagedTool
	// Conflicts contains tools found in multiple locations.
	Conflicts []Conflict
	// StateIssues contains shim/store integrity problems.
	StateIssues []StateIssue
}

// UnmanagedTool represents a tool not managed by vx.
type UnmanagedTool struct {
	Name string
	Path string
}

// Conflict represents a tool found in multiple locations.
type Conflict struct {
	Name       string
	Locations  []string // e.g., ["~/.local/bin", "~/go/bin"]
	ResolvedTo string   // PATH resolves to this location
}

// StateIssueKind represents the type of integrity issue.
type StateIssueKind string

const (
	// StateIssueMissingBinary indicates the binary file is missing.
	StateIssueMissingBinary StateIssueKind = "missing_binary"
	// StateIssueBrokenSymlink indicates the symlink target does not exist.
	StateIssueBrokenSymlink StateIssueKind = "broken_symlink"
)

// StateIssue represents an integrity problem found in a shim.
type StateIssue struct {
	Kind   StateIssueKind
	Name   string // runtime or tool name
	Path   string // the path that has the issue
	Target string // symlink target (for broken_symlink)
}

// Message returns a human-readable description of the issue.
func (i StateIssue) Message() string {
	switch i.Kind {
	case StateIssueMissingBinary:
		return "binary not found at " + i.Path
	case StateIssueBrokenSymlink:
		if i.Target != "" {
			return "symlink target " + i.Target + " does not exist"
		}
		return "broken symlink at " + i.Path
	default:
		return "unknown issue at " + i.Path
	}
}

// New creates a new Doctor. scanPaths maps a category name (a runtime name,
// or "vx" for the global shim directory) to the directory doctor should
// scan for unmanaged/conflicting binaries. shims lists the symlinks whose
// targets should be verified to still exist in the store.
func New(scanPaths map[string]string, managed ManagedFunc, shims []ShimEntry) *Doctor {
	if managed == nil {
		managed = func(string, string) bool { return false }
	}
	return &Doctor{scanPaths: scanPaths, managed: managed, shims: shims}
}

// Check performs all health checks and returns the results.
func (d *Doctor) Check(_ context.Context) (*Result, error) {
	result := &Result{
		UnmanagedTools: make(map[string][]UnmanagedTool),
	}

	unmanaged, err := d.scanForUnmanaged()
	if err != nil {
		return nil, err
	}
	result.UnmanagedTools = unmanaged

	conflicts, err := d.detectConflicts()
	if err != nil {
		return nil, err
	}
	result.Conflicts = conflicts

	result.StateIssues = d.checkShimIntegrity()

	return result, nil
}

// HasIssues returns true if there are any issues found.
func (r *Result) HasIssues() bool {
	for _, tools := range r.UnmanagedTools {
		if len(tools) > 0 {
			return true
		}
	}
	return len(r.Conflicts) > 0 || len(r.StateIssues) > 0
}

// UnmanagedToolNames returns all unmanaged tool names for suggestions.
func (r *Result) UnmanagedToolNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, tools := range r.UnmanagedTools {
		for _, t := range tools {
			if !seen[t.Name] {
				names = append(names, t.Name)
				seen[t.Name] = true
			}
		}
	}
	return names
}
