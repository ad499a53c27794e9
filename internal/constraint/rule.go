// Package constraint implements the constraint/dependency engine: it
// collects the union of matching ConstraintRule.Requires for a resolved
// runtime, detects dependency cycles, and surfaces version conflicts
// between rules that disagree on a shared dependency.
package constraint

// Platform narrows a ConstraintRule to a specific OS/arch pair.
type Platform struct {
	OS   string
	Arch string
}

// Matches reports whether the platform matches the given os/arch, treating
// an empty field as a wildcard.
func (p *Platform) Matches(os, arch string) bool {
	if p == nil {
		return true
	}
	if p.OS != "" && p.OS != os {
		return false
	}
	if p.Arch != "" && p.Arch != arch {
		return false
	}
	return true
}

// DependencyDef names a runtime dependency contributed by a ConstraintRule.
type DependencyDef struct {
	Runtime     string
	Version     string // version constraint, e.g. ">=18", "*"
	Recommended string // a default version to prefer when unconstrained elsewhere
	Reason      string
	Optional    bool
}

// ConstraintRule is one entry of a provider's dependency declaration. A rule
// applies when `When` matches the resolved version of the owning runtime
// (or "*" for unconditional rules) and, optionally, the current platform.
type ConstraintRule struct {
	When       string // version constraint against the owning runtime's resolved version
	Platform   *Platform
	Requires   []DependencyDef
	Recommends []DependencyDef
}

// Matches reports whether the rule applies to the given resolved version
// and platform. Version matching delegates to the caller-supplied matcher
// since ConstraintRule is ecosystem-agnostic (semver vs. other schemes).
func (r *ConstraintRule) Matches(versionMatches bool, os, arch string) bool {
	if !versionMatches {
		return false
	}
	return r.Platform.Matches(os, arch)
}
