// Package semverx parses vx's version-spec strings into a small family of
// constraint kinds and provides the semver-aware sort/filter helpers the
// version resolver and version fetcher both need, built on top of
// Masterminds/semver/v3.
package semverx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ConstraintKind names the family a parsed spec string belongs to.
type ConstraintKind string

const (
	KindExact    ConstraintKind = "exact"
	KindCaret    ConstraintKind = "caret"
	KindTilde    ConstraintKind = "tilde"
	KindRange    ConstraintKind = "range"
	KindWildcard ConstraintKind = "wildcard"
	KindPartial  ConstraintKind = "partial"
	KindMajor    ConstraintKind = "major"
	KindLatest   ConstraintKind = "latest"
	KindAny      ConstraintKind = "any"
)

// Spec is a parsed version-spec string, e.g. "^20.10", "~1.2", "1.2.*",
// "20", "latest", "*".
type Spec struct {
	Kind ConstraintKind
	Raw  string

	// constraint is non-nil for every kind except Latest and Any, which
	// have no semver-satisfies test (they bypass range matching entirely).
	constraint *semver.Constraints
}

// ParseSpec classifies and parses a version-spec string.
func ParseSpec(raw string) (*Spec, error) {
	trimmed := strings.TrimSpace(raw)

	switch trimmed {
	case "", "*", "any":
		return &Spec{Kind: KindAny, Raw: raw}, nil
	case "latest":
		return &Spec{Kind: KindLatest, Raw: raw}, nil
	}

	kind := classify(trimmed)

	c, err := semver.NewConstraint(normalizeForLibrary(trimmed, kind))
	if err != nil {
		return nil, fmt.Errorf("invalid version spec %q: %w", raw, err)
	}

	return &Spec{Kind: kind, Raw: raw, constraint: c}, nil
}

func classify(s string) ConstraintKind {
	switch {
	case strings.HasPrefix(s, "^"):
		return KindCaret
	case strings.HasPrefix(s, "~"):
		return KindTilde
	case strings.Contains(s, ","):
		return KindRange
	case strings.Contains(s, "*"):
		return KindWildcard
	}

	switch strings.Count(strings.TrimPrefix(s, "v"), ".") {
	case 0:
		return KindMajor
	case 1:
		return KindPartial
	default:
		return KindExact
	}
}

// normalizeForLibrary adapts vx's spec grammar to what Masterminds/semver
// accepts: it already understands "^", "~", comma-joined ranges, "*"
// wildcards, and partial versions ("1.2", "1") natively.
func normalizeForLibrary(s string, _ ConstraintKind) string {
	return s
}

// Satisfies reports whether version v satisfies the spec. Latest and Any
// are satisfied by every valid version.
func (s *Spec) Satisfies(v *semver.Version) bool {
	if s.Kind == KindLatest || s.Kind == KindAny {
		return true
	}
	return s.constraint.Check(v)
}

// IsPrerelease reports whether a semver version carries a prerelease tag.
func IsPrerelease(v *semver.Version) bool {
	return v.Prerelease() != ""
}

// StripPrefix removes a leading marker (commonly "v") from a raw version
// string before parsing, mirroring version-fetcher pipelines' strip_prefix
// step.
func StripPrefix(raw, prefix string) string {
	if prefix == "" {
		return raw
	}
	return strings.TrimPrefix(raw, prefix)
}

// prereleaseMarkers are the default skip_prereleases denylist.
var prereleaseMarkers = []string{"-alpha", "-beta", "-rc", "-dev", "canary"}

// IsPrereleaseMarker reports whether raw contains one of the default
// prerelease markers, independent of whether it parses as semver.
func IsPrereleaseMarker(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range prereleaseMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ParseLenient parses raw as semver, tolerating a missing "v" prefix and a
// partial version ("20" -> "20.0.0", "20.10" -> "20.10.0").
func ParseLenient(raw string) (*semver.Version, error) {
	return semver.NewVersion(raw)
}

// SortDescending sorts versions from highest to lowest semver precedence.
func SortDescending(versions []*semver.Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].GreaterThan(versions[j])
	})
}

// FilterNonPrerelease returns only versions with no prerelease component.
func FilterNonPrerelease(versions []*semver.Version) []*semver.Version {
	out := make([]*semver.Version, 0, len(versions))
	for _, v := range versions {
		if !IsPrerelease(v) {
			out = append(out, v)
		}
	}
	return out
}

// MaxSatisfying returns the semver-maximum version satisfying spec,
// preferring non-prerelease versions unless the spec itself names a
// prerelease (i.e. the raw spec string contains a prerelease marker).
func MaxSatisfying(spec *Spec, versions []*semver.Version) (*semver.Version, bool) {
	candidates := make([]*semver.Version, 0, len(versions))
	for _, v := range versions {
		if spec.Satisfies(v) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	SortDescending(candidates)

	if !strings.Contains(spec.Raw, "-") {
		for _, v := range candidates {
			if !IsPrerelease(v) {
				return v, true
			}
		}
	}

	return candidates[0], true
}

// Intersect returns the intersection of two range-spec strings as a new
// constraint string the constraint engine can use for conflict detection,
// by combining both comma-joined. An empty intersection is detected by the
// caller attempting MaxSatisfying against a candidate pool and finding
// none match.
func Intersect(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "," + b
}
