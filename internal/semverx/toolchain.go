package semverx

import (
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// Go-toolchain-style versions ("go1.22.3", "1.22.3", "1.22") use a
// comparator distinct from the rest of semverx: Masterminds/semver rejects
// the "go" prefix and Go's own two-component minor releases ("1.22") don't
// round-trip through full semver parsing the way vx's other ecosystems
// expect. golang.org/x/mod/semver already implements exactly the
// comparison Go's own toolchain uses, once the string is normalized into
// its "vX.Y.Z" input form.

// normalizeToolchainVersion rewrites a Go-toolchain-style version string
// into the "vX.Y[.Z]" form golang.org/x/mod/semver accepts.
func normalizeToolchainVersion(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "go")
	v = strings.TrimPrefix(v, "v")
	return "v" + v
}

// IsToolchainVersion reports whether raw is a valid Go-toolchain-style
// version string, with or without its "go" prefix.
func IsToolchainVersion(raw string) bool {
	return semver.IsValid(normalizeToolchainVersion(raw))
}

// CompareToolchain compares two Go-toolchain-style version strings
// following Go's own semver precedence rules (golang.org/x/mod/semver),
// returning -1, 0, or +1 as a < b, a == b, a > b.
func CompareToolchain(a, b string) int {
	return semver.Compare(normalizeToolchainVersion(a), normalizeToolchainVersion(b))
}

// SortToolchainDescending sorts Go-toolchain-style version strings from
// highest to lowest precedence, in place.
func SortToolchainDescending(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		return CompareToolchain(versions[i], versions[j]) > 0
	})
}

// MaxToolchain returns the highest-precedence version among a list of
// Go-toolchain-style version strings, skipping any that don't parse.
func MaxToolchain(versions []string) (string, bool) {
	best := ""
	for _, v := range versions {
		if !IsToolchainVersion(v) {
			continue
		}
		if best == "" || CompareToolchain(v, best) > 0 {
			best = v
		}
	}
	return best, best != ""
}
