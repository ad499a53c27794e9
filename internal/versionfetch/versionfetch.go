// Package versionfetch resolves the list of available versions for a
// Runtime, by dispatching to a Source chosen from the Runtime's
// VersionSourceSpec (GitHub releases, jsDelivr, npm, PyPI, a custom URL, or
// a static list), running the result through a strip-prefix /
// skip-prereleases / LTS-detect / sort pipeline, and caching the outcome
// under ${VX_HOME}/cache/versions/ for a TTL.
package versionfetch

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/semverx"
)

// Source fetches the raw, unfiltered list of version tags a runtime has
// ever published. Each ecosystem-specific implementation knows only how to
// talk to its upstream; the pipeline in Fetcher applies every other rule.
type Source interface {
	// FetchVersions returns raw version tags, most-recent-first if the
	// upstream API orders them that way (order is not load-bearing: the
	// pipeline re-sorts by semver precedence).
	FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error)
}

// RawVersion is one version tag as reported by a Source, before the
// strip/filter/sort pipeline runs.
type RawVersion struct {
	Tag         string
	Prerelease  bool
	ReleaseDate string // RFC3339 if known, else empty
}

// Registry dispatches to the Source registered for a VersionSourceSpec's
// Source field.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds a Registry with the standard set of sources wired to
// client, a shared (optionally GitHub-token-authenticated) HTTP client.
func NewRegistry(client *http.Client) *Registry {
	return &Registry{
		sources: map[string]Source{
			"github":   &GitHubSource{Client: client},
			"jsdelivr": &JSDelivrSource{Client: client},
			"npm":      &NPMSource{Client: client},
			"pypi":     &PyPISource{Client: client},
			"custom":   &CustomSource{Client: client},
			"command":  NewCommandSource(client),
			"static":   &StaticSource{},
		},
	}
}

// Register overrides or adds a named source, mainly for tests.
func (r *Registry) Register(name string, s Source) {
	r.sources[name] = s
}

// Fetch runs the full pipeline for a runtime's VersionSourceSpec: dispatch
// to the configured source (falling back to jsDelivr when a GitHub lookup
// fails and a fallback is configured), strip the tag prefix, classify
// prereleases, detect LTS markers, and sort descending by semver
// precedence.
func (r *Registry) Fetch(ctx context.Context, spec provider.VersionSourceSpec) ([]provider.VersionInfo, error) {
	src, ok := r.sources[spec.Source]
	if !ok {
		return nil, fmt.Errorf("unknown version source %q", spec.Source)
	}

	raw, err := src.FetchVersions(ctx, spec)
	if err != nil {
		if spec.Source == "github" {
			if fallback, ok := r.sources["jsdelivr"]; ok {
				if raw2, ferr := fallback.FetchVersions(ctx, spec); ferr == nil {
					raw = raw2
					err = nil
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return pipeline(raw, spec), nil
}

// pipeline applies strip_v_prefix, prerelease classification, LTS
// detection, and descending semver sort to a raw version list.
func pipeline(raw []RawVersion, spec provider.VersionSourceSpec) []provider.VersionInfo {
	type entry struct {
		info    provider.VersionInfo
		version string // stripped tag, used for sort
	}

	entries := make([]entry, 0, len(raw))
	for _, rv := range raw {
		stripped := rv.Tag
		if spec.StripVPrefix {
			stripped = semverx.StripPrefix(stripped, "v")
		}
		if spec.TagPrefix != "" {
			stripped = semverx.StripPrefix(stripped, spec.TagPrefix)
		}

		prerelease := rv.Prerelease || semverx.IsPrereleaseMarker(stripped)

		info := provider.VersionInfo{
			Version:    stripped,
			Prerelease: prerelease,
		}
		if spec.LTSPattern != "" && strings.Contains(stripped, spec.LTSPattern) {
			info.LTS = true
			info.LTSName = spec.LTSPattern
		}

		entries = append(entries, entry{info: info, version: stripped})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		vi, erri := semverx.ParseLenient(entries[i].version)
		vj, errj := semverx.ParseLenient(entries[j].version)
		if erri != nil || errj != nil {
			return entries[i].version > entries[j].version
		}
		return vi.GreaterThan(vj)
	})

	out := make([]provider.VersionInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.info)
	}
	return out
}
