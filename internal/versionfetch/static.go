package versionfetch

import (
	"context"

	"github.com/loonghao/vx/internal/provider"
)

// StaticSource returns the version list embedded directly in the
// provider manifest, for tools with no queryable upstream at all.
type StaticSource struct{}

func (s *StaticSource) FetchVersions(_ context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error) {
	out := make([]RawVersion, 0, len(spec.StaticVersion))
	for _, v := range spec.StaticVersion {
		out = append(out, RawVersion{Tag: v})
	}
	return out, nil
}
