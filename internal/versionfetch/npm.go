package versionfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/loonghao/vx/internal/provider"
)

// NPMSource lists versions from the public npm registry, used for
// providers whose runtime is itself distributed as an npm package (e.g. a
// JS-based CLI tool installed globally).
type NPMSource struct {
	Client *http.Client
}

type npmPackageResponse struct {
	Versions map[string]json.RawMessage `json:"versions"`
	Time     map[string]string          `json:"time"`
}

func (s *NPMSource) FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error) {
	if spec.Package == "" {
		return nil, fmt.Errorf("npm version source requires a package name")
	}

	url := fmt.Sprintf("https://registry.npmjs.org/%s", spec.Package)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("npm registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("npm registry returned status %d for %s", resp.StatusCode, spec.Package)
	}

	var parsed npmPackageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode npm registry response: %w", err)
	}

	out := make([]RawVersion, 0, len(parsed.Versions))
	for v := range parsed.Versions {
		out = append(out, RawVersion{Tag: v, ReleaseDate: parsed.Time[v]})
	}
	return out, nil
}
