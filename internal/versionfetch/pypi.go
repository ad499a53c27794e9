package versionfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/loonghao/vx/internal/provider"
)

// PyPISource lists versions from the PyPI JSON API, for Python-ecosystem
// tools distributed as PyPI packages.
type PyPISource struct {
	Client *http.Client
}

type pypiResponse struct {
	Releases map[string][]struct {
		UploadTime string `json:"upload_time_iso_8601"`
	} `json:"releases"`
}

func (s *PyPISource) FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error) {
	if spec.Package == "" {
		return nil, fmt.Errorf("pypi version source requires a package name")
	}

	url := fmt.Sprintf("https://pypi.org/pypi/%s/json", spec.Package)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pypi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pypi returned status %d for %s", resp.StatusCode, spec.Package)
	}

	var parsed pypiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode pypi response: %w", err)
	}

	out := make([]RawVersion, 0, len(parsed.Releases))
	for v, uploads := range parsed.Releases {
		if len(uploads) == 0 {
			continue
		}
		out = append(out, RawVersion{Tag: v, ReleaseDate: uploads[0].UploadTime})
	}
	return out, nil
}
