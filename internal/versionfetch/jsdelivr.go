package versionfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/loonghao/vx/internal/provider"
)

// JSDelivrSource lists versions via jsDelivr's metadata API, used as a
// fallback when GitHub's API is unreachable or rate-limited.
type JSDelivrSource struct {
	Client *http.Client
}

type jsDelivrResponse struct {
	Versions []string `json:"versions"`
}

func (s *JSDelivrSource) FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error) {
	var url string
	switch {
	case spec.Owner != "" && spec.Repo != "":
		url = fmt.Sprintf("https://data.jsdelivr.com/v1/packages/gh/%s/%s", spec.Owner, spec.Repo)
	case spec.Package != "":
		url = fmt.Sprintf("https://data.jsdelivr.com/v1/packages/npm/%s", spec.Package)
	default:
		return nil, fmt.Errorf("jsdelivr version source requires owner/repo or package")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jsdelivr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jsdelivr returned status %d for %s", resp.StatusCode, url)
	}

	var parsed jsDelivrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode jsdelivr response: %w", err)
	}

	out := make([]RawVersion, 0, len(parsed.Versions))
	for _, v := range parsed.Versions {
		out = append(out, RawVersion{Tag: v})
	}
	return out, nil
}
