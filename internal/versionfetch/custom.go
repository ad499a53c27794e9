package versionfetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/loonghao/vx/internal/provider"
)

// CustomSource fetches a plain-text or JSON-array version list from an
// arbitrary URL, for providers whose upstream has no structured releases
// API (e.g. a vendor's own "latest versions" page).
type CustomSource struct {
	Client *http.Client
}

func (s *CustomSource) FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error) {
	if spec.CustomURL == "" {
		return nil, fmt.Errorf("custom version source requires a URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.CustomURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("custom version source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custom version source returned status %d for %s", resp.StatusCode, spec.CustomURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") {
		var tags []string
		if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
			return nil, fmt.Errorf("failed to decode custom JSON version list: %w", err)
		}
		out := make([]RawVersion, 0, len(tags))
		for _, t := range tags {
			out = append(out, RawVersion{Tag: t})
		}
		return out, nil
	}

	var out []RawVersion
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, RawVersion{Tag: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read custom version list: %w", err)
	}
	return out, nil
}
