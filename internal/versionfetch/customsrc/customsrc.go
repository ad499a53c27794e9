// Package customsrc implements a YAML-bodied custom version source: once
// registered under "custom-yaml" (the default versionfetch registry does not
// include it), it serves a VersionSourceSpec whose Owner/Repo (or
// CustomURL) points at a YAML document listing a tool's known versions, for
// upstreams with no releases API and no convenient plain-text/JSON list
// either. Fetched documents are cached on disk, cache-first, mirroring the
// teacher's aqua-registry YAML fetcher.
package customsrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/versionfetch"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	cacheFileName      = "versions.yaml"
)

// VersionEntry is one version as declared in a custom-yaml document.
type VersionEntry struct {
	Version     string `yaml:"version"`
	Prerelease  bool   `yaml:"prerelease,omitempty"`
	ReleaseDate string `yaml:"release_date,omitempty"`
}

// VersionDocument is the top-level shape of a custom-yaml version source.
type VersionDocument struct {
	Versions []VersionEntry `yaml:"versions"`
}

// Source fetches VersionDocuments over HTTP, cache-first, and adapts them
// to versionfetch.RawVersion. It implements versionfetch.Source.
type Source struct {
	cacheDir   string
	httpClient *http.Client
	baseURL    string
}

// NewSource creates a Source caching fetched documents under cacheDir.
func NewSource(cacheDir string) *Source {
	return &Source{
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// WithHTTPClient overrides the HTTP client (for tests).
func (s *Source) WithHTTPClient(client *http.Client) *Source {
	s.httpClient = client
	return s
}

// WithBaseURL sets the base URL templated documents are fetched from when
// a VersionSourceSpec has no CustomURL (for tests).
func (s *Source) WithBaseURL(baseURL string) *Source {
	s.baseURL = baseURL
	return s
}

// validatePathComponent rejects path traversal in a cache-path segment.
func validatePathComponent(v string) error {
	cleaned := path.Clean(v)
	if v == "" || cleaned != v || strings.Contains(v, "..") || strings.HasPrefix(v, "/") {
		return fmt.Errorf("invalid path component: %q", v)
	}
	return nil
}

// cachePath builds the on-disk cache path for a (owner, repo) pair,
// rejecting any component that could escape cacheDir.
func (s *Source) cachePath(owner, repo string) (string, error) {
	if err := validatePathComponent(owner); err != nil {
		return "", fmt.Errorf("invalid owner: %w", err)
	}
	if err := validatePathComponent(repo); err != nil {
		return "", fmt.Errorf("invalid repo: %w", err)
	}
	return filepath.Join(s.cacheDir, owner, repo, cacheFileName), nil
}

func (s *Source) documentURL(spec provider.VersionSourceSpec) (string, error) {
	if spec.CustomURL != "" {
		return spec.CustomURL, nil
	}
	if s.baseURL == "" {
		return "", fmt.Errorf("custom-yaml version source requires a CustomURL or a configured base URL")
	}
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid custom-yaml base URL: %w", err)
	}
	base.Path = path.Join(base.Path, spec.Owner, spec.Repo, cacheFileName)
	return base.String(), nil
}

func (s *Source) readCache(path string) (*VersionDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc VersionDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cached custom-yaml document: %w", err)
	}
	return &doc, nil
}

func (s *Source) writeCache(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create custom-yaml cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write custom-yaml cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename custom-yaml cache file: %w", err)
	}
	return nil
}

func (s *Source) fetchRemote(ctx context.Context, spec provider.VersionSourceSpec) ([]byte, error) {
	docURL, err := s.documentURL(spec)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build custom-yaml request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch custom-yaml document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("custom-yaml document not found at %s", docURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custom-yaml document returned status %d for %s", resp.StatusCode, docURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read custom-yaml document body: %w", err)
	}
	return data, nil
}

// FetchVersions satisfies versionfetch.Source: cache-first lookup of a
// custom-yaml document, falling back to a remote fetch and refreshing the
// cache on success. A cache miss is never fatal; a remote fetch failure is.
func (s *Source) FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]versionfetch.RawVersion, error) {
	owner, repo := spec.Owner, spec.Repo
	if owner == "" {
		owner = "custom"
	}
	if repo == "" {
		repo = spec.Package
	}

	cachePath, cacheErr := s.cachePath(owner, repo)
	if cacheErr == nil {
		if doc, err := s.readCache(cachePath); err == nil {
			return toRawVersions(doc), nil
		}
	}

	data, err := s.fetchRemote(ctx, spec)
	if err != nil {
		return nil, err
	}

	if cacheErr == nil {
		// Caching is best-effort: a write failure must not fail the fetch
		// that already succeeded.
		_ = s.writeCache(cachePath, data)
	}

	var doc VersionDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse custom-yaml document: %w", err)
	}
	return toRawVersions(&doc), nil
}

func toRawVersions(doc *VersionDocument) []versionfetch.RawVersion {
	out := make([]versionfetch.RawVersion, 0, len(doc.Versions))
	for _, e := range doc.Versions {
		out = append(out, versionfetch.RawVersion{
			Tag:         e.Version,
			Prerelease:  e.Prerelease,
			ReleaseDate: e.ReleaseDate,
		})
	}
	return out
}
