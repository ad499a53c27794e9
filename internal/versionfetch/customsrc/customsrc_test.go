package customsrc

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonghao/vx/internal/provider"
)

func nopCloserBody(body string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(body))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func clientWithFakeTransport(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

const sampleYAML = `
versions:
  - version: "1.2.3"
    prerelease: false
    release_date: "2024-01-01T00:00:00Z"
  - version: "1.3.0-rc.1"
    prerelease: true
`

func TestSource_FetchVersions_CustomURL(t *testing.T) {
	var requests int
	client := clientWithFakeTransport(func(r *http.Request) (*http.Response, error) {
		requests++
		require.Equal(t, "https://example.com/tool/versions.yaml", r.URL.String())
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       nopCloserBody(sampleYAML),
			Header:     http.Header{},
		}, nil
	})

	src := NewSource(t.TempDir()).WithHTTPClient(client)
	versions, err := src.FetchVersions(context.Background(), provider.VersionSourceSpec{
		Source:    "custom-yaml",
		Owner:     "acme",
		Repo:      "tool",
		CustomURL: "https://example.com/tool/versions.yaml",
	})
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.2.3", versions[0].Tag)
	assert.Equal(t, "2024-01-01T00:00:00Z", versions[0].ReleaseDate)
	assert.True(t, versions[1].Prerelease)
	assert.Equal(t, 1, requests)
}

func TestSource_FetchVersions_CachesAcrossCalls(t *testing.T) {
	var requests int
	client := clientWithFakeTransport(func(r *http.Request) (*http.Response, error) {
		requests++
		return &http.Response{StatusCode: http.StatusOK, Body: nopCloserBody(sampleYAML), Header: http.Header{}}, nil
	})

	cacheDir := t.TempDir()
	spec := provider.VersionSourceSpec{Owner: "acme", Repo: "tool", CustomURL: "https://example.com/tool/versions.yaml"}

	first := NewSource(cacheDir).WithHTTPClient(client)
	_, err := first.FetchVersions(context.Background(), spec)
	require.NoError(t, err)

	second := NewSource(cacheDir).WithHTTPClient(client)
	versions, err := second.FetchVersions(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, requests, "second fetch should be served from cache, not a new request")

	cached := filepath.Join(cacheDir, "acme", "tool", cacheFileName)
	_, statErr := os.Stat(cached)
	assert.NoError(t, statErr)
}

func TestSource_FetchVersions_BuildsURLFromBaseURL(t *testing.T) {
	client := clientWithFakeTransport(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/registry/acme/tool/versions.yaml", r.URL.Path)
		return &http.Response{StatusCode: http.StatusOK, Body: nopCloserBody(sampleYAML), Header: http.Header{}}, nil
	})

	src := NewSource(t.TempDir()).WithHTTPClient(client).WithBaseURL("https://example.com/registry")
	versions, err := src.FetchVersions(context.Background(), provider.VersionSourceSpec{Owner: "acme", Repo: "tool"})
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestSource_FetchVersions_RejectsPathTraversalInOwner(t *testing.T) {
	client := clientWithFakeTransport(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: nopCloserBody(sampleYAML), Header: http.Header{}}, nil
	})

	src := NewSource(t.TempDir()).WithHTTPClient(client)
	versions, err := src.FetchVersions(context.Background(), provider.VersionSourceSpec{
		Owner:     "../../etc",
		Repo:      "tool",
		CustomURL: "https://example.com/tool/versions.yaml",
	})
	// An unsafe cache path must not fail the fetch; it should just skip caching.
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestSource_FetchVersions_ErrorsWithoutURLOrBaseURL(t *testing.T) {
	src := NewSource(t.TempDir())
	_, err := src.FetchVersions(context.Background(), provider.VersionSourceSpec{Owner: "acme", Repo: "tool"})
	assert.Error(t, err)
}

func TestSource_FetchVersions_PropagatesNotFound(t *testing.T) {
	client := clientWithFakeTransport(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusNotFound, Body: nopCloserBody(""), Header: http.Header{}}, nil
	})

	src := NewSource(t.TempDir()).WithHTTPClient(client)
	_, err := src.FetchVersions(context.Background(), provider.VersionSourceSpec{
		Owner: "acme", Repo: "tool", CustomURL: "https://example.com/missing.yaml",
	})
	assert.Error(t, err)
}
