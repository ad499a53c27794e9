package versionfetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonghao/vx/internal/provider"
)

// roundTripFunc lets a test stub http.Client.Transport without a live
// listener, matching by request URL.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

type fakeSource struct {
	versions []RawVersion
	err      error
}

func (f *fakeSource) FetchVersions(context.Context, provider.VersionSourceSpec) ([]RawVersion, error) {
	return f.versions, f.err
}

func TestRegistry_Fetch_StripsPrefixAndSortsDescending(t *testing.T) {
	reg := NewRegistry(http.DefaultClient)
	reg.Register("github", &fakeSource{versions: []RawVersion{
		{Tag: "v1.2.3"}, {Tag: "v2.0.0"}, {Tag: "v1.10.0"},
	}})

	versions, err := reg.Fetch(context.Background(), provider.VersionSourceSpec{
		Source: "github", StripVPrefix: true,
	})
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []string{"2.0.0", "1.10.0", "1.2.3"}, []string{
		versions[0].Version, versions[1].Version, versions[2].Version,
	})
}

func TestRegistry_Fetch_DetectsPrereleaseMarkers(t *testing.T) {
	reg := NewRegistry(http.DefaultClient)
	reg.Register("github", &fakeSource{versions: []RawVersion{
		{Tag: "v1.0.0"}, {Tag: "v1.1.0-beta.1"},
	}})

	versions, err := reg.Fetch(context.Background(), provider.VersionSourceSpec{
		Source: "github", StripVPrefix: true,
	})
	require.NoError(t, err)

	byVersion := map[string]bool{}
	for _, v := range versions {
		byVersion[v.Version] = v.Prerelease
	}
	assert.False(t, byVersion["1.0.0"])
	assert.True(t, byVersion["1.1.0-beta.1"])
}

func TestRegistry_Fetch_DetectsLTSPattern(t *testing.T) {
	reg := NewRegistry(http.DefaultClient)
	reg.Register("github", &fakeSource{versions: []RawVersion{
		{Tag: "v20.10.0-lts"}, {Tag: "v21.0.0"},
	}})

	versions, err := reg.Fetch(context.Background(), provider.VersionSourceSpec{
		Source: "github", StripVPrefix: true, LTSPattern: "-lts",
	})
	require.NoError(t, err)

	for _, v := range versions {
		if v.Version == "20.10.0-lts" {
			assert.True(t, v.LTS)
		}
	}
}

func TestRegistry_Fetch_FallsBackToJSDelivrOnGitHubError(t *testing.T) {
	reg := NewRegistry(http.DefaultClient)
	reg.Register("github", &fakeSource{err: assertError("rate limited")})
	reg.Register("jsdelivr", &fakeSource{versions: []RawVersion{{Tag: "1.0.0"}}})

	versions, err := reg.Fetch(context.Background(), provider.VersionSourceSpec{Source: "github"})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "1.0.0", versions[0].Version)
}

func TestRegistry_Fetch_UnknownSourceErrors(t *testing.T) {
	reg := NewRegistry(http.DefaultClient)
	_, err := reg.Fetch(context.Background(), provider.VersionSourceSpec{Source: "smoke-signal"})
	assert.Error(t, err)
}

func TestStaticSource_ReturnsManifestVersions(t *testing.T) {
	s := &StaticSource{}
	versions, err := s.FetchVersions(context.Background(), provider.VersionSourceSpec{
		StaticVersion: []string{"1.0.0", "2.0.0"},
	})
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

type assertError string

func (e assertError) Error() string { return string(e) }
