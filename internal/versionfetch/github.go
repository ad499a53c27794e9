package versionfetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/loonghao/vx/internal/github"
	"github.com/loonghao/vx/internal/provider"
)

// GitHubSource lists a repository's releases via the GitHub API.
type GitHubSource struct {
	Client *http.Client
}

func (s *GitHubSource) FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error) {
	if spec.Owner == "" || spec.Repo == "" {
		return nil, fmt.Errorf("github version source requires owner and repo")
	}

	releases, err := github.ListReleases(ctx, s.Client, spec.Owner, spec.Repo, 100)
	if err != nil {
		return nil, err
	}

	out := make([]RawVersion, 0, len(releases))
	for _, rel := range releases {
		if rel.TagName == "" {
			continue
		}
		out = append(out, RawVersion{
			Tag:         rel.TagName,
			Prerelease:  rel.Prerelease,
			ReleaseDate: rel.PublishedAt,
		})
	}
	return out, nil
}
