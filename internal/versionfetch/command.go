package versionfetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/loonghao/vx/internal/installer/command"
	"github.com/loonghao/vx/internal/installer/resolve"
	"github.com/loonghao/vx/internal/provider"
)

// CommandSource resolves a single "current" version via
// installer/resolve.Resolver's github-release:/http-text:/shell-command
// dispatch, for runtimes whose upstream has no enumerable release list to
// page through (aqua's "latest only" tools, language toolchains that expose
// a single rolling build). Provider manifests cannot select it; only a
// VersionSourceSpec built in Go can.
type CommandSource struct {
	Resolver *resolve.Resolver
}

// NewCommandSource builds a CommandSource, defaulting to a fresh
// command.Executor (workDir unused by resolve.Resolver's dispatch) and
// client for the GitHub-release/http-text built-ins.
func NewCommandSource(client *http.Client) *CommandSource {
	return &CommandSource{Resolver: resolve.NewResolver(command.NewExecutor(""), client)}
}

func (s *CommandSource) FetchVersions(ctx context.Context, spec provider.VersionSourceSpec) ([]RawVersion, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("command version source requires a command")
	}
	version, err := s.Resolver.Resolve(ctx, spec.Command, command.Vars{})
	if err != nil {
		return nil, err
	}
	return []RawVersion{{Tag: version}}, nil
}
