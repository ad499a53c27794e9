package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"runtime"
	"sort"

	"github.com/loonghao/vx/internal/config"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/shim"
)

// ProjectEnvResult is ensure_project_env's reported outcome: a stable
// identifier for this project's resolved tool set plus which tools ended
// up bound into it, for `vx sync` to print.
type ProjectEnvResult struct {
	EnvID string
	Tools []string
}

// EnsureProjectEnv implements the ensure_project_env(project_root) entry
// point: it resolves and installs every tool in the project's [tools]
// table, then writes a global shim and a .vx/bin project link for each, so
// a plain `node` on PATH picks up the project-pinned version without the
// caller needing to `vx exec` explicitly. EnvID is the hex SHA-256 of the
// sorted "tool@version" pairs, stable across repeated syncs of an
// unchanged lockfile.
func (p *Pipeline) EnsureProjectEnv(ctx context.Context, projectCfg *config.ProjectConfig) (*ProjectEnvResult, error) {
	names := make([]string, 0, len(projectCfg.Tools))
	for name := range projectCfg.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &ProjectEnvResult{}
	pairs := make([]string, 0, len(names))

	for _, name := range names {
		plan, err := p.Resolve(ctx, ResolveRequest{Runtime: name, Spec: projectCfg.Tools[name], WorkingDir: p.projectRoot})
		if err != nil {
			return nil, err
		}
		if err := p.Ensure(ctx, plan); err != nil {
			return nil, err
		}

		rt, ok := p.runtimes(name)
		if !ok {
			continue
		}
		executable, err := p.resolveExecutable(rt, plan.Primary.Version.Version)
		if err != nil {
			return nil, err
		}

		if p.vxBinary != "" {
			if _, err := shim.WriteGlobalShim(p.shimsDir, p.vxBinary, name); err != nil {
				return nil, err
			}
		}
		if p.projectRoot != "" {
			if _, err := shim.WriteProjectBin(p.projectRoot, name, executable); err != nil {
				return nil, err
			}
		}

		result.Tools = append(result.Tools, name)
		pairs = append(pairs, name+"@"+plan.Primary.Version.Version)
	}

	sum := sha256.Sum256([]byte(joinSorted(pairs)))
	result.EnvID = hex.EncodeToString(sum[:])
	return result, nil
}

// RuntimeEnvs resolves every tool in the project's [tools] table (and its
// transitive dependencies) without installing anything, and reports each
// one's store bin directory and per-OS env vars as a provider.RuntimeEnv.
// This is `vx env`'s data source: the shell-export companion to
// EnsureProjectEnv, read-only so it's safe to call on every shell prompt.
func (p *Pipeline) RuntimeEnvs(ctx context.Context, projectCfg *config.ProjectConfig) (map[string]*provider.RuntimeEnv, error) {
	envs := make(map[string]*provider.RuntimeEnv, len(projectCfg.Tools))

	for name, spec := range projectCfg.Tools {
		plan, err := p.Resolve(ctx, ResolveRequest{Runtime: name, Spec: spec, WorkingDir: p.projectRoot})
		if err != nil {
			return nil, err
		}
		for _, rr := range plan.AllRuntimes() {
			if _, ok := envs[rr.Name]; ok {
				continue
			}
			rt, ok := p.runtimes(rr.Name)
			if !ok {
				continue
			}
			binDir := p.store.EntryDir(string(rt.Ecosystem), rt.Name, rr.Version.Version)
			rtEnv := &provider.RuntimeEnv{
				Version:     rr.Version.Version,
				BinDir:      binDir,
				ToolBinPath: binDir,
				Env:         map[string]string{},
			}
			if override, ok := rt.Platforms[runtime.GOOS]; ok {
				for k, v := range override.Env {
					rtEnv.Env[k] = v
				}
			}
			envs[rr.Name] = rtEnv
		}
	}

	return envs, nil
}

func joinSorted(pairs []string) string {
	sort.Strings(pairs)
	var out string
	for i, p := range pairs {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
