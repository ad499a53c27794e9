package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	vxerrors "github.com/loonghao/vx/internal/errors"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/shim"
)

const pathEnvKey = "PATH"

// Prepare is PrepareStage: it resolves every ResolvedRuntime's bin
// directory and declared env vars, composes the PATH in spec.md §4.9's
// precedence order (project .vx/bin -> runtime bin dirs -> global shims ->
// inherited PATH), and returns the argv/cwd/env ExecuteStage hands to the
// child process.
func (p *Pipeline) Prepare(ctx context.Context, plan *provider.ExecutionPlan) (*provider.PreparedContext, error) {
	if plan.Proxy != nil {
		return &provider.PreparedContext{
			Executable: plan.Proxy.Executable,
			Args:       plan.Config.Args,
			WorkingDir: plan.Config.WorkingDir,
			Env:        p.baseEnv(),
		}, nil
	}

	env := p.baseEnv()
	var binDirs []string
	for _, rr := range plan.AllRuntimes() {
		rt, ok := p.runtimes(rr.Name)
		if !ok {
			return nil, vxerrors.NewPrepareError(vxerrors.CodeEnvConflict, rr.Name, rr.Version.Version,
				"runtime no longer registered during prepare", nil)
		}
		binDir := p.store.EntryDir(string(rt.Ecosystem), rt.Name, rr.Version.Version)
		binDirs = append(binDirs, binDir)

		if override, ok := rt.Platforms[runtime.GOOS]; ok {
			for k, v := range override.Env {
				env[k] = v
			}
		}
	}

	entries := shim.PathEntries(p.projectRoot, binDirs, p.shimsDir)
	env[pathEnvKey] = joinPath(append(entries, os.Getenv(pathEnvKey)))

	for k, v := range plan.Config.EnvOverrides {
		env[k] = v
	}

	primaryRT, ok := p.runtimes(plan.Primary.Name)
	if !ok {
		return nil, vxerrors.NewPrepareError(vxerrors.CodeEnvConflict, plan.Primary.Name, plan.Primary.Version.Version,
			"primary runtime no longer registered during prepare", nil)
	}
	executable, err := p.resolveExecutable(primaryRT, plan.Primary.Version.Version)
	if err != nil {
		return nil, err
	}

	args := append(append([]string{}, primaryRT.CommandPrefix...), plan.Config.Args...)

	return &provider.PreparedContext{
		Executable: executable,
		Args:       args,
		WorkingDir: plan.Config.WorkingDir,
		Env:        env,
	}, nil
}

func (p *Pipeline) baseEnv() map[string]string {
	env := make(map[string]string, len(os.Environ()))
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return env
}

func (p *Pipeline) resolveExecutable(rt *provider.Runtime, version string) (string, error) {
	entryDir := p.store.EntryDir(string(rt.Ecosystem), rt.Name, version)
	name := rt.Executable
	if name == "" {
		name = rt.Name
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	candidate := filepath.Join(entryDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	candidate = filepath.Join(entryDir, "bin", name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", vxerrors.NewPrepareError(vxerrors.CodeShimFailed, rt.Name, version,
		"could not locate executable in store entry", nil).WithTarget(entryDir)
}

func joinPath(entries []string) string {
	var out string
	for i, e := range entries {
		if e == "" {
			continue
		}
		if i > 0 && out != "" {
			out += string(os.PathListSeparator)
		}
		out += e
	}
	return out
}
