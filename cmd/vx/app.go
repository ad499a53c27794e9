package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loonghao/vx/internal/cliutil"
	"github.com/loonghao/vx/internal/config"
	"github.com/loonghao/vx/internal/lockfile"
	"github.com/loonghao/vx/internal/path"
	"github.com/loonghao/vx/internal/pipeline"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/registry"
	"github.com/loonghao/vx/internal/registrygit"
	"github.com/loonghao/vx/internal/resolve"
	"github.com/loonghao/vx/internal/script"
	"github.com/loonghao/vx/internal/store"
	"github.com/loonghao/vx/internal/versionfetch"
)

// app bundles everything a subcommand needs: the discovered registry, the
// resolved VX_HOME layout, and a ready-to-run Pipeline. Built fresh per
// invocation from cobra's RunE (no package-level mutable state), mirroring
// the teacher's per-command config/path bootstrap in cmd/toto/apply.go.
type app struct {
	paths      *path.Paths
	registry   *registry.Registry
	pipeline   *pipeline.Pipeline
	projectCfg *config.ProjectConfig
	lock       *lockfile.File
	fetcher    *versionfetch.Fetcher
}

// newApp discovers providers (${VX_HOME}/providers, then git-backed
// registries from ~/.vx/config.toml, then the project's .vx/providers; on a
// name collision the earlier source wins and the later one is recorded as a
// warning) and wires a Pipeline over the result.
func newApp(projectRoot string) (*app, error) {
	paths, err := path.New()
	if err != nil {
		return nil, fmt.Errorf("resolve VX_HOME: %w", err)
	}

	userCfg, err := config.LoadUserConfig(paths.ConfigFile())
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	if err := reg.LoadManifestDir(paths.ProvidersDir()); err != nil {
		return nil, err
	}

	scripts := make(map[string]*script.Provider)
	loadScripts(paths.ProvidersDir(), reg, scripts)

	if len(userCfg.Registries) > 0 {
		syncer := registrygit.NewSyncer(filepath.Join(paths.Home(), "registries"))
		if err := syncer.LoadAll(context.Background(), reg, userCfg.Registries); err != nil {
			return nil, err
		}
	}

	projectProvidersDir := path.ProjectProvidersDir(projectRoot)
	if err := reg.LoadManifestDir(projectProvidersDir); err != nil {
		return nil, err
	}
	loadScripts(projectProvidersDir, reg, scripts)
	if err := reg.ApplyOverrideDir(projectProvidersDir); err != nil {
		return nil, err
	}

	for _, w := range reg.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: provider %s: %s\n", w.Provider, w.Message)
	}

	st, err := store.New(paths.StoreDir())
	if err != nil {
		return nil, err
	}

	cache, err := versionfetch.NewCache(paths.VersionsCacheDir(), versionfetch.DefaultTTL)
	if err != nil {
		return nil, err
	}
	fetcher := versionfetch.NewFetcher(versionfetch.NewRegistry(nil), cache)

	projectCfg, err := config.LoadProjectConfig(path.ProjectConfigFile(projectRoot))
	if err != nil {
		return nil, err
	}

	lock, err := lockfile.Load(path.ProjectLockFile(projectRoot))
	if err != nil {
		return nil, err
	}

	resolver := resolve.New(projectCfg, userCfg, st, fetcher, lock, os.Getenv("CI") != "")

	exe, err := os.Executable()
	if err != nil {
		exe = "vx"
	}

	pl := pipeline.New(pipeline.Options{
		Runtimes:    reg.GetRuntime,
		Scripts:     func(name string) (*script.Provider, bool) { sp, ok := scripts[name]; return sp, ok },
		Store:       st,
		Resolver:    resolver,
		VXBinary:    exe,
		ShimsDir:    paths.ShimsDir(),
		ProjectRoot: projectRoot,
		Reporter:    cliutil.NewReporter(os.Stderr),
	})

	return &app{paths: paths, registry: reg, pipeline: pl, projectCfg: projectCfg, lock: lock, fetcher: fetcher}, nil
}

// splitRuntimeSpec splits a "node@20" style argument into its runtime name
// and version spec; a bare "node" yields an empty spec, letting the
// resolver's usual fallback chain decide the version.
func splitRuntimeSpec(arg string) (runtime, spec string) {
	if i := strings.Index(arg, "@"); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}

// loadScripts scans dir for <name>/provider.star files alongside the
// provider.toml layout LoadManifestDir reads, loading each as a
// script.Provider and flipping its runtimes' Provider.Source to
// SourceScript so EnsureStage dispatches to the script-backed install
// path. Errors loading an individual script are logged and skipped rather
// than aborting registry discovery, since a broken script provider
// shouldn't take down every other tool.
func loadScripts(dir string, reg *registry.Registry, scripts map[string]*script.Provider) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		scriptPath := filepath.Join(dir, entry.Name(), "provider.star")
		if _, err := os.Stat(scriptPath); err != nil {
			continue
		}
		sp, err := script.Load(scriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: provider %s: script load failed: %v\n", entry.Name(), err)
			continue
		}
		scripts[entry.Name()] = sp
		if rt, ok := reg.GetRuntime(entry.Name()); ok && rt.Provider != nil {
			rt.Provider.Source = provider.SourceScript
		}
	}
}
