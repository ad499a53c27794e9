package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loonghao/vx/internal/config"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/resolve"
	"github.com/loonghao/vx/internal/script"
	"github.com/loonghao/vx/internal/store"
	"github.com/loonghao/vx/internal/versionfetch"
)

// testHarness wires a Pipeline against a small fixed runtime registry, for
// tests that exercise Resolve/Ensure/Prepare/Execute without a real
// registry.Registry or script.Provider.
type testHarness struct {
	pipeline *Pipeline
	store    *store.Store
}

func newHarness(t *testing.T, runtimes ...*provider.Runtime) *testHarness {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	cache, err := versionfetch.NewCache(t.TempDir(), versionfetch.DefaultTTL)
	require.NoError(t, err)
	fetcher := versionfetch.NewFetcher(versionfetch.NewRegistry(nil), cache)
	resolver := resolve.New(config.DefaultProjectConfig(), config.DefaultUserConfig(), st, fetcher, nil, false)

	byName := make(map[string]*provider.Runtime, len(runtimes))
	for _, rt := range runtimes {
		byName[rt.Name] = rt
	}

	h := &testHarness{store: st}
	h.pipeline = New(Options{
		Runtimes: func(name string) (*provider.Runtime, bool) { rt, ok := byName[name]; return rt, ok },
		Scripts:  func(string) (*script.Provider, bool) { return nil, false },
		Store:    st,
		Resolver: resolver,
	})
	return h
}

func staticRuntimeWithInstallHook(name, installHook string, versions ...string) *provider.Runtime {
	return &provider.Runtime{
		Name:       name,
		Executable: name,
		Ecosystem:  provider.EcosystemSystem,
		Versions:   provider.VersionSourceSpec{Source: "static", StaticVersion: versions},
		Hooks:      map[string]string{"install": installHook},
	}
}

func TestResolve_PlainRuntimeNoDependencies(t *testing.T) {
	h := newHarness(t, staticRuntimeWithInstallHook("demo", "true", "1.0.0", "2.0.0"))

	plan, err := h.pipeline.Resolve(context.Background(), ResolveRequest{Runtime: "demo", Spec: "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", plan.Primary.Version.Version)
	assert.Empty(t, plan.Dependencies)
	assert.Nil(t, plan.Proxy)
}

func TestResolve_UnknownRuntimeErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipeline.Resolve(context.Background(), ResolveRequest{Runtime: "nope", Spec: "1.0.0"})
	assert.Error(t, err)
}

func TestEnsure_InstallsViaHookAndWritesMarker(t *testing.T) {
	name := "demo"
	binName := name
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	if runtime.GOOS == "windows" {
		t.Skip("install hook uses a posix shell command")
	}
	// The install hook writes a fake executable directly into the store
	// entry directory the Executor's VX_INSTALL_DIR env var names.
	hook := `touch "$VX_INSTALL_DIR/` + binName + `" && chmod +x "$VX_INSTALL_DIR/` + binName + `"`

	h := newHarness(t, staticRuntimeWithInstallHook(name, hook, "1.0.0"))

	plan, err := h.pipeline.Resolve(context.Background(), ResolveRequest{Runtime: name, Spec: "1.0.0"})
	require.NoError(t, err)
	require.True(t, plan.Primary.NeedsInstall())

	err = h.pipeline.Ensure(context.Background(), plan)
	require.NoError(t, err)

	assert.True(t, h.store.Installed(string(provider.EcosystemSystem), name, "1.0.0"))
}

func TestEnsure_SkipsAlreadyInstalled(t *testing.T) {
	name := "demo"
	h := newHarness(t, staticRuntimeWithInstallHook(name, "exit 1", "1.0.0"))

	require.NoError(t, h.store.WriteMarker(string(provider.EcosystemSystem), name, "1.0.0", store.Marker{}))

	plan, err := h.pipeline.Resolve(context.Background(), ResolveRequest{Runtime: name, Spec: "1.0.0"})
	require.NoError(t, err)
	assert.False(t, plan.Primary.NeedsInstall())

	// Ensure must not run the (failing) hook for an already-installed entry.
	require.NoError(t, h.pipeline.Ensure(context.Background(), plan))
}

func TestPrepare_BuildsExecutableAndPath(t *testing.T) {
	name := "demo"
	h := newHarness(t, staticRuntimeWithInstallHook(name, "true", "1.0.0"))

	entryDir := h.store.EntryDir(string(provider.EcosystemSystem), name, "1.0.0")
	require.NoError(t, os.MkdirAll(entryDir, 0o755))
	binName := name
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	require.NoError(t, os.WriteFile(filepath.Join(entryDir, binName), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, h.store.WriteMarker(string(provider.EcosystemSystem), name, "1.0.0", store.Marker{}))

	plan := &provider.ExecutionPlan{
		Primary: provider.ResolvedRuntime{Name: name, Version: provider.ResolvedVersion{Version: "1.0.0"}},
		Config:  provider.PlanConfig{Args: []string{"--version"}},
	}

	prepared, err := h.pipeline.Prepare(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(entryDir, binName), prepared.Executable)
	assert.Equal(t, []string{"--version"}, prepared.Args)
	assert.NotEmpty(t, prepared.Env["PATH"])
}

func TestPrepare_MissingExecutableErrors(t *testing.T) {
	name := "demo"
	h := newHarness(t, staticRuntimeWithInstallHook(name, "true", "1.0.0"))

	plan := &provider.ExecutionPlan{
		Primary: provider.ResolvedRuntime{Name: name, Version: provider.ResolvedVersion{Version: "1.0.0"}},
	}
	_, err := h.pipeline.Prepare(context.Background(), plan)
	assert.Error(t, err)
}

func TestPrepare_ProxyRuntimeBypassesStoreLookup(t *testing.T) {
	h := newHarness(t)
	plan := &provider.ExecutionPlan{
		Proxy: &provider.ProxyRuntime{Name: "yarn", Executable: "/usr/bin/corepack", Reason: "bundled"},
	}
	prepared, err := h.pipeline.Prepare(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/corepack", prepared.Executable)
}

func TestExecute_RunsExecutableAndReturnsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a posix shell executable")
	}
	h := newHarness(t)
	prepared := &provider.PreparedContext{
		Executable: "/bin/sh",
		Args:       []string{"-c", "exit 3"},
		Env:        map[string]string{"PATH": os.Getenv("PATH")},
	}
	code, err := h.pipeline.Execute(context.Background(), prepared)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestExecute_MissingExecutableErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipeline.Execute(context.Background(), &provider.PreparedContext{})
	assert.Error(t, err)
}
