package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loonghao/vx/internal/checksum"
	vxerrors "github.com/loonghao/vx/internal/errors"
	"github.com/loonghao/vx/internal/installer/command"
	"github.com/loonghao/vx/internal/installer/extract"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/script"
	"github.com/loonghao/vx/internal/store"
	"github.com/loonghao/vx/internal/verify"
)

// Ensure is EnsureStage: it installs every ResolvedRuntime in plan that
// NeedsInstall, bounded to the Pipeline's configured concurrency and
// serialized per (ecosystem, runtime, version) by a store.Lock so two `vx`
// processes racing on the same install never corrupt a store entry.
// ctx cancellation (SIGINT) is cooperative: in-flight downloads/extracts
// abort at their next context check, already-installed entries are left
// alone, and no partial entry is ever marked complete.
func (p *Pipeline) Ensure(ctx context.Context, plan *provider.ExecutionPlan) error {
	if plan.Proxy != nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, rr := range plan.AllRuntimes() {
		rr := rr
		if !rr.NeedsInstall() {
			continue
		}
		if err := p.sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return p.ensureOne(gctx, rr)
		})
	}
	return g.Wait()
}

func (p *Pipeline) ensureOne(ctx context.Context, rr provider.ResolvedRuntime) error {
	rt, ok := p.runtimes(rr.Name)
	if !ok {
		return fmt.Errorf("ensure: unknown runtime %q", rr.Name)
	}
	version := rr.Version.Version

	if p.store.Installed(string(rt.Ecosystem), rt.Name, version) {
		if p.reporter != nil {
			p.reporter.Skip(rt.Name, version)
		}
		return nil
	}

	lock, err := p.store.NewLock(string(rt.Ecosystem), rt.Name, version)
	if err != nil {
		return vxerrors.NewPrepareError(vxerrors.CodeLinkFailed, rt.Name, version, "create install lock", err)
	}
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer lock.Unlock()

	// Re-check after acquiring the lock: another process may have finished
	// installing this exact (runtime, version) between the check above and
	// TryLock (which does not wait; a held lock fails the install).
	if p.store.Installed(string(rt.Ecosystem), rt.Name, version) {
		return nil
	}

	entryDir := p.store.EntryDir(string(rt.Ecosystem), rt.Name, version)
	p.logger.Info("installing", "runtime", rt.Name, "version", version, "dir", entryDir)

	key := string(rt.Ecosystem) + "/" + rt.Name + "@" + version
	if p.reporter != nil {
		p.reporter.Start(key, rt.Name, version)
	}

	marker, err := p.installOne(ctx, rt, version, entryDir)
	if err != nil {
		if p.reporter != nil {
			p.reporter.Fail(key, rt.Name, version, err)
		}
		return vxerrors.NewInstallError(rt.Name, "install", err).WithVersion(version)
	}
	marker.InstalledAt = time.Now().UTC()
	if err := p.store.WriteMarker(string(rt.Ecosystem), rt.Name, version, *marker); err != nil {
		return err
	}
	if p.reporter != nil {
		p.reporter.Complete(key, rt.Name, version)
	}
	return nil
}

// installOne dispatches to the script-backed install path for
// SourceScript providers, or the Hooks-driven generic path for
// manifest/builtin providers, per the per-provider-kind split documented
// in DESIGN.md.
func (p *Pipeline) installOne(ctx context.Context, rt *provider.Runtime, version, entryDir string) (*store.Marker, error) {
	if rt.Provider != nil && rt.Provider.Source == provider.SourceScript {
		if sp, ok := p.scripts(rt.Name); ok {
			return p.installViaScript(ctx, sp, rt, version, entryDir)
		}
	}
	return p.installViaHooks(ctx, rt, version, entryDir)
}

// installViaScript runs the Starlark install()/post_install() phases; the
// script itself fetches and extracts its artifact inside its fs/http
// sandbox, so this function only shepherds the two calls and turns the
// script's own reported path into the store marker.
func (p *Pipeline) installViaScript(ctx context.Context, sp *script.Provider, rt *provider.Runtime, version, entryDir string) (*store.Marker, error) {
	vxHome := filepath.Dir(filepath.Dir(filepath.Dir(entryDir)))
	sandbox := script.NewSandbox(rt.Name, sp.Permissions, vxHome)
	scriptCtx := script.NewContext(rt.Name, sandbox, script.Paths{
		VXHome:   vxHome,
		StoreDir: entryDir,
	}, nil, script.HostHooks{
		Runner:   executorRunner{ctx: ctx},
		Logger:   func(level, msg string) { p.logger.Info(msg, "level", level, "runtime", rt.Name) },
		Progress: func(msg string) { p.logger.Info(msg, "runtime", rt.Name) },
	}, nil)

	result, err := sp.Install(scriptCtx, version)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("install(): %s", result.Error)
	}

	if _, err := sp.PostInstall(scriptCtx, version, entryDir); err != nil {
		return nil, fmt.Errorf("post_install: %w", err)
	}

	return &store.Marker{URL: result.Path}, nil
}

// installViaHooks covers declarative providers. A "download_url" hook is a
// text/template rendered with the runtime/version and downloaded + verified
// + extracted directly into entryDir; an "install" hook is instead run as a
// shell command through installer/command.Executor (the `go install`/`cargo
// install`/`pip install` style path RuntimeDependency names).
func (p *Pipeline) installViaHooks(ctx context.Context, rt *provider.Runtime, version, entryDir string) (*store.Marker, error) {
	vars := command.Vars{Name: rt.Name, Version: version, Package: rt.RuntimeDependency, BinPath: entryDir}

	if tmpl, ok := rt.Hooks["download_url"]; ok {
		url, err := renderHookTemplate(tmpl, vars)
		if err != nil {
			return nil, err
		}
		return p.downloadAndExtract(ctx, rt, version, url, entryDir)
	}

	if cmds, ok := rt.Hooks["install"]; ok {
		if err := os.MkdirAll(entryDir, 0o755); err != nil {
			return nil, err
		}
		if err := p.executor.ExecuteWithEnv(ctx, []string{cmds}, vars, map[string]string{"VX_INSTALL_DIR": entryDir}); err != nil {
			return nil, err
		}
		return &store.Marker{}, nil
	}

	return nil, fmt.Errorf("runtime %s declares no download_url or install hook", rt.Name)
}

func (p *Pipeline) downloadAndExtract(ctx context.Context, rt *provider.Runtime, version, url, entryDir string) (*store.Marker, error) {
	archivePath := filepath.Join(entryDir+".download", filepath.Base(url))
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(filepath.Dir(archivePath))

	if _, err := p.downloader.Download(ctx, url, archivePath); err != nil {
		return nil, err
	}

	if hook, ok := rt.Hooks["checksum"]; ok {
		checksumURL, err := renderHookTemplate(hook, command.Vars{Name: rt.Name, Version: version})
		if err != nil {
			return nil, err
		}
		if err := p.downloader.Verify(ctx, archivePath, &provider.Checksum{URL: checksumURL}); err != nil {
			return nil, err
		}
	}

	if _, err := p.verifier.Verify(ctx, []verify.Artifact{{Runtime: rt.Name, Version: version, Path: archivePath}}); err != nil {
		return nil, err
	}

	archiveType := extract.DetectArchiveType(url)
	extractor, err := extract.NewExtractor(archiveType)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return nil, err
	}
	if err := extractor.Extract(f, entryDir); err != nil {
		return nil, err
	}

	hash, err := checksum.Calculate(archivePath, checksum.Algorithm("sha256"))
	if err != nil {
		hash = "" // best-effort; a failure here never invalidates a successful extract
	}

	return &store.Marker{URL: url, Checksum: hash}, nil
}

func renderHookTemplate(tmpl string, vars command.Vars) (string, error) {
	t, err := template.New("hook").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse hook template: %w", err)
	}
	var buf strings.Builder
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render hook template: %w", err)
	}
	return buf.String(), nil
}
