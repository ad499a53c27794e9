// Package registry discovers providers (built-in, user-level under
// ${VX_HOME}/providers/, and project-level under ./.vx/providers/) and
// builds the in-memory Provider/Runtime index every other stage queries.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loonghao/vx/internal/constraint"
	"github.com/loonghao/vx/internal/manifest"
	"github.com/loonghao/vx/internal/provider"
)

// BuildError is a fatal provider-load failure: a provider whose factory
// (manifest or script) could not be built at all.
type BuildError struct {
	Provider string
	Reason   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("provider %q failed to build: %s", e.Provider, e.Reason)
}

// BuildWarning is a non-fatal problem surfaced to the caller (`vx doctor`,
// `vx providers`) without aborting the load: a duplicate provider or
// runtime name shadowed by an earlier-precedence provider. An unknown TOML
// key is not a warning: the closed manifest schema rejects it, and the load
// fails with a BuildError.
type BuildWarning struct {
	Provider string
	Message  string
}

// Registry is the discovered Provider/Runtime index. Built once at
// startup and treated as read-only afterward; safe for concurrent reads.
type Registry struct {
	providers     []*provider.Provider
	byName        map[string]*provider.Runtime // canonical name or alias -> runtime, case-folded
	providerNames map[string]struct{}
	warnings      []BuildWarning
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byName:        make(map[string]*provider.Runtime),
		providerNames: make(map[string]struct{}),
	}
}

// Warnings returns the non-fatal BuildWarnings accumulated during loading.
func (r *Registry) Warnings() []BuildWarning {
	return r.warnings
}

// RegisterBuiltin adds a compiled-in Provider to the registry. Built-ins
// follow the same first-registered-wins rule as every other source: a
// built-in registered before a manifest- or script-defined provider with
// the same name keeps the name, and one registered after it is dropped
// with a warning.
func (r *Registry) RegisterBuiltin(p *provider.Provider) error {
	p.Source = provider.SourceBuiltin
	return r.add(p)
}

// LoadManifestDir scans dir for one subdirectory per provider, each
// containing a provider.toml, and registers them. Providers already
// registered under the same name (by an earlier-precedence directory)
// win; the later one is dropped with a BuildWarning.
func (r *Registry) LoadManifestDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read provider directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(dir, entry.Name(), "provider.toml")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}

		p, err := r.loadManifestProvider(manifestPath)
		if err != nil {
			return &BuildError{Provider: entry.Name(), Reason: err.Error()}
		}
		if err := r.add(p); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) loadManifestProvider(path string) (*provider.Provider, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}

	p := &provider.Provider{
		Name:        m.Provider.Name,
		Description: m.Provider.Description,
		Ecosystem:   provider.Ecosystem(m.Provider.Ecosystem),
		Homepage:    m.Provider.Homepage,
		Repository:  m.Provider.Repository,
		Source:      provider.SourceManifest,
	}
	p.Runtimes = m.ToRuntimes()
	for _, rt := range p.Runtimes {
		rt.Ecosystem = p.Ecosystem
		rt.Provider = p
	}

	return p, nil
}

// ApplyOverrideDir applies *.override.toml files found directly in dir to
// already-registered providers, matched by provider name (the override
// file's own [provider].name). Per spec.md §4.1 these are applied in
// precedence order (user dir, then project dir) and merged rather than
// replacing a provider wholesale.
func (r *Registry) ApplyOverrideDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read override directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".override.toml") {
			continue
		}

		ov, err := manifest.Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("load override %s: %w", entry.Name(), err)
		}

		if err := r.applyOverride(ov); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) applyOverride(ov *manifest.Manifest) error {
	for _, p := range r.providers {
		if p.Name != ov.Provider.Name {
			continue
		}

		base := providerToManifest(p)
		merged := manifest.ApplyOverrides(base, ov)
		newRuntimes := merged.ToRuntimes()

		for _, rt := range newRuntimes {
			rt.Ecosystem = p.Ecosystem
			rt.Provider = p
			r.reindexRuntime(rt)
		}
		p.Runtimes = newRuntimes
		return nil
	}
	return nil
}

// providerToManifest reconstructs a manifest.Manifest from an already
// loaded Provider, so overrides can be merged uniformly regardless of
// whether the base came from a manifest or a script/built-in provider.
func providerToManifest(p *provider.Provider) *manifest.Manifest {
	m := &manifest.Manifest{
		Provider: manifest.ProviderDecl{
			Name:        p.Name,
			Description: p.Description,
			Ecosystem:   string(p.Ecosystem),
			Homepage:    p.Homepage,
			Repository:  p.Repository,
		},
	}
	for _, rt := range p.Runtimes {
		platforms := make(map[string]manifest.PlatformDecl, len(rt.Platforms))
		for os, ov := range rt.Platforms {
			platforms[os] = manifest.PlatformDecl{Env: ov.Env}
		}

		var constraints []manifest.ConstraintDecl
		for _, c := range rt.Constraints {
			constraints = append(constraints, manifest.ConstraintDecl{
				When:       c.When,
				Requires:   toConstraintDeclDeps(c.Requires),
				Recommends: toConstraintDeclDeps(c.Recommends),
			})
		}

		m.Runtimes = append(m.Runtimes, manifest.RuntimeDecl{
			Name:              rt.Name,
			Description:       rt.Description,
			Executable:        rt.Executable,
			Aliases:           rt.Aliases,
			BundledWith:       rt.BundledWith,
			RuntimeDependency: rt.RuntimeDependency,
			CommandPrefix:     rt.CommandPrefix,
			SystemPaths:       rt.SystemPaths,
			Hooks:             rt.Hooks,
			Platforms:         platforms,
			Constraints:       constraints,
			Versions: manifest.VersionSourceDecl{
				Source:       rt.Versions.Source,
				Owner:        rt.Versions.Owner,
				Repo:         rt.Versions.Repo,
				StripVPrefix: rt.Versions.StripVPrefix,
				TagPrefix:    rt.Versions.TagPrefix,
				LTSPattern:   rt.Versions.LTSPattern,
			},
		})
	}
	return m
}

func toConstraintDeclDeps(deps []constraint.DependencyDef) []manifest.ConstraintDeclDependency {
	out := make([]manifest.ConstraintDeclDependency, 0, len(deps))
	for _, d := range deps {
		out = append(out, manifest.ConstraintDeclDependency{
			Runtime:     d.Runtime,
			Version:     d.Version,
			Recommended: d.Recommended,
			Reason:      d.Reason,
			Optional:    d.Optional,
		})
	}
	return out
}

// add registers p unless an earlier provider/runtime already holds its
// name (earlier-precedence caller wins; later add is dropped with a
// BuildWarning), consistent with spec.md §4.1.
func (r *Registry) add(p *provider.Provider) error {
	if _, exists := r.providerNames[strings.ToLower(p.Name)]; exists {
		r.warnings = append(r.warnings, BuildWarning{
			Provider: p.Name,
			Message:  fmt.Sprintf("duplicate provider %q: earlier-precedence provider wins", p.Name),
		})
		return nil
	}
	r.providerNames[strings.ToLower(p.Name)] = struct{}{}

	for _, rt := range p.Runtimes {
		if existing, ok := r.byName[strings.ToLower(rt.Name)]; ok {
			r.warnings = append(r.warnings, BuildWarning{
				Provider: p.Name,
				Message:  fmt.Sprintf("duplicate runtime %q: %q wins over %q", rt.Name, existing.Provider.Name, p.Name),
			})
			continue
		}
		r.reindexRuntime(rt)
	}

	r.providers = append(r.providers, p)
	return nil
}

func (r *Registry) reindexRuntime(rt *provider.Runtime) {
	r.byName[strings.ToLower(rt.Name)] = rt
	for _, alias := range rt.Aliases {
		r.byName[strings.ToLower(alias)] = rt
	}
}

// GetRuntime resolves a runtime by canonical name or alias,
// case-insensitively.
func (r *Registry) GetRuntime(name string) (*provider.Runtime, bool) {
	rt, ok := r.byName[strings.ToLower(name)]
	return rt, ok
}

// RuntimesByEcosystem returns every runtime tagged with the given
// ecosystem, across all registered providers.
func (r *Registry) RuntimesByEcosystem(tag provider.Ecosystem) []*provider.Runtime {
	var out []*provider.Runtime
	for _, p := range r.providers {
		if p.Ecosystem != tag {
			continue
		}
		out = append(out, p.Runtimes...)
	}
	return out
}

// AllProviders returns every registered provider.
func (r *Registry) AllProviders() []*provider.Provider {
	return r.providers
}
