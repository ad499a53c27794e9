// Package path resolves the on-disk layout vx uses to store providers,
// installed runtimes, virtual environments, shims and caches, all rooted
// under a single VX_HOME directory.
package path

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultHomeSuffix is VX_HOME's default location relative to the user's
// home directory when VX_HOME is unset.
const DefaultHomeSuffix = ".vx"

// Default project-relative suffixes.
const (
	ProjectConfigFileName = "vx.toml"
	ProjectLockFileName   = "vx.lock"
	projectBinSuffix      = ".vx/bin"
	projectProvidersDir   = ".vx/providers"
)

// Paths holds the resolved VX_HOME layout.
type Paths struct {
	home string
}

// Option is a functional option for configuring Paths.
type Option func(*Paths)

// WithHome overrides VX_HOME's resolved location.
func WithHome(dir string) Option {
	return func(p *Paths) {
		p.home = dir
	}
}

// New resolves VX_HOME from (in order): an explicit WithHome option, the
// VX_HOME environment variable, or ~/.vx.
func New(opts ...Option) (*Paths, error) {
	p := &Paths{}

	for _, opt := range opts {
		opt(p)
	}

	if p.home == "" {
		if env := os.Getenv("VX_HOME"); env != "" {
			expanded, err := Expand(env)
			if err != nil {
				return nil, err
			}
			p.home = expanded
		}
	}

	if p.home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		p.home = filepath.Join(home, DefaultHomeSuffix)
	}

	return p, nil
}

// Home returns VX_HOME itself.
func (p *Paths) Home() string {
	return p.home
}

// StoreDir returns ${VX_HOME}/store, the root of the content-addressed
// runtime store.
func (p *Paths) StoreDir() string {
	return filepath.Join(p.home, "store")
}

// StoreEntryDir returns ${VX_HOME}/store/<ecosystem>/<runtime>/<version>.
func (p *Paths) StoreEntryDir(ecosystem, runtime, version string) string {
	return filepath.Join(p.StoreDir(), ecosystem, runtime, version)
}

// PackagesDir returns ${VX_HOME}/packages, the root for ecosystem-global
// isolated package installs.
func (p *Paths) PackagesDir() string {
	return filepath.Join(p.home, "packages")
}

// PackageEntryDir returns ${VX_HOME}/packages/<manager>/<pkg>/<version>.
func (p *Paths) PackageEntryDir(manager, pkg, version string) string {
	return filepath.Join(p.PackagesDir(), manager, pkg, version)
}

// ShimsDir returns ${VX_HOME}/shims, the root of global exec-wrapper shims.
func (p *Paths) ShimsDir() string {
	return filepath.Join(p.home, "shims")
}

// ShimPath returns the path to the global shim for a single tool.
func (p *Paths) ShimPath(tool string) string {
	return filepath.Join(p.ShimsDir(), tool)
}

// EnvsDir returns ${VX_HOME}/envs, the root of virtual environments.
func (p *Paths) EnvsDir() string {
	return filepath.Join(p.home, "envs")
}

// EnvBinDir returns ${VX_HOME}/envs/<env>/bin.
func (p *Paths) EnvBinDir(env string) string {
	return filepath.Join(p.EnvsDir(), env, "bin")
}

// EnvToolPath returns ${VX_HOME}/envs/<env>/bin/<tool>.
func (p *Paths) EnvToolPath(env, tool string) string {
	return filepath.Join(p.EnvBinDir(env), tool)
}

// ProvidersDir returns ${VX_HOME}/providers, the root of user-level
// provider manifests.
func (p *Paths) ProvidersDir() string {
	return filepath.Join(p.home, "providers")
}

// ProviderDir returns ${VX_HOME}/providers/<name>.
func (p *Paths) ProviderDir(name string) string {
	return filepath.Join(p.ProvidersDir(), name)
}

// CacheDir returns ${VX_HOME}/cache, unless overridden by VX_CACHE_DIR.
func (p *Paths) CacheDir() string {
	if env := os.Getenv("VX_CACHE_DIR"); env != "" {
		if expanded, err := Expand(env); err == nil {
			return expanded
		}
	}
	return filepath.Join(p.home, "cache")
}

// DownloadsCacheDir returns the cache directory for downloaded artifacts.
func (p *Paths) DownloadsCacheDir() string {
	return filepath.Join(p.CacheDir(), "downloads")
}

// VersionsCacheDir returns the cache directory for fetched version lists.
func (p *Paths) VersionsCacheDir() string {
	return filepath.Join(p.CacheDir(), "versions")
}

// PackagesCacheDir returns the cache directory for package manager metadata.
func (p *Paths) PackagesCacheDir() string {
	return filepath.Join(p.CacheDir(), "packages")
}

// ConfigFile returns ${VX_HOME}/config.toml, the user defaults file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.home, "config.toml")
}

// ProjectBinDir returns <projectRoot>/.vx/bin, the per-project shim
// directory resolved at `vx sync` time.
func ProjectBinDir(projectRoot string) string {
	return filepath.Join(projectRoot, projectBinSuffix)
}

// ProjectToolPath returns <projectRoot>/.vx/bin/<tool>.
func ProjectToolPath(projectRoot, tool string) string {
	return filepath.Join(ProjectBinDir(projectRoot), tool)
}

// ProjectProvidersDir returns <projectRoot>/.vx/providers, the root of
// project-level provider overrides.
func ProjectProvidersDir(projectRoot string) string {
	return filepath.Join(projectRoot, projectProvidersDir)
}

// ProjectConfigFile returns <projectRoot>/vx.toml.
func ProjectConfigFile(projectRoot string) string {
	return filepath.Join(projectRoot, ProjectConfigFileName)
}

// ProjectLockFile returns <projectRoot>/vx.lock.
func ProjectLockFile(projectRoot string) string {
	return filepath.Join(projectRoot, ProjectLockFileName)
}

// EnsureDir creates a directory (and any missing parents) if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Expand expands a leading ~ to the user's home directory.
func Expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}

	if path == "~" {
		return os.UserHomeDir()
	}

	return path, nil
}
