package provider

import "time"

// VersionInfo describes one version a VersionFetcher source reported for a
// Runtime.
type VersionInfo struct {
	Version     string
	LTS         bool
	LTSName     string
	Prerelease  bool
	ReleaseDate time.Time
	Security    bool
	Extra       map[string]string
}

// ResolvedVersionKind discriminates the ResolvedVersion variants.
type ResolvedVersionKind string

const (
	ResolvedSpecific       ResolvedVersionKind = "specific"
	ResolvedLatestInstalled ResolvedVersionKind = "latest_installed"
	ResolvedLatestRemote   ResolvedVersionKind = "latest_remote"
	ResolvedRange          ResolvedVersionKind = "range"
	ResolvedLegacyConfig   ResolvedVersionKind = "legacy_config"
)

// ResolvedVersion is the resolver's answer to "what version does this spec
// mean right now."
type ResolvedVersion struct {
	Kind ResolvedVersionKind

	// Version is the concrete resolved version string, set for every kind.
	Version string

	// Spec is the original range/spec string, set only for ResolvedRange.
	Spec string

	// LegacySource is the file the version came from (e.g. ".nvmrc"), set
	// only for ResolvedLegacyConfig.
	LegacySource string
}

// InstallStatusKind discriminates the InstallStatus variants.
type InstallStatusKind string

const (
	StatusInstalled            InstallStatusKind = "installed"
	StatusNeedsInstall         InstallStatusKind = "needs_install"
	StatusNeedsDependency      InstallStatusKind = "needs_dependency"
	StatusPlatformUnsupported  InstallStatusKind = "platform_unsupported"
)

// InstallStatus reports whether a ResolvedRuntime is ready to execute.
type InstallStatus struct {
	Kind InstallStatusKind

	// DependencyName is set for StatusNeedsDependency.
	DependencyName string

	// Reason is set for StatusPlatformUnsupported.
	Reason string
}

// ResolvedRuntime is one entry of the resolver's output: a Runtime bound to
// a concrete version and its current install state.
type ResolvedRuntime struct {
	Name       string
	Version    ResolvedVersion
	Status     InstallStatus
	Executable string
}

// NeedsInstall reports whether this entry must go through EnsureStage
// before it can be used.
func (r ResolvedRuntime) NeedsInstall() bool {
	return r.Status.Kind == StatusNeedsInstall
}

// ProxyRuntime describes a tool dispatched through a system/bundled proxy
// rather than a store-managed install (e.g. a system-installed compiler
// toolchain vx merely forwards to).
type ProxyRuntime struct {
	Name       string
	Executable string
	Reason     string
}

// PlanConfig carries the invocation-specific parameters layered onto an
// ExecutionPlan: the user's trailing args, working directory, and any
// env overrides from `--with` or provider hooks.
type PlanConfig struct {
	Args         []string
	WorkingDir   string
	EnvOverrides map[string]string
}

// ExecutionPlan is ResolveStage's output: everything EnsureStage,
// PrepareStage, and ExecuteStage need to run one command invocation.
type ExecutionPlan struct {
	Primary      ResolvedRuntime
	Dependencies []ResolvedRuntime // topologically ordered
	Injected     []ResolvedRuntime // explicit --with
	Proxy        *ProxyRuntime
	Config       PlanConfig
}

// AllRuntimes returns every ResolvedRuntime this plan touches, in the order
// EnsureStage should install them: dependencies first, then the primary,
// then the injected runtimes.
func (p *ExecutionPlan) AllRuntimes() []ResolvedRuntime {
	all := make([]ResolvedRuntime, 0, 1+len(p.Dependencies)+len(p.Injected))
	all = append(all, p.Dependencies...)
	all = append(all, p.Primary)
	all = append(all, p.Injected...)
	return all
}

// PreparedContext is PrepareStage's output: the fully-resolved argv, cwd,
// and environment handed to ExecuteStage.
type PreparedContext struct {
	Executable string
	Args       []string
	WorkingDir string
	Env        map[string]string
}
