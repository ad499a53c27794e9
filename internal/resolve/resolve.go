// Package resolve implements the version resolver: turning a (runtime,
// spec) pair into a provider.ResolvedVersion and provider.InstallStatus,
// per spec.md §4.4's fallback chain (explicit -> project config -> legacy
// files -> user default -> installed latest -> remote latest), plus the
// Yarn-berry/bundled-with proxy detection step.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.starlark.net/starlarkstruct"

	"github.com/loonghao/vx/internal/config"
	"github.com/loonghao/vx/internal/lockfile"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/script"
	"github.com/loonghao/vx/internal/semverx"
	"github.com/loonghao/vx/internal/store"
	"github.com/loonghao/vx/internal/versionfetch"
)

// LatestPolicy controls how the resolver answers an unconstrained "latest"
// spec, per spec.md §4.4.
type LatestPolicy string

const (
	LatestInstalled LatestPolicy = "installed"
	LatestRemote    LatestPolicy = "remote"
	LatestLocked    LatestPolicy = "locked"
)

// Request is one (runtime, spec) pair to resolve.
type Request struct {
	Runtime *provider.Runtime

	// ExplicitSpec is the spec given on the command line (e.g. from
	// `node@^20`), or "" if none was given at this call site.
	ExplicitSpec string

	WorkingDir string
	Latest     LatestPolicy

	// ScriptProvider is non-nil when Runtime's provider was script-backed
	// and declares a resolve_version hook; Resolver calls it per
	// CustomResolver's precedence rule.
	ScriptProvider *script.Provider
	ScriptContext  *starlarkstruct.Struct
}

// Resolver ties together project/user config, legacy-file detection, the
// installed store, and the version fetcher to answer resolve requests.
type Resolver struct {
	ProjectConfig *config.ProjectConfig
	UserConfig    *config.UserConfig
	Store         *store.Store
	Fetcher       *versionfetch.Fetcher
	Lockfile      *lockfile.File
	IsCI          bool
}

// New creates a Resolver. projectConfig/userConfig/lockFile may be nil
// (treated as empty); store and fetcher are required for the
// installed-latest and remote-latest fallback steps.
func New(projectConfig *config.ProjectConfig, userConfig *config.UserConfig, st *store.Store, fetcher *versionfetch.Fetcher, lock *lockfile.File, isCI bool) *Resolver {
	if projectConfig == nil {
		projectConfig = config.DefaultProjectConfig()
	}
	if userConfig == nil {
		userConfig = config.DefaultUserConfig()
	}
	return &Resolver{
		ProjectConfig: projectConfig,
		UserConfig:    userConfig,
		Store:         st,
		Fetcher:       fetcher,
		Lockfile:      lock,
		IsCI:          isCI,
	}
}

// Resolve runs the full fallback chain for req, returning a ResolvedRuntime
// with its version decided and install status classified.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*provider.ResolvedRuntime, error) {
	rt := req.Runtime
	if rt == nil {
		return nil, fmt.Errorf("resolve: request has no runtime")
	}

	policy := req.Latest
	if policy == "" {
		policy = LatestInstalled
	}
	if r.IsCI && policy == LatestInstalled {
		policy = LatestLocked
	}

	version, kind, source, err := r.resolveVersionString(ctx, req, policy)
	if err != nil {
		return nil, err
	}

	status := r.classifyStatus(rt, version)

	return &provider.ResolvedRuntime{
		Name: rt.Name,
		Version: provider.ResolvedVersion{
			Kind:         kind,
			Version:      version,
			Spec:         req.ExplicitSpec,
			LegacySource: source,
		},
		Status: status,
	}, nil
}

// resolveVersionString walks the fallback chain and returns the concrete
// version string plus which step satisfied it.
func (r *Resolver) resolveVersionString(ctx context.Context, req Request, policy LatestPolicy) (version string, kind provider.ResolvedVersionKind, legacySource string, err error) {
	rt := req.Runtime

	// The resolve_version script hook only jumps ahead of step 1 when the
	// runtime has explicitly opted in; otherwise it is never consulted
	// here (a provider without custom_resolver simply has no override).
	if req.ScriptProvider != nil && req.ScriptProvider.CustomResolver() {
		v, err := req.ScriptProvider.ResolveVersion(req.ScriptContext, req.ExplicitSpec)
		if err != nil {
			return "", "", "", err
		}
		if v != "" {
			return v, provider.ResolvedSpecific, "", nil
		}
	}

	// 1. Explicit spec from the command line.
	if req.ExplicitSpec != "" {
		return r.resolveSpec(ctx, rt, req.ExplicitSpec, policy)
	}

	// 2. Project config [tools] table.
	if spec, ok := r.ProjectConfig.Tools[rt.Name]; ok && spec != "" {
		return r.resolveSpec(ctx, rt, spec, policy)
	}
	if spec, ok := r.ProjectConfig.ToolsGlobal[rt.Name]; ok && spec != "" {
		return r.resolveSpec(ctx, rt, spec, policy)
	}

	// 3. Legacy files, walked upward from the working directory.
	if hit, ok := FindLegacyVersion(req.WorkingDir, rt.Name); ok {
		return hit.Version, provider.ResolvedLegacyConfig, hit.Source, nil
	}

	// 4. User default (~/.vx/config.toml [defaults]).
	if spec, ok := r.UserConfig.Defaults[rt.Name]; ok && spec != "" {
		return r.resolveSpec(ctx, rt, spec, policy)
	}

	// 5/6. No spec named anywhere: fall to the Latest policy directly.
	return r.resolveLatest(ctx, rt, policy)
}

// resolveSpec classifies spec (an exact version, range, or "latest") and
// resolves it against the store/lockfile/remote as appropriate.
func (r *Resolver) resolveSpec(ctx context.Context, rt *provider.Runtime, rawSpec string, policy LatestPolicy) (string, provider.ResolvedVersionKind, string, error) {
	parsed, err := semverx.ParseSpec(rawSpec)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve %s: %w", rt.Name, err)
	}

	if parsed.Kind == semverx.KindLatest || parsed.Kind == semverx.KindAny {
		return r.resolveLatest(ctx, rt, policy)
	}

	if parsed.Kind == semverx.KindExact {
		return semverx.StripPrefix(rawSpec, "v"), provider.ResolvedSpecific, "", nil
	}

	// Range-like spec (caret/tilde/range/wildcard/partial/major): pick the
	// semver-maximum version satisfying it, preferring non-prerelease
	// unless the spec itself names one, per spec.md §4.4. Go-toolchain
	// versions ("go1.22.3") go through the dedicated x/mod/semver
	// comparator instead, since Masterminds/semver rejects the "go" prefix.
	versions, err := r.candidateVersions(ctx, rt, policy)
	if err != nil {
		return "", "", "", err
	}
	if rt.Ecosystem == provider.EcosystemGo {
		v, ok := toolchainMaxSatisfying(rawSpec, versions)
		if !ok {
			return "", "", "", fmt.Errorf("no version of %s satisfies %q", rt.Name, rawSpec)
		}
		return v, provider.ResolvedRange, "", nil
	}
	parsedVersions := parseLenientAll(versions)
	max, ok := semverx.MaxSatisfying(parsed, parsedVersions)
	if !ok {
		return "", "", "", fmt.Errorf("no version of %s satisfies %q", rt.Name, rawSpec)
	}
	return max.Original(), provider.ResolvedRange, "", nil
}

// toolchainMaxSatisfying picks the highest Go-toolchain-style version
// among candidates whose major.minor matches rawSpec's caret/tilde/partial
// prefix (e.g. "^1.22" or "1.22" matches any "1.22.x").
func toolchainMaxSatisfying(rawSpec string, candidates []string) (string, bool) {
	prefix := strings.TrimLeft(rawSpec, "^~")
	matching := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if strings.HasPrefix(strings.TrimPrefix(v, "go"), prefix) {
			matching = append(matching, v)
		}
	}
	if len(matching) == 0 {
		matching = candidates
	}
	return semverx.MaxToolchain(matching)
}

// resolveLatest answers an unconstrained "latest" request per the Latest
// policy: installed (semver-max already in the store), remote (semver-max
// non-prerelease from the version fetcher), or locked (the vx.lock entry,
// erroring if absent).
func (r *Resolver) resolveLatest(ctx context.Context, rt *provider.Runtime, policy LatestPolicy) (string, provider.ResolvedVersionKind, string, error) {
	switch policy {
	case LatestLocked:
		if r.Lockfile == nil {
			return "", "", "", fmt.Errorf("latest_behavior=locked for %s but no lockfile is loaded", rt.Name)
		}
		entry, ok := r.Lockfile.Lookup(rt.Name)
		if !ok {
			return "", "", "", fmt.Errorf("latest_behavior=locked for %s but vx.lock has no entry", rt.Name)
		}
		return entry.Version, provider.ResolvedSpecific, "", nil

	case LatestRemote:
		versions, err := r.fetchRemote(ctx, rt)
		if err != nil {
			return "", "", "", err
		}
		return maxNonPrerelease(rt, versions)

	default: // LatestInstalled
		installed := r.Store.InstalledVersions(string(rt.Ecosystem), rt.Name)
		if len(installed) > 0 {
			v, ok := maxOfEcosystem(rt, installed)
			if ok {
				return v, provider.ResolvedLatestInstalled, "", nil
			}
		}
		versions, err := r.fetchRemote(ctx, rt)
		if err != nil {
			return "", "", "", err
		}
		return maxNonPrerelease(rt, versions)
	}
}

// candidateVersions returns the version pool a range spec should match
// against: under the installed policy, the store's installed versions when
// any exist; otherwise (remote or locked policy, or nothing installed) the
// remote list. The two lists are never merged.
func (r *Resolver) candidateVersions(ctx context.Context, rt *provider.Runtime, policy LatestPolicy) ([]string, error) {
	if policy == LatestInstalled {
		if installed := r.Store.InstalledVersions(string(rt.Ecosystem), rt.Name); len(installed) > 0 {
			return installed, nil
		}
	}
	infos, err := r.fetchRemote(ctx, rt)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(infos))
	for _, vi := range infos {
		out = append(out, vi.Version)
	}
	return out, nil
}

func (r *Resolver) fetchRemote(ctx context.Context, rt *provider.Runtime) ([]provider.VersionInfo, error) {
	if r.Fetcher == nil {
		return nil, fmt.Errorf("no version fetcher configured for %s", rt.Name)
	}
	return r.Fetcher.Versions(ctx, rt.Name, rt.Versions)
}

func maxNonPrerelease(rt *provider.Runtime, infos []provider.VersionInfo) (string, provider.ResolvedVersionKind, string, error) {
	versions := make([]string, 0, len(infos))
	for _, vi := range infos {
		if !vi.Prerelease {
			versions = append(versions, vi.Version)
		}
	}
	if len(versions) == 0 {
		for _, vi := range infos {
			versions = append(versions, vi.Version)
		}
	}
	v, ok := maxOfEcosystem(rt, versions)
	if !ok {
		return "", "", "", fmt.Errorf("no versions available for %s", rt.Name)
	}
	return v, provider.ResolvedLatestRemote, "", nil
}

// maxOfEcosystem selects the highest-precedence version string using the
// comparator appropriate to rt's ecosystem: the dedicated Go-toolchain
// comparator for EcosystemGo (tolerant of an optional "go" prefix), or the
// default Masterminds/semver-backed maxOf otherwise.
func maxOfEcosystem(rt *provider.Runtime, raw []string) (string, bool) {
	if rt.Ecosystem == provider.EcosystemGo {
		return semverx.MaxToolchain(raw)
	}
	return maxOf(raw)
}

func parseLenientAll(raw []string) []*semver.Version {
	out := make([]*semver.Version, 0, len(raw))
	for _, r := range raw {
		v, err := semverx.ParseLenient(r)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func maxOf(raw []string) (string, bool) {
	parsed := parseLenientAll(raw)
	if len(parsed) == 0 {
		return "", false
	}
	semverx.SortDescending(parsed)
	return parsed[0].Original(), true
}

// classifyStatus decides whether rt@version is already installed or needs
// installing. Dependency-graph walking belongs to the constraint engine,
// invoked by the pipeline ahead of this step, so classifyStatus never
// reports StatusNeedsDependency or StatusPlatformUnsupported.
func (r *Resolver) classifyStatus(rt *provider.Runtime, version string) provider.InstallStatus {
	if r.Store != nil && r.Store.Installed(string(rt.Ecosystem), rt.Name, version) {
		return provider.InstallStatus{Kind: provider.StatusInstalled}
	}
	return provider.InstallStatus{Kind: provider.StatusNeedsInstall}
}

// DetectProxy reports whether rt should be dispatched through a proxy
// runtime rather than executed directly: an explicit `proxy` flag, a Yarn
// berry version (anything not starting with "1"), or a declared
// BundledWith parent.
func DetectProxy(rt *provider.Runtime, version string) (*provider.ProxyRuntime, bool) {
	if rt.Proxy {
		return &provider.ProxyRuntime{Name: rt.Name, Reason: "declared proxy runtime"}, true
	}
	if strings.EqualFold(rt.Name, "yarn") && !strings.HasPrefix(version, "1") {
		return &provider.ProxyRuntime{Name: rt.Name, Reason: "yarn berry (>=2.x) runs via corepack"}, true
	}
	if rt.BundledWith != "" {
		return &provider.ProxyRuntime{Name: rt.Name, Reason: fmt.Sprintf("bundled with %s", rt.BundledWith)}, true
	}
	return nil, false
}
