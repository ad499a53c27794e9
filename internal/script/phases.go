package script

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/loonghao/vx/internal/provider"
)

// DetectedInstallation is one entry of detect_system_installation's result,
// sorted by Priority descending by the script.
type DetectedInstallation struct {
	Type     string
	Path     string
	Version  string
	Priority int
}

// VerifyResult is verify_installation's result.
type VerifyResult struct {
	Valid       bool
	Executable  string
	Errors      []string
	Suggestions []string
}

// InstallResult is install's result.
type InstallResult struct {
	Success          bool
	Path             string
	AlreadyInstalled bool
	Error            string
}

// PostInstallAction is post_install's result; Kind is "symlink", "chmod",
// "deploy_bridge", or any other action the script names. Fields not
// relevant to Kind are empty.
type PostInstallAction struct {
	Kind string
	Src  string
	Dst  string
	Mode string
}

// FetchVersions runs the optional fetch_versions(ctx) hook, used when a
// runtime prefers scripted version discovery over a declared VersionSourceSpec.
func (p *Provider) FetchVersions(ctx *starlarkstruct.Struct) ([]provider.VersionInfo, error) {
	v, found, err := p.call("fetch_versions", ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return toVersionInfoList(v)
}

func toVersionInfoList(v starlark.Value) ([]provider.VersionInfo, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("fetch_versions: expected list, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()

	var out []provider.VersionInfo
	var item starlark.Value
	for iter.Next(&item) {
		mapping, ok := item.(starlark.Mapping)
		if !ok {
			return nil, fmt.Errorf("fetch_versions: expected dict entries")
		}
		version, _ := attrString(mapping, "version")
		out = append(out, provider.VersionInfo{
			Version:    version,
			LTS:        attrBool(mapping, "lts"),
			Prerelease: attrBool(mapping, "prerelease"),
		})
	}
	return out, nil
}

// DownloadURL runs download_url(ctx, version). A nil result (no error, empty
// string) means the script declined — the runtime has no direct download
// path and relies on install() to do its own fetching.
func (p *Provider) DownloadURL(ctx *starlarkstruct.Struct, version string) (string, error) {
	v, found, err := p.call("download_url", ctx, starlark.String(version))
	if err != nil {
		return "", err
	}
	if !found || v == starlark.None {
		return "", nil
	}
	return starlarkToString(v)
}

// DetectSystemInstallation runs detect_system_installation(ctx).
func (p *Provider) DetectSystemInstallation(ctx *starlarkstruct.Struct) ([]DetectedInstallation, error) {
	v, found, err := p.call("detect_system_installation", ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("detect_system_installation: expected list, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()

	var out []DetectedInstallation
	var item starlark.Value
	for iter.Next(&item) {
		mapping, ok := item.(starlark.Mapping)
		if !ok {
			return nil, fmt.Errorf("detect_system_installation: expected dict entries")
		}
		typ, _ := attrString(mapping, "type")
		path, _ := attrString(mapping, "path")
		version, _ := attrString(mapping, "version")
		priority := 0
		if pv, found := attrValue(mapping, "priority"); found {
			if i, ok := pv.(starlark.Int); ok {
				if n, ok := i.Int64(); ok {
					priority = int(n)
				}
			}
		}
		out = append(out, DetectedInstallation{Type: typ, Path: path, Version: version, Priority: priority})
	}
	return out, nil
}

// PrepareEnvironment runs prepare_environment(ctx, version), returning the
// environment variables the runtime needs merged onto the session/shell.
func (p *Provider) PrepareEnvironment(ctx *starlarkstruct.Struct, version string) (map[string]string, error) {
	v, found, err := p.call("prepare_environment", ctx, starlark.String(version))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return starlarkToStringMap(v)
}

// VerifyInstallation runs verify_installation(ctx, version).
func (p *Provider) VerifyInstallation(ctx *starlarkstruct.Struct, version string) (*VerifyResult, error) {
	v, found, err := p.call("verify_installation", ctx, starlark.String(version))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	mapping, ok := v.(starlark.Mapping)
	if !ok {
		return nil, fmt.Errorf("verify_installation: expected dict, got %s", v.Type())
	}

	result := &VerifyResult{Valid: attrBool(mapping, "valid")}
	result.Executable, _ = attrString(mapping, "executable")
	if errsVal, found := attrValue(mapping, "errors"); found {
		result.Errors, _ = starlarkToStringList(errsVal)
	}
	if sugVal, found := attrValue(mapping, "suggestions"); found {
		result.Suggestions, _ = starlarkToStringList(sugVal)
	}
	return result, nil
}

// CheckMissingComponents runs check_missing_components(ctx, version, components).
func (p *Provider) CheckMissingComponents(ctx *starlarkstruct.Struct, version string, components []string) ([]string, error) {
	compVals := make([]starlark.Value, 0, len(components))
	for _, c := range components {
		compVals = append(compVals, starlark.String(c))
	}
	v, found, err := p.call("check_missing_components", ctx, starlark.String(version), starlark.NewList(compVals))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return starlarkToStringList(v)
}

// StoreRoot runs store_root(ctx).
func (p *Provider) StoreRoot(ctx *starlarkstruct.Struct) (string, error) {
	v, found, err := p.call("store_root", ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return starlarkToString(v)
}

// GetExecutePath runs get_execute_path(ctx, version).
func (p *Provider) GetExecutePath(ctx *starlarkstruct.Struct, version string) (string, error) {
	v, found, err := p.call("get_execute_path", ctx, starlark.String(version))
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return starlarkToString(v)
}

// ResolveVersion runs the optional resolve_version(ctx, spec) override hook.
// A caller should only invoke this ahead of the standard fallback chain when
// the runtime has opted in via a `custom_resolver = true` top-level flag —
// the script itself cannot jump the queue unconditionally.
func (p *Provider) ResolveVersion(ctx *starlarkstruct.Struct, spec string) (string, error) {
	v, found, err := p.call("resolve_version", ctx, starlark.String(spec))
	if err != nil {
		return "", err
	}
	if !found || v == starlark.None {
		return "", nil
	}
	return starlarkToString(v)
}

// CustomResolver reports whether the script's top-level `custom_resolver`
// flag is set, gating ResolveVersion's precedence over the standard chain.
func (p *Provider) CustomResolver() bool {
	v, ok := p.globals["custom_resolver"]
	if !ok {
		return false
	}
	return starlarkToBool(v)
}

// Install runs the Phase 2 install(ctx, version) entry point.
func (p *Provider) Install(ctx *starlarkstruct.Struct, version string) (*InstallResult, error) {
	v, found, err := p.call("install", ctx, starlark.String(version))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("provider %s declares no install() function", p.Path)
	}
	mapping, ok := v.(starlark.Mapping)
	if !ok {
		return nil, fmt.Errorf("install: expected dict, got %s", v.Type())
	}

	result := &InstallResult{Success: attrBool(mapping, "success")}
	result.Path, _ = attrString(mapping, "path")
	result.AlreadyInstalled = attrBool(mapping, "already_installed")
	result.Error, _ = attrString(mapping, "error")
	return result, nil
}

// PostInstall runs the optional post_install(ctx, version, install_dir) hook.
func (p *Provider) PostInstall(ctx *starlarkstruct.Struct, version, installDir string) (*PostInstallAction, error) {
	v, found, err := p.call("post_install", ctx, starlark.String(version), starlark.String(installDir))
	if err != nil {
		return nil, err
	}
	if !found || v == starlark.None {
		return nil, nil
	}
	mapping, ok := v.(starlark.Mapping)
	if !ok {
		return nil, fmt.Errorf("post_install: expected dict, got %s", v.Type())
	}

	action := &PostInstallAction{}
	action.Kind, _ = attrString(mapping, "type")
	action.Src, _ = attrString(mapping, "src")
	action.Dst, _ = attrString(mapping, "dst")
	action.Mode, _ = attrString(mapping, "mode")
	return action, nil
}
