package script

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"go.starlark.net/starlark"

	vxerrors "github.com/loonghao/vx/internal/errors"
	"github.com/loonghao/vx/internal/provider"
)

// DefaultWallClock is the wall-clock limit applied to every script function
// call, per spec.md §4.3. DefaultMemoryLimitBytes is declared alongside it
// but not enforced (see callWithTimeout).
const (
	DefaultMemoryLimitBytes = 64 * 1024 * 1024
	DefaultWallClock        = 60 * time.Second
)

// Metadata is the frozen result of Phase 1 analysis: the provider's
// identity, cached keyed by the SHA-256 of the script source so repeated
// loads of an unchanged script skip re-running the analysis functions.
type Metadata struct {
	Name               string
	Description        string
	Version            string
	Ecosystem          string
	Aliases            []string
	SupportedPlatforms []provider.Platform
}

var analysisCache sync.Map // sha256 hex -> *Metadata

// Provider is a loaded `provider.star` script: its frozen globals plus the
// declared sandbox Permissions.
type Provider struct {
	Path        string
	SourceSHA   string
	Permissions Permissions

	globals starlark.StringDict
}

// Load reads and evaluates a provider.star file. Evaluation happens once;
// the returned Provider's top-level functions are called on demand by
// Analyze/Install/etc, each under its own Sandbox-bound ctx.
func Load(path string) (*Provider, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script provider %s: %w", path, err)
	}

	sum := sha256.Sum256(source)
	sha := hex.EncodeToString(sum[:])

	thread := &starlark.Thread{
		Name: path,
		Load: stdlibLoader,
	}

	globals, err := starlark.ExecFile(thread, path, source, nil)
	if err != nil {
		return nil, vxerrors.NewScriptError(path, "<module>", err)
	}

	perms, err := parsePermissions(globals)
	if err != nil {
		return nil, err
	}

	return &Provider{Path: path, SourceSHA: sha, Permissions: perms, globals: globals}, nil
}

func parsePermissions(globals starlark.StringDict) (Permissions, error) {
	raw, ok := globals["permissions"]
	if !ok {
		return Permissions{}, nil
	}

	mapping, ok := raw.(starlark.Mapping)
	if !ok {
		return Permissions{}, fmt.Errorf("top-level `permissions` must be a dict")
	}

	var perms Permissions
	if v, found := attrValue(mapping, "fs"); found {
		list, err := starlarkToStringList(v)
		if err != nil {
			return Permissions{}, fmt.Errorf("permissions.fs: %w", err)
		}
		perms.FS = list
	}
	if v, found := attrValue(mapping, "http"); found {
		list, err := starlarkToStringList(v)
		if err != nil {
			return Permissions{}, fmt.Errorf("permissions.http: %w", err)
		}
		perms.HTTP = list
	}
	if v, found := attrValue(mapping, "exec"); found {
		list, err := starlarkToStringList(v)
		if err != nil {
			return Permissions{}, fmt.Errorf("permissions.exec: %w", err)
		}
		perms.Exec = list
	}
	return perms, nil
}

// HasFunction reports whether the script defines a top-level callable by
// name (used to probe optional hooks like resolve_version before calling).
func (p *Provider) HasFunction(name string) bool {
	v, ok := p.globals[name]
	if !ok {
		return false
	}
	_, callable := v.(starlark.Callable)
	return callable
}

// call invokes a top-level script function under a fresh Thread, enforcing
// the wall-clock limit. Returns (nil, false, nil) if the function isn't
// defined at all. Only install() is required (Install reports its absence
// as an error); a missing name() leaves Metadata.Name empty.
func (p *Provider) call(functionName string, args ...starlark.Value) (starlark.Value, bool, error) {
	fnVal, ok := p.globals[functionName]
	if !ok {
		return nil, false, nil
	}
	callable, ok := fnVal.(starlark.Callable)
	if !ok {
		return nil, false, fmt.Errorf("%s is not callable", functionName)
	}

	thread := &starlark.Thread{Name: p.Path, Load: stdlibLoader}

	result, err := callWithTimeout(thread, DefaultWallClock, func() (starlark.Value, error) {
		return starlark.Call(thread, callable, starlark.Tuple(args), nil)
	})
	if err != nil {
		if isCancelled(err) {
			return nil, true, vxerrors.NewResourceExhaustedError(p.Path, functionName, "wall-clock", DefaultWallClock)
		}
		return nil, true, vxerrors.NewScriptError(p.Path, functionName, err)
	}
	return result, true, nil
}

// Analyze runs Phase 1, returning this script's identity metadata. Results
// are cached by the script's source SHA-256, so re-loading an unchanged
// script skips re-execution.
func (p *Provider) Analyze() (*Metadata, error) {
	if cached, ok := analysisCache.Load(p.SourceSHA); ok {
		return cached.(*Metadata), nil
	}

	meta := &Metadata{}

	if v, found, err := p.call("name"); err != nil {
		return nil, err
	} else if found {
		meta.Name, err = starlarkToString(v)
		if err != nil {
			return nil, fmt.Errorf("name(): %w", err)
		}
	}

	if v, found, err := p.call("description"); err != nil {
		return nil, err
	} else if found {
		meta.Description, _ = starlarkToString(v)
	}

	if v, found, err := p.call("version"); err != nil {
		return nil, err
	} else if found {
		meta.Version, _ = starlarkToString(v)
	}

	if v, found, err := p.call("ecosystem"); err != nil {
		return nil, err
	} else if found {
		meta.Ecosystem, _ = starlarkToString(v)
	}

	if v, found, err := p.call("aliases"); err != nil {
		return nil, err
	} else if found {
		meta.Aliases, _ = starlarkToStringList(v)
	}

	if v, found, err := p.call("supported_platforms"); err != nil {
		return nil, err
	} else if found {
		plats, err := toPlatformList(v)
		if err != nil {
			return nil, fmt.Errorf("supported_platforms(): %w", err)
		}
		meta.SupportedPlatforms = plats
	}

	analysisCache.Store(p.SourceSHA, meta)
	return meta, nil
}

func toPlatformList(v starlark.Value) ([]provider.Platform, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("expected list")
	}
	iter := iterable.Iterate()
	defer iter.Done()

	var out []provider.Platform
	var item starlark.Value
	for iter.Next(&item) {
		mapping, ok := item.(starlark.Mapping)
		if !ok {
			return nil, fmt.Errorf("expected dict entries")
		}
		osName, _ := attrString(mapping, "os")
		arch, _ := attrString(mapping, "arch")
		out = append(out, provider.Platform{OS: osName, Arch: arch})
	}
	return out, nil
}
