package script

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/Masterminds/semver/v3"
	"github.com/loonghao/vx/internal/semverx"
)

// stdlibModules is the fixed table of modules a provider script may load via
// load("@vx//stdlib:<module>.star", "<sym>"). There is no filesystem access
// behind this loader — every module is a Go-backed virtual file, so a
// script can never load() its way outside the sandbox.
var stdlibModules = map[string]starlark.StringDict{
	"semver.star":   semverModule(),
	"platform.star": platformModule(),
	"strings.star":  stringsModule(),
}

// stdlibLoader is the starlark.Thread.Load callback shared by every Provider
// evaluation. It accepts only the "@vx//stdlib:<name>.star" form; anything
// else, including relative paths and bare module names, is rejected so a
// script cannot pull in arbitrary files from disk.
func stdlibLoader(_ *starlark.Thread, module string) (starlark.StringDict, error) {
	const prefix = "@vx//stdlib:"
	if !strings.HasPrefix(module, prefix) {
		return nil, fmt.Errorf("load: only @vx//stdlib: modules are permitted, got %q", module)
	}
	name := strings.TrimPrefix(module, prefix)
	mod, ok := stdlibModules[name]
	if !ok {
		return nil, fmt.Errorf("load: unknown stdlib module %q", name)
	}
	return mod, nil
}

func builtinFunc(name string, fn func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)) starlark.Value {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return fn(args, kwargs)
	})
}

func semverModule() starlark.StringDict {
	return starlark.StringDict{
		"satisfies": builtinFunc("satisfies", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var version, constraint string
			if err := starlark.UnpackArgs("satisfies", args, kwargs, "version", &version, "constraint", &constraint); err != nil {
				return nil, err
			}
			spec, err := semverx.ParseSpec(constraint)
			if err != nil {
				return nil, err
			}
			v, err := semverx.ParseLenient(version)
			if err != nil {
				return nil, err
			}
			return starlark.Bool(spec.Satisfies(v)), nil
		}),
		"strip_prefix": builtinFunc("strip_prefix", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var version, prefix string
			if err := starlark.UnpackArgs("strip_prefix", args, kwargs, "version", &version, "prefix?", &prefix); err != nil {
				return nil, err
			}
			if prefix == "" {
				prefix = "v"
			}
			return starlark.String(semverx.StripPrefix(version, prefix)), nil
		}),
		"is_prerelease": builtinFunc("is_prerelease", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var version string
			if err := starlark.UnpackArgs("is_prerelease", args, kwargs, "version", &version); err != nil {
				return nil, err
			}
			return starlark.Bool(semverx.IsPrereleaseMarker(version)), nil
		}),
		"sort_descending": builtinFunc("sort_descending", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var versionsVal starlark.Value
			if err := starlark.UnpackArgs("sort_descending", args, kwargs, "versions", &versionsVal); err != nil {
				return nil, err
			}
			raw, err := starlarkToStringList(versionsVal)
			if err != nil {
				return nil, err
			}
			parsed := make([]*semver.Version, 0, len(raw))
			for _, r := range raw {
				v, err := semverx.ParseLenient(r)
				if err != nil {
					continue
				}
				parsed = append(parsed, v)
			}
			semverx.SortDescending(parsed)
			vals := make([]starlark.Value, 0, len(parsed))
			for _, v := range parsed {
				vals = append(vals, starlark.String(v.Original()))
			}
			return starlark.NewList(vals), nil
		}),
	}
}

func platformModule() starlark.StringDict {
	return starlark.StringDict{
		"os":   starlark.String(osName()),
		"arch": starlark.String(archName()),
		"is_windows": builtinFunc("is_windows", func(_ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			return starlark.Bool(osName() == "windows"), nil
		}),
		"info": starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
			"os":   starlark.String(osName()),
			"arch": starlark.String(archName()),
		}),
	}
}

func stringsModule() starlark.StringDict {
	return starlark.StringDict{
		"has_prefix": builtinFunc("has_prefix", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s, prefix string
			if err := starlark.UnpackArgs("has_prefix", args, kwargs, "s", &s, "prefix", &prefix); err != nil {
				return nil, err
			}
			return starlark.Bool(strings.HasPrefix(s, prefix)), nil
		}),
		"has_suffix": builtinFunc("has_suffix", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s, suffix string
			if err := starlark.UnpackArgs("has_suffix", args, kwargs, "s", &s, "suffix", &suffix); err != nil {
				return nil, err
			}
			return starlark.Bool(strings.HasSuffix(s, suffix)), nil
		}),
		"trim_space": builtinFunc("trim_space", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s string
			if err := starlark.UnpackArgs("trim_space", args, kwargs, "s", &s); err != nil {
				return nil, err
			}
			return starlark.String(strings.TrimSpace(s)), nil
		}),
	}
}
