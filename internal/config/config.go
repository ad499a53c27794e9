// Package config loads the user defaults file (~/.vx/config.toml) and a
// project's vx.toml, both TOML documents decoded with BurntSushi/toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// UserConfig is the decoded shape of ~/.vx/config.toml.
type UserConfig struct {
	Defaults   map[string]string        `toml:"defaults"`
	Registries map[string]RegistrySpec `toml:"registries"`
}

// RegistrySpec is one `[registries.<name>]` table: an additional provider
// source layered on top of the built-in registry, at lower precedence than
// the project's own `.vx/providers/`.
type RegistrySpec struct {
	// Type is the only source kind currently supported: "git".
	Type string `toml:"type"`
	// URL is the clone URL for a "git" registry.
	URL string `toml:"url"`
	// Ref is an optional branch or tag to check out; the default branch
	// is used when empty.
	Ref string `toml:"ref"`
}

// DefaultUserConfig returns an empty, ready-to-use UserConfig.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{Defaults: make(map[string]string), Registries: make(map[string]RegistrySpec)}
}

// LoadUserConfig loads the user defaults file. A missing file is not an
// error; it yields DefaultUserConfig.
func LoadUserConfig(path string) (*UserConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultUserConfig(), nil
	}

	cfg := DefaultUserConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if cfg.Defaults == nil {
		cfg.Defaults = make(map[string]string)
	}
	if cfg.Registries == nil {
		cfg.Registries = make(map[string]RegistrySpec)
	}
	return cfg, nil
}

// ProjectConfig is the decoded shape of a project's vx.toml.
type ProjectConfig struct {
	Tools       map[string]string
	ToolsGlobal map[string]string
	Env         map[string]string `toml:"env"`
	Scripts     map[string]struct {
		Run string `toml:"run"`
	} `toml:"scripts"`
}

// DefaultProjectConfig returns an empty, ready-to-use ProjectConfig.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Tools:       make(map[string]string),
		ToolsGlobal: make(map[string]string),
		Env:         make(map[string]string),
		Scripts: make(map[string]struct {
			Run string `toml:"run"`
		}),
	}
}

// LoadProjectConfig loads a vx.toml file. A missing file is not an error;
// it yields DefaultProjectConfig.
//
// [tools] mixes scalar tool-version entries with a nested [tools.global]
// table, a shape BurntSushi/toml can't decode directly into a single
// map[string]string, so [tools] is decoded into a map of toml.Primitive
// values and each key is decoded on its own: "global" as the nested
// table, every other key as a scalar version string.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultProjectConfig(), nil
	}

	var raw struct {
		Tools   map[string]toml.Primitive `toml:"tools"`
		Env     map[string]string         `toml:"env"`
		Scripts map[string]struct {
			Run string `toml:"run"`
		} `toml:"scripts"`
	}
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg := DefaultProjectConfig()
	for name, prim := range raw.Tools {
		if name == "global" {
			var global map[string]string
			if err := md.PrimitiveDecode(prim, &global); err == nil {
				cfg.ToolsGlobal = global
			}
			continue
		}
		var spec string
		if err := md.PrimitiveDecode(prim, &spec); err == nil {
			cfg.Tools[name] = spec
		}
	}
	if raw.Env != nil {
		cfg.Env = raw.Env
	}
	if raw.Scripts != nil {
		cfg.Scripts = raw.Scripts
	}

	return cfg, nil
}

// FindProjectConfigFile walks upward from startDir looking for a vx.toml,
// the same directory-walk the legacy-version-file fallback uses. It
// returns the first match and true, or "" and false if the filesystem
// root is reached with no match.
func FindProjectConfigFile(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(dir, "vx.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
