// Package manifest parses provider.toml (and *.override.toml) files: the
// declarative Provider/Runtime format, validated against an embedded CUE
// schema before being unmarshaled into Go structs.
package manifest

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/loonghao/vx/internal/constraint"
	"github.com/loonghao/vx/internal/manifest/schema"
	"github.com/loonghao/vx/internal/provider"
)

// ProviderDecl is the decoded [provider] section.
type ProviderDecl struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Ecosystem   string `toml:"ecosystem"`
	Homepage    string `toml:"homepage"`
	Repository  string `toml:"repository"`
}

// VersionSourceDecl is the decoded [runtimes.versions] section.
type VersionSourceDecl struct {
	Source       string `toml:"source"`
	Owner        string `toml:"owner"`
	Repo         string `toml:"repo"`
	StripVPrefix bool   `toml:"strip_v_prefix"`
	TagPrefix    string `toml:"tag_prefix"`
	LTSPattern   string `toml:"lts_pattern"`
}

// PlatformDecl is the decoded [runtimes.platforms.<os>] section.
type PlatformDecl struct {
	Env map[string]string `toml:"env"`
}

// ConstraintDeclDependency is the decoded shape of a requires/recommends entry.
type ConstraintDeclDependency struct {
	Runtime     string `toml:"runtime"`
	Version     string `toml:"version"`
	Recommended string `toml:"recommended"`
	Reason      string `toml:"reason"`
	Optional    bool   `toml:"optional"`
}

// ConstraintDecl is one [[runtimes.constraints]] entry.
type ConstraintDecl struct {
	When       string                     `toml:"when"`
	Requires   []ConstraintDeclDependency `toml:"requires"`
	Recommends []ConstraintDeclDependency `toml:"recommends"`
}

// RuntimeDecl is the decoded shape of one [[runtimes]] entry.
type RuntimeDecl struct {
	Name              string            `toml:"name"`
	Description       string            `toml:"description"`
	Executable        string            `toml:"executable"`
	Aliases           []string          `toml:"aliases"`
	BundledWith       string            `toml:"bundled_with"`
	RuntimeDependency string            `toml:"runtime_dependency"`
	CommandPrefix     []string          `toml:"command_prefix"`
	SystemPaths       []string          `toml:"system_paths"`
	Versions          VersionSourceDecl `toml:"versions"`
	Constraints       []ConstraintDecl  `toml:"constraints"`
	Hooks             map[string]string `toml:"hooks"`

	Platforms map[string]PlatformDecl `toml:"platforms"`
}

// Manifest is a fully decoded provider.toml.
type Manifest struct {
	Provider ProviderDecl  `toml:"provider"`
	Runtimes []RuntimeDecl `toml:"runtimes"`
}

// Load reads and validates a provider.toml file at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes raw TOML bytes into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return &m, nil
}

// validate checks decoded TOML against the embedded CUE schema, returning
// a BuildError-style message naming the offending field on mismatch.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(schema.SchemaCUE)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal schema error: %w", schemaValue.Err())
	}
	manifestSchema := schemaValue.LookupPath(cue.ParsePath("#Manifest"))

	dataValue := ctx.Encode(raw)
	if dataValue.Err() != nil {
		return fmt.Errorf("encode manifest for validation: %w", dataValue.Err())
	}

	unified := manifestSchema.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("manifest does not satisfy schema: %w", err)
	}

	return nil
}

// ToRuntimes converts the decoded manifest into provider.Runtime domain
// objects belonging to the given provider.Provider (Provider is set on
// each Runtime, but the Provider's own Runtimes slice is left to the
// caller so partial-load errors don't leave it half-populated).
func (m *Manifest) ToRuntimes() []*provider.Runtime {
	runtimes := make([]*provider.Runtime, 0, len(m.Runtimes))
	for _, decl := range m.Runtimes {
		runtimes = append(runtimes, decl.toRuntime())
	}
	return runtimes
}

func (d *RuntimeDecl) toRuntime() *provider.Runtime {
	platforms := make(map[string]provider.PlatformOverride, len(d.Platforms))
	for osName, p := range d.Platforms {
		platforms[osName] = provider.PlatformOverride{Env: p.Env}
	}

	constraints := make([]constraint.ConstraintRule, 0, len(d.Constraints))
	for _, c := range d.Constraints {
		constraints = append(constraints, constraint.ConstraintRule{
			When:       c.When,
			Requires:   toDependencyDefs(c.Requires),
			Recommends: toDependencyDefs(c.Recommends),
		})
	}

	return &provider.Runtime{
		Name:              d.Name,
		Executable:        d.Executable,
		Aliases:           d.Aliases,
		Description:       d.Description,
		BundledWith:       d.BundledWith,
		RuntimeDependency: d.RuntimeDependency,
		CommandPrefix:     d.CommandPrefix,
		SystemPaths:       d.SystemPaths,
		Constraints:       constraints,
		Hooks:             d.Hooks,
		Platforms:         platforms,
		Versions: provider.VersionSourceSpec{
			Source:       d.Versions.Source,
			Owner:        d.Versions.Owner,
			Repo:         d.Versions.Repo,
			StripVPrefix: d.Versions.StripVPrefix,
			TagPrefix:    d.Versions.TagPrefix,
			LTSPattern:   d.Versions.LTSPattern,
		},
	}
}

func toDependencyDefs(decls []ConstraintDeclDependency) []constraint.DependencyDef {
	deps := make([]constraint.DependencyDef, 0, len(decls))
	for _, d := range decls {
		deps = append(deps, constraint.DependencyDef{
			Runtime:     d.Runtime,
			Version:     d.Version,
			Recommended: d.Recommended,
			Reason:      d.Reason,
			Optional:    d.Optional,
		})
	}
	return deps
}
