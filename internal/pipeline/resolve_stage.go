package pipeline

import (
	"context"
	"fmt"

	"github.com/loonghao/vx/internal/constraint"
	vxerrors "github.com/loonghao/vx/internal/errors"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/resolve"
)

// ResolveRequest is the user-facing invocation: a runtime name, an
// optional explicit version spec (empty means "run the usual fallback
// chain"), and the trailing args/cwd/env overrides ExecuteStage needs.
type ResolveRequest struct {
	Runtime      string
	Spec         string
	Args         []string
	WorkingDir   string
	EnvOverrides map[string]string
	Injected     []string // extra runtimes pulled in via --with
}

// Resolve is ResolveStage: it resolves req.Runtime's own version, walks the
// constraint engine to find every runtime it (transitively) requires, and
// resolves each of those too, returning a plan EnsureStage can install and
// PrepareStage/ExecuteStage can run.
func (p *Pipeline) Resolve(ctx context.Context, req ResolveRequest) (*provider.ExecutionPlan, error) {
	primaryRT, ok := p.runtimes(req.Runtime)
	if !ok {
		return nil, vxerrors.NewResolverError(vxerrors.CodeNoMatchingVersion, req.Runtime, req.Spec,
			fmt.Sprintf("unknown runtime %q", req.Runtime))
	}

	primary, err := p.resolver.Resolve(ctx, resolve.Request{Runtime: primaryRT, ExplicitSpec: req.Spec})
	if err != nil {
		return nil, err
	}

	if proxy, ok := resolve.DetectProxy(primaryRT, primary.Version.Version); ok {
		return &provider.ExecutionPlan{
			Primary: *primary,
			Proxy:   proxy,
			Config:  p.planConfig(req),
		}, nil
	}

	deps, err := p.resolveDependencies(ctx, primaryRT.Name, primary.Version.Version)
	if err != nil {
		return nil, err
	}

	injected, err := p.resolveInjected(ctx, req.Injected)
	if err != nil {
		return nil, err
	}

	return &provider.ExecutionPlan{
		Primary:      *primary,
		Dependencies: deps,
		Injected:     injected,
		Config:       p.planConfig(req),
	}, nil
}

func (p *Pipeline) planConfig(req ResolveRequest) provider.PlanConfig {
	return provider.PlanConfig{
		Args:         req.Args,
		WorkingDir:   req.WorkingDir,
		EnvOverrides: req.EnvOverrides,
	}
}

// resolveDependencies walks constraint.Engine.Resolve for primaryRuntime's
// transitive requires, then resolves a concrete version for every runtime
// that introduces, in leaf-first layer order (so EnsureStage's sequential
// fallback path, were it needed, would install dependencies before
// dependents).
func (p *Pipeline) resolveDependencies(ctx context.Context, primaryRuntime, primaryVersion string) ([]provider.ResolvedRuntime, error) {
	ruleSource := func(name string) ([]constraint.ConstraintRule, error) {
		rt, ok := p.runtimes(name)
		if !ok {
			return nil, fmt.Errorf("unknown runtime %q in dependency graph", name)
		}
		return rt.Constraints, nil
	}

	engine := constraint.NewEngine(ruleSource)
	layers, err := engine.Resolve(primaryRuntime, primaryVersion)
	if err != nil {
		return nil, err
	}

	var deps []provider.ResolvedRuntime
	for _, layer := range layers {
		for _, node := range layer.Nodes {
			if node.Runtime == primaryRuntime {
				continue
			}
			rt, ok := p.runtimes(node.Runtime)
			if !ok {
				return nil, fmt.Errorf("unknown runtime %q in dependency graph", node.Runtime)
			}
			resolved, err := p.resolver.Resolve(ctx, resolve.Request{Runtime: rt, ExplicitSpec: "latest"})
			if err != nil {
				return nil, err
			}
			deps = append(deps, *resolved)
		}
	}
	return deps, nil
}

func (p *Pipeline) resolveInjected(ctx context.Context, names []string) ([]provider.ResolvedRuntime, error) {
	var out []provider.ResolvedRuntime
	for _, name := range names {
		rt, ok := p.runtimes(name)
		if !ok {
			return nil, vxerrors.NewResolverError(vxerrors.CodeNoMatchingVersion, name, "latest",
				fmt.Sprintf("unknown runtime %q", name))
		}
		resolved, err := p.resolver.Resolve(ctx, resolve.Request{Runtime: rt, ExplicitSpec: "latest"})
		if err != nil {
			return nil, err
		}
		out = append(out, *resolved)
	}
	return out, nil
}
