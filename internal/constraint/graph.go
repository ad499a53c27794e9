package constraint

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// versionToken matches a semver-like number embedded in a constraint
// string (e.g. the "20.1" in ">=20.1"), the natural candidate boundary
// for the empty-intersection probe in intersects below.
var versionToken = regexp.MustCompile(`\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z.]+)?`)

// RuleSource supplies the ConstraintRules declared by a runtime's provider,
// keyed by runtime name, so the engine can recurse into a dependency's own
// dependencies without the caller pre-flattening the tree.
type RuleSource func(runtime string) ([]ConstraintRule, error)

// Engine collects the union of matching ConstraintRule.Requires for a
// resolved primary runtime, recursively, detects cycles, and flags version
// conflicts between rules that disagree on a shared dependency.
type Engine struct {
	dag     *dag
	rules   RuleSource
	claimed map[string]claim // runtime -> the constraint that won the version slot
	walked  map[string]bool  // runtime -> its own ConstraintRules have been loaded
}

type claim struct {
	version *semver.Constraints
	raw     string
	chain   []ChainStep
}

// NewEngine creates a constraint engine that asks ruleSource for a
// runtime's ConstraintRules on demand.
func NewEngine(ruleSource RuleSource) *Engine {
	return &Engine{
		dag:     newDAG(),
		rules:   ruleSource,
		claimed: make(map[string]claim),
		walked:  make(map[string]bool),
	}
}

// Resolve walks the dependency tree starting at primaryRuntime (resolved to
// primaryVersion), collecting the transitive union of required runtimes. It
// returns execution layers (leaf dependencies first) or a *CycleError /
// *ConflictExplanation wrapped as error.
func (e *Engine) Resolve(primaryRuntime, primaryVersion string) ([]Layer, error) {
	e.dag.addNode(primaryRuntime, KindPrimary)

	if err := e.walk(primaryRuntime, primaryVersion, nil); err != nil {
		return nil, err
	}

	return e.dag.topologicalSort()
}

func (e *Engine) walk(runtime, version string, chain []ChainStep) error {
	if e.walked[runtime] {
		return nil
	}
	e.walked[runtime] = true

	rules, err := e.rules(runtime)
	if err != nil {
		return fmt.Errorf("load constraint rules for %s: %w", runtime, err)
	}

	resolvedVersion, _ := semver.NewVersion(version)

	for _, rule := range rules {
		matches := rule.When == "*" || rule.When == ""
		if !matches && resolvedVersion != nil {
			c, err := semver.NewConstraint(rule.When)
			if err == nil {
				matches = c.Check(resolvedVersion)
			}
		}
		if !matches {
			continue
		}

		for _, dep := range rule.Requires {
			if err := e.require(runtime, version, dep, append(chain, ChainStep{
				Runtime: runtime, Version: version, Dependency: dep.Runtime, Constraint: dep.Version,
			})); err != nil {
				return err
			}
		}
		for _, dep := range rule.Recommends {
			depNode := e.dag.addNode(dep.Runtime, KindRecommended)
			fromNode := e.dag.addNode(runtime, KindRequired)
			e.dag.addEdge(fromNode, depNode)
		}
	}

	return nil
}

func (e *Engine) require(fromRuntime, fromVersion string, dep DependencyDef, chain []ChainStep) error {
	fromNode := e.dag.addNode(fromRuntime, KindRequired)
	toNode := e.dag.addNode(dep.Runtime, KindRequired)
	e.dag.addEdge(fromNode, toNode)

	if dep.Version != "" && dep.Version != "*" {
		c, err := semver.NewConstraint(dep.Version)
		if err == nil {
			if existing, ok := e.claimed[dep.Runtime]; ok {
				if conflict := intersects(existing, c, dep.Version); conflict == nil {
					return NewVersionConflict(dep.Runtime, append(existing.chain, chain...), []string{
						fmt.Sprintf("pin %s to a version satisfying both %q and %q", dep.Runtime, existing.raw, dep.Version),
					})
				}
			} else {
				e.claimed[dep.Runtime] = claim{version: c, raw: dep.Version, chain: chain}
			}
		}
	}

	// Recurse into the dependency's own constraint rules so a second-level
	// requirement (npm requiring corepack, say) is discovered too. A
	// version isn't known yet for a transitive dependency at graph-build
	// time — actual version resolution happens later in the resolve
	// stage — so rule matching falls back to "*"-only rules via walk's own
	// unparseable-version handling.
	if err := e.walk(dep.Runtime, dep.Version, chain); err != nil {
		return err
	}

	if cycle := e.dag.detectCycle(); cycle != nil {
		return NewCycleError(cycle)
	}

	return nil
}

// intersects reports whether two version constraints can be simultaneously
// satisfied, returning nil when they cannot — callers treat a nil return
// as "no intersection", i.e. a conflict. Masterminds/semver has no native
// intersection API, so this probes with candidate versions drawn from the
// numbers named in either constraint string (the natural boundaries a
// "requires" rule writes, e.g. the 20.1 and 20.2 in ">=20.1" / ">=20.2"):
// if any candidate satisfies both constraints, the ranges overlap.
func intersects(existing claim, next *semver.Constraints, nextRaw string) *semver.Constraints {
	if existing.raw == "*" || nextRaw == "*" {
		return next
	}

	for _, tok := range versionToken.FindAllString(existing.raw+" "+nextRaw, -1) {
		v, err := semver.NewVersion(tok)
		if err != nil {
			continue
		}
		bumped := v.IncPatch()
		for _, c := range []*semver.Version{v, &bumped} {
			if existing.version.Check(c) && next.Check(c) {
				return next
			}
		}
	}
	return nil
}

// Graph exposes read access to the built dependency graph for diagnostics
// (doctor, plan export) without re-running resolution.
func (e *Engine) Graph() (nodes []*Node, edges []Edge) {
	for _, n := range e.dag.nodes {
		nodes = append(nodes, n)
	}
	for from, deps := range e.dag.edges {
		for to := range deps {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return nodes, edges
}
