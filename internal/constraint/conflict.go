package constraint

import "fmt"

// ConflictKind classifies why constraint resolution failed.
type ConflictKind string

const (
	// ConflictVersionIntersectionEmpty means two or more matching rules
	// require incompatible version ranges for the same dependency.
	ConflictVersionIntersectionEmpty ConflictKind = "version-intersection-empty"
)

// ChainStep is one hop of the dependency chain that led to a conflict,
// rendered as "runtime@version requires dependency".
type ChainStep struct {
	Runtime    string
	Version    string
	Dependency string
	Constraint string
}

func (s ChainStep) String() string {
	return fmt.Sprintf("%s@%s requires %s %s", s.Runtime, s.Version, s.Dependency, s.Constraint)
}

// ConflictExplanation is a uv-style explanation of a dependency conflict:
// what went wrong, which runtimes are affected, and the chain of
// requirements that produced the contradiction.
type ConflictExplanation struct {
	Kind        ConflictKind
	Message     string
	Affected    []string
	Suggestions []string
	Chain       []ChainStep
}

func (c *ConflictExplanation) Error() string {
	return c.Message
}

// Render produces a multi-line, human-readable explanation suitable for
// CLI output: the message, then the chain of requirements, then
// suggestions.
func (c *ConflictExplanation) Render() string {
	out := c.Message + "\n"
	for _, step := range c.Chain {
		out += "  " + step.String() + "\n"
	}
	if len(c.Suggestions) > 0 {
		out += "\nSuggestions:\n"
		for _, s := range c.Suggestions {
			out += "  - " + s + "\n"
		}
	}
	return out
}

// NewVersionConflict builds a ConflictExplanation for two rules that
// require incompatible version ranges of the same dependency.
func NewVersionConflict(dependency string, chain []ChainStep, suggestions []string) *ConflictExplanation {
	affected := make([]string, 0, len(chain))
	for _, s := range chain {
		affected = append(affected, s.Runtime)
	}
	return &ConflictExplanation{
		Kind:        ConflictVersionIntersectionEmpty,
		Message:     fmt.Sprintf("conflicting version requirements for %q: no version satisfies all constraints", dependency),
		Affected:    affected,
		Suggestions: suggestions,
		Chain:       chain,
	}
}
