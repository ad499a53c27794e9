package constraint

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	vxerrors "github.com/loonghao/vx/internal/errors"
)

// CycleError represents a circular runtime dependency, reported to the
// caller as errors.ResolverError with CodeCyclicDependency via AsResolverError.
type CycleError struct {
	Cycle []NodeID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %v", e.Cycle)
}

// FormatCycle renders the cycle as a human-readable arrow chain, mirroring
// the rendering the CLI uses for other dependency errors.
func (e *CycleError) FormatCycle(noColor bool) string {
	if len(e.Cycle) == 0 {
		return "circular dependency detected (empty cycle)"
	}
	if noColor {
		color.NoColor = true
	}

	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	var sb strings.Builder
	sb.WriteString(red.Sprint("Error: circular dependency detected"))
	sb.WriteString("\n\n")

	for i, node := range e.Cycle {
		sb.WriteString("  ")
		if i == len(e.Cycle)-1 {
			sb.WriteString(red.Sprintf("%s", node))
			sb.WriteString(yellow.Sprint("  ← cycle"))
		} else {
			sb.WriteString(cyan.Sprintf("%s", node))
		}
		sb.WriteString("\n")
		if i < len(e.Cycle)-1 {
			sb.WriteString("      ")
			sb.WriteString(yellow.Sprint("↓"))
			sb.WriteString(" requires\n")
		}
	}

	return sb.String()
}

// NewCycleError creates a CycleError from a cycle path.
func NewCycleError(cycle []NodeID) *CycleError {
	return &CycleError{Cycle: cycle}
}

// AsResolverError converts a CycleError into the structured
// errors.ResolverError with CodeCyclicDependency, per spec's
// ResolverError::DependencyCycle(path).
func (e *CycleError) AsResolverError() *vxerrors.ResolverError {
	names := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		names[i] = string(n)
	}
	re := vxerrors.NewResolverError(
		vxerrors.CodeCyclicDependency,
		names[0],
		"",
		"circular runtime dependency: "+strings.Join(names, " -> "),
	)
	return re.WithCandidates(names)
}
