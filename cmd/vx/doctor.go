package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loonghao/vx/internal/cliutil"
	"github.com/loonghao/vx/internal/doctor"
	"github.com/loonghao/vx/internal/shim"
)

var doctorNoColor bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the vx-managed environment",
	Long: `Diagnose the vx-managed environment for potential issues.

Checks for:
  - Unmanaged tools shadowing vx's global shims and project .vx/bin entries
  - Tools found in more than one vx-managed location
  - Shim symlinks whose store target has gone missing`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorNoColor, "no-color", false, "Disable color output")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if doctorNoColor {
		color.NoColor = true
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	a, err := newApp(projectRoot)
	if err != nil {
		return err
	}

	scanPaths := map[string]string{
		"vx":      a.paths.ShimsDir(),
		"project": shim.ProjectBinDir(projectRoot),
	}
	shims, err := shim.Entries(a.paths.ShimsDir())
	if err != nil {
		return err
	}

	doc := doctor.New(scanPaths, shim.ManagedFunc(a.paths.ShimsDir()), shims)
	result, err := doc.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("doctor check failed: %w", err)
	}

	printDoctorResult(cmd, result)
	return nil
}

func printDoctorResult(cmd *cobra.Command, result *doctor.Result) {
	style := cliutil.NewStyle()

	style.Header.Fprintln(cmd.OutOrStdout(), "Environment Health Check")
	cmd.Println()

	if !result.HasIssues() {
		cmd.Printf("%s No issues found. Environment is healthy.\n", style.SuccessMark)
		return
	}

	warningCount := 0
	conflictCount := len(result.Conflicts)
	stateIssueCount := len(result.StateIssues)

	for category, tools := range result.UnmanagedTools {
		if len(tools) == 0 {
			continue
		}
		warningCount += len(tools)

		cmd.Printf("[%s]\n", color.New(color.FgYellow).Sprint(category))
		for _, tool := range tools {
			cmd.Printf("  %s %-16s unmanaged (%s)\n", style.WarnMark, tool.Name, style.Path.Sprint(tool.Path))
		}
		cmd.Println()
	}

	if len(result.Conflicts) > 0 {
		cmd.Printf("[%s]\n", color.New(color.FgRed).Sprint("Conflicts"))
		for _, conflict := range result.Conflicts {
			cmd.Printf("  %s %s: found in %s\n", style.FailMark, conflict.Name, strings.Join(conflict.Locations, ", "))
			if conflict.ResolvedTo != "" {
				cmd.Printf("       PATH resolves to: %s\n", style.Path.Sprint(conflict.ResolvedTo))
			}
		}
		cmd.Println()
	}

	if len(result.StateIssues) > 0 {
		cmd.Printf("[%s]\n", color.New(color.FgRed).Sprint("State Issues"))
		for _, issue := range result.StateIssues {
			cmd.Printf("  %s %s: %s\n", style.FailMark, issue.Name, issue.Message())
		}
		cmd.Println()
	}

	var summaryParts []string
	if warningCount > 0 {
		summaryParts = append(summaryParts, color.New(color.FgYellow).Sprintf("%d warnings", warningCount))
	}
	if conflictCount > 0 {
		summaryParts = append(summaryParts, color.New(color.FgRed).Sprintf("%d conflicts", conflictCount))
	}
	if stateIssueCount > 0 {
		summaryParts = append(summaryParts, color.New(color.FgRed).Sprintf("%d state issues", stateIssueCount))
	}
	if len(summaryParts) > 0 {
		cmd.Printf("Summary: %s\n", strings.Join(summaryParts, ", "))
	}
}
