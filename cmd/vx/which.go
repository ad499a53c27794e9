package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loonghao/vx/internal/pipeline"
)

var whichCmd = &cobra.Command{
	Use:   "which <runtime>[@version]",
	Short: "Print the resolved version of a runtime, without installing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhich,
}

var execPathCmd = &cobra.Command{
	Use:   "exec-path <runtime>[@version]",
	Short: "Print the executable path for a runtime, if it's installed",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecPath,
}

func runWhich(cmd *cobra.Command, args []string) error {
	runtimeName, spec := splitRuntimeSpec(args[0])

	projectRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	a, err := newApp(projectRoot)
	if err != nil {
		return err
	}

	plan, err := a.pipeline.Resolve(cmd.Context(), pipeline.ResolveRequest{Runtime: runtimeName, Spec: spec, WorkingDir: projectRoot})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), plan.Primary.Version.Version)
	return nil
}

func runExecPath(cmd *cobra.Command, args []string) error {
	runtimeName, spec := splitRuntimeSpec(args[0])

	projectRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	a, err := newApp(projectRoot)
	if err != nil {
		return err
	}

	plan, err := a.pipeline.Resolve(cmd.Context(), pipeline.ResolveRequest{Runtime: runtimeName, Spec: spec, WorkingDir: projectRoot})
	if err != nil {
		return err
	}

	prepared, err := a.pipeline.Prepare(cmd.Context(), plan)
	if err != nil {
		// Not installed: get_execute_path reports an empty path rather than
		// an error.
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), prepared.Executable)
	return nil
}
