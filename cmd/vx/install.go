package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loonghao/vx/internal/pipeline"
)

var installCmd = &cobra.Command{
	Use:   "install <runtime>[@version]",
	Short: "Resolve and install a tool without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	runtimeName, spec := splitRuntimeSpec(args[0])

	projectRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	a, err := newApp(projectRoot)
	if err != nil {
		return err
	}

	ctx, cancel := pipeline.WithInterrupt(cmd.Context())
	defer cancel()

	plan, err := a.pipeline.Resolve(ctx, pipeline.ResolveRequest{Runtime: runtimeName, Spec: spec, WorkingDir: projectRoot})
	if err != nil {
		return err
	}
	if err := a.pipeline.Ensure(ctx, plan); err != nil {
		return err
	}

	if plan.Proxy != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is proxied via %s (%s)\n", plan.Proxy.Name, plan.Proxy.Executable, plan.Proxy.Reason)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s installed\n", runtimeName, plan.Primary.Version.Version)
	for _, dep := range plan.Dependencies {
		fmt.Fprintf(cmd.OutOrStdout(), "  + %s %s\n", dep.Name, dep.Version.Version)
	}
	return nil
}
