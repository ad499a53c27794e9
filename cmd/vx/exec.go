package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/loonghao/vx/internal/pipeline"
)

var execCmd = &cobra.Command{
	Use:   "exec <runtime>[@version] [-- args...]",
	Short: "Resolve, install if needed, and run a tool",
	Long: `exec implements resolve_and_execute: it resolves runtime's version
(from an explicit @version, vx.toml, or the usual fallback chain), installs
it if it's missing from the store, and execs it with the remaining
arguments.`,
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE:               runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	runtimeName, spec := splitRuntimeSpec(args[0])
	toolArgs := args[1:]
	if len(toolArgs) > 0 && toolArgs[0] == "--" {
		toolArgs = toolArgs[1:]
	}

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

	code, err := a.pipeline.Run(ctx, pipeline.ResolveRequest{
		Runtime:    runtimeName,
		Spec:       spec,
		Args:       toolArgs,
		WorkingDir: projectRoot,
	})
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
