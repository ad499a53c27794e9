package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loonghao/vx/internal/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Install every tool pinned in vx.toml and bind project shims",
	Long: `sync implements ensure_project_env: it resolves and installs each
tool in the project's [tools] table, then writes a project .vx/bin link and
a global shim for each so plain PATH lookups pick up the pinned version.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, _ []string) error {
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

	result, err := a.pipeline.EnsureProjectEnv(ctx, a.projectCfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "env %s\n", result.EnvID)
	for _, name := range result.Tools {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
	}
	return nil
}
