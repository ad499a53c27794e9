package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loonghao/vx/internal/env"
	"github.com/loonghao/vx/internal/path"
)

var envShell string

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print shell export statements for the project's resolved tools",
	Long: `env resolves every tool in the project's [tools] table (without
installing anything) and prints PATH/env-var export statements for the
currently-selected versions.

  eval "$(vx env)"            # posix shells (bash, zsh)
  vx env --shell fish | source`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

func init() {
	envCmd.Flags().StringVar(&envShell, "shell", "posix", "Shell type (posix, fish)")
	_ = envCmd.RegisterFlagCompletionFunc("shell", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"posix", "fish"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runEnv(cmd *cobra.Command, _ []string) error {
	shellType, err := env.ParseShellType(envShell)
	if err != nil {
		return err
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	a, err := newApp(projectRoot)
	if err != nil {
		return err
	}

	runtimeEnvs, err := a.pipeline.RuntimeEnvs(cmd.Context(), a.projectCfg)
	if err != nil {
		return err
	}

	formatter := env.NewFormatter(shellType)
	lines := env.Generate(runtimeEnvs, path.ProjectBinDir(projectRoot), formatter)

	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
