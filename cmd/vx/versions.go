package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <runtime>",
	Short: "List versions available for a runtime",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

func runVersions(cmd *cobra.Command, args []string) error {
	runtimeName := args[0]

	projectRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	a, err := newApp(projectRoot)
	if err != nil {
		return err
	}

	rt, ok := a.registry.GetRuntime(runtimeName)
	if !ok {
		return fmt.Errorf("unknown runtime %q", runtimeName)
	}

	infos, err := a.fetcher.Versions(cmd.Context(), rt.Name, rt.Versions)
	if err != nil {
		return err
	}

	for _, v := range infos {
		line := v.Version
		if v.LTS {
			line += " (LTS"
			if v.LTSName != "" {
				line += " " + v.LTSName
			}
			line += ")"
		}
		if v.Security {
			line += " [security]"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
