package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vx",
	Short: "A universal developer tool and runtime version manager",
	Long: `vx resolves, installs, and runs pinned versions of developer
tools and language runtimes, per a project's vx.toml and vx.lock.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevelFromEnv()})))

	rootCmd.AddCommand(
		execCmd,
		installCmd,
		versionsCmd,
		whichCmd,
		execPathCmd,
		syncCmd,
		envCmd,
		doctorCmd,
		versionCmd,
	)
}

// logLevelFromEnv implements spec.md §10.1: VX_LOG selects slog's level,
// default warn.
func logLevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("VX_LOG")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vx version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
		return err
	},
}
