package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "robotarena-sim",
	Short: "Robot arena simulation toolkit",
	Long:  "robotarena-sim runs a 2D arena of autonomous and remote-controlled robots and replays or inspects its telemetry.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(sceneCmd)
	rootCmd.AddCommand(dashboardCmd)
}
