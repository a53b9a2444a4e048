package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:           "statusboard",
		Short:         "Presence status board daemon and client",
		Long:          `Resolve desktop activity into a presence mode and stream it to displays on the LAN.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newServeCmd(),
		newSetCmd(),
		newDoNotDisturbCmd(),
		newCycleCmd(),
		newStatusCmd(),
		newModesCmd(),
		newWatchCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "statusboard:", err)
		os.Exit(1)
	}
}
