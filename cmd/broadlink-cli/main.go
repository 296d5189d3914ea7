// Broadlink-cli is a control utility for Broadlink smart-home devices.
//
// It provides device discovery, IR/RF code capture and replay, air
// conditioner control, and WiFi provisioning for Broadlink appliances
// speaking the vendor's proprietary UDP protocol.
//
// Usage:
//
//	broadlink-cli [command] [flags]
//
// Running without arguments launches the interactive device picker.
// See 'broadlink-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/broadlink/internal/logging"
	"github.com/muurk/broadlink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "broadlink-cli",
	Short: "Broadlink Device Control Utility",
	Long: `A standalone utility for controlling Broadlink smart-home devices.

Provides device discovery, IR/RF code capture and replay, air conditioner
control, and WiFi provisioning over the vendor's UDP protocol.

If no command is specified, the interactive device picker will launch.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silent unless BROADLINK_LOG_LEVEL is set.
		_ = logging.InitializeFromEnv()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPick(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("broadlink-cli %s (commit: %s)\n", version.Version, version.Commit)
	},
}
