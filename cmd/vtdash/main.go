// Vtdash drives a Home Assistant dashboard on a serial VT-100 terminal.
//
// It polls Home Assistant for entity state, paints pages of switch and
// sensor widgets on the terminal, and takes commands typed on the
// terminal's keyboard to move the selection, flip switches and change
// pages. The local TTY can stand in for the serial terminal.
//
// Usage:
//
//	vtdash [command] [flags]
//
// Running without a command starts the dashboard.
// See 'vtdash --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/vtdash/internal/config"
	"github.com/muurk/vtdash/internal/logging"
	"github.com/muurk/vtdash/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "vtdash",
	Short: "Home Assistant dashboard for VT-100 terminals",
	Long: `Drive a Home Assistant dashboard on a serial VT-100 terminal.

Widgets for switches and sensors are laid out in pages and kept up to date
by polling Home Assistant. Commands typed on the terminal toggle switches
and move between pages; type "help" on the terminal for the full list.

If no command is specified, the dashboard starts.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeWithOptions(logging.Options{Level: logLevel, File: logFile})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runDashboard,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML or TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); empty reads "+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stdout")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vtdash %s (commit: %s)\n", version.Version, version.Commit)
	},
}
