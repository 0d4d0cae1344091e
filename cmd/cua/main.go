// Package main provides the cua command, which lets a computer-use model
// operate this machine's desktop or a Chrome tab.
//
// # Basic Usage
//
// Run a task against the local X display:
//
//	cua --instructions "Open a browser and go to example.com"
//
// Drive a Chrome instance over the DevTools protocol instead:
//
//	cua run --backend browser --start-url https://example.com
//
// Write a starter configuration file:
//
//	cua config init --path cua.yaml
//
// # Environment Variables
//
//   - CUA_CONFIG: Path to configuration file
//   - OPENAI_API_KEY: API key for the openai endpoint
//   - AZURE_OPENAI_API_KEY: API key for the azure endpoint (optional)
//   - AZURE_OPENAI_ENDPOINT: Azure OpenAI resource endpoint
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Running the root command without a subcommand runs a task.
func buildRootCmd() *cobra.Command {
	runCmd := buildRunCmd()
	rootCmd := &cobra.Command{
		Use:   "cua",
		Short: "Let a computer-use model operate a desktop or browser",
		Long: `cua sends screenshots of a desktop or browser tab to a computer-use model
and performs the clicks, keystrokes and scrolls it asks for, until the task
is done or you stop it.

Supported endpoints: OpenAI, Azure OpenAI
Supported backends: local X11 desktop (xdotool), Chrome DevTools`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runCmd.RunE,
	}
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	rootCmd.AddCommand(
		runCmd,
		buildConfigCmd(),
	)
	return rootCmd
}
