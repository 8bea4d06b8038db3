// Package main provides the CLI entry point for Warden, a safety-aware
// system assistant.
//
// Warden turns natural-language requests into shell commands, file
// edits, and package operations, with every proposed action classified
// by a risk guard before it touches the host. Forbidden actions are
// refused outright; dangerous ones wait for explicit confirmation.
//
// # Basic Usage
//
// Start an interactive session:
//
//	warden chat --config warden.yaml
//
// Explain what a command would do and how risky it is:
//
//	warden check "rm -rf ~/old-project"
//
// # Environment Variables
//
//   - WARDEN_CONFIG: Path to configuration file (default: warden.yaml)
//   - ANTHROPIC_API_KEY: Anthropic API key
//   - OPENAI_API_KEY: OpenAI API key
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "warden",
		Short: "Safety-aware system assistant",
		Long: `Warden is a conversational assistant for system administration.
It proposes shell commands, file changes, and package operations, and
classifies every action by risk before running it.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to configuration file")

	rootCmd.AddCommand(buildChatCmd())
	rootCmd.AddCommand(buildCheckCmd())
	rootCmd.AddCommand(buildVersionCmd())

	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("warden %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
