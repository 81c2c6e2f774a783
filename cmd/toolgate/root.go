package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "Toolgate - tool-calling translation proxy",
	Long: `Toolgate is an HTTP proxy that exposes an OpenAI-compatible chat
completion API with tool calling, backed by an upstream endpoint that has
no native tool support.

It provides:
  - Tool catalog compilation into an upstream system prompt
  - Extraction of call markup into structured tool calls
  - Streamed or buffered relay, resolved per request
  - Upstream health probing and Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
