// Package cmd implements the recipeflow CLI: a single recipe-executor
// entry point per spec §6, adapted from the teacher's cobra root command.
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool
var debug bool

var rootCmd = &cobra.Command{
	Use:   "recipeflow",
	Short: "A declarative recipe execution engine",
	Long: `recipeflow loads a JSON-defined recipe - an ordered sequence of
typed steps - and executes it against a shared mutable context.

Usage:
  recipeflow run <recipe_path> [--context k=v]... [--config k=v]... [--log-dir <dir>]`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(0)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command, exiting the process with a non-zero code
// on any unhandled error (spec §6: "exit code 0 on success; non-zero on any
// unhandled exception").
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
