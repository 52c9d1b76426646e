// Package cli defines Cobra command definitions for the consultprep CLI.
// This file contains the root command, version flag, and help output.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consultprep-dev/consultprep/internal/tui"
	"github.com/consultprep-dev/consultprep/internal/tui/app"
)

var version = "dev" // set via ldflags at build time

// options are the persistent flags shared by every subcommand.
type options struct {
	dir     string
	verbose bool

	// getenv reads environment overrides; tests replace it.
	getenv func(string) string
}

// NewRootCmd builds the consultprep command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{getenv: os.Getenv})
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "consultprep",
		Short: "Practice consulting case interviews",
		Long: `ConsultPrep runs mock case interviews. Pick a business case, talk it
through stage by stage with an interviewer, and track your scores over time.
The interviewer is a built-in rule engine, or Gemini / Azure OpenAI when an
API key is set.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// When no subcommand is provided, launch TUI if TTY, show help otherwise
			if !tui.IsTTY() {
				return cmd.Help()
			}

			ws, err := openWorkspace(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer ws.Close()

			return tui.Run(app.New(cmd.Context(), app.Deps{
				Controller: ws.controller,
				Library:    ws.library,
				Store:      ws.store,
				Stats:      ws.statsOptions(),
				Logger:     ws.logger,
			}))
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "Workspace directory holding .consultprep/ (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Write debug logs to stderr")

	rootCmd.AddCommand(newInitCmd(opts))
	rootCmd.AddCommand(newCasesCmd(opts))
	rootCmd.AddCommand(newPracticeCmd(opts))
	rootCmd.AddCommand(newStatsCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	return rootCmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
