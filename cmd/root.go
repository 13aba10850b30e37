// Package cmd contains the nexus CLI commands.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Nexus - AI academic counsellor service",
	Long: `Nexus is the retrieval-augmented academic advising service.
It classifies each user message, answers from ingested university
documents, from web-informed guidance providers, or in open
conversation, and streams the reply back to the caller.

Running nexus without a subcommand starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command.
func Execute() error {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()
	return rootCmd.Execute()
}
