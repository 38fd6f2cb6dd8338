// Package cmd provides the command-line interface for the stitch tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Stitch synchronizes pull requests with JIRA issues",
	Long: `Stitch is a CLI tool that synchronizes GitHub pull requests with JIRA issues.
It detects issue keys in pull request titles and descriptions, posts tracking
comments on the referenced issues, and transitions issues when pull requests
merge. Tracking markers embedded in the pull request make every operation
idempotent under repeated or duplicate event delivery.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().StringP("repository", "r", "", "GitHub repository name (e.g., 'username/repo')")
}
