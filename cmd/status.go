package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/stitch/internal/annotation"
	"github.com/danielolaszy/stitch/internal/config"
	"github.com/danielolaszy/stitch/internal/github"
	"github.com/danielolaszy/stitch/internal/marker"
	"github.com/danielolaszy/stitch/internal/syncer"
)

// statusCmd displays the synchronization state of one pull request: which
// issue keys it references and which markers have been recorded for them.
// It performs no side effects.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show synchronization status for a pull request",
	Long: `This command displays which JIRA issues a pull request references and
whether the link and merge side effects have already been recorded for each.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		if repository == "" {
			return fmt.Errorf("repository flag is required")
		}

		number, err := cmd.Flags().GetInt("pr")
		if err != nil {
			return err
		}
		if number <= 0 {
			return fmt.Errorf("pr flag is required")
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		githubClient, err := github.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize github client: %w", err)
		}

		target, err := syncer.NewTarget(cfg.Sync.Target, githubClient, repository)
		if err != nil {
			return err
		}

		pr, err := githubClient.GetPullRequest(repository, number)
		if err != nil {
			return fmt.Errorf("failed to fetch pull request: %w", err)
		}

		keys := annotation.ExtractIssueKeys(pr.Title + "\n" + pr.Body)
		if len(keys) == 0 {
			fmt.Printf("Pull request #%d references no issues\n", number)
			return nil
		}

		fmt.Printf("Pull request #%d (%s, target: %s)\n", number, repository, cfg.Sync.Target)
		for _, key := range keys {
			linked, err := target.ContainsMarker(number, marker.LinkPosted, key)
			if err != nil {
				return fmt.Errorf("failed to check markers for %s: %w", key, err)
			}

			processed, err := target.ContainsMarker(number, marker.MergeProcessed, key)
			if err != nil {
				return fmt.Errorf("failed to check markers for %s: %w", key, err)
			}

			fmt.Printf("- %s: link posted: %v, merge processed: %v\n", key, linked, processed)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Int("pr", 0, "Pull request number")
}
