package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	gh "github.com/google/go-github/v41/github"
	"github.com/spf13/cobra"

	"github.com/danielolaszy/stitch/internal/config"
	"github.com/danielolaszy/stitch/internal/github"
	"github.com/danielolaszy/stitch/internal/jira"
	"github.com/danielolaszy/stitch/internal/logging"
	"github.com/danielolaszy/stitch/internal/syncer"
)

// workflow identifies which synchronization workflow an event dispatches to.
type workflow int

const (
	// workflowNone means the event is ignored.
	workflowNone workflow = iota

	// workflowLink posts tracking comments for referenced issues.
	workflowLink

	// workflowMerge transitions annotated issues after a merge.
	workflowMerge
)

// handleCmd processes a single pull_request webhook event. It is intended
// to run once per inbound event, typically from a GitHub Actions job with
// the event payload at GITHUB_EVENT_PATH.
var handleCmd = &cobra.Command{
	Use:   "handle",
	Short: "Handle a pull_request webhook event",
	Long: `Handle a single pull_request webhook event.

The event payload is read from the file given by --event-path (defaulting to
the GITHUB_EVENT_PATH environment variable, as set by GitHub Actions) and
dispatched by action:

- opened, reopened, ready_for_review, edited: posts a tracking comment on
  every JIRA issue referenced in the pull request title or description.
- closed (merged): transitions every issue annotated with a fix or close
  keyword ("fixes PROJ-123", "closes PROJ-456") to the configured status.

Draft pull requests are ignored, as are edit events produced by the tool's
own account. Each workflow can be disabled via SYNC_ON_OPEN / SYNC_ON_MERGE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		if repository == "" {
			return fmt.Errorf("repository flag is required")
		}

		eventPath, err := cmd.Flags().GetString("event-path")
		if err != nil {
			return err
		}
		if eventPath == "" {
			eventPath = os.Getenv("GITHUB_EVENT_PATH")
		}
		if eventPath == "" {
			return fmt.Errorf("no event payload: set --event-path or GITHUB_EVENT_PATH")
		}

		payload, err := os.ReadFile(eventPath)
		if err != nil {
			return fmt.Errorf("failed to read event payload: %w", err)
		}

		var event gh.PullRequestEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to decode event payload: %w", err)
		}
		if event.GetPullRequest() == nil {
			return fmt.Errorf("event payload has no pull request")
		}

		// Configuration is loaded once and passed into the clients and the
		// syncer; a configuration error aborts before any side effect.
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		action := event.GetAction()
		number := event.GetPullRequest().GetNumber()
		flow, reason := classifyEvent(
			action,
			event.GetPullRequest().GetDraft(),
			event.GetPullRequest().GetMerged(),
			event.GetSender().GetLogin(),
			cfg.Sync.BotLogin,
		)

		logging.Info("handling pull request event",
			"repository", repository,
			"pr", number,
			"action", action)

		if flow == workflowNone {
			logging.Info("ignoring event", "reason", reason)
			return nil
		}
		if flow == workflowLink && !cfg.Sync.OnOpen {
			logging.Info("link workflow disabled, ignoring event")
			return nil
		}
		if flow == workflowMerge && !cfg.Sync.OnMerge {
			logging.Info("merge workflow disabled, ignoring event")
			return nil
		}

		s, err := buildSyncer(cfg, repository)
		if err != nil {
			return err
		}

		var result syncer.Result
		switch flow {
		case workflowLink:
			result, err = s.PullRequestOpened(number)
		case workflowMerge:
			result, err = s.PullRequestMerged(number)
		}
		if err != nil {
			return err
		}

		logging.Info("event handled",
			"pr", number,
			"linked", result.Linked,
			"transitioned", result.Transitioned,
			"skipped", result.Skipped,
			"failed", result.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(handleCmd)
	handleCmd.Flags().String("event-path", "", "Path to the webhook event payload JSON (defaults to $GITHUB_EVENT_PATH)")
}

// classifyEvent maps a pull_request event to a workflow. The reason string
// explains why an event was ignored.
func classifyEvent(action string, draft, merged bool, sender, botLogin string) (workflow, string) {
	switch action {
	case "opened", "reopened", "ready_for_review", "edited":
		if draft {
			return workflowNone, "draft pull request"
		}
		// Writing markers to the description triggers an edited event for
		// the tool's own account; processing it again would loop.
		if action == "edited" && botLogin != "" && sender == botLogin {
			return workflowNone, "edited by own account"
		}
		return workflowLink, ""
	case "closed":
		if !merged {
			return workflowNone, "closed without merging"
		}
		return workflowMerge, ""
	default:
		return workflowNone, fmt.Sprintf("unhandled action %q", action)
	}
}

// buildSyncer wires the clients, the marker target, and the syncer from
// configuration.
func buildSyncer(cfg *config.Config, repository string) (*syncer.Syncer, error) {
	githubClient, err := github.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize github client: %w", err)
	}

	jiraClient, err := jira.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jira client: %w", err)
	}

	target, err := syncer.NewTarget(cfg.Sync.Target, githubClient, repository)
	if err != nil {
		return nil, err
	}

	return syncer.New(jiraClient, githubClient, target, syncer.Options{
		Repository:    repository,
		GitHubDomain:  cfg.GitHub.Domain,
		FixStatusID:   cfg.Jira.FixStatusID,
		CloseStatusID: cfg.Jira.CloseStatusID,
	}), nil
}
