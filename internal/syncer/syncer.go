// Package syncer drives the two synchronization workflows between pull
// requests and the issue tracker: posting tracking links when a pull
// request opens, and transitioning issues when it merges. Every
// side-effecting call is guarded by a marker check so that repeated or
// duplicate event deliveries do not repeat side effects.
package syncer

import (
	"errors"
	"fmt"

	"github.com/danielolaszy/stitch/internal/annotation"
	"github.com/danielolaszy/stitch/internal/logging"
	"github.com/danielolaszy/stitch/internal/marker"
	"github.com/danielolaszy/stitch/pkg/models"
)

// Tracker is the issue-tracker surface the syncer depends on.
type Tracker interface {
	IssueExists(key string) (bool, error)
	GetIssue(key string) (models.TrackerIssue, error)
	AddComment(key, body string) error
	UpdateStatus(key string, statusID int) error
}

// Repo is the source-control surface the syncer depends on.
type Repo interface {
	GetPullRequest(repository string, number int) (models.PullRequest, error)
	ListComments(repository string, number int) ([]models.PRComment, error)
	AddComment(repository string, number int, body string) error
	UpdateBody(repository string, number int, body string) error
}

// Options configures a Syncer.
type Options struct {
	// Repository is the GitHub repository in "owner/repo" format.
	Repository string

	// GitHubDomain is used to build pull request URLs for tracker comments.
	GitHubDomain string

	// FixStatusID is the JIRA status id applied for fix annotations.
	FixStatusID int

	// CloseStatusID is the JIRA status id applied for close annotations.
	CloseStatusID int
}

// Result summarizes one workflow run over a pull request's issue keys.
type Result struct {
	// Linked counts issues that received a new tracking comment.
	Linked int

	// Transitioned counts issues that received a status update.
	Transitioned int

	// Skipped counts issues skipped because they were already processed
	// or do not exist in the tracker.
	Skipped int

	// Failed counts issues whose processing failed. Failures never abort
	// the remaining issues in the batch.
	Failed int
}

// Syncer applies the synchronization workflows against the configured
// tracker, repository, and marker target.
//
// Idempotency is best effort under concurrency: the marker check and the
// marker write are separate network round-trips, so two overlapping runs
// for the same pull request can both pass the check before either writes
// its marker and duplicate a side effect. The fresh re-read performed by
// the targets before writing narrows that window but does not eliminate
// it; there is no lock.
type Syncer struct {
	tracker Tracker
	repo    Repo
	target  Target
	opts    Options
}

// New returns a Syncer using the given collaborators.
func New(tracker Tracker, repo Repo, target Target, opts Options) *Syncer {
	return &Syncer{
		tracker: tracker,
		repo:    repo,
		target:  target,
		opts:    opts,
	}
}

// PullRequestOpened handles an opened/reopened/ready-for-review/edited
// pull request: every issue key referenced in the title or body gets a
// tracking comment on its tracker issue, once. Draft pull requests are
// skipped entirely.
//
// Errors while processing one key are reported and counted but never
// abort the remaining keys. The returned error is non-nil only when the
// pull request itself could not be read.
func (s *Syncer) PullRequestOpened(number int) (Result, error) {
	var result Result

	pr, err := s.repo.GetPullRequest(s.opts.Repository, number)
	if err != nil {
		return result, fmt.Errorf("failed to fetch pull request #%d: %w", number, err)
	}

	if pr.Draft {
		logging.Info("skipping draft pull request", "pr", number)
		return result, nil
	}

	keys := annotation.ExtractIssueKeys(pr.Title + "\n" + pr.Body)
	if len(keys) == 0 {
		logging.Debug("no issue keys in pull request", "pr", number)
		return result, nil
	}

	logging.Info("linking pull request to issues",
		"pr", number,
		"keys", keys)

	for _, key := range keys {
		done, err := s.target.ContainsMarker(number, marker.LinkPosted, key)
		if err != nil {
			logging.Error("failed to check link marker",
				"pr", number,
				"key", key,
				"error", err)
			result.Failed++
			continue
		}
		if done {
			logging.Debug("link already posted", "pr", number, "key", key)
			result.Skipped++
			continue
		}

		exists, err := s.tracker.IssueExists(key)
		if err != nil {
			logging.Error("failed to look up issue",
				"key", key,
				"error", err)
			result.Failed++
			continue
		}
		if !exists {
			logging.Warn("referenced issue does not exist, skipping", "key", key)
			result.Skipped++
			continue
		}

		if err := s.tracker.AddComment(key, s.linkCommentBody(pr)); err != nil {
			logging.Error("failed to post tracking comment",
				"key", key,
				"error", err)
			result.Failed++
			continue
		}

		// The marker is written only after the comment succeeds. If this
		// write fails, the next run posts the comment again.
		if err := s.target.WriteMarker(number, marker.LinkPosted, key); err != nil {
			logging.Error("tracking comment posted but marker write failed, key may be reprocessed",
				"pr", number,
				"key", key,
				"error", err)
			result.Failed++
			continue
		}

		logging.Info("posted tracking comment", "pr", number, "key", key)
		result.Linked++
	}

	return result, nil
}

// PullRequestMerged handles a pull request that was closed as merged:
// every annotation ("fixes PROJ-123", "closes PROJ-456") in the title or
// body transitions its issue to the configured status and receives a
// confirmation comment, once.
//
// Errors while processing one annotation are reported and counted but
// never abort the remaining annotations.
func (s *Syncer) PullRequestMerged(number int) (Result, error) {
	var result Result

	pr, err := s.repo.GetPullRequest(s.opts.Repository, number)
	if err != nil {
		return result, fmt.Errorf("failed to fetch pull request #%d: %w", number, err)
	}

	if !pr.Merged {
		logging.Warn("pull request is not merged, skipping", "pr", number)
		return result, nil
	}

	annotations := annotation.ParseAnnotations(pr.Title + "\n" + pr.Body)
	if len(annotations) == 0 {
		logging.Debug("no annotations in pull request", "pr", number)
		return result, nil
	}

	logging.Info("processing merge annotations",
		"pr", number,
		"count", len(annotations))

	for _, ann := range annotations {
		key := ann.IssueKey

		done, err := s.target.ContainsMarker(number, marker.MergeProcessed, key)
		if err != nil {
			logging.Error("failed to check merge marker",
				"pr", number,
				"key", key,
				"error", err)
			result.Failed++
			continue
		}
		if done {
			logging.Debug("merge already processed", "pr", number, "key", key)
			result.Skipped++
			continue
		}

		issue, err := s.tracker.GetIssue(key)
		if err != nil {
			var notFound *models.NotFoundError
			if errors.As(err, &notFound) {
				logging.Warn("annotated issue does not exist, skipping", "key", key)
				result.Skipped++
			} else {
				logging.Error("failed to fetch issue",
					"key", key,
					"error", err)
				result.Failed++
			}
			continue
		}

		statusID := s.opts.FixStatusID
		if ann.Action == models.ActionClose {
			statusID = s.opts.CloseStatusID
		}

		if err := s.tracker.UpdateStatus(key, statusID); err != nil {
			logging.Error("failed to update issue status",
				"key", key,
				"status_id", statusID,
				"error", err)
			result.Failed++
			continue
		}

		if err := s.tracker.AddComment(key, s.mergeCommentBody(pr, ann)); err != nil {
			logging.Error("failed to post confirmation comment",
				"key", key,
				"error", err)
			result.Failed++
			continue
		}

		if err := s.target.WriteMarker(number, marker.MergeProcessed, key); err != nil {
			logging.Error("issue transitioned but marker write failed, key may be reprocessed",
				"pr", number,
				"key", key,
				"error", err)
			result.Failed++
			continue
		}

		logging.Info("transitioned issue",
			"pr", number,
			"key", key,
			"summary", issue.Summary,
			"action", ann.Action.String())
		result.Transitioned++
	}

	return result, nil
}

// pullRequestURL builds the browser URL of a pull request.
func (s *Syncer) pullRequestURL(number int) string {
	return fmt.Sprintf("https://%s/%s/pull/%d", s.opts.GitHubDomain, s.opts.Repository, number)
}

// linkCommentBody is the tracker comment posted when a pull request
// references an issue.
func (s *Syncer) linkCommentBody(pr models.PullRequest) string {
	return fmt.Sprintf("Referenced by pull request: %s\n\n----\nPosted by stitch from %s#%d",
		s.pullRequestURL(pr.Number), s.opts.Repository, pr.Number)
}

// mergeCommentBody is the tracker comment posted after a merged pull
// request transitions an issue.
func (s *Syncer) mergeCommentBody(pr models.PullRequest, ann models.Annotation) string {
	return fmt.Sprintf("Pull request %s was merged (%s).\n\n----\nPosted by stitch from %s#%d",
		s.pullRequestURL(pr.Number), ann.OriginalText, s.opts.Repository, pr.Number)
}
