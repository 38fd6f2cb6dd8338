package syncer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/stitch/internal/config"
	"github.com/danielolaszy/stitch/internal/marker"
	"github.com/danielolaszy/stitch/pkg/models"
)

// fakeTracker is an in-memory Tracker recording every call.
type fakeTracker struct {
	issues      map[string]models.TrackerIssue
	comments    map[string][]string
	transitions map[string][]int

	// commentErr fails AddComment for the given key.
	commentErr map[string]error
}

func newFakeTracker(keys ...string) *fakeTracker {
	tracker := &fakeTracker{
		issues:      make(map[string]models.TrackerIssue),
		comments:    make(map[string][]string),
		transitions: make(map[string][]int),
		commentErr:  make(map[string]error),
	}
	for _, key := range keys {
		tracker.issues[key] = models.TrackerIssue{Key: key, Summary: "summary of " + key}
	}
	return tracker
}

func (f *fakeTracker) IssueExists(key string) (bool, error) {
	_, ok := f.issues[key]
	return ok, nil
}

func (f *fakeTracker) GetIssue(key string) (models.TrackerIssue, error) {
	issue, ok := f.issues[key]
	if !ok {
		return models.TrackerIssue{}, &models.NotFoundError{Key: key}
	}
	return issue, nil
}

func (f *fakeTracker) AddComment(key, body string) error {
	if err := f.commentErr[key]; err != nil {
		return err
	}
	f.comments[key] = append(f.comments[key], body)
	return nil
}

func (f *fakeTracker) UpdateStatus(key string, statusID int) error {
	f.transitions[key] = append(f.transitions[key], statusID)
	return nil
}

// fakeRepo is an in-memory Repo holding a single pull request.
type fakeRepo struct {
	pr          models.PullRequest
	comments    []models.PRComment
	bodyUpdates int
}

func (f *fakeRepo) GetPullRequest(repository string, number int) (models.PullRequest, error) {
	return f.pr, nil
}

func (f *fakeRepo) ListComments(repository string, number int) ([]models.PRComment, error) {
	return f.comments, nil
}

func (f *fakeRepo) AddComment(repository string, number int, body string) error {
	f.comments = append(f.comments, models.PRComment{
		ID:   int64(len(f.comments) + 1),
		Body: body,
	})
	return nil
}

func (f *fakeRepo) UpdateBody(repository string, number int, body string) error {
	f.pr.Body = body
	f.bodyUpdates++
	return nil
}

func newTestSyncer(t *testing.T, tracker Tracker, repo Repo) *Syncer {
	t.Helper()

	target, err := NewTarget(config.TargetComments, repo, "owner/repo")
	require.NoError(t, err)

	return New(tracker, repo, target, Options{
		Repository:    "owner/repo",
		GitHubDomain:  "github.com",
		FixStatusID:   3,
		CloseStatusID: 4,
	})
}

func TestPullRequestOpenedPostsLinks(t *testing.T) {
	tracker := newFakeTracker("PROJ-123", "ABC-9")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "PROJ-123: new parser",
		Body:   "also touches ABC-9",
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestOpened(42)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Linked)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)

	assert.Len(t, tracker.comments["PROJ-123"], 1)
	assert.Len(t, tracker.comments["ABC-9"], 1)
	assert.Contains(t, tracker.comments["PROJ-123"][0], "https://github.com/owner/repo/pull/42")

	// One marker comment per key.
	markers := 0
	for _, comment := range repo.comments {
		if marker.Contains(comment.Body, marker.LinkPosted, "PROJ-123") ||
			marker.Contains(comment.Body, marker.LinkPosted, "ABC-9") {
			markers++
		}
	}
	assert.Equal(t, 2, markers)
}

func TestPullRequestOpenedIsIdempotent(t *testing.T) {
	tracker := newFakeTracker("PROJ-123")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "fixes PROJ-123",
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestOpened(42)
	require.NoError(t, err)
	require.Equal(t, 1, result.Linked)
	require.Len(t, tracker.comments["PROJ-123"], 1)

	// Re-delivery of the same event must not post a second comment.
	result, err = s.PullRequestOpened(42)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Linked)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, tracker.comments["PROJ-123"], 1)
}

func TestPullRequestOpenedSkipsMissingIssue(t *testing.T) {
	tracker := newFakeTracker()
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "PROJ-999 does not exist",
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestOpened(42)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Linked)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, tracker.comments)
	assert.Empty(t, repo.comments)
}

func TestPullRequestOpenedSkipsDrafts(t *testing.T) {
	tracker := newFakeTracker("PROJ-123")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "PROJ-123 work in progress",
		Draft:  true,
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestOpened(42)
	require.NoError(t, err)

	assert.Equal(t, Result{}, result)
	assert.Empty(t, tracker.comments)
}

func TestPullRequestOpenedNoKeysIsNoop(t *testing.T) {
	tracker := newFakeTracker()
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "chore: bump dependencies",
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestOpened(42)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
}

func TestPullRequestOpenedIsolatesFailures(t *testing.T) {
	tracker := newFakeTracker("PROJ-1", "PROJ-2")
	tracker.commentErr["PROJ-1"] = &models.TransportError{
		Op:  "jira.AddComment",
		Err: errors.New("boom"),
	}
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "PROJ-1 PROJ-2",
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestOpened(42)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Linked)
	assert.Len(t, tracker.comments["PROJ-2"], 1)

	// No marker may exist for the failed key: the side effect never
	// happened, so the next run has to retry it.
	for _, comment := range repo.comments {
		assert.False(t, marker.Contains(comment.Body, marker.LinkPosted, "PROJ-1"))
	}
}

func TestPullRequestMergedTransitionsIssue(t *testing.T) {
	tracker := newFakeTracker("PROJ-123")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "fixes PROJ-123",
		Merged: true,
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestMerged(42)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Transitioned)
	assert.Equal(t, []int{3}, tracker.transitions["PROJ-123"])
	assert.Len(t, tracker.comments["PROJ-123"], 1)

	// Re-delivery must not transition or comment again.
	result, err = s.PullRequestMerged(42)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Transitioned)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []int{3}, tracker.transitions["PROJ-123"])
	assert.Len(t, tracker.comments["PROJ-123"], 1)
}

func TestPullRequestMergedUsesCloseStatus(t *testing.T) {
	tracker := newFakeTracker("PROJ-7")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "closes PROJ-7",
		Merged: true,
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestMerged(42)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Transitioned)
	assert.Equal(t, []int{4}, tracker.transitions["PROJ-7"])
}

func TestPullRequestMergedSkipsMissingIssue(t *testing.T) {
	tracker := newFakeTracker()
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "fixes PROJ-999",
		Merged: true,
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestMerged(42)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, tracker.transitions)
}

func TestPullRequestMergedSkipsUnmerged(t *testing.T) {
	tracker := newFakeTracker("PROJ-123")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "fixes PROJ-123",
		Merged: false,
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestMerged(42)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Empty(t, tracker.transitions)
}

func TestPullRequestMergedDeduplicatesAnnotations(t *testing.T) {
	tracker := newFakeTracker("PROJ-123")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "fixes PROJ-123",
		Body:   "resolves PROJ-123\ncloses proj-123",
		Merged: true,
	}}
	s := newTestSyncer(t, tracker, repo)

	result, err := s.PullRequestMerged(42)
	require.NoError(t, err)

	// First-wins: exactly one transition, with the fix status.
	assert.Equal(t, 1, result.Transitioned)
	assert.Equal(t, []int{3}, tracker.transitions["PROJ-123"])
}

func TestMergedAndOpenedMarkersAreIndependent(t *testing.T) {
	tracker := newFakeTracker("PROJ-123")
	repo := &fakeRepo{pr: models.PullRequest{
		Number: 42,
		Title:  "fixes PROJ-123",
		Merged: true,
	}}
	s := newTestSyncer(t, tracker, repo)

	// A posted link must not suppress the merge transition.
	_, err := s.PullRequestOpened(42)
	require.NoError(t, err)

	result, err := s.PullRequestMerged(42)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transitioned)
}

// failingRepo fails every call, standing in for a transport outage.
type failingRepo struct{}

func (failingRepo) GetPullRequest(string, int) (models.PullRequest, error) {
	return models.PullRequest{}, &models.TransportError{Op: "github.GetPullRequest", Err: fmt.Errorf("boom")}
}

func (failingRepo) ListComments(string, int) ([]models.PRComment, error) {
	return nil, &models.TransportError{Op: "github.ListComments", Err: fmt.Errorf("boom")}
}

func (failingRepo) AddComment(string, int, string) error {
	return &models.TransportError{Op: "github.AddComment", Err: fmt.Errorf("boom")}
}

func (failingRepo) UpdateBody(string, int, string) error {
	return &models.TransportError{Op: "github.UpdateBody", Err: fmt.Errorf("boom")}
}

func TestUnreadablePullRequestFailsTheRun(t *testing.T) {
	s := newTestSyncer(t, newFakeTracker(), failingRepo{})

	_, err := s.PullRequestOpened(42)
	require.Error(t, err)

	var transportErr *models.TransportError
	assert.True(t, errors.As(err, &transportErr))
}
