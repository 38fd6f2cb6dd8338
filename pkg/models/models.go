// Package models defines data structures shared across the application.
package models

// Action is the issue transition requested by an annotation keyword.
type Action int

const (
	// ActionFix transitions the issue to the configured "fixed" status.
	ActionFix Action = iota

	// ActionClose transitions the issue to the configured "closed" status.
	ActionClose
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionFix:
		return "fix"
	case ActionClose:
		return "close"
	default:
		return "unknown"
	}
}

// Annotation is a single "keyword + issue key" reference detected in
// pull request text, e.g. "fixes PROJ-123".
type Annotation struct {
	// IssueKey is the normalized (uppercase) issue key, e.g. "PROJ-123".
	IssueKey string

	// Action is the transition requested by the keyword.
	Action Action

	// OriginalText is the exact matched substring, trimmed of surrounding
	// whitespace. Kept for diagnostics only.
	OriginalText string
}

// PullRequest represents a GitHub pull request with the fields the
// synchronization workflows care about.
type PullRequest struct {
	// Number is the pull request number in GitHub (e.g., 42).
	Number int

	// Title is the pull request title.
	Title string

	// Body is the pull request description (may be empty).
	Body string

	// Draft reports whether the pull request is a draft.
	Draft bool

	// Merged reports whether the pull request was merged.
	Merged bool

	// Author is the GitHub login of the pull request author.
	Author string
}

// PRComment is a single comment on a pull request.
type PRComment struct {
	// ID is the GitHub comment identifier.
	ID int64

	// Body is the comment text.
	Body string
}

// TrackerIssue represents a JIRA issue with its key properties.
type TrackerIssue struct {
	// Key is the full issue identifier (e.g., "PROJ-123").
	Key string

	// Summary is the issue's summary field.
	Summary string

	// Status is the current status name.
	Status string
}
