// Package marker generates and recognizes the tracking tokens embedded in
// pull request text to record that a side effect has already been performed.
package marker

import (
	"fmt"
	"strings"
)

// Operation identifies which side effect a marker records.
type Operation string

const (
	// LinkPosted records that a tracking comment linking the pull request
	// was posted on the tracker issue.
	LinkPosted Operation = "link-posted"

	// MergeProcessed records that the issue was transitioned after the
	// pull request merged.
	MergeProcessed Operation = "merge-processed"
)

// Build returns the canonical marker token for an operation and issue key.
// The token is an HTML comment, so it renders as nothing in GitHub
// markdown. The same inputs always produce the same token; equality of
// markers is equality of (operation, key).
//
// The issue key must already be normalized to uppercase.
func Build(op Operation, issueKey string) string {
	return fmt.Sprintf("<!-- stitch:%s:%s -->", op, issueKey)
}

// Contains reports whether text contains the marker for the given
// operation and issue key. The check is exact substring containment of the
// canonical token; there is no fuzzy matching or case folding.
func Contains(text string, op Operation, issueKey string) bool {
	return strings.Contains(text, Build(op, issueKey))
}
