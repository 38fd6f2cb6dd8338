// Package annotation extracts issue keys and transition keywords from
// pull request text.
package annotation

import (
	"regexp"
	"strings"

	"github.com/danielolaszy/stitch/pkg/models"
)

// issueKeyPattern matches an issue key: a project key of 1-25 characters
// (letter first, then letters/digits/underscore) followed by a dash and
// 1-6 digits. The word boundaries on both sides reject keys embedded in
// longer runs, so "PROJ-1234567" never yields a partial "PROJ-123456".
var issueKeyPattern = regexp.MustCompile(`(?i)\b[A-Z][A-Z0-9_]{0,24}-[0-9]{1,6}\b`)

// annotationPattern matches a transition keyword followed by an issue key,
// with an optional colon (ASCII or full-width) and an optional '#' before
// the key. Both the keyword and the key are word-bounded, so "fixture" or
// "prefixes" never match.
var annotationPattern = regexp.MustCompile(`(?i)\b(fixes|fixed|fix|resolves|resolved|resolve|closes|closed|close)\b[ \t]*[:：]?[ \t]*#?([A-Z][A-Z0-9_]{0,24}-[0-9]{1,6})\b`)

// Keyword families are fixed, disjoint sets checked by membership rather
// than by stem, so words that merely start with a keyword are ignored.
var fixKeywords = map[string]bool{
	"fix":      true,
	"fixes":    true,
	"fixed":    true,
	"resolve":  true,
	"resolves": true,
	"resolved": true,
}

var closeKeywords = map[string]bool{
	"close":  true,
	"closes": true,
	"closed": true,
}

// ExtractIssueKeys returns every issue key found in text, normalized to
// uppercase, deduplicated, in first-occurrence order. It returns an empty
// slice when text contains no keys; absence of matches is not an error.
func ExtractIssueKeys(text string) []string {
	if text == "" {
		return nil
	}

	matches := issueKeyPattern.FindAllString(text, -1)

	seen := make(map[string]bool, len(matches))
	var keys []string
	for _, match := range matches {
		key := strings.ToUpper(match)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	return keys
}

// ParseAnnotations returns every "keyword + issue key" annotation found in
// text, in order of appearance. When the same normalized key appears in
// more than one annotation, only the first occurrence is kept, even if the
// later occurrence carries a different keyword (first-wins).
func ParseAnnotations(text string) []models.Annotation {
	if text == "" {
		return nil
	}

	matches := annotationPattern.FindAllStringSubmatch(text, -1)

	seen := make(map[string]bool, len(matches))
	var annotations []models.Annotation
	for _, match := range matches {
		keyword := strings.ToLower(match[1])
		key := strings.ToUpper(match[2])

		if seen[key] {
			continue
		}

		var action models.Action
		switch {
		case fixKeywords[keyword]:
			action = models.ActionFix
		case closeKeywords[keyword]:
			action = models.ActionClose
		default:
			continue
		}

		seen[key] = true
		annotations = append(annotations, models.Annotation{
			IssueKey:     key,
			Action:       action,
			OriginalText: strings.TrimSpace(match[0]),
		})
	}

	return annotations
}
