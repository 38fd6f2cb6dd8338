package syncer

import (
	"fmt"

	"github.com/danielolaszy/stitch/internal/config"
	"github.com/danielolaszy/stitch/internal/marker"
)

// Target is the text surface that carries tracking markers for a pull
// request: either the pull request's own description or its comment
// stream. A deployment uses exactly one strategy, selected by
// configuration.
type Target interface {
	// ContainsMarker reports whether the marker for (op, key) is present
	// anywhere in the target's current content.
	ContainsMarker(number int, op marker.Operation, key string) (bool, error)

	// WriteMarker records the marker for (op, key) in the target. Markers
	// are never removed once written.
	WriteMarker(number int, op marker.Operation, key string) error
}

// NewTarget returns the marker target for the configured strategy.
func NewTarget(strategy string, repo Repo, repository string) (Target, error) {
	switch strategy {
	case config.TargetDescription:
		return &descriptionTarget{repo: repo, repository: repository}, nil
	case config.TargetComments:
		return &commentTarget{repo: repo, repository: repository}, nil
	default:
		return nil, fmt.Errorf("unknown sync target strategy: %q", strategy)
	}
}

// descriptionTarget stores markers by appending them to the pull request
// description.
type descriptionTarget struct {
	repo       Repo
	repository string
}

func (t *descriptionTarget) ContainsMarker(number int, op marker.Operation, key string) (bool, error) {
	pr, err := t.repo.GetPullRequest(t.repository, number)
	if err != nil {
		return false, err
	}
	return marker.Contains(pr.Body, op, key), nil
}

func (t *descriptionTarget) WriteMarker(number int, op marker.Operation, key string) error {
	// Re-read the body immediately before writing. This picks up markers
	// written since the workflow's initial check and avoids clobbering
	// concurrent body edits, but two overlapping runs can still both pass
	// this check before either write lands.
	pr, err := t.repo.GetPullRequest(t.repository, number)
	if err != nil {
		return err
	}
	if marker.Contains(pr.Body, op, key) {
		return nil
	}

	body := marker.Build(op, key)
	if pr.Body != "" {
		body = pr.Body + "\n" + body
	}
	return t.repo.UpdateBody(t.repository, number, body)
}

// commentTarget stores markers by posting pull request comments. The
// token itself is an HTML comment and renders as nothing; a short visible
// note is included so the comment is not an empty box.
type commentTarget struct {
	repo       Repo
	repository string
}

func (t *commentTarget) ContainsMarker(number int, op marker.Operation, key string) (bool, error) {
	comments, err := t.repo.ListComments(t.repository, number)
	if err != nil {
		return false, err
	}
	for _, comment := range comments {
		if marker.Contains(comment.Body, op, key) {
			return true, nil
		}
	}
	return false, nil
}

func (t *commentTarget) WriteMarker(number int, op marker.Operation, key string) error {
	body := fmt.Sprintf("stitch: recorded %s for %s.\n%s", op, key, marker.Build(op, key))
	return t.repo.AddComment(t.repository, number, body)
}
