// Package jira provides functionality for interacting with the JIRA API.
package jira

import (
	"fmt"
	"net/http"
	"strconv"

	jira "github.com/andygrunwald/go-jira"

	"github.com/danielolaszy/stitch/internal/config"
	"github.com/danielolaszy/stitch/internal/logging"
	"github.com/danielolaszy/stitch/pkg/models"
)

// Client handles interactions with the JIRA API.
type Client struct {
	client *jira.Client
}

// NewClient creates a new JIRA client from the given configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.Jira.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	logging.Debug("jira configuration",
		"url", cfg.Jira.URL,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return &Client{client: client}, nil
}

// IssueExists reports whether the issue with the given key exists.
func (c *Client) IssueExists(key string) (bool, error) {
	_, resp, err := c.client.Issue.Get(key, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, &models.TransportError{Op: "jira.IssueExists", Err: err}
	}
	return true, nil
}

// GetIssue retrieves the issue with the given key. It returns a
// models.NotFoundError when the issue does not exist.
func (c *Client) GetIssue(key string) (models.TrackerIssue, error) {
	issue, resp, err := c.client.Issue.Get(key, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return models.TrackerIssue{}, &models.NotFoundError{Key: key}
		}
		return models.TrackerIssue{}, &models.TransportError{Op: "jira.GetIssue", Err: err}
	}

	result := models.TrackerIssue{Key: issue.Key}
	if issue.Fields != nil {
		result.Summary = issue.Fields.Summary
		if issue.Fields.Status != nil {
			result.Status = issue.Fields.Status.Name
		}
	}
	return result, nil
}

// AddComment posts a comment on the issue with the given key.
func (c *Client) AddComment(key, body string) error {
	_, _, err := c.client.Issue.AddComment(key, &jira.Comment{Body: body})
	if err != nil {
		return &models.TransportError{Op: "jira.AddComment", Err: err}
	}

	logging.Debug("added jira comment", "key", key)
	return nil
}

// UpdateStatus transitions the issue to the status with the given id.
// JIRA only moves issues between statuses via transitions, so the status
// id is resolved to the available transition whose target status matches.
func (c *Client) UpdateStatus(key string, statusID int) error {
	transitions, _, err := c.client.Issue.GetTransitions(key)
	if err != nil {
		return &models.TransportError{Op: "jira.GetTransitions", Err: err}
	}

	target := strconv.Itoa(statusID)
	for _, transition := range transitions {
		if transition.To.ID != target {
			continue
		}

		if _, err := c.client.Issue.DoTransition(key, transition.ID); err != nil {
			return &models.TransportError{Op: "jira.DoTransition", Err: err}
		}

		logging.Debug("transitioned jira issue",
			"key", key,
			"status_id", statusID,
			"transition", transition.Name)
		return nil
	}

	return fmt.Errorf("no transition to status %d available for issue %s", statusID, key)
}
