// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/stitch/internal/config"
	"github.com/danielolaszy/stitch/internal/logging"
	"github.com/danielolaszy/stitch/pkg/models"
)

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub API client from the given configuration.
// It initializes the client with the appropriate base URL, authenticates
// with the GitHub API, and tests the connection. It returns the configured
// client or an error if initialization fails.
func NewClient(cfg *config.Config) (*Client, error) {
	token := cfg.GitHub.Token
	if token == "" {
		return nil, &models.ConfigurationError{Missing: []string{"GITHUB_TOKEN"}}
	}

	// Get domain from config, default to github.com
	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = "github.com"
	}

	// Construct API URL based on domain
	var apiURL string
	if domain == "github.com" {
		apiURL = "https://api.github.com/"
	} else {
		apiURL = fmt.Sprintf("https://%s/api/v3/", domain)
	}

	logging.Debug("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(token))

	// Create the oauth2 client
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	// Create GitHub client with custom base URL
	client := github.NewClient(tc)

	// If not using default GitHub.com, set custom API endpoint
	if domain != "github.com" {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}

		client.BaseURL = parsedURL

		// For GitHub Enterprise, set the upload URL to the same endpoint
		client.UploadURL = parsedURL
	}

	// Test the token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, &models.TransportError{Op: "github.NewClient", Err: err}
	}

	logging.Info("github authentication successful",
		"username", user.GetLogin())

	return &Client{client: client}, nil
}

// parseRepository splits an "owner/repo" repository string.
func parseRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo", repository)
	}
	return parts[0], parts[1], nil
}

// GetPullRequest retrieves a pull request and converts it to our internal
// model. The repository should be in the format "owner/repo".
func (c *Client) GetPullRequest(repository string, number int) (models.PullRequest, error) {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return models.PullRequest{}, err
	}

	ctx := context.Background()

	pr, _, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return models.PullRequest{}, &models.TransportError{Op: "github.GetPullRequest", Err: err}
	}

	return models.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		Draft:  pr.GetDraft(),
		Merged: pr.GetMerged(),
		Author: pr.GetUser().GetLogin(),
	}, nil
}

// ListComments retrieves all comments on a pull request, following
// pagination. The repository should be in the format "owner/repo".
func (c *Client) ListComments(repository string, number int) ([]models.PRComment, error) {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	// Pull request conversation comments live on the Issues API.
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var result []models.PRComment
	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, &models.TransportError{Op: "github.ListComments", Err: err}
		}

		for _, comment := range comments {
			result = append(result, models.PRComment{
				ID:   comment.GetID(),
				Body: comment.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logging.Debug("retrieved pull request comments",
		"repository", repository,
		"pr", number,
		"count", len(result))
	return result, nil
}

// AddComment posts a comment on a pull request. The repository should be
// in the format "owner/repo".
func (c *Client) AddComment(repository string, number int, body string) error {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return err
	}

	ctx := context.Background()

	comment := &github.IssueComment{Body: github.String(body)}
	_, _, err = c.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		return &models.TransportError{Op: "github.AddComment", Err: err}
	}

	logging.Debug("added pull request comment", "repository", repository, "pr", number)
	return nil
}

// UpdateBody replaces the description of a pull request. The repository
// should be in the format "owner/repo".
func (c *Client) UpdateBody(repository string, number int, body string) error {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return err
	}

	ctx := context.Background()

	_, _, err = c.client.PullRequests.Edit(ctx, owner, repo, number, &github.PullRequest{
		Body: github.String(body),
	})
	if err != nil {
		return &models.TransportError{Op: "github.UpdateBody", Err: err}
	}

	logging.Debug("updated pull request body", "repository", repository, "pr", number)
	return nil
}
