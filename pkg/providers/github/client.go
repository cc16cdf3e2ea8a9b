// Package github is a thin client for the two GitHub surfaces the bot
// needs: reading issues and posting comments, and committing the
// mapping file back to the repository through the contents API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

const defaultBaseURL = "https://api.github.com"

// Issue is the subset of issue fields the bot consumes.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"html_url"`
}

// CommitOptions fixes the identity and target of checkpoint commits.
type CommitOptions struct {
	// Path is the repository-relative file path.
	Path string

	// Branch is the target ref.
	Branch string

	// Message is the fixed commit message.
	Message string

	// AuthorName and AuthorEmail attribute the commit to the bot.
	AuthorName  string
	AuthorEmail string
}

// Client talks to the GitHub REST API for one repository.
type Client struct {
	baseURL    string
	repo       string // owner/name
	token      string
	commitOpts CommitOptions
	httpClient *http.Client
}

// NewClient creates a Client for repo ("owner/name").
func NewClient(repo, token string, commitOpts CommitOptions) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		repo:       repo,
		token:      token,
		commitOpts: commitOpts,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// GetIssue fetches an issue by number.
func (c *Client) GetIssue(ctx context.Context, number int) (Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/repos/%s/issues/%d", c.repo, number)
	if err := c.do(ctx, http.MethodGet, path, nil, &issue, "get_issue"); err != nil {
		return Issue{}, err
	}
	return issue, nil
}

// PostComment appends a comment to an issue.
func (c *Client) PostComment(ctx context.Context, number int, text string) error {
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", c.repo, number)
	body := map[string]string{"body": text}
	return c.do(ctx, http.MethodPost, path, body, nil, "post_comment")
}

// contentsResponse is the slice of the contents API response we need.
type contentsResponse struct {
	SHA string `json:"sha"`
}

// Commit publishes content as a commit to the mapping file, updating
// the existing blob when one exists and creating the file otherwise.
func (c *Client) Commit(ctx context.Context, content []byte) error {
	path := fmt.Sprintf("/repos/%s/contents/%s", c.repo, c.commitOpts.Path)

	// Fetch the current blob SHA; a 404 means the file is new.
	var current contentsResponse
	sha := ""
	err := c.do(ctx, http.MethodGet, path+"?ref="+c.commitOpts.Branch, nil, &current, "get_contents")
	if err == nil {
		sha = current.SHA
	} else if pe, ok := boterrors.AsProviderError(err); !ok || pe.StatusCode != http.StatusNotFound {
		return err
	}

	author := map[string]string{
		"name":  c.commitOpts.AuthorName,
		"email": c.commitOpts.AuthorEmail,
	}
	payload := map[string]interface{}{
		"message": c.commitOpts.Message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.commitOpts.Branch,
		"author":  author,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	return c.do(ctx, http.MethodPut, path, payload, nil, "put_contents")
}

// do issues one JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return boterrors.NewProviderError("github", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return boterrors.NewProviderError("github", op, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return boterrors.NewProviderError("github", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return boterrors.NewProviderStatusError("github", op, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return boterrors.NewProviderError("github", op, err)
		}
	}
	return nil
}
