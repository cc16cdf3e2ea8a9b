// Package discourse is a client for the three forum operations the bot
// performs: creating topics, editing the first post, and replying.
package discourse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

// Client talks to a Discourse instance with an admin API key.
type Client struct {
	baseURL    string
	apiKey     string
	apiUser    string
	httpClient *http.Client
}

// NewClient creates a Client for the forum at baseURL.
func NewClient(baseURL, apiKey, apiUser string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiUser:    apiUser,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type topicResponse struct {
	TopicID int64 `json:"topic_id"`
}

type topicDetail struct {
	PostStream struct {
		Posts []struct {
			ID int64 `json:"id"`
		} `json:"posts"`
	} `json:"post_stream"`
}

// CreateTopic opens a new topic in category and returns its id.
func (c *Client) CreateTopic(ctx context.Context, title, body string, category int) (int64, error) {
	payload := map[string]interface{}{
		"title":    title,
		"raw":      body,
		"category": category,
	}
	var resp topicResponse
	if err := c.do(ctx, http.MethodPost, "/posts.json", payload, &resp, "create_topic"); err != nil {
		return 0, err
	}
	return resp.TopicID, nil
}

// UpdateTopic rewrites the first post of an existing topic, and moves
// it into categoryID when the title changes too.
func (c *Client) UpdateTopic(ctx context.Context, topicID int64, title, body string, categoryID int) error {
	// The first post id has to be resolved from the topic's post stream.
	var detail topicDetail
	path := fmt.Sprintf("/t/%d.json", topicID)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail, "get_topic"); err != nil {
		return err
	}
	if len(detail.PostStream.Posts) == 0 {
		return boterrors.NewProviderError("discourse", "get_topic", fmt.Errorf("topic %d has no posts", topicID))
	}
	postID := detail.PostStream.Posts[0].ID

	if title != "" {
		titlePayload := map[string]interface{}{
			"title":       title,
			"category_id": categoryID,
		}
		if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/t/-/%d.json", topicID), titlePayload, nil, "update_title"); err != nil {
			return err
		}
	}
	postPayload := map[string]interface{}{
		"post": map[string]string{"raw": body},
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/posts/%d.json", postID), postPayload, nil, "update_post")
}

// ReplyToTopic appends a post to an existing topic.
func (c *Client) ReplyToTopic(ctx context.Context, topicID int64, body string) error {
	payload := map[string]interface{}{
		"topic_id": topicID,
		"raw":      body,
	}
	return c.do(ctx, http.MethodPost, "/posts.json", payload, nil, "reply_to_topic")
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return boterrors.NewProviderError("discourse", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return boterrors.NewProviderError("discourse", op, err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Api-Username", c.apiUser)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return boterrors.NewProviderError("discourse", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return boterrors.NewProviderStatusError("discourse", op, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return boterrors.NewProviderError("discourse", op, err)
		}
	}
	return nil
}
