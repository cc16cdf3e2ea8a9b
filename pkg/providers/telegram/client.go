// Package telegram sends best-effort channel notifications through the
// Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

const defaultBaseURL = "https://api.telegram.org"

// Client posts messages to one chat as one bot.
type Client struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
}

// NewClient creates a Client for the bot identified by token.
func NewClient(token, chatID string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Send posts text to the configured chat.
func (c *Client) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": c.chatID,
		"text":    text,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return boterrors.NewProviderError("telegram", "send_message", err)
	}

	url := c.baseURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return boterrors.NewProviderError("telegram", "send_message", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return boterrors.NewProviderError("telegram", "send_message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return boterrors.NewProviderStatusError("telegram", "send_message", resp.StatusCode)
	}
	return nil
}
