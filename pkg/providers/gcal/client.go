// Package gcal is a client for the Google Calendar events API, scoped
// to creating and rescheduling the bot's meeting events.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Client talks to the Calendar API with a bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client authenticating with accessToken.
func NewClient(accessToken string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: oauth2.NewClient(context.Background(), src),
	}
}

// newClientWithHTTP wires a pre-authenticated transport. Used in tests.
func newClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: hc}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventPayload struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// CreateEvent inserts an event and returns its public link, which
// carries the event id in its eid parameter.
func (c *Client) CreateEvent(ctx context.Context, summary, startUTC string, durationMinutes int, calendarID, description string) (string, error) {
	payload, err := buildEvent(summary, startUTC, durationMinutes, description)
	if err != nil {
		return "", err
	}
	var resp eventResponse
	path := "/calendars/" + url.PathEscape(calendarID) + "/events"
	if err := c.do(ctx, http.MethodPost, path, payload, &resp, "create_event"); err != nil {
		return "", err
	}
	return resp.HTMLLink, nil
}

// UpdateEvent reschedules an existing event and returns its link.
func (c *Client) UpdateEvent(ctx context.Context, eventID, summary, startUTC string, durationMinutes int, calendarID, description string) (string, error) {
	payload, err := buildEvent(summary, startUTC, durationMinutes, description)
	if err != nil {
		return "", err
	}
	var resp eventResponse
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	if err := c.do(ctx, http.MethodPut, path, payload, &resp, "update_event"); err != nil {
		return "", err
	}
	return resp.HTMLLink, nil
}

func buildEvent(summary, startUTC string, durationMinutes int, description string) (eventPayload, error) {
	start, err := time.Parse(time.RFC3339, startUTC)
	if err != nil {
		return eventPayload{}, boterrors.NewProviderError("gcal", "build_event", err)
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return eventPayload{
		Summary:     summary,
		Description: description,
		Start:       eventTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:         eventTime{DateTime: end.Format(time.RFC3339), TimeZone: "UTC"},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return boterrors.NewProviderError("gcal", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return boterrors.NewProviderError("gcal", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return boterrors.NewProviderError("gcal", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return boterrors.NewProviderStatusError("gcal", op, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return boterrors.NewProviderError("gcal", op, err)
		}
	}
	return nil
}
