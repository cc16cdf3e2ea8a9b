// Package zoom is a server-to-server client for the meeting lifecycle
// the bot drives: scheduling, rescheduling, listing cloud recordings
// and downloading their transcripts.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

const (
	defaultBaseURL  = "https://api.zoom.us/v2"
	defaultTokenURL = "https://zoom.us/oauth/token"

	// scheduledMeeting is Zoom's type for a one-off scheduled meeting.
	scheduledMeeting = 2
)

// Recording is one cloud-recorded meeting from the recent listing.
type Recording struct {
	ID      string
	Topic   string
	EndTime time.Time
}

// Client talks to the Zoom REST API as one account.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client using the account_credentials OAuth flow.
func NewClient(accountID, clientID, clientSecret string) *Client {
	src := &accountTokenSource{
		tokenURL:     defaultTokenURL,
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: oauth2.NewClient(context.Background(), oauth2.ReuseTokenSource(nil, src)),
	}
}

// newClientWithHTTP wires a pre-authenticated transport. Used in tests.
func newClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: hc}
}

type meetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

// CreateMeeting schedules a meeting and returns its join URL and id.
// startUTC is an RFC 3339 UTC timestamp; duration is in minutes.
func (c *Client) CreateMeeting(ctx context.Context, topic, startUTC string, durationMinutes int) (string, string, error) {
	payload := map[string]interface{}{
		"topic":      topic,
		"type":       scheduledMeeting,
		"start_time": startUTC,
		"duration":   durationMinutes,
		"timezone":   "UTC",
		"settings": map[string]interface{}{
			"auto_recording":   "cloud",
			"join_before_host": true,
		},
	}
	var resp meetingResponse
	if err := c.do(ctx, http.MethodPost, "/users/me/meetings", payload, &resp, "create_meeting"); err != nil {
		return "", "", err
	}
	return resp.JoinURL, strconv.FormatInt(resp.ID, 10), nil
}

// UpdateMeeting reschedules an existing meeting and returns its join
// URL, which the PATCH response omits and a follow-up GET recovers.
func (c *Client) UpdateMeeting(ctx context.Context, meetingID, topic, startUTC string, durationMinutes int) (string, error) {
	payload := map[string]interface{}{
		"topic":      topic,
		"start_time": startUTC,
		"duration":   durationMinutes,
		"timezone":   "UTC",
	}
	path := "/meetings/" + meetingID
	if err := c.do(ctx, http.MethodPatch, path, payload, nil, "update_meeting"); err != nil {
		return "", err
	}
	var resp meetingResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "get_meeting"); err != nil {
		return "", err
	}
	return resp.JoinURL, nil
}

type recordingFile struct {
	FileType     string `json:"file_type"`
	DownloadURL  string `json:"download_url"`
	RecordingEnd string `json:"recording_end"`
}

type recordedMeeting struct {
	ID             int64           `json:"id"`
	Topic          string          `json:"topic"`
	StartTime      string          `json:"start_time"`
	Duration       int             `json:"duration"`
	RecordingFiles []recordingFile `json:"recording_files"`
}

type recordingListResponse struct {
	Meetings []recordedMeeting `json:"meetings"`
}

// ListRecentRecordings returns the account's cloud recordings from the
// last month, newest first as Zoom reports them.
func (c *Client) ListRecentRecordings(ctx context.Context) ([]Recording, error) {
	from := time.Now().UTC().AddDate(0, -1, 0).Format("2006-01-02")
	path := fmt.Sprintf("/users/me/recordings?from=%s&page_size=30", from)
	var resp recordingListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "list_recordings"); err != nil {
		return nil, err
	}

	out := make([]Recording, 0, len(resp.Meetings))
	for _, m := range resp.Meetings {
		out = append(out, Recording{
			ID:      strconv.FormatInt(m.ID, 10),
			Topic:   m.Topic,
			EndTime: m.endTime(),
		})
	}
	return out, nil
}

// endTime is the latest recording file end, falling back to the
// meeting's start plus duration when file timestamps are absent.
func (m recordedMeeting) endTime() time.Time {
	var end time.Time
	for _, f := range m.RecordingFiles {
		if t, err := time.Parse(time.RFC3339, f.RecordingEnd); err == nil && t.After(end) {
			end = t
		}
	}
	if !end.IsZero() {
		return end
	}
	if start, err := time.Parse(time.RFC3339, m.StartTime); err == nil {
		return start.Add(time.Duration(m.Duration) * time.Minute)
	}
	return time.Time{}
}

// FetchTranscript downloads the VTT transcript of a recorded meeting.
// A meeting without a transcript file resolves to ErrNotFound.
func (c *Client) FetchTranscript(ctx context.Context, meetingID string) (string, error) {
	var meeting recordedMeeting
	if err := c.do(ctx, http.MethodGet, "/meetings/"+meetingID+"/recordings", nil, &meeting, "get_recordings"); err != nil {
		return "", err
	}

	var downloadURL string
	for _, f := range meeting.RecordingFiles {
		if f.FileType == "TRANSCRIPT" {
			downloadURL = f.DownloadURL
			break
		}
	}
	if downloadURL == "" {
		return "", fmt.Errorf("meeting %s transcript: %w", meetingID, boterrors.ErrNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", boterrors.NewProviderError("zoom", "download_transcript", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", boterrors.NewProviderError("zoom", "download_transcript", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", boterrors.NewProviderStatusError("zoom", "download_transcript", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", boterrors.NewProviderError("zoom", "download_transcript", err)
	}
	return string(data), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return boterrors.NewProviderError("zoom", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return boterrors.NewProviderError("zoom", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return boterrors.NewProviderError("zoom", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return boterrors.NewProviderStatusError("zoom", op, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return boterrors.NewProviderError("zoom", op, err)
		}
	}
	return nil
}
