package zoom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClientWithHTTP(srv.URL, srv.Client())
}

func TestAccountTokenSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "account_credentials", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "acct-1", r.URL.Query().Get("account_id"))
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-123",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)

	src := &accountTokenSource{
		tokenURL:     srv.URL,
		accountID:    "acct-1",
		clientID:     "client-id",
		clientSecret: "client-secret",
		httpClient:   srv.Client(),
	}
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok.AccessToken)
	assert.True(t, tok.Expiry.After(time.Now()))
}

func TestAccountTokenSourceRejectsEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	t.Cleanup(srv.Close)

	src := &accountTokenSource{tokenURL: srv.URL, httpClient: srv.Client()}
	_, err := src.Token()
	require.Error(t, err)
}

func TestCreateMeeting(t *testing.T) {
	var gotPayload map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/meetings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       84000000000,
			"join_url": "https://zoom.us/j/84000000000",
		})
	}))

	joinURL, id, err := c.CreateMeeting(context.Background(), "All Core Devs", "2025-08-29T14:00:00Z", 90)
	require.NoError(t, err)
	assert.Equal(t, "https://zoom.us/j/84000000000", joinURL)
	assert.Equal(t, "84000000000", id)
	assert.Equal(t, "All Core Devs", gotPayload["topic"])
	assert.Equal(t, "2025-08-29T14:00:00Z", gotPayload["start_time"])
	assert.Equal(t, float64(90), gotPayload["duration"])
	assert.Equal(t, float64(2), gotPayload["type"])
}

func TestUpdateMeetingRecoversJoinURL(t *testing.T) {
	var methods []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meetings/84000000000", r.URL.Path)
		methods = append(methods, r.Method)
		if r.Method == http.MethodPatch {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       84000000000,
			"join_url": "https://zoom.us/j/84000000000",
		})
	}))

	joinURL, err := c.UpdateMeeting(context.Background(), "84000000000", "topic", "2025-08-29T15:00:00Z", 60)
	require.NoError(t, err)
	assert.Equal(t, "https://zoom.us/j/84000000000", joinURL)
	assert.Equal(t, []string{http.MethodPatch, http.MethodGet}, methods)
}

func TestListRecentRecordings(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/recordings", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"meetings": []map[string]interface{}{
				{
					"id":    84000000001,
					"topic": "ACDE 220",
					"recording_files": []map[string]string{
						{"file_type": "MP4", "recording_end": "2025-08-29T15:25:00Z"},
						{"file_type": "TRANSCRIPT", "recording_end": "2025-08-29T15:30:00Z"},
					},
				},
				{
					"id":         84000000002,
					"topic":      "ACDC 160",
					"start_time": "2025-08-28T14:00:00Z",
					"duration":   60,
				},
			},
		})
	}))

	recs, err := c.ListRecentRecordings(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "84000000001", recs[0].ID)
	assert.Equal(t, "ACDE 220", recs[0].Topic)
	assert.Equal(t, time.Date(2025, 8, 29, 15, 30, 0, 0, time.UTC), recs[0].EndTime)

	// No file timestamps, so the end falls back to start plus duration.
	assert.Equal(t, time.Date(2025, 8, 28, 15, 0, 0, 0, time.UTC), recs[1].EndTime)
}

func TestFetchTranscript(t *testing.T) {
	const vtt = "WEBVTT\n\n1\n00:00:01.000 --> 00:00:03.000\nTim: welcome everyone\n"
	downloadHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(vtt))
	}))
	t.Cleanup(downloadHost.Close)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meetings/84000000001/recordings", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 84000000001,
			"recording_files": []map[string]string{
				{"file_type": "MP4", "download_url": downloadHost.URL + "/video"},
				{"file_type": "TRANSCRIPT", "download_url": downloadHost.URL + "/vtt"},
			},
		})
	}))

	got, err := c.FetchTranscript(context.Background(), "84000000001")
	require.NoError(t, err)
	assert.Equal(t, vtt, got)
}

func TestFetchTranscriptMissingFile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 84000000001,
			"recording_files": []map[string]string{
				{"file_type": "MP4", "download_url": "https://example.com/video"},
			},
		})
	}))

	_, err := c.FetchTranscript(context.Background(), "84000000001")
	require.Error(t, err)
	assert.True(t, boterrors.IsNotFound(err))
}
