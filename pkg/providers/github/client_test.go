package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("ethcatherders/pm", "test-token", CommitOptions{
		Path:        ".github/ACDbot/meeting_topic_mapping.json",
		Branch:      "main",
		Message:     "Update meeting-topic mapping",
		AuthorName:  "ACD Bot",
		AuthorEmail: "acdbot@users.noreply.github.com",
	})
	c.SetBaseURL(srv.URL)
	return c
}

func TestGetIssue(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/ethcatherders/pm/issues/123", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"number":   123,
			"title":    "All Core Devs - Execution",
			"body":     "Aug 29, 2025, 14:00 UTC",
			"html_url": "https://github.com/ethcatherders/pm/issues/123",
		})
	}))

	issue, err := c.GetIssue(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, 123, issue.Number)
	assert.Equal(t, "All Core Devs - Execution", issue.Title)
	assert.Contains(t, issue.Body, "14:00 UTC")
}

func TestGetIssueNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetIssue(context.Background(), 999)
	require.Error(t, err)
	pe, ok := boterrors.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.Equal(t, "github", pe.Provider)
}

func TestPostComment(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/ethcatherders/pm/issues/7/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.PostComment(context.Background(), 7, "Zoom meeting created")
	require.NoError(t, err)
	assert.Equal(t, "Zoom meeting created", gotBody["body"])
}

func TestCommitUpdatesExistingFile(t *testing.T) {
	var putPayload map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			json.NewEncoder(w).Encode(map[string]string{"sha": "abc123"})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putPayload))
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))

	content := []byte(`{"84000000000": {}}`)
	require.NoError(t, c.Commit(context.Background(), content))

	assert.Equal(t, "abc123", putPayload["sha"])
	assert.Equal(t, "Update meeting-topic mapping", putPayload["message"])
	assert.Equal(t, "main", putPayload["branch"])

	decoded, err := base64.StdEncoding.DecodeString(putPayload["content"].(string))
	require.NoError(t, err)
	assert.Equal(t, content, decoded)

	author := putPayload["author"].(map[string]interface{})
	assert.Equal(t, "ACD Bot", author["name"])
	assert.Equal(t, "acdbot@users.noreply.github.com", author["email"])
}

func TestCommitCreatesMissingFile(t *testing.T) {
	var putPayload map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putPayload))
			w.WriteHeader(http.StatusCreated)
		}
	}))

	require.NoError(t, c.Commit(context.Background(), []byte("{}")))
	_, hasSHA := putPayload["sha"]
	assert.False(t, hasSHA)
}

func TestCommitPropagatesLookupFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.Commit(context.Background(), []byte("{}"))
	require.Error(t, err)
	pe, ok := boterrors.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
}
