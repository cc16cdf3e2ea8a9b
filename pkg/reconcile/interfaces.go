// Package reconcile drives the create/update decisions that keep a
// meeting-bearing issue, its discussion topic, its meeting and its
// calendar event in sync, with the mapping store as the record of
// truth. One Reconcile call processes one issue.
package reconcile

import (
	"context"

	"github.com/ethcatherders/acdbot/pkg/mapping"
)

// Issue is the originating issue's view as the reconciler needs it.
type Issue struct {
	Number int
	Title  string
	Body   string
	URL    string
}

// IssueSource reads issues and posts feedback comments.
type IssueSource interface {
	GetIssue(ctx context.Context, number int) (Issue, error)
	PostComment(ctx context.Context, number int, text string) error
}

// DiscussionBoard creates and updates forum topics.
type DiscussionBoard interface {
	CreateTopic(ctx context.Context, title, body string, categoryID int) (int64, error)
	UpdateTopic(ctx context.Context, topicID int64, title, body string, categoryID int) error
}

// MeetingProvider creates and updates meetings.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, topic, startUTC string, durationMinutes int) (joinURL, meetingID string, err error)
	UpdateMeeting(ctx context.Context, meetingID, topic, startUTC string, durationMinutes int) (joinURL string, err error)
}

// Calendar creates and updates calendar events. Both calls return the
// event's public link.
type Calendar interface {
	CreateEvent(ctx context.Context, summary, startUTC string, durationMinutes int, calendarID, description string) (eventLink string, err error)
	UpdateEvent(ctx context.Context, eventID, summary, startUTC string, durationMinutes int, calendarID, description string) (eventLink string, err error)
}

// Notifier pushes best-effort chat notifications. Failures are logged
// and swallowed by the reconciler.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Store is the mapping store surface the reconciler uses.
type Store interface {
	Load() (*mapping.Mapping, error)
	Save(m *mapping.Mapping) error
	Commit(ctx context.Context) error
}
