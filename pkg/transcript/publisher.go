package transcript

import (
	"context"
	"fmt"
	"strings"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
	"github.com/ethcatherders/acdbot/pkg/logging"
)

// Source fetches raw transcript content for a meeting.
type Source interface {
	FetchTranscript(ctx context.Context, meetingID string) (string, error)
}

// Forum is the slice of the discussion board the publisher needs.
type Forum interface {
	CreateTopic(ctx context.Context, title, body string, categoryID int) (int64, error)
	ReplyToTopic(ctx context.Context, topicID int64, body string) error
}

// Publisher fetches a meeting's transcript and posts it to the forum.
type Publisher struct {
	source     Source
	forum      Forum
	categoryID int
	log        logging.Logger
}

// NewPublisher creates a Publisher posting into categoryID.
func NewPublisher(source Source, forum Forum, categoryID int, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.Nop()
	}
	return &Publisher{source: source, forum: forum, categoryID: categoryID, log: log}
}

// Publish fetches and renders the transcript for meetingID and posts
// it. With a known topic id it is appended as a reply; with topicID
// zero a new topic is created, titled after meetingTopic, and its id
// returned. An empty transcript is a validation error; the provider
// has not produced the artifact yet.
func (p *Publisher) Publish(ctx context.Context, meetingID string, topicID int64, meetingTopic string) (int64, error) {
	raw, err := p.source.FetchTranscript(ctx, meetingID)
	if err != nil {
		return 0, fmt.Errorf("fetching transcript for meeting %s: %w", meetingID, err)
	}
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("meeting %s: empty transcript: %w", meetingID, boterrors.ErrValidation)
	}

	parsed, err := ParseVTT(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing transcript for meeting %s: %w", meetingID, err)
	}
	if len(parsed.Segments) == 0 {
		return 0, fmt.Errorf("meeting %s: transcript has no cues: %w", meetingID, boterrors.ErrValidation)
	}
	body := Render(parsed)

	if topicID != 0 {
		if err := p.forum.ReplyToTopic(ctx, topicID, body); err != nil {
			return 0, err
		}
		p.log.Info("transcript posted",
			logging.F("meeting_id", meetingID),
			logging.F("topic_id", topicID),
			logging.F("segments", len(parsed.Segments)))
		return topicID, nil
	}

	title := meetingTopic
	if title == "" {
		title = "Meeting " + meetingID
	}
	newID, err := p.forum.CreateTopic(ctx, title, body, p.categoryID)
	if err != nil {
		return 0, err
	}
	p.log.Info("transcript topic created",
		logging.F("meeting_id", meetingID),
		logging.F("topic_id", newID),
		logging.F("segments", len(parsed.Segments)))
	return newID, nil
}
