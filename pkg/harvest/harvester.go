// Package harvest implements the periodic transcript harvester: it
// scans mapped meetings (or one forced meeting id), decides which have
// ended long enough ago for the provider to have produced a
// transcript, publishes each transcript to its discussion topic
// exactly once, and records progress in the mapping store after every
// candidate so partial progress survives a crash.
package harvest

import (
	"context"
	"fmt"
	"time"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
	"github.com/ethcatherders/acdbot/pkg/logging"
	"github.com/ethcatherders/acdbot/pkg/mapping"
)

// Recording is one entry from the provider's recent-recordings listing.
type Recording struct {
	ID      string
	Topic   string
	EndTime time.Time
}

// RecordingLister lists recently recorded meetings from the provider.
type RecordingLister interface {
	ListRecentRecordings(ctx context.Context) ([]Recording, error)
}

// Publisher posts a meeting's transcript to the forum, creating a topic
// when topicID is zero, and returns the topic id used.
type Publisher interface {
	Publish(ctx context.Context, meetingID string, topicID int64, meetingTopic string) (int64, error)
}

// Store is the mapping store surface the harvester uses.
type Store interface {
	Load() (*mapping.Mapping, error)
	Save(m *mapping.Mapping) error
	Commit(ctx context.Context) error
}

// Options carries the harvester tunables.
type Options struct {
	// GracePeriod is how long after a meeting's end the transcript is
	// assumed to be ready.
	GracePeriod time.Duration

	// MaxUploadAttempts is the terminal retry ceiling per meeting.
	MaxUploadAttempts int

	// RecentWindow is how many of the newest mapping entries the sweep
	// checks before falling back to the provider listing.
	RecentWindow int
}

// Harvester retrieves post-meeting transcripts and marks them processed.
type Harvester struct {
	store     Store
	meetings  RecordingLister
	publisher Publisher
	opts      Options
	log       logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Harvester.
func New(store Store, meetings RecordingLister, publisher Publisher, opts Options, log logging.Logger) *Harvester {
	if log == nil {
		log = logging.Nop()
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 3 * time.Hour
	}
	if opts.MaxUploadAttempts <= 0 {
		opts.MaxUploadAttempts = 10
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 5
	}
	return &Harvester{
		store:     store,
		meetings:  meetings,
		publisher: publisher,
		opts:      opts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Harvest runs one harvesting pass. With a forced meeting id it
// processes exactly that meeting, requiring an existing mapping.
// Otherwise it sweeps the recent mapping backlog first and falls back
// to the provider's recording list only when the backlog yielded
// nothing.
func (h *Harvester) Harvest(ctx context.Context, forcedID string) error {
	if forcedID != "" {
		return h.harvestForced(ctx, forcedID)
	}

	processed, err := h.sweepRecent(ctx)
	if err != nil {
		return err
	}
	if processed > 0 {
		h.log.Info("recent backlog sweep complete", logging.F("processed", processed))
		return nil
	}

	h.log.Info("no recent unprocessed meetings found, checking provider recordings")
	return h.sweepRecordings(ctx)
}

// harvestForced processes one meeting that must already be mapped.
// Existing record fields (flags, attempt counters, calendar linkage)
// are preserved; a legacy scalar entry is normalized to a structured
// record on this write.
func (h *Harvester) harvestForced(ctx context.Context, meetingID string) error {
	m, err := h.store.Load()
	if err != nil {
		return err
	}

	entry, ok := m.Get(meetingID)
	if !ok {
		return fmt.Errorf("no mapping for meeting %s: %w", meetingID, boterrors.ErrNotFound)
	}
	topicID, ok := entry.TopicID()
	if !ok {
		return fmt.Errorf("no discourse topic mapped for meeting %s: %w", meetingID, boterrors.ErrNotFound)
	}

	rec := entry.Record()
	if rec == nil {
		rec = &mapping.Record{MeetingID: meetingID, IssueTitle: "Meeting " + meetingID}
		rec.SetTopicID(topicID)
	}

	h.log.Info("force processing meeting", logging.F("meeting_id", meetingID))
	if _, err := h.publisher.Publish(ctx, meetingID, topicID, rec.IssueTitle); err != nil {
		h.log.Error("forced harvest failed", logging.F("meeting_id", meetingID), logging.Err(err))
		return nil
	}

	rec.TranscriptProcessed = true
	m.SetRecord(meetingID, rec)
	return h.persist(ctx, m)
}

// sweepRecent is tier 1: the newest mapping entries, newest first.
// Progress is persisted and checkpointed per meeting.
func (h *Harvester) sweepRecent(ctx context.Context) (int, error) {
	m, err := h.store.Load()
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, meetingID := range m.Newest(h.opts.RecentWindow) {
		entry, _ := m.Get(meetingID)
		if entry.IsLegacy() {
			continue
		}
		rec := entry.Record()
		if rec.TranscriptProcessed {
			continue
		}
		if rec.UploadAttemptCount >= h.opts.MaxUploadAttempts {
			continue
		}

		h.log.Info("processing meeting from backlog", logging.F("meeting_id", meetingID))
		topicID, _ := rec.TopicID()
		newTopicID, err := h.publisher.Publish(ctx, meetingID, topicID, rec.IssueTitle)
		if err != nil {
			h.log.Error("backlog harvest failed", logging.F("meeting_id", meetingID), logging.Err(err))
			continue
		}

		rec.SetTopicID(newTopicID)
		rec.TranscriptProcessed = true
		if err := h.persist(ctx, m); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// sweepRecordings is tier 2: live discovery from the provider. Every
// candidate's outcome, success or failure, is persisted before moving
// on.
func (h *Harvester) sweepRecordings(ctx context.Context) error {
	m, err := h.store.Load()
	if err != nil {
		return err
	}

	recordings, err := h.meetings.ListRecentRecordings(ctx)
	if err != nil {
		return err
	}

	var candidates []Recording
	for _, rec := range recordings {
		if rec.ID == "" || rec.EndTime.IsZero() {
			continue
		}
		if entry, ok := m.Get(rec.ID); ok {
			if entry.IsLegacy() {
				h.log.Debug("meeting already processed (legacy entry)", logging.F("meeting_id", rec.ID))
				continue
			}
			r := entry.Record()
			if _, hasTopic := r.TopicID(); hasTopic && r.TranscriptProcessed {
				h.log.Debug("meeting already processed", logging.F("meeting_id", rec.ID))
				continue
			}
		}
		if h.now().Sub(rec.EndTime) < h.opts.GracePeriod {
			h.log.Info("meeting not yet eligible", logging.F("meeting_id", rec.ID))
			continue
		}
		candidates = append(candidates, rec)
	}

	if len(candidates) == 0 {
		h.log.Info("no new meetings to process")
		return nil
	}

	for _, candidate := range candidates {
		record := h.ensureRecord(m, candidate.ID)
		if record.TranscriptProcessed {
			continue
		}
		if record.UploadAttemptCount >= h.opts.MaxUploadAttempts {
			h.log.Warn("skipping meeting, max upload attempts reached",
				logging.F("meeting_id", candidate.ID),
				logging.F("attempts", record.UploadAttemptCount))
			continue
		}

		h.log.Info("processing meeting", logging.F("meeting_id", candidate.ID), logging.F("topic", candidate.Topic))
		topicID, _ := record.TopicID()
		newTopicID, err := h.publisher.Publish(ctx, candidate.ID, topicID, candidate.Topic)
		if err != nil {
			record.UploadAttemptCount++
			h.log.Error("harvest failed",
				logging.F("meeting_id", candidate.ID),
				logging.F("attempts", record.UploadAttemptCount),
				logging.Err(err))
		} else {
			record.SetTopicID(newTopicID)
			record.TranscriptProcessed = true
		}

		if err := h.persist(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// ensureRecord returns the structured record for a meeting id, adding
// an empty one to the mapping when absent.
func (h *Harvester) ensureRecord(m *mapping.Mapping, meetingID string) *mapping.Record {
	if entry, ok := m.Get(meetingID); ok && entry.Record() != nil {
		return entry.Record()
	}
	rec := &mapping.Record{MeetingID: meetingID}
	m.SetRecord(meetingID, rec)
	return rec
}

// persist saves the mapping and publishes a checkpoint.
func (h *Harvester) persist(ctx context.Context, m *mapping.Mapping) error {
	if err := h.store.Save(m); err != nil {
		return err
	}
	return h.store.Commit(ctx)
}
