// Package mapping implements the durable record of truth linking
// meetings to their cross-system state: the originating GitHub issue,
// the Discourse topic, the calendar event and the harvester's
// idempotency flags. The mapping is persisted as a single JSON file
// (object keyed by meeting id) and committed back to the repository
// after every mutation so state survives process restarts.
package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is the structured per-meeting entry.
type Record struct {
	// MeetingID duplicates the mapping key; assigned by the meeting
	// provider and immutable for the meeting's lifetime.
	MeetingID string `json:"meeting_id,omitempty"`

	// DiscourseTopicID is the linked discussion topic. Nil means the
	// record is incomplete and subject to pruning.
	DiscourseTopicID *int64 `json:"discourse_topic_id"`

	// IssueTitle and IssueNumber link back to the originating issue.
	// IssueNumber is the join key: at most one non-legacy record per
	// issue number.
	IssueTitle  string `json:"issue_title,omitempty"`
	IssueNumber int    `json:"issue_number,omitempty"`

	// StartTime (ISO-8601 UTC) and Duration (minutes) are the last
	// schedule pushed to the provider; compared against freshly parsed
	// values to detect drift.
	StartTime string `json:"start_time,omitempty"`
	Duration  int    `json:"duration,omitempty"`

	// CalendarEventID is set after the first successful calendar
	// creation.
	CalendarEventID string `json:"calendar_event_id,omitempty"`

	// Idempotency flags for the harvester. The upload flag keeps the
	// historical capitalized wire name for file compatibility.
	YoutubeUploadProcessed bool `json:"Youtube_upload_processed"`
	TranscriptProcessed    bool `json:"transcript_processed"`

	// Attempt counters, monotonically increasing; retry budget consumed
	// on failure.
	UploadAttemptCount     int `json:"upload_attempt_count"`
	TranscriptAttemptCount int `json:"transcript_attempt_count"`
}

// TopicID returns the discourse topic id, or 0 and false when unset.
func (r *Record) TopicID() (int64, bool) {
	if r.DiscourseTopicID == nil {
		return 0, false
	}
	return *r.DiscourseTopicID, true
}

// SetTopicID sets the discourse topic id.
func (r *Record) SetTopicID(id int64) {
	r.DiscourseTopicID = &id
}

// Entry is the tagged variant stored per meeting id: either a full
// Record or a legacy bare scalar (a discourse topic id from before the
// structured format). The variant is resolved once, at decode time;
// callers use IsLegacy and TopicID instead of inspecting shapes.
type Entry struct {
	record        *Record
	legacyTopicID int64
	legacy        bool
}

// NewEntry wraps a structured record.
func NewEntry(r *Record) *Entry {
	return &Entry{record: r}
}

// IsLegacy reports whether the entry is a legacy bare scalar.
func (e *Entry) IsLegacy() bool {
	return e.legacy
}

// Record returns the structured record, or nil for legacy entries.
func (e *Entry) Record() *Record {
	return e.record
}

// TopicID returns the discourse topic id for either variant.
func (e *Entry) TopicID() (int64, bool) {
	if e.legacy {
		return e.legacyTopicID, true
	}
	if e.record != nil {
		return e.record.TopicID()
	}
	return 0, false
}

// UnmarshalJSON resolves the stored shape: objects decode as records,
// bare numbers or numeric strings as legacy topic ids.
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty mapping entry")
	}

	if trimmed[0] == '{' {
		var r Record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return err
		}
		*e = Entry{record: &r}
		return nil
	}

	var n int64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		*e = Entry{legacyTopicID: n, legacy: true}
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("legacy mapping entry %q is not a topic id", s)
		}
		*e = Entry{legacyTopicID: id, legacy: true}
		return nil
	}

	return fmt.Errorf("unsupported mapping entry shape: %s", trimmed)
}

// MarshalJSON writes records as objects and untouched legacy entries
// back as their original scalar, keeping unmodified file content
// byte-stable across runs.
func (e *Entry) MarshalJSON() ([]byte, error) {
	if e.legacy {
		return json.Marshal(e.legacyTopicID)
	}
	return json.Marshal(e.record)
}
