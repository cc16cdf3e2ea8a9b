package reconcile

import (
	"context"
	"fmt"
	"strings"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
	"github.com/ethcatherders/acdbot/pkg/logging"
	"github.com/ethcatherders/acdbot/pkg/mapping"
	"github.com/ethcatherders/acdbot/pkg/schedule"
)

// Options carries the fixed identifiers the reconciler writes into
// downstream systems.
type Options struct {
	// DiscourseBaseURL is used to render topic URLs in comments.
	DiscourseBaseURL string

	// CategoryID is the forum category for meeting topics.
	CategoryID int

	// CalendarID is the target calendar for meeting events.
	CalendarID string
}

// Result summarizes one reconcile run for reporting.
type Result struct {
	TopicID     int64
	TopicAction string // "created" or "updated"
	TopicURL    string

	MeetingID     string
	MeetingAction string // "created", "updated" or "unchanged"
	JoinURL       string

	CalendarEventID string

	// ParseFailure holds the schedule parse reason when the meeting and
	// calendar phases were skipped.
	ParseFailure string
}

// Reconciler executes the per-issue state machine.
type Reconciler struct {
	issues   IssueSource
	forum    DiscussionBoard
	meetings MeetingProvider
	calendar Calendar
	notifier Notifier
	store    Store
	opts     Options
	log      logging.Logger
}

// New creates a Reconciler.
func New(issues IssueSource, forum DiscussionBoard, meetings MeetingProvider, calendar Calendar, notifier Notifier, store Store, opts Options, log logging.Logger) *Reconciler {
	if log == nil {
		log = logging.Nop()
	}
	return &Reconciler{
		issues:   issues,
		forum:    forum,
		meetings: meetings,
		calendar: calendar,
		notifier: notifier,
		store:    store,
		opts:     opts,
		log:      log,
	}
}

// Reconcile processes one issue: upserts the discussion topic, detects
// schedule drift, upserts the meeting and calendar event, reports the
// outcome as an issue comment and prunes incomplete records.
//
// The discussion-topic phase is fail-fast: its error aborts the run,
// since nothing downstream is consistent without a topic. Everything
// after it is recovered per-phase; the run always reaches
// comment-posting.
func (r *Reconciler) Reconcile(ctx context.Context, issue Issue) (*Result, error) {
	if issue.Body == "" {
		issue.Body = "(No issue body provided.)"
	}

	m, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var commentLines []string

	// Phase 1: discussion topic. Not exception-guarded on purpose.
	if err := r.resolveTopic(ctx, issue, m, result); err != nil {
		return nil, fmt.Errorf("discussion topic phase: %w", err)
	}
	commentLines = append(commentLines,
		fmt.Sprintf("**Discourse Topic ID:** %d", result.TopicID),
		fmt.Sprintf("- Action: %s", capitalize(result.TopicAction)),
		fmt.Sprintf("- URL: %s", result.TopicURL),
	)

	// Phase 2: schedule. A parse failure downgrades the meeting and
	// calendar phases to no-ops and is surfaced in the comment.
	sched, err := schedule.Extract(issue.Body)
	if pe, ok := boterrors.AsParseError(err); ok {
		result.ParseFailure = pe.Reason
		r.log.Warn("no schedule parsed, skipping meeting and calendar",
			logging.F("issue", issue.Number),
			logging.F("reason", pe.Reason))
		commentLines = append(commentLines,
			"",
			"**Meeting Setup Skipped**",
			fmt.Sprintf("- Reason: %s", pe.Reason),
		)
	} else if err != nil {
		return nil, err
	} else {
		// Phases 3-5: meeting, record, calendar. Faults here are logged
		// and never abort the run.
		if err := r.resolveMeeting(ctx, issue, m, sched, result, &commentLines); err != nil {
			r.log.Error("meeting/calendar phase failed",
				logging.F("issue", issue.Number),
				logging.Err(err))
		}
	}

	// Phase 6: report.
	if err := r.issues.PostComment(ctx, issue.Number, strings.Join(commentLines, "\n")); err != nil {
		r.log.Error("posting issue comment failed", logging.F("issue", issue.Number), logging.Err(err))
	}
	r.notify(ctx, issue, result)

	// Phase 7: prune records that never got a topic.
	if removed := m.PruneIncomplete(); removed > 0 {
		r.log.Info("pruned incomplete records", logging.F("count", removed))
		if err := r.persist(ctx, m); err != nil {
			r.log.Error("persisting pruned mapping failed", logging.Err(err))
		}
	}

	return result, nil
}

// resolveTopic updates the topic mapped to this issue, or creates one.
func (r *Reconciler) resolveTopic(ctx context.Context, issue Issue, m *mapping.Mapping, result *Result) error {
	if _, rec, ok := m.FindByIssue(issue.Number); ok {
		if id, has := rec.TopicID(); has {
			if err := r.forum.UpdateTopic(ctx, id, issue.Title, issue.Body, r.opts.CategoryID); err != nil {
				return err
			}
			result.TopicID = id
			result.TopicAction = "updated"
			result.TopicURL = r.topicURL(id)
			r.log.Info("discourse topic updated", logging.F("topic_id", id))
			return nil
		}
	}

	id, err := r.forum.CreateTopic(ctx, issue.Title, issue.Body, r.opts.CategoryID)
	if err != nil {
		return err
	}
	result.TopicID = id
	result.TopicAction = "created"
	result.TopicURL = r.topicURL(id)
	r.log.Info("discourse topic created", logging.F("topic_id", id))
	return nil
}

// resolveMeeting runs the meeting upsert, record persistence and
// calendar upsert.
func (r *Reconciler) resolveMeeting(ctx context.Context, issue Issue, m *mapping.Mapping, sched schedule.Schedule, result *Result, commentLines *[]string) error {
	startUTC := sched.StartUTC()
	meetingUpdated := false

	existingID, existing, found := m.FindByIssue(issue.Number)
	switch {
	case !found:
		joinURL, meetingID, err := r.meetings.CreateMeeting(ctx, issue.Title, startUTC, sched.DurationMinutes)
		if err != nil {
			return err
		}
		result.MeetingID = meetingID
		result.MeetingAction = "created"
		result.JoinURL = joinURL
		meetingUpdated = true
		*commentLines = append(*commentLines,
			"",
			"**Zoom Meeting Created**",
			fmt.Sprintf("- Meeting URL: %s", joinURL),
			fmt.Sprintf("- Meeting ID: %s", meetingID),
		)
		r.log.Info("meeting created", logging.F("meeting_id", meetingID))

	case existing.StartTime == startUTC && existing.Duration == sched.DurationMinutes &&
		existing.StartTime != "" && existing.Duration != 0:
		// No drift: no provider call, reuse the meeting id.
		result.MeetingID = existingID
		result.MeetingAction = "unchanged"
		r.log.Debug("no schedule drift detected, skipping meeting update",
			logging.F("meeting_id", existingID))

	default:
		// Drift, or a record missing stored values. The meeting id is
		// immutable: always update in place, never create.
		joinURL, err := r.meetings.UpdateMeeting(ctx, existingID, issue.Title, startUTC, sched.DurationMinutes)
		if err != nil {
			return err
		}
		result.MeetingID = existingID
		result.MeetingAction = "updated"
		result.JoinURL = joinURL
		meetingUpdated = true
		*commentLines = append(*commentLines,
			"",
			"**Zoom Meeting Updated**",
			fmt.Sprintf("- Meeting URL: %s", joinURL),
			fmt.Sprintf("- Meeting ID: %s", existingID),
		)
		r.log.Info("meeting updated", logging.F("meeting_id", existingID))
	}

	// Phase 4: persist the full record when anything changed,
	// preserving idempotency flags and attempt counters.
	rec := existing
	if rec == nil {
		rec = &mapping.Record{}
	}
	rec.MeetingID = result.MeetingID
	rec.SetTopicID(result.TopicID)
	rec.IssueTitle = issue.Title
	rec.IssueNumber = issue.Number
	rec.StartTime = startUTC
	rec.Duration = sched.DurationMinutes

	if meetingUpdated || !found {
		m.SetRecord(result.MeetingID, rec)
		if err := r.persist(ctx, m); err != nil {
			return err
		}
	}

	// Phase 5: calendar event. Skipped when no calendar is configured.
	if r.opts.CalendarID == "" {
		r.log.Debug("no calendar configured, skipping event upsert")
		return nil
	}
	description := fmt.Sprintf("Issue: %s", issue.URL)
	if result.JoinURL != "" {
		description += fmt.Sprintf("\nZoom: %s", result.JoinURL)
	}

	if rec.CalendarEventID != "" {
		eventLink, err := r.calendar.UpdateEvent(ctx, rec.CalendarEventID, issue.Title, startUTC, sched.DurationMinutes, r.opts.CalendarID, description)
		if err != nil {
			return err
		}
		result.CalendarEventID = rec.CalendarEventID
		r.log.Info("calendar event updated", logging.F("event_link", eventLink))
		return nil
	}

	eventLink, err := r.calendar.CreateEvent(ctx, issue.Title, startUTC, sched.DurationMinutes, r.opts.CalendarID, description)
	if err != nil {
		return err
	}
	rec.CalendarEventID = extractEventID(eventLink)
	result.CalendarEventID = rec.CalendarEventID
	m.SetRecord(result.MeetingID, rec)
	if err := r.persist(ctx, m); err != nil {
		return err
	}
	r.log.Info("calendar event created", logging.F("event_id", rec.CalendarEventID))
	return nil
}

// persist saves the mapping and publishes a checkpoint.
func (r *Reconciler) persist(ctx context.Context, m *mapping.Mapping) error {
	if err := r.store.Save(m); err != nil {
		return err
	}
	return r.store.Commit(ctx)
}

// notify pushes the best-effort chat notification.
func (r *Reconciler) notify(ctx context.Context, issue Issue, result *Result) {
	if r.notifier == nil {
		return
	}
	text := fmt.Sprintf("New Discourse Topic: %s\n\n%s\n%s", issue.Title, issue.Body, result.TopicURL)
	if err := r.notifier.Send(ctx, text); err != nil {
		r.log.Warn("chat notification failed", logging.Err(err))
	}
}

func (r *Reconciler) topicURL(topicID int64) string {
	return fmt.Sprintf("%s/t/%d", strings.TrimRight(r.opts.DiscourseBaseURL, "/"), topicID)
}

// extractEventID pulls the event id out of a calendar event link's
// eid query parameter; absent that, the whole link is the id.
func extractEventID(eventLink string) string {
	if i := strings.LastIndex(eventLink, "eid="); i >= 0 {
		id := eventLink[i+len("eid="):]
		if j := strings.IndexByte(id, '&'); j >= 0 {
			id = id[:j]
		}
		return id
	}
	return eventLink
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
