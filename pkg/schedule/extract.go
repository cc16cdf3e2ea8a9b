// Package schedule extracts meeting start times and durations from
// free-form issue text.
//
// The accepted grammar is narrow on purpose: an optional day-of-week, a
// month name (full or abbreviated, any case), a day of month, a
// four-digit year, an HH:MM start time, an optional -HH:MM end time and
// a mandatory trailing "UTC" marker, optionally wrapped in brackets.
// Example: [Tue May 14, 2024 15:00-15:30 UTC]
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

// Schedule is a successfully extracted meeting schedule.
type Schedule struct {
	// Start is the meeting start in UTC. Hours are taken literally as
	// written; there is no AM/PM handling.
	Start time.Time

	// DurationMinutes is the meeting length in whole minutes.
	DurationMinutes int
}

// StartUTC returns the start time as an ISO-8601 UTC string with a
// trailing zone marker, the form stored in the mapping file.
func (s Schedule) StartUTC() string {
	return s.Start.UTC().Format("2006-01-02T15:04:05Z")
}

var (
	// datePattern locates the date/time token. Minutes must be two
	// digits; the hour may be one or two.
	datePattern = regexp.MustCompile(`(?i)\[?` +
		`(?:(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun)\s+)?` +
		`(?P<month>[A-Za-z]{3,9})\s+` +
		`(?P<day>\d{1,2}),?\s+` +
		`(?P<year>\d{4}),?\s+` +
		`(?P<hour>\d{1,2}):(?P<minute>\d{2})` +
		`(?:-(?P<endHour>\d{1,2}):(?P<endMinute>\d{2}))?` +
		`\s*UTC` +
		`\]?`)

	// durationLabelPattern matches an explicit duration label, e.g.
	// "Duration: 45 minutes" or "duration in minutes - 30".
	durationLabelPattern = regexp.MustCompile(`(?i)duration(?:\s*(?:in)?\s*minutes)?[:\s-]*(\d+)\s*(?:minutes|min|m)?\b`)

	// durationBulletPattern matches a dash bullet carrying a bare
	// number, e.g. "- 15 minutes".
	durationBulletPattern = regexp.MustCompile(`(?m)^\s*-\s*(\d+)\s*(?:minutes|min|m)?\b`)
)

// Extract parses a start time and duration out of text. Failures are
// reported as *errors.ParseError; they are expected outcomes for issues
// that simply carry no schedule.
//
// Duration resolution, first match wins:
//  1. an explicit duration label
//  2. a dash-bullet line with a bare number
//  3. the difference between the captured end and start times
func Extract(text string) (Schedule, error) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return Schedule{}, boterrors.NewParseError("missing or invalid date/time format")
	}

	groups := matchGroups(datePattern, m)
	start, err := parseDateTime(groups["month"], groups["day"], groups["year"], groups["hour"], groups["minute"])
	if err != nil {
		return Schedule{}, boterrors.NewParseError("unable to parse the start time")
	}

	if n, ok := findDuration(text); ok {
		return Schedule{Start: start, DurationMinutes: n}, nil
	}

	if groups["endHour"] != "" && groups["endMinute"] != "" {
		end, err := parseDateTime(groups["month"], groups["day"], groups["year"], groups["endHour"], groups["endMinute"])
		if err != nil {
			return Schedule{}, boterrors.NewParseError("unable to parse the end time")
		}
		if !end.After(start) {
			return Schedule{}, boterrors.NewParseError("end time must be after start time")
		}
		return Schedule{Start: start, DurationMinutes: int(end.Sub(start).Minutes())}, nil
	}

	return Schedule{}, boterrors.NewParseError("missing or invalid duration format; provide duration in minutes after the date/time")
}

// findDuration resolves an explicit duration from a label or a dash
// bullet, in that priority order.
func findDuration(text string) (int, bool) {
	m := durationLabelPattern.FindStringSubmatch(text)
	if m == nil {
		m = durationBulletPattern.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseDateTime builds a UTC time from the captured fields, trying the
// full month-name calendar first and the abbreviated one second.
func parseDateTime(month, day, year, hour, minute string) (time.Time, error) {
	// time.Parse month matching is case-sensitive; the grammar is not.
	month = normalizeMonth(month)
	value := month + " " + day + " " + year + " " + hour + ":" + minute

	t, err := time.ParseInLocation("January 2 2006 15:04", value, time.UTC)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation("Jan 2 2006 15:04", value, time.UTC)
}

// normalizeMonth uppercases the first rune and lowercases the rest,
// turning "MAY" or "may" into "May".
func normalizeMonth(month string) string {
	if month == "" {
		return month
	}
	return strings.ToUpper(month[:1]) + strings.ToLower(month[1:])
}

// matchGroups maps named capture groups to their submatches.
func matchGroups(re *regexp.Regexp, match []string) map[string]string {
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}
	return groups
}
