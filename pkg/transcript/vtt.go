// Package transcript fetches post-meeting transcripts, parses the
// provider's WebVTT output and publishes a readable rendering to the
// meeting's discussion topic.
package transcript

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// VTT parsing regular expressions
var (
	// Matches a bare numeric cue identifier line.
	vttCueIDRegex = regexp.MustCompile(`^\d+$`)

	// Matches timestamp line: 00:00:05.579 --> 00:00:06.858
	vttTimestampRegex = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}\.\d{3})\s+-->\s+(\d{2}:\d{2}:\d{2}\.\d{3})`)

	// Matches speaker attribution at the start of cue text: "Name: text".
	vttSpeakerRegex = regexp.MustCompile(`^([^:]{1,80}):\s+(.*)$`)
)

// Segment is a single attributed span of transcript text.
type Segment struct {
	Speaker string
	Text    string
	StartMs int
	EndMs   int
}

// Result is a parsed transcript.
type Result struct {
	Segments        []Segment
	Speakers        []string
	DurationSeconds int
}

// ParseVTT parses a WebVTT transcript as produced by the meeting
// provider: numeric cue ids, a timestamp line, then cue text with an
// optional "Speaker: " prefix.
func ParseVTT(content string) (*Result, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	result := &Result{
		Segments: make([]Segment, 0),
		Speakers: make([]string, 0),
	}

	speakerSet := make(map[string]bool)
	var current *Segment
	var lastEndMs int

	flush := func() {
		if current != nil && current.Text != "" {
			result.Segments = append(result.Segments, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and the WEBVTT header.
		if line == "" || strings.HasPrefix(line, "WEBVTT") {
			continue
		}

		// A cue id starts a new segment.
		if vttCueIDRegex.MatchString(line) {
			flush()
			current = &Segment{}
			continue
		}

		if matches := vttTimestampRegex.FindStringSubmatch(line); matches != nil {
			startMs := parseVTTTimestamp(matches[1])
			endMs := parseVTTTimestamp(matches[2])

			if current == nil {
				// Cue id lines are optional in the format.
				current = &Segment{}
			}
			current.StartMs = startMs
			current.EndMs = endMs

			if endMs > lastEndMs {
				lastEndMs = endMs
			}
			continue
		}

		// Cue text, possibly speaker-attributed.
		if current == nil {
			continue
		}
		text := line
		if current.Text == "" && current.Speaker == "" {
			if matches := vttSpeakerRegex.FindStringSubmatch(line); matches != nil {
				speaker := strings.TrimSpace(matches[1])
				current.Speaker = speaker
				text = matches[2]

				if speaker != "" && !speakerSet[speaker] {
					speakerSet[speaker] = true
					result.Speakers = append(result.Speakers, speaker)
				}
			}
		}
		if current.Text != "" {
			current.Text += " "
		}
		current.Text += text
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result.DurationSeconds = lastEndMs / 1000
	return result, nil
}

// parseVTTTimestamp parses a VTT timestamp (HH:MM:SS.mmm) to milliseconds.
func parseVTTTimestamp(ts string) int {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])

	secParts := strings.Split(parts[2], ".")
	seconds, _ := strconv.Atoi(secParts[0])
	millis := 0
	if len(secParts) == 2 {
		millis, _ = strconv.Atoi(secParts[1])
	}

	return ((hours*60+minutes)*60+seconds)*1000 + millis
}

// Render produces the forum post body: consecutive segments from the
// same speaker are merged into one attributed paragraph.
func Render(r *Result) string {
	var b strings.Builder
	b.WriteString("## Transcript\n")

	var speaker string
	var open bool
	for _, seg := range r.Segments {
		if !open || seg.Speaker != speaker {
			if open {
				b.WriteString("\n")
			}
			b.WriteString("\n")
			if seg.Speaker != "" {
				b.WriteString("**" + seg.Speaker + ":** ")
			}
			speaker = seg.Speaker
			open = true
		} else {
			b.WriteString(" ")
		}
		b.WriteString(seg.Text)
	}
	if open {
		b.WriteString("\n")
	}
	return b.String()
}
