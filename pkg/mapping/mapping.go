package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mapping is the in-memory form of the mapping file: meeting id to
// Entry, preserving insertion order. Order carries no meaning beyond a
// recency heuristic: the newest entries are at the end.
type Mapping struct {
	keys    []string
	entries map[string]*Entry
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{entries: make(map[string]*Entry)}
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Keys returns the meeting ids in insertion order.
func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the entry for a meeting id.
func (m *Mapping) Get(meetingID string) (*Entry, bool) {
	e, ok := m.entries[meetingID]
	return e, ok
}

// Set upserts an entry, appending the key on first insertion.
func (m *Mapping) Set(meetingID string, e *Entry) {
	if _, exists := m.entries[meetingID]; !exists {
		m.keys = append(m.keys, meetingID)
	}
	m.entries[meetingID] = e
}

// SetRecord upserts a structured record.
func (m *Mapping) SetRecord(meetingID string, r *Record) {
	m.Set(meetingID, NewEntry(r))
}

// Delete removes an entry.
func (m *Mapping) Delete(meetingID string) {
	if _, exists := m.entries[meetingID]; !exists {
		return
	}
	delete(m.entries, meetingID)
	for i, k := range m.keys {
		if k == meetingID {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// FindByIssue returns the meeting id and record of the structured entry
// matching an issue number. Legacy entries carry no issue linkage and
// are never matched.
func (m *Mapping) FindByIssue(issueNumber int) (string, *Record, bool) {
	for _, k := range m.keys {
		e := m.entries[k]
		if e.IsLegacy() || e.Record() == nil {
			continue
		}
		if e.Record().IssueNumber == issueNumber {
			return k, e.Record(), true
		}
	}
	return "", nil, false
}

// Newest returns up to n meeting ids, newest first.
func (m *Mapping) Newest(n int) []string {
	if n > len(m.keys) {
		n = len(m.keys)
	}
	out := make([]string, 0, n)
	for i := len(m.keys) - 1; i >= len(m.keys)-n; i-- {
		out = append(out, m.keys[i])
	}
	return out
}

// PruneIncomplete removes structured records whose discourse topic id
// is still null (failed creates), returning how many were removed.
// Legacy entries are untouched.
func (m *Mapping) PruneIncomplete() int {
	var doomed []string
	for _, k := range m.keys {
		e := m.entries[k]
		if e.IsLegacy() {
			continue
		}
		if r := e.Record(); r != nil && r.DiscourseTopicID == nil {
			doomed = append(doomed, k)
		}
	}
	for _, k := range doomed {
		m.Delete(k)
	}
	return len(doomed)
}

// Decode parses mapping-file content, preserving key order.
func Decode(data []byte) (*Mapping, error) {
	m := NewMapping()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading mapping: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("mapping file is not a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading mapping key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("mapping key is not a string: %v", keyTok)
		}

		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decoding entry %q: %w", key, err)
		}
		m.Set(key, &e)
	}

	return m, nil
}

// Encode renders the mapping as indented JSON with keys in insertion
// order, matching the historical on-disk format.
func (m *Mapping) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteString(": ")

		entryJSON, err := json.MarshalIndent(m.entries[k], "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding entry %q: %w", k, err)
		}
		buf.Write(entryJSON)
	}
	if len(m.keys) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}
