package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParticipantStats is the per-speaker reduction of a parsed transcript.
type ParticipantStats struct {
	SpeakCount int      `json:"speak_count"`
	TotalWords int      `json:"total_words"`
	Timestamps []string `json:"timestamps"`
	Statements []string `json:"statements"`
}

// FirstTimestamp returns the earliest recorded timestamp, or "".
func (s *ParticipantStats) FirstTimestamp() string {
	if len(s.Timestamps) == 0 {
		return ""
	}
	return s.Timestamps[0]
}

// LastTimestamp returns the latest recorded timestamp, or "".
func (s *ParticipantStats) LastTimestamp() string {
	if len(s.Timestamps) == 0 {
		return ""
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// StatsEntry pairs a speaker with their stats.
type StatsEntry struct {
	Speaker string
	Stats   *ParticipantStats
}

// StatsMap holds ParticipantStats keyed by speaker in first-appearance order.
type StatsMap struct {
	order []string
	index map[string]*ParticipantStats
}

// NewStatsMap returns an empty map.
func NewStatsMap() *StatsMap {
	return &StatsMap{index: make(map[string]*ParticipantStats)}
}

// Get returns the stats for speaker.
func (m *StatsMap) Get(speaker string) (*ParticipantStats, bool) {
	if m == nil {
		return nil, false
	}
	s, ok := m.index[speaker]
	return s, ok
}

// Ensure returns the stats for speaker, creating an empty entry if needed.
func (m *StatsMap) Ensure(speaker string) *ParticipantStats {
	if s, ok := m.index[speaker]; ok {
		return s
	}
	s := &ParticipantStats{Timestamps: []string{}, Statements: []string{}}
	m.index[speaker] = s
	m.order = append(m.order, speaker)
	return s
}

// Len returns the number of speakers.
func (m *StatsMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Speakers returns speakers in first-appearance order.
func (m *StatsMap) Speakers() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.order...)
}

// Entries returns speakers and stats in first-appearance order.
func (m *StatsMap) Entries() []StatsEntry {
	if m == nil {
		return nil
	}
	out := make([]StatsEntry, 0, len(m.order))
	for _, sp := range m.order {
		out = append(out, StatsEntry{Speaker: sp, Stats: m.index[sp]})
	}
	return out
}

// MarshalJSON writes an object whose keys keep first-appearance order.
func (m *StatsMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Speaker)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Stats)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExtractParticipantStats reduces utterances to per-speaker counts.
func ExtractParticipantStats(utterances []Utterance) *StatsMap {
	m := NewStatsMap()
	for _, u := range utterances {
		s := m.Ensure(u.Speaker)
		s.SpeakCount++
		s.TotalWords += CountWords(u.Text)
		s.Timestamps = append(s.Timestamps, u.Timestamp)
		s.Statements = append(s.Statements, u.Text)
	}
	return m
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
