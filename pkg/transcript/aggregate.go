package transcript

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ParticipantShare is one participant's contribution across a meeting set.
type ParticipantShare struct {
	Name       string  `json:"name"`
	SpeakCount int     `json:"speak_count"`
	WordCount  int     `json:"word_count"`
	Percentage float64 `json:"percentage"`
}

// Formatted renders the share as a one-line summary.
func (s ParticipantShare) Formatted() string {
	return fmt.Sprintf("%s (발언: %d회, 단어: %d개, 비율: %.1f%%)", s.Name, s.SpeakCount, s.WordCount, s.Percentage)
}

// Aggregate is the combined view of several meetings.
type Aggregate struct {
	// Meetings are the inputs in chronological order.
	Meetings []*CanonicalDocument
	// Text is every meeting's transcript under a "=== Meeting: ... ===" header.
	Text         string
	Participants []string
	Stats        *StatsMap
	Shares       []ParticipantShare
	TotalWords   int
}

// Titles returns meeting titles in chronological order.
func (a *Aggregate) Titles() []string {
	out := make([]string, 0, len(a.Meetings))
	for _, m := range a.Meetings {
		out = append(out, m.Title)
	}
	return out
}

// DateRange returns the first and last meeting labels.
func (a *Aggregate) DateRange(fallback string) (string, string) {
	if len(a.Meetings) == 0 {
		return fallback, fallback
	}
	return a.Meetings[0].Date.Label(fallback), a.Meetings[len(a.Meetings)-1].Date.Label(fallback)
}

// FormattedShares renders every share on its own line.
func (a *Aggregate) FormattedShares() []string {
	out := make([]string, 0, len(a.Shares))
	for _, s := range a.Shares {
		out = append(out, s.Formatted())
	}
	return out
}

// Aggregator combines normalized meetings.
type Aggregator struct {
	parser *Parser
}

// NewAggregator returns an aggregator that parses transcripts with parser.
func NewAggregator(parser *Parser) *Aggregator {
	if parser == nil {
		parser = NewParser()
	}
	return &Aggregator{parser: parser}
}

// Aggregate orders meetings by date and sums per-participant statistics.
// The input slice is not reordered.
func (a *Aggregator) Aggregate(meetings []*CanonicalDocument) *Aggregate {
	sorted := append([]*CanonicalDocument(nil), meetings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.SortKey().Before(sorted[j].Date.SortKey())
	})

	agg := &Aggregate{Meetings: sorted, Stats: NewStatsMap()}
	participants := make(map[string]struct{})
	var text strings.Builder

	for _, m := range sorted {
		utterances := a.parser.Parse(m.Transcript)

		if m.HasParticipants {
			for _, p := range m.Participants {
				participants[p] = struct{}{}
			}
		} else {
			for _, p := range SpeakersOf(utterances) {
				participants[p] = struct{}{}
			}
		}

		for _, e := range ExtractParticipantStats(utterances).Entries() {
			g := agg.Stats.Ensure(e.Speaker)
			g.SpeakCount += e.Stats.SpeakCount
			g.TotalWords += e.Stats.TotalWords
			g.Timestamps = append(g.Timestamps, e.Stats.Timestamps...)
			g.Statements = append(g.Statements, e.Stats.Statements...)
		}

		title := m.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&text, "\n\n=== Meeting: %s (%s) ===\n\n", title, m.Date.Label("Unknown Date"))
		text.WriteString(m.Transcript)
	}
	agg.Text = text.String()

	for p := range participants {
		agg.Participants = append(agg.Participants, p)
	}
	sort.Strings(agg.Participants)

	for _, e := range agg.Stats.Entries() {
		agg.TotalWords += e.Stats.TotalWords
	}

	for _, p := range agg.Participants {
		share := ParticipantShare{Name: p}
		if s, ok := agg.Stats.Get(p); ok {
			share.SpeakCount = s.SpeakCount
			share.WordCount = s.TotalWords
		}
		if agg.TotalWords > 0 {
			share.Percentage = roundTenth(float64(share.WordCount) / float64(agg.TotalWords) * 100)
		}
		agg.Shares = append(agg.Shares, share)
	}
	return agg
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
