package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
)

// TeamMember is one row of the team table: a participant's totals across
// every successfully analyzed meeting.
type TeamMember struct {
	Name       string `json:"name"`
	Meetings   int    `json:"meetings"`
	SpeakCount int    `json:"speak_count"`
	WordCount  int    `json:"word_count"`
	// AvgPercentage is the mean per-meeting share of words, in percent.
	AvgPercentage float64          `json:"avg_percentage"`
	Attended      []MeetingSummary `json:"meetings_participated"`
}

// MeetingSummary names one meeting a team member attended.
type MeetingSummary struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// TeamTable aggregates per-meeting results by participant. Failed results
// are skipped. Rows are ordered by word count, then name.
func TeamTable(results []*analysis.MeetingResult) []TeamMember {
	type acc struct {
		TeamMember
		shareSum float64
	}
	byName := make(map[string]*acc)

	for _, r := range results {
		if !r.OK() || r.Analysis.ParticipantStats == nil {
			continue
		}
		entries := r.Analysis.ParticipantStats.Entries()
		total := 0
		for _, e := range entries {
			total += e.Stats.TotalWords
		}
		for _, e := range entries {
			a, ok := byName[e.Speaker]
			if !ok {
				a = &acc{TeamMember: TeamMember{Name: e.Speaker}}
				byName[e.Speaker] = a
			}
			a.Meetings++
			a.SpeakCount += e.Stats.SpeakCount
			a.WordCount += e.Stats.TotalWords
			if total > 0 {
				a.shareSum += float64(e.Stats.TotalWords) / float64(total) * 100
			}
			a.Attended = append(a.Attended, MeetingSummary{Title: r.MeetingTitle, Date: r.DateLabel()})
		}
	}

	out := make([]TeamMember, 0, len(byName))
	for _, a := range byName {
		a.AvgPercentage = math.Round(a.shareSum/float64(a.Meetings)*10) / 10
		out = append(out, a.TeamMember)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WordCount != out[j].WordCount {
			return out[i].WordCount > out[j].WordCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// csvHeader is the team table column order.
var csvHeader = []string{"participant", "meetings", "speak_count", "word_count", "avg_percentage"}

// WriteTeamCSV writes the team table as CSV with a UTF-8 byte order mark so
// spreadsheet tools detect the encoding of Korean names.
func WriteTeamCSV(w io.Writer, members []TeamMember) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, m := range members {
		row := []string{
			m.Name,
			strconv.Itoa(m.Meetings),
			strconv.Itoa(m.SpeakCount),
			strconv.Itoa(m.WordCount),
			strconv.FormatFloat(m.AvgPercentage, 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TeamExport is the JSON form of the team table.
type TeamExport struct {
	GeneratedAt       time.Time    `json:"generated_at"`
	TotalParticipants int          `json:"total_participants"`
	Participants      []TeamMember `json:"participants"`
}

// JSON renders v as indented JSON without HTML escaping.
func JSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return buf.Bytes(), nil
}
