package analysis

import (
	"encoding/json"
	"time"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const notAvailable = "N/A"

// MeetingAnalysis is the analysis block of one meeting result.
type MeetingAnalysis struct {
	Status           string               `json:"status"`
	Analysis         string               `json:"analysis,omitempty"`
	ParticipantStats *transcript.StatsMap `json:"participant_stats,omitempty"`
	TemplateUsed     string               `json:"template_used"`
	TemplateVersion  *string              `json:"template_version"`
	ModelUsed        string               `json:"model_used"`
	Timestamp        time.Time            `json:"timestamp"`
	TotalStatements  int                  `json:"total_statements"`
	Error            string               `json:"error,omitempty"`
	ErrorCode        string               `json:"error_code,omitempty"`
}

// MeetingResult is the outcome of analyzing one meeting.
type MeetingResult struct {
	MeetingID    string                `json:"meeting_id"`
	MeetingTitle string                `json:"meeting_title"`
	MeetingDate  transcript.DateResult `json:"-"`
	Participants []string              `json:"participants"`
	Analysis     MeetingAnalysis       `json:"analysis"`
}

// OK reports whether the analysis succeeded.
func (r *MeetingResult) OK() bool {
	return r.Analysis.Status == StatusSuccess
}

// DateLabel renders the meeting date for display.
func (r *MeetingResult) DateLabel() string {
	return r.MeetingDate.Display(notAvailable)
}

// MarshalJSON renders meeting_date the way analysis text shows it.
func (r *MeetingResult) MarshalJSON() ([]byte, error) {
	type alias MeetingResult
	return json.Marshal(struct {
		*alias
		MeetingDate string `json:"meeting_date"`
	}{(*alias)(r), r.DateLabel()})
}

// Document renders the result as a storable record.
func (r *MeetingResult) Document() store.Document {
	analysis := map[string]any{
		"status":           r.Analysis.Status,
		"template_used":    r.Analysis.TemplateUsed,
		"template_version": versionValue(r.Analysis.TemplateVersion),
		"model_used":       r.Analysis.ModelUsed,
		"timestamp":        r.Analysis.Timestamp,
		"total_statements": r.Analysis.TotalStatements,
	}
	if r.OK() {
		analysis["analysis"] = r.Analysis.Analysis
		analysis["participant_stats"] = statsDocument(r.Analysis.ParticipantStats)
	} else {
		analysis["error"] = r.Analysis.Error
		analysis["error_code"] = r.Analysis.ErrorCode
	}

	participants := r.Participants
	if participants == nil {
		participants = []string{}
	}
	return store.Document{
		"meeting_id":    r.MeetingID,
		"meeting_title": r.MeetingTitle,
		"meeting_date":  dateValue(r.MeetingDate),
		"participants":  participants,
		"analysis":      analysis,
	}
}

// DateSpan is the first and last meeting date of an aggregated result.
type DateSpan struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TargetMeeting identifies one meeting included in a daily report.
type TargetMeeting struct {
	MeetingID    string `json:"meeting_id"`
	MeetingTitle string `json:"meeting_title"`
	CreatedTime  string `json:"created_time"`
}

// AggregatedResult is the outcome of analyzing several meetings as one.
type AggregatedResult struct {
	Status   string `json:"status"`
	Analysis string `json:"analysis,omitempty"`
	// Structured is the parsed JSON report of daily_report 2.x templates.
	Structured map[string]any `json:"structured_analysis,omitempty"`

	MeetingCount          int                           `json:"meeting_count"`
	MeetingTitles         []string                      `json:"meeting_titles"`
	DateRange             DateSpan                      `json:"date_range"`
	Participants          []transcript.ParticipantShare `json:"participants_data"`
	ParticipantsFormatted []string                      `json:"participants_formatted"`

	TemplateUsed    string    `json:"template_used"`
	TemplateVersion *string   `json:"template_version"`
	ModelUsed       string    `json:"model_used"`
	Timestamp       time.Time `json:"timestamp"`
	Error           string    `json:"error,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`

	// Daily reports only.
	TargetDate     string          `json:"target_date,omitempty"`
	TargetMeetings []TargetMeeting `json:"target_meetings,omitempty"`
	// FullText is the rendered report stored alongside a daily analysis.
	FullText string `json:"full_analysis_text,omitempty"`
}

// OK reports whether the analysis succeeded.
func (r *AggregatedResult) OK() bool {
	return r.Status == StatusSuccess
}

// IsDaily reports whether r is a daily report.
func (r *AggregatedResult) IsDaily() bool {
	return r.TargetDate != ""
}

// Document renders the result as a storable record. For daily reports with
// a structured analysis, the structured report replaces the raw text and
// the participant table is folded into it.
func (r *AggregatedResult) Document() store.Document {
	doc := store.Document{
		"status":           r.Status,
		"meeting_count":    r.MeetingCount,
		"meeting_titles":   nonNilStrings(r.MeetingTitles),
		"date_range":       map[string]any{"start": r.DateRange.Start, "end": r.DateRange.End},
		"template_used":    r.TemplateUsed,
		"template_version": versionValue(r.TemplateVersion),
		"model_used":       r.ModelUsed,
		"timestamp":        r.Timestamp,
	}
	if !r.OK() {
		doc["error"] = r.Error
		doc["error_code"] = r.ErrorCode
	}

	participants := make([]any, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, map[string]any{
			"name":        p.Name,
			"speak_count": p.SpeakCount,
			"word_count":  p.WordCount,
			"percentage":  p.Percentage,
		})
	}

	switch {
	case r.IsDaily() && r.Structured != nil:
		analysis := make(map[string]any, len(r.Structured)+1)
		for k, v := range r.Structured {
			analysis[k] = v
		}
		if r.FullText != "" {
			analysis["full_analysis_text"] = r.FullText
		}
		doc["analysis"] = analysis
	case r.IsDaily():
		analysis := map[string]any{"_raw": r.Analysis}
		if r.FullText != "" {
			analysis["full_analysis_text"] = r.FullText
		}
		doc["analysis"] = analysis
		doc["participants_data"] = participants
		doc["participants_formatted"] = nonNilStrings(r.ParticipantsFormatted)
	default:
		doc["analysis"] = r.Analysis
		doc["participants_data"] = participants
		doc["participants_formatted"] = nonNilStrings(r.ParticipantsFormatted)
	}

	if r.IsDaily() {
		doc["target_date"] = r.TargetDate
		meetings := make([]any, 0, len(r.TargetMeetings))
		for _, m := range r.TargetMeetings {
			meetings = append(meetings, map[string]any{
				"meeting_id":    m.MeetingID,
				"meeting_title": m.MeetingTitle,
				"created_time":  m.CreatedTime,
			})
		}
		doc["target_meetings"] = meetings
	}
	return doc
}

// statsDocument flattens per-speaker stats into plain maps.
func statsDocument(stats *transcript.StatsMap) map[string]any {
	out := make(map[string]any, stats.Len())
	for _, e := range stats.Entries() {
		out[e.Speaker] = map[string]any{
			"speak_count": e.Stats.SpeakCount,
			"total_words": e.Stats.TotalWords,
			"timestamps":  nonNilStrings(e.Stats.Timestamps),
			"statements":  nonNilStrings(e.Stats.Statements),
		}
	}
	return out
}

func versionValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func dateValue(d transcript.DateResult) any {
	if v := d.Value(); v != nil {
		return v
	}
	return notAvailable
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
