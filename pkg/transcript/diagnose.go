package transcript

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// FailureReason classifies a transcript that produced no utterances.
type FailureReason string

const (
	FailureNone               FailureReason = ""
	FailureEmpty              FailureReason = "empty_transcript"
	FailureTranscriptionEnded FailureReason = "transcription_ended_only"
	FailureScriptEnded        FailureReason = "script_ended_only"
	FailureTooShort           FailureReason = "too_short"
	FailureNoDelimiters       FailureReason = "no_delimiters"
	FailureNoUtterances       FailureReason = "no_utterances"
)

// MinTranscriptLength is the length below which an unparseable transcript is "too short".
const MinTranscriptLength = 200

var failureText = map[FailureReason]string{
	FailureEmpty:              "Transcript가 없습니다",
	FailureTranscriptionEnded: "Transcription ended 메시지만 있음 (실제 내용 없음)",
	FailureScriptEnded:        "후 스크립트 작성 종료 메시지만 있음 (실제 내용 없음)",
	FailureTooShort:           "Transcript가 너무 짧음",
	FailureNoDelimiters:       "타임스탬프/발언자 구분자 없음",
	FailureNoUtterances:       "발언이 추출되지 않았습니다",
}

// Description returns a human-readable explanation.
func (r FailureReason) Description() string {
	return failureText[r]
}

// ClassifyFailure explains why transcript yielded no utterances. It returns
// FailureNone when utterances is non-empty.
func ClassifyFailure(transcript string, utterances []Utterance) FailureReason {
	if len(utterances) > 0 {
		return FailureNone
	}
	switch {
	case strings.TrimSpace(transcript) == "":
		return FailureEmpty
	case strings.Contains(strings.ToLower(transcript), "transcription ended after"):
		return FailureTranscriptionEnded
	case strings.Contains(transcript, "후 스크립트 작성이 종료되었습니다"):
		return FailureScriptEnded
	case utf8.RuneCountInString(strings.TrimSpace(transcript)) < MinTranscriptLength:
		return FailureTooShort
	case !strings.ContainsAny(transcript, ":[]"):
		return FailureNoDelimiters
	}
	return FailureNoUtterances
}

// ParseDiagnosis is the outcome of parsing one meeting.
type ParseDiagnosis struct {
	OK               bool          `json:"ok"`
	Reason           FailureReason `json:"failure_reason,omitempty"`
	UtteranceCount   int           `json:"total_statements"`
	Participants     []string      `json:"participants"`
	TranscriptLength int           `json:"transcript_length"`
	Utterances       []Utterance   `json:"-"`
	Stats            *StatsMap     `json:"-"`
}

// Diagnose parses doc's transcript and reports whether it produced utterances.
func Diagnose(doc *CanonicalDocument, parser *Parser) ParseDiagnosis {
	if parser == nil {
		parser = NewParser()
	}
	utterances := parser.Parse(doc.Transcript)
	stats := ExtractParticipantStats(utterances)

	d := ParseDiagnosis{
		OK:               len(utterances) > 0,
		Reason:           ClassifyFailure(doc.Transcript, utterances),
		UtteranceCount:   len(utterances),
		Participants:     stats.Speakers(),
		TranscriptLength: utf8.RuneCountInString(doc.Transcript),
		Utterances:       utterances,
		Stats:            stats,
	}
	if d.Participants == nil {
		d.Participants = []string{}
	}
	return d
}

// PostFilter selects parsed meetings. Zero fields are not applied.
type PostFilter struct {
	MinLength           int    `json:"min_transcript_length,omitempty" yaml:"min_transcript_length"`
	MaxLength           int    `json:"max_transcript_length,omitempty" yaml:"max_transcript_length"`
	RequiredParticipant string `json:"participants,omitempty" yaml:"participants"`
	MinParticipants     int    `json:"min_participants,omitempty" yaml:"min_participants"`
	MaxParticipants     int    `json:"max_participants,omitempty" yaml:"max_participants"`
}

// IsZero reports whether no condition is set.
func (f PostFilter) IsZero() bool {
	return f == PostFilter{}
}

// Match reports whether a meeting with the given transcript and parse result passes.
func (f PostFilter) Match(doc *CanonicalDocument, d ParseDiagnosis) bool {
	length := utf8.RuneCountInString(doc.Transcript)
	if f.MinLength > 0 && length < f.MinLength {
		return false
	}
	if f.MaxLength > 0 && length > f.MaxLength {
		return false
	}
	if f.RequiredParticipant != "" && !containsString(d.Participants, f.RequiredParticipant) {
		return false
	}
	if f.MinParticipants > 0 && len(d.Participants) < f.MinParticipants {
		return false
	}
	if f.MaxParticipants > 0 && len(d.Participants) > f.MaxParticipants {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ParticipantCount is a participant and the number of meetings they appear in.
type ParticipantCount struct {
	Name     string `json:"name"`
	Meetings int    `json:"meetings"`
}

// CollectParticipants returns the distinct participants across meetings,
// sorted by name. Explicit participant lists are normalized and validated;
// meetings without one contribute their parsed speakers.
func CollectParticipants(meetings []*CanonicalDocument, parser *Parser) []ParticipantCount {
	if parser == nil {
		parser = NewParser()
	}
	counts := make(map[string]int)
	for _, m := range meetings {
		seen := make(map[string]struct{})
		if len(m.Participants) > 0 {
			for _, p := range m.Participants {
				name := parser.Names().Normalize(strings.TrimSpace(p))
				if name != "" && IsValidParticipant(name) {
					seen[name] = struct{}{}
				}
			}
		} else {
			for _, u := range parser.Parse(m.Transcript) {
				seen[u.Speaker] = struct{}{}
			}
		}
		for name := range seen {
			counts[name]++
		}
	}

	out := make([]ParticipantCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, ParticipantCount{Name: name, Meetings: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
