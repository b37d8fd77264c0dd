package analysis

import (
	"fmt"
	"strings"
)

// PromptData is the variable part of an analysis prompt.
type PromptData struct {
	// Formatted is the analysis text block (or the aggregated transcript).
	Formatted    string
	Participants []string
	Instructions string

	// Date fills {date}; "N/A" when nil.
	Date *string
	// MeetingsData fills {meetings_data}; Formatted when nil.
	MeetingsData *string
}

// BuildPrompt substitutes the template variables and wraps the result with
// the transcript and participant list.
func BuildPrompt(template string, data PromptData) string {
	participants := strings.Join(data.Participants, ", ")
	date := "N/A"
	if data.Date != nil {
		date = *data.Date
	}
	meetings := data.Formatted
	if data.MeetingsData != nil {
		meetings = *data.MeetingsData
	}

	template = strings.ReplaceAll(template, "{date}", date)
	template = strings.ReplaceAll(template, "{meetings_data}", meetings)
	template = strings.ReplaceAll(template, "{participants}", participants)

	var b strings.Builder
	fmt.Fprintf(&b, "\n다음은 회의 녹취록(transcript)입니다.\n\n%s\n\n참여자 목록: %s\n\n---\n\n%s\n\n", data.Formatted, participants, template)
	if data.Instructions != "" {
		fmt.Fprintf(&b, "\n---\n**추가 지시사항:**\n%s\n", data.Instructions)
	}
	return b.String()
}

// meetingCountInstruction pins the meeting count a daily report must state.
func meetingCountInstruction(n int) string {
	return fmt.Sprintf("\n\n중요: 실제로 분석된 회의 수는 %d개입니다. '총 회의 수'를 작성할 때는 반드시 이 숫자를 사용하세요.", n)
}

// targetDateInstruction names the day a daily report covers.
func targetDateInstruction(day string) string {
	return "분석 대상 날짜: " + day
}
