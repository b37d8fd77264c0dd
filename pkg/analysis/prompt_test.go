package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("참여자: {participants}", PromptData{
		Formatted:    "=== 전체 대화 내용 ===\n[00:00:01] Alice: hi",
		Participants: []string{"Alice", "Bob"},
	})

	assert.True(t, strings.HasPrefix(prompt, "\n다음은 회의 녹취록(transcript)입니다.\n\n=== 전체 대화 내용 ==="))
	assert.Contains(t, prompt, "참여자 목록: Alice, Bob\n\n---\n\n참여자: Alice, Bob\n\n")
	assert.NotContains(t, prompt, "추가 지시사항")
}

func TestBuildPrompt_Instructions(t *testing.T) {
	prompt := BuildPrompt("analyze", PromptData{Formatted: "text", Instructions: "focus on risks"})
	assert.True(t, strings.HasSuffix(prompt, "\n---\n**추가 지시사항:**\nfocus on risks\n"))
}

func TestBuildPrompt_Variables(t *testing.T) {
	date := "2025-01-08"
	data := "=== Meeting: Standup ==="

	prompt := BuildPrompt("{date} | {meetings_data}", PromptData{Formatted: "full", Date: &date, MeetingsData: &data})
	assert.Contains(t, prompt, "2025-01-08 | === Meeting: Standup ===")

	prompt = BuildPrompt("{date} | {meetings_data}", PromptData{Formatted: "full"})
	assert.Contains(t, prompt, "N/A | full")
}

func TestBuildPrompt_NoParticipants(t *testing.T) {
	prompt := BuildPrompt("t", PromptData{Formatted: "x"})
	assert.Contains(t, prompt, "참여자 목록: \n")
}

func TestDailyInstructions(t *testing.T) {
	assert.Contains(t, meetingCountInstruction(3), "실제로 분석된 회의 수는 3개입니다")
	assert.Equal(t, "분석 대상 날짜: 2025-01-08", targetDateInstruction("2025-01-08"))
}
