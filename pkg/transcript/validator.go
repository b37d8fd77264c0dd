package transcript

import (
	"regexp"
	"strings"
)

const byteOrderMark = "\ufeff"

// Labels produced by transcription tools that look like "speaker:" lines.
var noisePatterns = []*regexp.Regexp{
	// session and end-of-recording messages
	regexp.MustCompile(`(?i)^Transcription\s+ended`),
	regexp.MustCompile(`(?i)^Session\s+ended`),
	regexp.MustCompile(`(?i)Meeting\s+ended\s+after`),

	// boilerplate disclaimers
	regexp.MustCompile(`(?i)^This\s+editable\s+transcript`),
	regexp.MustCompile(`(?i)^You\s+should\s+review`),
	regexp.MustCompile(`(?i)^Please\s+provide\s+feedback`),
	regexp.MustCompile(`(?i)^Get\s+tips`),

	// summary bullets, file and attachment artifacts
	regexp.MustCompile(`^\*`),
	regexp.MustCompile(`(?i)^Ooo`),
	regexp.MustCompile(`(?i)^Attachments`),
	regexp.MustCompile(`^첨부파일`),
	regexp.MustCompile(`^초대됨`),

	// assistant artifacts
	regexp.MustCompile(`(?i)^Gemini가`),
	regexp.MustCompile(`^수정 가능한`),
	regexp.MustCompile(`^후 스크립트`),

	// dates, clocks and bare numbers
	regexp.MustCompile(`^\d{4}년`),
	regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`),
	regexp.MustCompile(`^\d{2}:\d{2}$`),
	regexp.MustCompile(`^\d+$`),

	// fixed labels and presentation titles
	regexp.MustCompile(`(?i)^Project\s+TRH$`),
	regexp.MustCompile(`(?i)'s\s+Presentation$`),
	regexp.MustCompile(`님의\s+발표$`),
	regexp.MustCompile(`^\x{FEFF}`),
}

// IsValidParticipant reports whether candidate looks like a human speaker label
// rather than transcription-tool output.
func IsValidParticipant(candidate string) bool {
	s := strings.TrimSpace(candidate)
	if strings.HasPrefix(s, byteOrderMark) {
		s = strings.TrimSpace(strings.TrimPrefix(s, byteOrderMark))
	}
	if s == "" {
		return false
	}

	for _, p := range noisePatterns {
		if p.MatchString(s) {
			return false
		}
	}
	return true
}
