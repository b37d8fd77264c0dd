package transcript

import (
	"fmt"
	"strings"
)

const notAvailable = "N/A"

// FormatForAnalysis renders a meeting as the plain-text block embedded in
// analysis prompts: a header, per-speaker statistics, then every utterance.
func FormatForAnalysis(doc *CanonicalDocument, utterances []Utterance, stats *StatsMap) string {
	title, date := notAvailable, notAvailable
	if doc != nil {
		if doc.Title != "" {
			title = doc.Title
		}
		date = doc.Date.Display(notAvailable)
	}

	var b strings.Builder
	b.WriteString("\n=== 회의 정보 ===\n")
	fmt.Fprintf(&b, "제목: %s\n", title)
	fmt.Fprintf(&b, "날짜: %s\n", date)
	fmt.Fprintf(&b, "참여자: %s\n", strings.Join(stats.Speakers(), ", "))
	b.WriteString("\n=== 참여자별 발언 통계 ===\n")

	for _, e := range stats.Entries() {
		span := notAvailable
		if len(e.Stats.Timestamps) > 0 {
			span = e.Stats.FirstTimestamp() + " ~ " + e.Stats.LastTimestamp()
		}
		fmt.Fprintf(&b, "\n%s:\n", e.Speaker)
		fmt.Fprintf(&b, "  - 발언 횟수: %d회\n", e.Stats.SpeakCount)
		fmt.Fprintf(&b, "  - 총 발언 단어 수: %d개\n", e.Stats.TotalWords)
		fmt.Fprintf(&b, "  - 발언 시간대: %s\n", span)
	}

	b.WriteString("\n=== 전체 대화 내용 ===\n")
	for _, u := range utterances {
		fmt.Fprintf(&b, "[%s] %s: %s\n", u.Timestamp, u.Speaker, u.Text)
	}
	return b.String()
}
