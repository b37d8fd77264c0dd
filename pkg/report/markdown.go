// Package report renders analysis results as Markdown, JSON and CSV and
// writes them to report sinks.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
)

const (
	generatedLayout = "2006-01-02 15:04:05"
	notAvailable    = "N/A"
	noResults       = "⚠️ No analysis results available.\n\n"
)

// Meetings renders per-meeting results as one Markdown document.
func Meetings(results []*analysis.MeetingResult, generatedAt time.Time) string {
	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
		}
	}

	var b strings.Builder
	b.WriteString("# Meeting Analysis Report\n\n")
	fmt.Fprintf(&b, "**Generated at**: %s\n", generatedAt.Format(generatedLayout))
	fmt.Fprintf(&b, "- **Meetings**: %d (succeeded %d, failed %d)\n", len(results), ok, len(results)-ok)
	b.WriteString("---\n\n")

	for _, r := range results {
		fmt.Fprintf(&b, "## %s\n\n", r.MeetingTitle)
		fmt.Fprintf(&b, "- **ID**: `%s`\n", orNA(r.MeetingID))
		fmt.Fprintf(&b, "- **Date**: %s\n", r.DateLabel())
		fmt.Fprintf(&b, "- **Participants**: %s\n", orNA(strings.Join(r.Participants, ", ")))
		fmt.Fprintf(&b, "- **Template**: %s\n", templateLabel(r.Analysis.TemplateUsed, r.Analysis.TemplateVersion))
		fmt.Fprintf(&b, "- **Model**: %s\n\n", r.Analysis.ModelUsed)

		if !r.OK() {
			fmt.Fprintf(&b, "⚠️ Analysis failed (`%s`): %s\n\n", r.Analysis.ErrorCode, r.Analysis.Error)
		} else if r.Analysis.Analysis != "" {
			b.WriteString(strings.TrimSpace(r.Analysis.Analysis))
			b.WriteString("\n\n")
		} else {
			b.WriteString(noResults)
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// Aggregated renders a combined analysis of several meetings.
func Aggregated(res *analysis.AggregatedResult, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# Aggregated Meeting Analysis\n\n")
	fmt.Fprintf(&b, "**Generated at**: %s\n", generatedAt.Format(generatedLayout))
	b.WriteString("---\n\n")

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- **Number of Meetings Analyzed**: %d\n", res.MeetingCount)
	fmt.Fprintf(&b, "- **Date Range**: %s ~ %s\n", res.DateRange.Start, res.DateRange.End)
	fmt.Fprintf(&b, "- **Template**: %s\n", templateLabel(res.TemplateUsed, res.TemplateVersion))
	fmt.Fprintf(&b, "- **Model**: %s\n", res.ModelUsed)

	if len(res.MeetingTitles) > 0 {
		b.WriteString("\n### Meetings\n\n")
		for i, title := range res.MeetingTitles {
			fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		}
	}
	if len(res.ParticipantsFormatted) > 0 {
		b.WriteString("\n### Participants\n\n")
		for _, p := range res.ParticipantsFormatted {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	b.WriteString("\n---\n\n")

	writeAnalysisBody(&b, res)
	return b.String()
}

// Daily renders a daily work report.
func Daily(res *analysis.AggregatedResult, target, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Work Report - %s\n\n", target.Format("January 02, 2006"))
	fmt.Fprintf(&b, "**Generated at**: %s\n", generatedAt.Format(generatedLayout))
	b.WriteString("---\n\n")

	b.WriteString("## Meeting Information\n\n")
	fmt.Fprintf(&b, "- **Target Date**: %s\n", target.Format("2006-01-02"))
	count := res.MeetingCount
	if count == 0 {
		count = len(res.TargetMeetings)
	}
	fmt.Fprintf(&b, "- **Number of Meetings Analyzed**: %d\n", count)

	if len(res.TargetMeetings) > 0 {
		b.WriteString("\n### Analyzed Meetings List\n\n")
		for i, m := range res.TargetMeetings {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, orNA(m.MeetingTitle))
			fmt.Fprintf(&b, "   - ID: `%s`\n", orNA(m.MeetingID))
			fmt.Fprintf(&b, "   - Created Time: %s\n", orNA(m.CreatedTime))
		}
	}
	b.WriteString("\n---\n\n")

	writeAnalysisBody(&b, res)
	return b.String()
}

func writeAnalysisBody(b *strings.Builder, res *analysis.AggregatedResult) {
	switch {
	case !res.OK():
		fmt.Fprintf(b, "⚠️ Analysis failed (`%s`): %s\n\n", res.ErrorCode, res.Error)
	case res.Structured != nil:
		b.WriteString(StructuredMarkdown(res.Structured))
	case strings.TrimSpace(res.Analysis) != "":
		b.WriteString(strings.TrimSpace(res.Analysis))
		b.WriteString("\n\n")
	default:
		b.WriteString(noResults)
	}
}

func templateLabel(name string, version *string) string {
	if version == nil {
		return name
	}
	return fmt.Sprintf("%s (v%s)", name, *version)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
