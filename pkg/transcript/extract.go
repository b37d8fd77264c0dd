package transcript

import (
	"regexp"
	"strings"
)

// Transcript section headings, most specific first.
var sectionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)📖[\s\p{Zs}]*스크립트`),
	regexp.MustCompile(`(?i)📖[\s\p{Zs}]*Transcript`),
	regexp.MustCompile(`(?i)스크립트`),
	regexp.MustCompile(`(?i)Transcript`),
	regexp.MustCompile(`(?i)TRANSCRIPT`),
}

var headingDateLine = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z][a-z]{2}[\s\p{Zs}]+\d{1,2},[\s\p{Zs}]+\d{4}`),
	regexp.MustCompile(`^\d{4}년[\s\p{Zs}]+\d{1,2}월[\s\p{Zs}]+\d{1,2}일`),
}

var headingTitleSuffixes = []string{" - Transcript", " - 스크립트"}

// ExtractTranscriptSection returns the transcript portion of an exported
// meeting-notes document.
//
// The first marker that occurs anywhere in the content selects the section.
// The heading line is dropped, followed by an optional date line and an optional
// "<title> - Transcript" line. Content without any marker is returned unchanged.
func ExtractTranscriptSection(content string) string {
	normalized := normalizeNewlines(content)

	for _, marker := range sectionMarkers {
		loc := marker.FindStringIndex(normalized)
		if loc == nil {
			continue
		}
		lines := strings.Split(normalized[loc[0]:], "\n")

		start := 0
		for i, line := range lines {
			if !marker.MatchString(line) {
				continue
			}
			start = i + 1
			if start < len(lines) && isHeadingDate(strings.TrimSpace(lines[start])) {
				start++
			}
			break
		}

		if start < len(lines) && hasTitleSuffix(lines[start]) {
			start++
		}
		if start >= len(lines) {
			return ""
		}
		return strings.TrimSpace(strings.Join(lines[start:], "\n"))
	}
	return content
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func isHeadingDate(line string) bool {
	for _, p := range headingDateLine {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func hasTitleSuffix(line string) bool {
	for _, suffix := range headingTitleSuffixes {
		if strings.Contains(line, suffix) {
			return true
		}
	}
	return false
}
