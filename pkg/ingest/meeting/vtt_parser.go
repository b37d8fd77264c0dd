package meeting

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Webex cue header: 1 "Speaker Name" (speaker_id) or 1 "" (0)
	vttSegmentHeaderRegex = regexp.MustCompile(`^\d+\s+"([^"]*)"(?:\s+\((\d+)\))?$`)

	// 00:00:05.579 --> 00:00:06.858, hours optional
	vttTimestampRegex = regexp.MustCompile(`^((?:\d{2,}:)?\d{2}:\d{2}[.,]\d{3})\s+-->\s+((?:\d{2,}:)?\d{2}:\d{2}[.,]\d{3})`)

	// <v Speaker Name>text</v>
	vttVoiceRegex = regexp.MustCompile(`^<v(?:\.[\w.-]+)?\s+([^>]+)>(.*?)(?:</v>)?$`)

	// Zoom / Teams cue text: "Speaker Name: text"
	vttSpeakerPrefixRegex = regexp.MustCompile(`^([^:<>]{1,60}?):\s+(.+)$`)

	vttTagRegex = regexp.MustCompile(`</?[^>]+>`)
)

// ParseVTT parses a WebVTT transcript. Speakers come from Webex cue headers,
// <v> voice tags or a "Name: " prefix on the cue text.
func ParseVTT(r io.Reader) (*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	result := &Transcript{
		Segments: make([]Segment, 0),
		Speakers: make([]string, 0),
		Format:   FormatVTT,
	}
	seen := make(map[string]bool)

	var current *Segment
	var headerSpeaker string
	var lastEndMs int
	inNote := false

	flush := func() {
		if current != nil && current.Text != "" {
			result.Segments = append(result.Segments, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			// Cues are separated by blank lines.
			flush()
			inNote = false
			continue
		}
		if inNote {
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		if line == "NOTE" || strings.HasPrefix(line, "NOTE ") || line == "STYLE" || line == "REGION" {
			inNote = true
			continue
		}

		if m := vttSegmentHeaderRegex.FindStringSubmatch(line); m != nil {
			flush()
			headerSpeaker = m[1]
			result.addSpeaker(seen, headerSpeaker)
			continue
		}

		if m := vttTimestampRegex.FindStringSubmatch(line); m != nil {
			// A Webex header precedes its timestamp; plain cues start here.
			if current != nil && current.Text != "" {
				flush()
			}
			startMs := parseVTTTimestamp(m[1])
			endMs := parseVTTTimestamp(m[2])
			current = &Segment{Speaker: headerSpeaker, StartMs: startMs, EndMs: endMs}
			headerSpeaker = ""
			if endMs > lastEndMs {
				lastEndMs = endMs
			}
			continue
		}

		if current == nil {
			// Numeric cue identifiers and stray lines before the first cue.
			continue
		}

		speaker, text := splitCueText(line, current.Speaker == "")
		if speaker != "" && current.Speaker == "" {
			current.Speaker = speaker
			result.addSpeaker(seen, speaker)
		}
		if text == "" {
			continue
		}
		if current.Text != "" {
			current.Text += " "
		}
		current.Text += text
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vtt: %w", err)
	}

	result.DurationSeconds = lastEndMs / 1000
	return result, nil
}

// splitCueText separates a speaker from cue text. The "Name: " prefix is only
// honoured when the cue has no speaker yet.
func splitCueText(line string, allowPrefix bool) (speaker, text string) {
	if m := vttVoiceRegex.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), cleanCueText(m[2])
	}
	text = cleanCueText(line)
	if !allowPrefix {
		return "", text
	}
	if m := vttSpeakerPrefixRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", text
}

func cleanCueText(s string) string {
	return strings.TrimSpace(vttTagRegex.ReplaceAllString(s, ""))
}

// parseVTTTimestamp converts HH:MM:SS.mmm or MM:SS.mmm to milliseconds.
func parseVTTTimestamp(ts string) int {
	ts = strings.Replace(ts, ",", ".", 1)
	parts := strings.Split(ts, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 {
		return 0
	}

	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])

	secParts := strings.SplitN(parts[2], ".", 2)
	seconds, _ := strconv.Atoi(secParts[0])
	milliseconds := 0
	if len(secParts) > 1 {
		milliseconds, _ = strconv.Atoi(secParts[1])
	}

	return hours*3600000 + minutes*60000 + seconds*1000 + milliseconds
}
