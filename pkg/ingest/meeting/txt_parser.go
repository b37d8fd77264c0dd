package meeting

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Webex text export line: 0:11 : Speaker Name : text, or 1:02:45 : ...
var txtTranscriptLineRegex = regexp.MustCompile(`^(?:(\d+):)?(\d+):(\d{2})\s*:\s*([^:]+?)\s*:\s*(.+)$`)

// ParseTXTTranscript parses a plain text transcript. Lines in the
// "timestamp : Speaker : text" export layout become segments. When no line
// matches, the whole file is returned in Raw.
func ParseTXTTranscript(r io.Reader) (*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	result := &Transcript{
		Segments: make([]Segment, 0),
		Speakers: make([]string, 0),
		Format:   FormatTXT,
	}
	seen := make(map[string]bool)
	var raw strings.Builder
	var lastMs int

	for scanner.Scan() {
		line := scanner.Text()
		raw.WriteString(line)
		raw.WriteByte('\n')

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		m := txtTranscriptLineRegex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.Atoi(m[3])
		ms := ((hours*60+minutes)*60 + seconds) * 1000
		speaker := strings.TrimSpace(m[4])

		result.Segments = append(result.Segments, Segment{
			Speaker: speaker,
			Text:    strings.TrimSpace(m[5]),
			StartMs: ms,
			EndMs:   ms,
		})
		result.addSpeaker(seen, speaker)
		if ms > lastMs {
			lastMs = ms
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	if len(result.Segments) == 0 {
		result.Raw = strings.TrimSpace(raw.String())
	}
	result.DurationSeconds = lastMs / 1000
	return result, nil
}
