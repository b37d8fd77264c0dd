// Package meeting imports local meeting transcript files (WebVTT, plain text
// and JSON exports) as raw documents for the meeting store.
package meeting

import "time"

// File formats recognised by Scan.
const (
	FormatVTT  = "vtt"
	FormatTXT  = "txt"
	FormatJSON = "json"
)

// Segment is one timed line of a transcript file.
type Segment struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
	StartMs int    `json:"start_ms"`
	EndMs   int    `json:"end_ms"`
}

// Transcript is a parsed VTT or TXT file.
type Transcript struct {
	Segments        []Segment `json:"segments"`
	Speakers        []string  `json:"speakers"`
	DurationSeconds int       `json:"duration_seconds"`
	Format          string    `json:"format"`
	// Raw holds the file text when no line matched a known layout. It is
	// imported unchanged and left to the transcript parser.
	Raw string `json:"raw,omitempty"`
}

// Source is a transcript file found by Scan.
type Source struct {
	Path   string
	Format string
	Title  string
	Date   time.Time
	// DateFromName is false when Date came from the file modification time.
	DateFromName bool
}

func (t *Transcript) addSpeaker(seen map[string]bool, name string) {
	if name == "" || seen[name] {
		return
	}
	seen[name] = true
	t.Speakers = append(t.Speakers, name)
}
