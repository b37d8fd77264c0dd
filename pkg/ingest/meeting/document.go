package meeting

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// Extra fields written on imported documents.
const (
	FieldMeetingID  = "meeting_id"
	FieldSourceFile = "source_file"
	FieldFormat     = "source_format"
	FieldDuration   = "duration_seconds"
	FieldImportedAt = "imported_at"
)

// Text renders the transcript as "[HH:MM:SS] Speaker: text" lines. Segments
// without a speaker are written as bare continuation lines.
func (t *Transcript) Text() string {
	if len(t.Segments) == 0 {
		return t.Raw
	}
	var b strings.Builder
	for i, seg := range t.Segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		if seg.Speaker == "" {
			b.WriteString(seg.Text)
			continue
		}
		fmt.Fprintf(&b, "[%s] %s: %s", clock(seg.StartMs), seg.Speaker, seg.Text)
	}
	return b.String()
}

func clock(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// MeetingKey is the stable meeting_id of an imported file: the normalized
// title plus the meeting date. Re-importing the same file yields the same
// key, so duplicates can be found later.
func MeetingKey(src Source) string {
	title := NormalizeTitle(src.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	}
	return strings.ToLower(strings.ReplaceAll(title, " ", "-")) + "-" + src.Date.Format("20060102")
}

// NewDocument builds a native-schema document from a parsed file.
func NewDocument(id string, src Source, tr *Transcript, importedAt time.Time) transcript.Document {
	title := NormalizeTitle(src.Title)
	if title == "" {
		title = filepath.Base(src.Path)
	}
	doc := transcript.Document{
		transcript.FieldID:         id,
		transcript.FieldTitle:      title,
		transcript.FieldTranscript: tr.Text(),
		FieldMeetingID:             MeetingKey(src),
		FieldSourceFile:            filepath.Base(src.Path),
		FieldFormat:                src.Format,
		FieldImportedAt:            importedAt.UTC(),
	}
	if !src.Date.IsZero() {
		doc[transcript.FieldDate] = src.Date
	}
	if len(tr.Speakers) > 0 {
		doc[transcript.FieldParticipants] = append([]string(nil), tr.Speakers...)
	}
	if tr.DurationSeconds > 0 {
		doc[FieldDuration] = tr.DurationSeconds
	}
	return doc
}
