package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Document is a meeting record as stored: either the native shape
// (title, transcript, date, participants) or a Drive export
// (name, content, createdTime).
type Document = map[string]any

// Document field names.
const (
	FieldID           = "_id"
	FieldTitle        = "title"
	FieldTranscript   = "transcript"
	FieldDate         = "date"
	FieldParticipants = "participants"
	FieldName         = "name"
	FieldContent      = "content"
	FieldCreatedTime  = "createdTime"
)

const untitledMeeting = "Untitled Meeting"

// DateKind records where a canonical date came from.
type DateKind int

const (
	// DateMissing means neither date nor a usable createdTime was present.
	DateMissing DateKind = iota
	// DateProvided means the document carried a date value.
	DateProvided
	// DateParsed means the date was derived from createdTime.
	DateParsed
	// DateFallbackNow means createdTime could not be parsed and the clock was used.
	DateFallbackNow
	// DateUnrecognized means a date value was present but is not a timestamp.
	DateUnrecognized
)

func (k DateKind) String() string {
	switch k {
	case DateProvided:
		return "provided"
	case DateParsed:
		return "parsed"
	case DateFallbackNow:
		return "fallback_now"
	case DateUnrecognized:
		return "unrecognized"
	default:
		return "missing"
	}
}

// DateResult is a meeting date together with its provenance.
type DateResult struct {
	Kind DateKind
	Time time.Time
	// Zoned is false for timestamps written without an offset.
	Zoned bool
	// Original holds the raw input when Kind is DateUnrecognized or DateFallbackNow.
	Original any
	// Err is the parse failure behind DateFallbackNow.
	Err error
}

// HasTime reports whether Time is meaningful.
func (d DateResult) HasTime() bool {
	switch d.Kind {
	case DateProvided, DateParsed, DateFallbackNow:
		return true
	}
	return false
}

// SortKey orders meetings by date; meetings without one sort first.
func (d DateResult) SortKey() time.Time {
	if d.HasTime() {
		return d.Time
	}
	return time.Time{}
}

// Display renders the date the way it appears in analysis text.
func (d DateResult) Display(fallback string) string {
	switch {
	case d.HasTime():
		layout := "2006-01-02 15:04:05"
		if d.Time.Nanosecond() != 0 {
			layout += ".000000"
		}
		if d.Zoned {
			layout += "-07:00"
		}
		return d.Time.Format(layout)
	case d.Kind == DateUnrecognized && d.Original != nil:
		return fmt.Sprint(d.Original)
	}
	return fallback
}

// Label renders the calendar day, or the raw value when it is not a timestamp.
func (d DateResult) Label(fallback string) string {
	switch {
	case d.HasTime():
		return d.Time.Format("2006-01-02")
	case d.Kind == DateUnrecognized && d.Original != nil:
		return fmt.Sprint(d.Original)
	}
	return fallback
}

// Value returns the form stored back into a Document.
func (d DateResult) Value() any {
	switch {
	case d.HasTime():
		return d.Time
	case d.Kind == DateUnrecognized:
		return d.Original
	}
	return nil
}

// CanonicalDocument is a document after schema reconciliation.
type CanonicalDocument struct {
	ID              any
	Title           string
	Transcript      string
	Date            DateResult
	Participants    []string
	HasParticipants bool
	// Source is the input document. It is never modified.
	Source Document
}

// Document returns a copy of the source with the canonical fields applied.
func (c *CanonicalDocument) Document() Document {
	out := make(Document, len(c.Source)+4)
	for k, v := range c.Source {
		out[k] = v
	}
	out[FieldTitle] = c.Title
	out[FieldTranscript] = c.Transcript
	if v := c.Date.Value(); v != nil {
		out[FieldDate] = v
	}
	if c.HasParticipants {
		out[FieldParticipants] = c.Participants
	}
	return out
}

// IDString renders the document id, or "". Ids with a Hex method render as hex.
func (c *CanonicalDocument) IDString() string {
	if c.ID == nil {
		return ""
	}
	if h, ok := c.ID.(interface{ Hex() string }); ok {
		return h.Hex()
	}
	if s, ok := c.ID.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(c.ID)
}

// DocumentNormalizer reconciles document schemas into CanonicalDocument.
type DocumentNormalizer struct {
	parser *Parser
	now    func() time.Time
}

// NormalizerOption configures a DocumentNormalizer.
type NormalizerOption func(*DocumentNormalizer)

// WithClock replaces the clock used when createdTime cannot be parsed.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *DocumentNormalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// NewDocumentNormalizer returns a normalizer that derives participants with parser.
func NewDocumentNormalizer(parser *Parser, opts ...NormalizerOption) *DocumentNormalizer {
	if parser == nil {
		parser = NewParser()
	}
	n := &DocumentNormalizer{parser: parser, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Parser returns the parser used for participant derivation.
func (n *DocumentNormalizer) Parser() *Parser {
	return n.parser
}

// IsNative reports whether doc already has a title key and a non-empty transcript.
func IsNative(doc Document) bool {
	if _, ok := doc[FieldTitle]; !ok {
		return false
	}
	t, ok := doc[FieldTranscript]
	return ok && !isEmpty(t)
}

// Normalize reconciles doc. Native documents are passed through field by field
// without repair; other documents gain a title, a transcript extracted from
// content, a date from createdTime and participants derived from the transcript.
func (n *DocumentNormalizer) Normalize(doc Document) *CanonicalDocument {
	c := &CanonicalDocument{ID: doc[FieldID], Source: doc}

	if IsNative(doc) {
		c.Title = stringField(doc, FieldTitle)
		c.Transcript = stringField(doc, FieldTranscript)
		c.Date = dateField(doc[FieldDate])
		c.Participants, c.HasParticipants = participantsField(doc)
		return c
	}

	if _, ok := doc[FieldTitle]; ok {
		c.Title = stringField(doc, FieldTitle)
	} else if name, ok := doc[FieldName].(string); ok {
		c.Title = name
	} else {
		c.Title = untitledMeeting
	}

	c.Transcript = stringField(doc, FieldTranscript)
	if c.Transcript == "" {
		if content := stringField(doc, FieldContent); content != "" {
			c.Transcript = ExtractTranscriptSection(content)
		}
	}

	if v, ok := doc[FieldDate]; ok && v != nil {
		c.Date = dateField(v)
	} else {
		c.Date = n.dateFromCreatedTime(doc[FieldCreatedTime])
	}

	c.Participants, c.HasParticipants = participantsField(doc)
	if len(c.Participants) == 0 && c.Transcript != "" {
		if derived := n.parser.Participants(c.Transcript); len(derived) > 0 {
			c.Participants, c.HasParticipants = derived, true
		}
	}
	return c
}

func (n *DocumentNormalizer) dateFromCreatedTime(v any) DateResult {
	switch ct := v.(type) {
	case time.Time:
		if ct.IsZero() {
			return DateResult{Kind: DateMissing}
		}
		return DateResult{Kind: DateParsed, Time: ct, Zoned: true}
	case string:
		if ct == "" {
			return DateResult{Kind: DateMissing}
		}
		t, zoned, err := ParseCreatedTime(ct)
		if err != nil {
			return DateResult{Kind: DateFallbackNow, Time: n.now(), Original: ct, Err: err}
		}
		return DateResult{Kind: DateParsed, Time: t, Zoned: zoned}
	}
	return DateResult{Kind: DateMissing}
}

// ParseCreatedTime parses an ISO-8601 timestamp, discarding fractional seconds.
// The boolean reports whether the input carried a UTC offset.
func ParseCreatedTime(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		end := len(s)
		if i := strings.IndexAny(s[dot:], "+-Z"); i >= 0 {
			end = dot + i
		}
		s = s[:dot] + s[end:]
		if strings.HasSuffix(s, "Z") {
			s = strings.TrimSuffix(s, "Z") + "+00:00"
		}
	}
	return parseISO(s)
}

var isoLayouts = []struct {
	layout string
	zoned  bool
}{
	{"2006-01-02T15:04:05-07:00", true},
	{"2006-01-02 15:04:05-07:00", true},
	{"2006-01-02T15:04-07:00", true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02", false},
}

func parseISO(s string) (time.Time, bool, error) {
	for _, l := range isoLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t, l.zoned, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid isoformat string: %q", s)
}

func dateField(v any) DateResult {
	switch d := v.(type) {
	case nil:
		return DateResult{Kind: DateMissing}
	case time.Time:
		return DateResult{Kind: DateProvided, Time: d, Zoned: true}
	case *time.Time:
		if d == nil {
			return DateResult{Kind: DateMissing}
		}
		return DateResult{Kind: DateProvided, Time: *d, Zoned: true}
	case string:
		if t, zoned, err := ParseCreatedTime(d); err == nil {
			return DateResult{Kind: DateProvided, Time: t, Zoned: zoned}
		}
	}
	return DateResult{Kind: DateUnrecognized, Original: v}
}

func participantsField(doc Document) ([]string, bool) {
	v, ok := doc[FieldParticipants]
	if !ok || v == nil {
		return nil, false
	}
	switch p := v.(type) {
	case []string:
		return append([]string(nil), p...), true
	case []any:
		out := make([]string, 0, len(p))
		for _, item := range p {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func stringField(doc Document, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}
