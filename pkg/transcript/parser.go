package transcript

import (
	"regexp"
	"sort"
	"strings"
)

// Utterance is one attributed statement.
type Utterance struct {
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

// Rule is one line grammar. Apply runs when Match matches the trimmed current
// line and must leave the cursor past every line it consumed.
type Rule struct {
	Name  string
	Match *regexp.Regexp
	Apply func(c *Cursor, m []string)
}

var (
	standaloneClock   = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})$|^(\d{2}:\d{2})$`)
	speakerLine       = regexp.MustCompile(`^([^:]+):[\s\p{Zs}]*(.+)`)
	continuationBreak = regexp.MustCompile(`^[^:]+:`)
	clockLabel        = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
)

const defaultTimestamp = "00:00:00"

// Single-line formats, tried in order.
var singleLineFormats = []struct {
	name    string
	pattern string
}{
	{"bracketed_hms", `^\[(\d{2}:\d{2}:\d{2})\][\s\p{Zs}]*([^:]+):[\s\p{Zs}]*(.+)`},
	{"bracketed_hm", `^\[(\d{2}:\d{2})\][\s\p{Zs}]*([^:]+):[\s\p{Zs}]*(.+)`},
	{"bare_hms", `^(\d{2}:\d{2}:\d{2})[\s\p{Zs}]+([^:]+):[\s\p{Zs}]*(.+)`},
	{"bare_hm", `^(\d{2}:\d{2})[\s\p{Zs}]+([^:]+):[\s\p{Zs}]*(.+)`},
}

// Cursor is the parser state handed to rules.
type Cursor struct {
	lines  []string
	pos    int
	out    []Utterance
	names  *NameNormalizer
	accept func(string) bool
}

// Current returns the trimmed line under the cursor.
func (c *Cursor) Current() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	return strings.TrimSpace(c.lines[c.pos]), true
}

// Advance moves the cursor forward n lines.
func (c *Cursor) Advance(n int) {
	c.pos += n
}

// SkipBlank advances past blank lines.
func (c *Cursor) SkipBlank() {
	for c.pos < len(c.lines) && strings.TrimSpace(c.lines[c.pos]) == "" {
		c.pos++
	}
}

// Speaker validates a raw label and returns its canonical form.
func (c *Cursor) Speaker(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !c.accept(raw) {
		return "", false
	}
	return c.names.Normalize(raw), true
}

// Emit appends an utterance.
func (c *Cursor) Emit(timestamp, speaker, text string) {
	c.out = append(c.out, Utterance{
		Timestamp: strings.TrimSpace(timestamp),
		Speaker:   speaker,
		Text:      strings.TrimSpace(text),
	})
}

// Last returns the most recently emitted utterance, or nil.
func (c *Cursor) Last() *Utterance {
	if len(c.out) == 0 {
		return nil
	}
	return &c.out[len(c.out)-1]
}

// SingleLineRule builds a rule for a pattern whose three groups are
// timestamp, speaker and text.
func SingleLineRule(name string, pattern *regexp.Regexp) Rule {
	return Rule{
		Name:  name,
		Match: pattern,
		Apply: func(c *Cursor, m []string) {
			c.Advance(1)
			if speaker, ok := c.Speaker(m[2]); ok {
				c.Emit(m[1], speaker, m[3])
			}
		},
	}
}

// StandaloneTimestampRule handles a timestamp alone on its line, with the
// speaker and text on the next non-blank line and possibly continuing below.
// That line is taken as "speaker: text" whatever it looks like, so a second
// clock line reads as speaker "00" and is dropped.
func StandaloneTimestampRule() Rule {
	return Rule{
		Name:  "standalone_timestamp",
		Match: standaloneClock,
		Apply: func(c *Cursor, m []string) {
			timestamp := m[1]
			if timestamp == "" {
				timestamp = m[2]
			}
			c.Advance(1)
			c.SkipBlank()

			next, ok := c.Current()
			if !ok {
				return
			}
			sm := speakerLine.FindStringSubmatch(next)
			if sm == nil {
				return
			}
			c.Advance(1)
			speaker, ok := c.Speaker(sm[1])
			if !ok {
				return
			}

			text := strings.TrimSpace(sm[2])
			for {
				line, ok := c.Current()
				if !ok || line == "" || standaloneClock.MatchString(line) || continuationBreak.MatchString(line) {
					break
				}
				text += " " + line
				c.Advance(1)
			}
			c.Emit(timestamp, speaker, text)
		},
	}
}

// SpeakerOnlyRule handles "Speaker: text" with no timestamp. Consecutive lines
// from the same speaker merge into one utterance.
func SpeakerOnlyRule() Rule {
	return Rule{
		Name:  "speaker_only",
		Match: speakerLine,
		Apply: func(c *Cursor, m []string) {
			c.Advance(1)
			if clockLabel.MatchString(strings.TrimSpace(m[1])) {
				return
			}
			speaker, ok := c.Speaker(m[1])
			if !ok {
				return
			}
			text := strings.TrimSpace(m[2])
			if last := c.Last(); last != nil && last.Speaker == speaker {
				last.Text += " " + text
				return
			}
			timestamp := defaultTimestamp
			if last := c.Last(); last != nil {
				timestamp = last.Timestamp
			}
			c.Emit(timestamp, speaker, text)
		},
	}
}

// DefaultRules returns the built-in grammar in precedence order.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(singleLineFormats)+2)
	for _, f := range singleLineFormats {
		rules = append(rules, SingleLineRule(f.name, regexp.MustCompile(f.pattern)))
	}
	return append(rules, StandaloneTimestampRule(), SpeakerOnlyRule())
}

// Parser converts transcript text into utterances.
type Parser struct {
	rules  []Rule
	names  *NameNormalizer
	accept func(string) bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithAliases replaces the alias table used for speaker names.
func WithAliases(t *AliasTable) ParserOption {
	return func(p *Parser) {
		p.names = NewNameNormalizer(t)
	}
}

// WithValidator replaces the speaker validator.
func WithValidator(accept func(string) bool) ParserOption {
	return func(p *Parser) {
		if accept != nil {
			p.accept = accept
		}
	}
}

// WithSingleLineFormat adds a timestamped single-line format ahead of the
// built-in ones. The pattern needs timestamp, speaker and text groups.
func WithSingleLineFormat(name string, pattern *regexp.Regexp) ParserOption {
	return func(p *Parser) {
		p.rules = append([]Rule{SingleLineRule(name, pattern)}, p.rules...)
	}
}

// WithRules replaces the whole grammar.
func WithRules(rules ...Rule) ParserOption {
	return func(p *Parser) {
		p.rules = rules
	}
}

// NewParser returns a parser with the built-in grammar and default aliases.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		rules:  DefaultRules(),
		names:  NewNameNormalizer(nil),
		accept: IsValidParticipant,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Names returns the parser's name normalizer.
func (p *Parser) Names() *NameNormalizer {
	return p.names
}

// Parse returns the utterances in text in order. Lines no rule accepts are skipped.
func (p *Parser) Parse(text string) []Utterance {
	if text == "" {
		return nil
	}
	c := &Cursor{
		lines:  strings.Split(normalizeNewlines(text), "\n"),
		names:  p.names,
		accept: p.accept,
	}

	for c.pos < len(c.lines) {
		start := c.pos
		line, _ := c.Current()
		if line == "" {
			c.Advance(1)
			continue
		}

		for _, r := range p.rules {
			if m := r.Match.FindStringSubmatch(line); m != nil {
				r.Apply(c, m)
				break
			}
		}
		if c.pos <= start {
			c.pos = start + 1
		}
	}
	return c.out
}

// Participants returns the sorted distinct speakers in text.
func (p *Parser) Participants(text string) []string {
	return SpeakersOf(p.Parse(text))
}

// SpeakersOf returns the sorted distinct speakers in utterances.
func SpeakersOf(utterances []Utterance) []string {
	seen := make(map[string]struct{}, len(utterances))
	out := make([]string, 0)
	for _, u := range utterances {
		if _, ok := seen[u.Speaker]; ok {
			continue
		}
		seen[u.Speaker] = struct{}{}
		out = append(out, u.Speaker)
	}
	sort.Strings(out)
	return out
}
