package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/ingest/meeting"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/report"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// DefaultFailedFile is where parse-test records meetings that did not parse.
const DefaultFailedFile = "parsing_failed.json"

// NewParseCommand creates the 'parse' command.
func NewParseCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var formatted bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a transcript file into utterances",
		Long: `Parse a local transcript and print its utterances and per-speaker statistics.

Supported inputs:
  .vtt    WebVTT captions (cues become "[HH:MM:SS] Speaker: text" lines)
  .json   Meeting records in either schema; each record is parsed
  other   Plain transcript text

With --formatted the analysis text block embedded into LLM prompts is printed
instead (meeting info, speaker statistics and the full transcript).

Examples:
  mta parse ./standup.txt
  mta parse ./standup.vtt --formatted
  mta parse ./export.json --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.Context(), deps, args[0], formatted)
		},
	}

	cmd.Flags().BoolVar(&formatted, "formatted", false, "Print the analysis text block")

	return cmd
}

// parsedMeeting is the structured output of one parsed meeting.
type parsedMeeting struct {
	ID        string                   `json:"id,omitempty"`
	Title     string                   `json:"title"`
	Date      string                   `json:"date"`
	Diagnosis transcript.ParseDiagnosis `json:"diagnosis"`
	Stats     *transcript.StatsMap     `json:"participant_stats"`
	// Utterances is set by 'parse' only.
	Utterances []transcript.Utterance `json:"parsed_transcript,omitempty"`

	formatted string
}

func newParsedMeeting(m *transcript.CanonicalDocument, d transcript.ParseDiagnosis) parsedMeeting {
	return parsedMeeting{
		ID:        m.IDString(),
		Title:     m.Title,
		Date:      m.Date.Display("N/A"),
		Diagnosis: d,
		Stats:     d.Stats,
		formatted: transcript.FormatForAnalysis(m, d.Utterances, d.Stats),
	}
}

// loadTranscriptFile turns a local file into raw meeting documents.
func loadTranscriptFile(path string, now time.Time) ([]transcript.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch meeting.DetectFormat(path) {
	case meeting.FormatJSON:
		return meeting.LoadJSONDocuments(f)
	case meeting.FormatVTT:
		tr, err := meeting.ParseVTT(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return []transcript.Document{{
			transcript.FieldTitle:      title,
			transcript.FieldTranscript: tr.Text(),
			transcript.FieldDate:       now,
		}}, nil
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return []transcript.Document{{
			transcript.FieldTitle:      title,
			transcript.FieldTranscript: string(data),
			transcript.FieldDate:       now,
		}}, nil
	}
}

func runParse(ctx context.Context, deps *CommandDeps, path string, formatted bool) error {
	docs, err := loadTranscriptFile(path, deps.now())
	if err != nil {
		return err
	}

	parser := transcript.NewParser()
	if cfg, err := deps.config(); err == nil {
		parser = newParser(cfg)
	}
	normalizer := transcript.NewDocumentNormalizer(parser, transcript.WithClock(deps.now))

	out := make([]parsedMeeting, 0, len(docs))
	for _, doc := range docs {
		m := normalizer.Normalize(doc)
		d := transcript.Diagnose(m, parser)
		pm := newParsedMeeting(m, d)
		pm.Utterances = d.Utterances
		out = append(out, pm)
	}

	return deps.render(out, func(w io.Writer) error {
		for i, pm := range out {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if formatted {
				fmt.Fprintln(w, pm.formatted)
				continue
			}
			writeParsedText(w, pm)
		}
		return nil
	})
}

func writeParsedText(w io.Writer, pm parsedMeeting) {
	fmt.Fprintf(w, "Title:      %s\n", pm.Title)
	fmt.Fprintf(w, "Date:       %s\n", pm.Date)
	fmt.Fprintf(w, "Length:     %d characters\n", pm.Diagnosis.TranscriptLength)
	if !pm.Diagnosis.OK {
		fmt.Fprintf(w, "Status:     FAILED (%s)\n", pm.Diagnosis.Reason.Description())
		return
	}
	fmt.Fprintf(w, "Statements: %d\n", pm.Diagnosis.UtteranceCount)
	fmt.Fprintf(w, "Speakers:   %s\n\n", strings.Join(pm.Diagnosis.Participants, ", "))
	fmt.Fprintf(w, "%-20s  %8s  %8s  %-10s  %-10s\n", "SPEAKER", "COUNT", "WORDS", "FIRST", "LAST")
	for _, e := range pm.Stats.Entries() {
		fmt.Fprintf(w, "%-20s  %8d  %8d  %-10s  %-10s\n",
			truncate(e.Speaker, 20), e.Stats.SpeakCount, e.Stats.TotalWords, e.Stats.FirstTimestamp(), e.Stats.LastTimestamp())
	}
	fmt.Fprintln(w)
	for _, u := range pm.Utterances {
		fmt.Fprintf(w, "[%s] %s: %s\n", u.Timestamp, u.Speaker, u.Text)
	}
}

// NewParseTestCommand creates the 'parse-test' command.
func NewParseTestCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var (
		filter     filterFlags
		post       postFilterFlags
		failedFile string
	)

	cmd := &cobra.Command{
		Use:   "parse-test",
		Short: "Check that stored transcripts parse",
		Long: `Parse every selected meeting in the store and report which ones fail.

No LLM calls are made. For each meeting the transcript is normalized and parsed;
meetings that yield no utterances are classified:

  empty_transcript           no transcript at all
  transcription_ended_only   only a "Transcription ended after ..." line
  script_ended_only          only a "... 후 스크립트 작성이 종료되었습니다" line
  too_short                  fewer than 200 characters
  no_delimiters              no ':' '[' or ']' anywhere
  no_utterances              none of the line formats matched

Failed meetings are written to parsing_failed.json (see --failed-file), which
'mta move-failed' reads.

Examples:
  mta parse-test
  mta parse-test --start 2025-01-01 --end 2025-01-31
  mta parse-test --min-participants 3 --output json
  mta parse-test --failed-file /tmp/failed.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParseTest(cmd.Context(), deps, filter, post, failedFile)
		},
	}

	filter.bind(cmd)
	post.bind(cmd)
	cmd.Flags().StringVar(&failedFile, "failed-file", DefaultFailedFile, "Where to write failed meetings (empty to skip)")

	return cmd
}

// failedMeeting is one entry of parsing_failed.json.
type failedMeeting struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Date             any    `json:"date"`
	FailureReason    string `json:"failure_reason"`
	FailureCode      string `json:"failure_code"`
	TranscriptLength int    `json:"transcript_length"`
}

// failedFile is the parsing_failed.json document.
type failedFile struct {
	TotalFailed    int             `json:"total_failed"`
	GeneratedAt    time.Time       `json:"generated_at"`
	FailedMeetings []failedMeeting `json:"failed_meetings"`
}

// parseTestSummary aggregates a parse-test run.
type parseTestSummary struct {
	TotalMeetings      int      `json:"total_meetings"`
	SuccessCount       int      `json:"success_count"`
	FailCount          int      `json:"fail_count"`
	TotalStatements    int      `json:"total_statements"`
	UniqueParticipants int      `json:"unique_participants"`
	MinParticipants    int      `json:"min_participants"`
	MaxParticipants    int      `json:"max_participants"`
	AvgParticipants    float64  `json:"avg_participants"`
	ParticipantsList   []string `json:"participants_list"`
}

type parseTestOutput struct {
	Summary        parseTestSummary `json:"summary"`
	ParsedMeetings []parsedMeeting  `json:"parsed_meetings"`
	FailedMeetings []failedMeeting  `json:"failed_meetings"`
	FailedFile     string           `json:"failed_file,omitempty"`
}

func runParseTest(ctx context.Context, deps *CommandDeps, filter filterFlags, post postFilterFlags, failedPath string) error {
	f, err := filter.filter(time.Local)
	if err != nil {
		return err
	}
	opts := analysis.Options{Collection: filter.collection, Post: post.postFilter()}
	sess, err := deps.openSession(ctx, sessionOptions{analysis: opts, noGenerator: true})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	meetings, err := sess.analyzer.Fetch(ctx, f)
	if err != nil {
		return err
	}
	out := parseMeetings(meetings, sess.analyzer.Parser(), deps)

	if len(out.FailedMeetings) > 0 && failedPath != "" {
		data, err := report.JSON(failedFile{
			TotalFailed:    len(out.FailedMeetings),
			GeneratedAt:    deps.now(),
			FailedMeetings: out.FailedMeetings,
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(failedPath, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", failedPath, err)
		}
		out.FailedFile = failedPath
		deps.logger().Info("Failed meetings written", logging.F("path", failedPath), logging.F("count", len(out.FailedMeetings)))
	}

	return deps.render(out, func(w io.Writer) error {
		return writeParseTestText(w, out)
	})
}

// parseMeetings diagnoses every meeting and records parse metrics.
func parseMeetings(meetings []*transcript.CanonicalDocument, parser *transcript.Parser, deps *CommandDeps) parseTestOutput {
	out := parseTestOutput{
		ParsedMeetings: []parsedMeeting{},
		FailedMeetings: []failedMeeting{},
	}
	out.Summary.TotalMeetings = len(meetings)
	speakers := make(map[string]struct{})
	participantTotal := 0

	for _, m := range meetings {
		d := transcript.Diagnose(m, parser)
		deps.Metrics.RecordParse(d.UtteranceCount, string(d.Reason))
		if !d.OK {
			out.Summary.FailCount++
			out.FailedMeetings = append(out.FailedMeetings, failedMeeting{
				ID:               m.IDString(),
				Title:            m.Title,
				Date:             m.Date.Value(),
				FailureReason:    d.Reason.Description(),
				FailureCode:      string(d.Reason),
				TranscriptLength: d.TranscriptLength,
			})
			continue
		}

		out.Summary.SuccessCount++
		out.Summary.TotalStatements += d.UtteranceCount
		n := len(d.Participants)
		participantTotal += n
		if out.Summary.SuccessCount == 1 || n < out.Summary.MinParticipants {
			out.Summary.MinParticipants = n
		}
		if n > out.Summary.MaxParticipants {
			out.Summary.MaxParticipants = n
		}
		for _, p := range d.Participants {
			speakers[p] = struct{}{}
		}
		out.ParsedMeetings = append(out.ParsedMeetings, newParsedMeeting(m, d))
	}

	out.Summary.UniqueParticipants = len(speakers)
	out.Summary.ParticipantsList = sortedKeys(speakers)
	if out.Summary.SuccessCount > 0 {
		out.Summary.AvgParticipants = float64(participantTotal) / float64(out.Summary.SuccessCount)
	}
	return out
}

func writeParseTestText(w io.Writer, out parseTestOutput) error {
	s := out.Summary
	if s.TotalMeetings == 0 {
		fmt.Fprintln(w, "No meetings matched the filter.")
		return nil
	}
	for _, fm := range out.FailedMeetings {
		fmt.Fprintf(w, "FAILED  %-40s  %s\n", truncate(fm.Title, 40), fm.FailureReason)
	}
	if len(out.FailedMeetings) > 0 {
		fmt.Fprintln(w)
	}

	rule(w, 60)
	fmt.Fprintln(w, "Parse test summary")
	rule(w, 60)
	fmt.Fprintf(w, "Meetings:     %d\n", s.TotalMeetings)
	fmt.Fprintf(w, "Succeeded:    %d\n", s.SuccessCount)
	fmt.Fprintf(w, "Failed:       %d\n", s.FailCount)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", float64(s.SuccessCount)/float64(s.TotalMeetings)*100)
	if s.SuccessCount > 0 {
		fmt.Fprintf(w, "\nStatements:   %d (%.1f per meeting)\n", s.TotalStatements, float64(s.TotalStatements)/float64(s.SuccessCount))
		fmt.Fprintf(w, "Speakers:     %d unique, %.1f per meeting (min %d, max %d)\n",
			s.UniqueParticipants, s.AvgParticipants, s.MinParticipants, s.MaxParticipants)
	}
	if out.FailedFile != "" {
		fmt.Fprintf(w, "\nFailed meetings written to %s\n", out.FailedFile)
	}
	return nil
}
