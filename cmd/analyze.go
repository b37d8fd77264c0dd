package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/contentid"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/ingest/meeting"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/report"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
)

// templateFlags choose the prompt template of an analysis.
type templateFlags struct {
	name         string
	version      string
	customFile   string
	instructions string
}

func (t *templateFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&t.name, "template", "", "Template name (see 'mta templates list')")
	fs.StringVar(&t.version, "template-version", "", "Template version (default: latest)")
	fs.StringVar(&t.customFile, "custom-template-file", "", "Use the template text in this file instead of a named template")
	fs.StringVar(&t.instructions, "instructions", "", "Additional instructions appended to the prompt")
}

// apply copies the template selection into opts, reading and validating a
// custom template file.
func (t *templateFlags) apply(opts *analysis.Options) error {
	opts.Template = t.name
	opts.Version = t.version
	opts.Instructions = t.instructions
	if t.customFile == "" {
		return nil
	}
	data, err := os.ReadFile(t.customFile)
	if err != nil {
		return fmt.Errorf("reading custom template: %w", err)
	}
	if err := analysis.ValidateCustomTemplate(string(data)); err != nil {
		return err
	}
	opts.CustomTemplate = string(data)
	return nil
}

// analyzeFlags are the flags of 'analyze' and 'analyze-file'.
type analyzeFlags struct {
	filter    filterFlags
	post      postFilterFlags
	templates templateFlags
	save      bool
	export    bool
}

// NewAnalyzeCommand creates the 'analyze' command.
func NewAnalyzeCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze meetings one by one",
		Long: `Analyze each selected meeting with the LLM and print the results.

Meetings are read from the source collection, normalized (native and Drive-export
records are both accepted), parsed into utterances and analyzed one at a time.
A meeting with an empty transcript or no recognizable utterances gets an error
result and the run continues with the next meeting.

Selection:
  --date                 One calendar day
  --start / --end        Inclusive day range
  --id                   Specific document IDs (repeatable)
  --title                Title substring
  --limit                At most N meetings

After parsing, meetings can be narrowed further by transcript length, speaker
count or a required speaker (--min-length, --participant, ...).

Examples:
  # Analyze yesterday's meetings with the default template
  mta analyze --date 2025-01-07

  # Analyze a week with a specific template version and store the results
  mta analyze --start 2025-01-06 --end 2025-01-10 --template my_summary --template-version 1.0 --save

  # Only meetings where Alice speaks, exported as Markdown, JSON and CSV
  mta analyze --start 2025-01-01 --participant Alice --export

  # Machine-readable output
  mta analyze --date 2025-01-07 --output json

Related Commands:
  mta aggregate      Analyze the selected meetings as one
  mta daily          Daily reports
  mta analyze-file   Analyze records from a JSON file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), deps, flags)
		},
	}

	flags.filter.bind(cmd)
	flags.post.bind(cmd)
	flags.templates.bind(cmd)
	cmd.Flags().BoolVar(&flags.save, "save", false, "Store results in the analysis collection")
	cmd.Flags().BoolVar(&flags.export, "export", false, "Write Markdown, JSON and team CSV reports")

	return cmd
}

// NewAnalyzeFileCommand creates the 'analyze-file' command.
func NewAnalyzeFileCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze-file <file.json>",
		Short: "Analyze meeting records from a JSON file",
		Long: `Analyze meeting records read from a JSON file instead of the store.

The file holds one record or an array of records in either schema (native
title/transcript/date or Drive-export name/content/createdTime). MongoDB
extended JSON such as {"$oid": ...} and {"$date": ...} is accepted.

Results are only printed unless --save is given, in which case they are stored
in the analysis collection of the configured store.

Examples:
  mta analyze-file ./export.json
  mta analyze-file ./export.json --template comprehensive_review --export
  mta analyze-file ./export.json --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeFile(cmd.Context(), deps, args[0], flags)
		},
	}

	flags.post.bind(cmd)
	flags.templates.bind(cmd)
	cmd.Flags().BoolVar(&flags.save, "save", false, "Store results in the analysis collection")
	cmd.Flags().BoolVar(&flags.export, "export", false, "Write Markdown, JSON and team CSV reports")

	return cmd
}

// analyzeOutput is the structured output of 'analyze'.
type analyzeOutput struct {
	RunID     string                    `json:"run_id"`
	Total     int                       `json:"total"`
	Succeeded int                       `json:"succeeded"`
	Failed    int                       `json:"failed"`
	Saved     int                       `json:"saved,omitempty"`
	Exported  []string                  `json:"exported,omitempty"`
	Results   []*analysis.MeetingResult `json:"results"`
}

func runAnalyze(ctx context.Context, deps *CommandDeps, flags analyzeFlags) error {
	filter, err := flags.filter.filter(time.Local)
	if err != nil {
		return err
	}
	var opts analysis.Options
	if err := flags.templates.apply(&opts); err != nil {
		return err
	}
	opts.Post = flags.post.postFilter()
	opts.Collection = flags.filter.collection

	sess, err := deps.openSession(ctx, sessionOptions{analysis: opts})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	results, err := sess.analyzer.AnalyzeMeetings(ctx, filter)
	if err != nil {
		return err
	}
	return finishAnalyze(ctx, deps, sess, results, flags)
}

func runAnalyzeFile(ctx context.Context, deps *CommandDeps, path string, flags analyzeFlags) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	docs, err := meeting.LoadJSONDocuments(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var opts analysis.Options
	if err := flags.templates.apply(&opts); err != nil {
		return err
	}
	opts.Post = flags.post.postFilter()

	so := sessionOptions{analysis: opts}
	if !flags.save {
		so.store = store.NullStore{}
	}
	sess, err := deps.openSession(ctx, so)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	results, err := sess.analyzer.AnalyzeDocuments(ctx, docs)
	if err != nil {
		return err
	}
	return finishAnalyze(ctx, deps, sess, results, flags)
}

func finishAnalyze(ctx context.Context, deps *CommandDeps, sess *session, results []*analysis.MeetingResult, flags analyzeFlags) error {
	out := analyzeOutput{RunID: sess.analyzer.RunID(), Total: len(results), Results: results}
	for _, r := range results {
		if r.OK() {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}

	if flags.save {
		n, err := sess.analyzer.Save(ctx, results)
		if err != nil {
			return err
		}
		out.Saved = n
	}

	generatedAt := deps.now()
	if flags.export && len(results) > 0 {
		locations, err := exportMeetings(ctx, deps, sess, results, generatedAt)
		if err != nil {
			return err
		}
		out.Exported = locations
	}

	return deps.render(out, func(w io.Writer) error {
		if len(results) == 0 {
			fmt.Fprintln(w, "No meetings matched the filter.")
			return nil
		}
		fmt.Fprint(w, report.Meetings(results, generatedAt))
		fmt.Fprintf(w, "\nAnalyzed %d meetings: %d succeeded, %d failed\n", out.Total, out.Succeeded, out.Failed)
		if out.Saved > 0 {
			fmt.Fprintf(w, "Saved %d results to %s\n", out.Saved, sess.cfg.Store.AnalysisCollection)
		}
		for _, loc := range out.Exported {
			fmt.Fprintf(w, "Exported: %s\n", loc)
		}
		return nil
	})
}

// exportMeetings writes the Markdown report, the JSON results and the team
// table as CSV and JSON. It returns the locations written.
func exportMeetings(ctx context.Context, deps *CommandDeps, sess *session, results []*analysis.MeetingResult, generatedAt time.Time) ([]string, error) {
	sink, err := deps.OpenSink(ctx, sess.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening report destination: %w", err)
	}
	runID := contentid.NewAt(contentid.TypeReport, generatedAt)

	jsonResults, err := report.JSON(results)
	if err != nil {
		return nil, err
	}
	team := report.TeamTable(results)
	var csvBuf bytes.Buffer
	if err := report.WriteTeamCSV(&csvBuf, team); err != nil {
		return nil, err
	}
	teamJSON, err := report.JSON(report.TeamExport{
		GeneratedAt:       generatedAt,
		TotalParticipants: len(team),
		Participants:      team,
	})
	if err != nil {
		return nil, err
	}

	files := []exportFile{
		{report.RunKey("meeting_analysis", runID, generatedAt, "md"), []byte(report.Meetings(results, generatedAt)), report.ContentTypeMarkdown},
		{report.RunKey("meeting_analysis", runID, generatedAt, "json"), jsonResults, report.ContentTypeJSON},
		{report.RunKey("team_summary", runID, generatedAt, "csv"), csvBuf.Bytes(), report.ContentTypeCSV},
		{report.RunKey("team_summary", runID, generatedAt, "json"), teamJSON, report.ContentTypeJSON},
	}
	return putAll(ctx, deps, sink, files)
}

type exportFile struct {
	key         string
	data        []byte
	contentType string
}

func putAll(ctx context.Context, deps *CommandDeps, sink report.Sink, files []exportFile) ([]string, error) {
	locations := make([]string, 0, len(files))
	for _, f := range files {
		if err := sink.Put(ctx, f.key, f.data, f.contentType); err != nil {
			return locations, fmt.Errorf("exporting %s: %w", f.key, err)
		}
		loc := sink.Location(f.key)
		deps.logger().Info("Report exported", logging.F("location", loc))
		locations = append(locations, loc)
	}
	return locations, nil
}
