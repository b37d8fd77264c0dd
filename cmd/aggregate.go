package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/contentid"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/report"
)

// NewAggregateCommand creates the 'aggregate' command.
func NewAggregateCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Analyze several meetings as one",
		Long: `Combine the selected meetings into one transcript and analyze them together.

Meetings are ordered by date (undated meetings first). The prompt carries every
meeting's analysis block plus a participant summary with each speaker's
utterance count, word count and share of all words across the meetings.

The default template is comprehensive_review.

Examples:
  # Review a whole week
  mta aggregate --start 2025-01-06 --end 2025-01-10

  # Review every meeting with "sprint" in the title and save the report
  mta aggregate --title sprint --save

  # Export the report as Markdown and JSON
  mta aggregate --start 2025-01-01 --end 2025-01-31 --export

Related Commands:
  mta analyze   Analyze meetings one by one
  mta daily     Daily reports (daily_report template)`,
		Aliases: []string{"agg"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd.Context(), deps, flags)
		},
	}

	flags.filter.bind(cmd)
	flags.post.bind(cmd)
	flags.templates.bind(cmd)
	cmd.Flags().BoolVar(&flags.save, "save", false, "Store the report in the analysis collection")
	cmd.Flags().BoolVar(&flags.export, "export", false, "Write the report as Markdown and JSON")

	return cmd
}

// aggregateOutput is the structured output of 'aggregate'.
type aggregateOutput struct {
	RunID    string                    `json:"run_id"`
	Saved    bool                      `json:"saved"`
	Exported []string                  `json:"exported,omitempty"`
	Result   *analysis.AggregatedResult `json:"result"`
}

func runAggregate(ctx context.Context, deps *CommandDeps, flags analyzeFlags) error {
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

	res, err := sess.analyzer.AnalyzeAggregated(ctx, filter)
	if err != nil {
		return err
	}

	out := aggregateOutput{RunID: sess.analyzer.RunID(), Result: res}
	if flags.save {
		if _, err := sess.analyzer.SaveReport(ctx, res); err != nil {
			return err
		}
		out.Saved = true
	}

	generatedAt := deps.now()
	if flags.export {
		sink, err := deps.OpenSink(ctx, sess.cfg)
		if err != nil {
			return fmt.Errorf("opening report destination: %w", err)
		}
		data, err := report.JSON(res)
		if err != nil {
			return err
		}
		runID := contentid.NewAt(contentid.TypeReport, generatedAt)
		out.Exported, err = putAll(ctx, deps, sink, []exportFile{
			{report.RunKey("aggregated_analysis", runID, generatedAt, "md"), []byte(report.Aggregated(res, generatedAt)), report.ContentTypeMarkdown},
			{report.RunKey("aggregated_analysis", runID, generatedAt, "json"), data, report.ContentTypeJSON},
		})
		if err != nil {
			return err
		}
	}

	return deps.render(out, func(w io.Writer) error {
		fmt.Fprint(w, report.Aggregated(res, generatedAt))
		if !res.OK() {
			fmt.Fprintf(w, "\nAnalysis failed: %s (%s)\n", res.Error, res.ErrorCode)
		}
		if out.Saved {
			fmt.Fprintf(w, "Saved report to %s\n", sess.cfg.Store.AnalysisCollection)
		}
		for _, loc := range out.Exported {
			fmt.Fprintf(w, "Exported: %s\n", loc)
		}
		return nil
	})
}
