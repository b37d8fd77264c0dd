package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/report"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

type dailyFlags struct {
	date         string
	month        string
	version      string
	instructions string
	noSave       bool
	noFile       bool
}

// NewDailyCommand creates the 'daily' command.
func NewDailyCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var flags dailyFlags

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Generate daily work reports",
		Long: `Generate the daily work report for one weekday or for every weekday of a month.

A daily report analyzes all meetings of the target day together with the
daily_report template. Monday reports also include meetings held on the
preceding Saturday and Sunday. Weekend dates are skipped.

Reports are stored in the daily collection (store.daily_collection) and written
as Markdown and JSON to the export destination unless --no-save / --no-file
are given.

Examples:
  # Today's report
  mta daily

  # A specific day
  mta daily --date 2025-01-08

  # Every weekday of January 2025; days without meetings are skipped
  mta daily --month 2025-01

  # Use template version 1.0 and only print the report
  mta daily --date 2025-01-08 --template-version 1.0 --no-save --no-file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaily(cmd.Context(), deps, flags)
		},
	}

	cmd.Flags().StringVar(&flags.date, "date", "", "Target day (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&flags.month, "month", "", "Every weekday of a month (YYYY-MM)")
	cmd.Flags().StringVar(&flags.version, "template-version", "", "daily_report template version (default: latest)")
	cmd.Flags().StringVar(&flags.instructions, "instructions", "", "Additional instructions appended to the prompt")
	cmd.Flags().BoolVar(&flags.noSave, "no-save", false, "Do not store reports in the daily collection")
	cmd.Flags().BoolVar(&flags.noFile, "no-file", false, "Do not write report files")
	cmd.MarkFlagsMutuallyExclusive("date", "month")

	return cmd
}

// dailyDay is the outcome for one target day.
type dailyDay struct {
	Date     string                     `json:"date"`
	Status   string                     `json:"status"`
	Reason   string                     `json:"reason,omitempty"`
	Exported []string                   `json:"exported,omitempty"`
	Result   *analysis.AggregatedResult `json:"result,omitempty"`
}

// Day statuses.
const (
	dayDone      = "done"
	daySkipped   = "skipped"
	dayFailed    = "failed"
	dayNoMeeting = "no_meetings"
)

// dailyTargets resolves --date / --month into the days to report on.
func dailyTargets(flags dailyFlags, now time.Time) ([]time.Time, error) {
	loc := now.Location()
	if flags.month != "" {
		m, err := time.ParseInLocation("2006-01", flags.month, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid month %q (want YYYY-MM): %w", flags.month, mtaerrors.ErrValidation)
		}
		days := transcript.WeekdaysInMonth(m.Year(), m.Month(), loc)
		if len(days) == 0 {
			return nil, fmt.Errorf("no weekdays in %s: %w", flags.month, mtaerrors.ErrValidation)
		}
		return days, nil
	}
	if flags.date != "" {
		day, err := parseDay(flags.date, loc)
		if err != nil {
			return nil, err
		}
		return []time.Time{day}, nil
	}
	return []time.Time{time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)}, nil
}

func runDaily(ctx context.Context, deps *CommandDeps, flags dailyFlags) error {
	days, err := dailyTargets(flags, deps.now())
	if err != nil {
		return err
	}

	opts := analysis.Options{
		Template:     analysis.TemplateDailyReport,
		Version:      flags.version,
		Instructions: flags.instructions,
	}
	sess, err := deps.openSession(ctx, sessionOptions{analysis: opts})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	var sink report.Sink
	if !flags.noFile {
		if sink, err = deps.OpenSink(ctx, sess.cfg); err != nil {
			return fmt.Errorf("opening report destination: %w", err)
		}
	}

	logger := deps.logger()
	outcomes := make([]dailyDay, 0, len(days))
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome := dailyReport(ctx, deps, sess, sink, day, flags)
		if outcome.Status == dayFailed {
			logger.Error("Daily report failed", logging.F("date", outcome.Date), logging.F("reason", outcome.Reason))
		}
		outcomes = append(outcomes, outcome)
	}

	// A single requested day that fails is a command error.
	if len(days) == 1 && outcomes[0].Status == dayFailed {
		if err := deps.render(outcomes, func(w io.Writer) error { return nil }); err != nil {
			return err
		}
		return fmt.Errorf("daily report for %s failed: %s", outcomes[0].Date, outcomes[0].Reason)
	}

	return deps.render(outcomes, func(w io.Writer) error {
		return writeDailyText(w, outcomes, deps.now())
	})
}

// dailyReport runs, stores and exports the report for one day.
func dailyReport(ctx context.Context, deps *CommandDeps, sess *session, sink report.Sink, day time.Time, flags dailyFlags) dailyDay {
	outcome := dailyDay{Date: day.Format(dateLayout)}

	res, err := sess.analyzer.DailyReport(ctx, day)
	switch {
	case errors.Is(err, analysis.ErrWeekend):
		outcome.Status = daySkipped
		outcome.Reason = "weekend"
		return outcome
	case errors.Is(err, mtaerrors.ErrNotFound):
		outcome.Status = dayNoMeeting
		outcome.Reason = "no meetings"
		return outcome
	case err != nil:
		outcome.Status = dayFailed
		outcome.Reason = err.Error()
		return outcome
	}

	outcome.Result = res
	if !res.OK() {
		outcome.Status = dayFailed
		outcome.Reason = res.Error
		return outcome
	}

	generatedAt := deps.now()
	res.FullText = report.Daily(res, day, generatedAt)

	if !flags.noSave {
		if _, err := sess.analyzer.SaveReport(ctx, res); err != nil {
			outcome.Status = dayFailed
			outcome.Reason = err.Error()
			return outcome
		}
	}
	if sink != nil {
		data, err := report.JSON(res)
		if err != nil {
			outcome.Status = dayFailed
			outcome.Reason = err.Error()
			return outcome
		}
		outcome.Exported, err = putAll(ctx, deps, sink, []exportFile{
			{report.DailyKey(day, generatedAt, "md"), []byte(res.FullText), report.ContentTypeMarkdown},
			{report.DailyKey(day, generatedAt, "json"), data, report.ContentTypeJSON},
		})
		if err != nil {
			outcome.Status = dayFailed
			outcome.Reason = err.Error()
			return outcome
		}
	}
	outcome.Status = dayDone
	return outcome
}

func writeDailyText(w io.Writer, outcomes []dailyDay, now time.Time) error {
	if len(outcomes) == 1 && outcomes[0].Result != nil {
		fmt.Fprint(w, outcomes[0].Result.FullText)
		for _, loc := range outcomes[0].Exported {
			fmt.Fprintf(w, "Exported: %s\n", loc)
		}
		return nil
	}

	counts := map[string]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	rule(w, 60)
	fmt.Fprintf(w, "Daily reports (%s)\n", now.Format("2006-01-02 15:04:05"))
	rule(w, 60)
	fmt.Fprintf(w, "%-12s  %-12s  %s\n", "DATE", "STATUS", "DETAIL")
	for _, o := range outcomes {
		detail := o.Reason
		if o.Status == dayDone && o.Result != nil {
			detail = fmt.Sprintf("%d meetings", o.Result.MeetingCount)
		}
		fmt.Fprintf(w, "%-12s  %-12s  %s\n", o.Date, o.Status, truncate(detail, 60))
	}
	fmt.Fprintf(w, "\nDone: %d  No meetings: %d  Skipped: %d  Failed: %d\n",
		counts[dayDone], counts[dayNoMeeting], counts[daySkipped], counts[dayFailed])
	return nil
}
