package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/ingest/meeting"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// NewImportCommand creates the 'import' command.
func NewImportCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var (
		collection string
		dryRun     bool
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import local transcript files into the store",
		Long: `Import transcript files from a file or directory into the source collection.

Supported files (directories are scanned recursively):
  .vtt    WebVTT recordings; each cue becomes a "[HH:MM:SS] Speaker: text" line
  .txt    Plain text transcripts (chat logs are skipped)
  .json   Meeting records in either schema, inserted as they are

The meeting title and date are taken from the file or directory name
("Weekly Sync-20250108 1000-1.vtt", "Transcript_Team_20250108.txt",
"2025-01-08 Standup.txt"). Without a date in the name the file's modification
time is used.

Imported VTT/TXT records get a short generated _id and a meeting_id derived from
title and date, so re-imports can be found with 'mta dedupe'.

Examples:
  # Preview what would be imported
  mta import ./recordings --dry-run

  # Import, skipping transcripts that do not parse
  mta import ./recordings --strict

  # Import into a different collection
  mta import ./export.json --collection staging_transcripts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), deps, args[0], collection, dryRun, strict)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Target collection (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse files without inserting them")
	cmd.Flags().BoolVar(&strict, "strict", false, "Skip VTT/TXT transcripts that yield no utterances")

	return cmd
}

// importedDocument summarizes one document for output.
type importedDocument struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Length int    `json:"transcript_length"`
}

type importOutput struct {
	*meeting.ImportResult
	Collection string             `json:"collection"`
	DryRun     bool               `json:"dry_run"`
	Documents  []importedDocument `json:"documents"`
}

func runImport(ctx context.Context, deps *CommandDeps, path, collection string, dryRun, strict bool) error {
	sess, err := deps.openSession(ctx, sessionOptions{noGenerator: true})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)
	if collection == "" {
		collection = sess.cfg.Store.Collection
	}

	opts := []meeting.ImporterOption{
		meeting.WithDryRun(dryRun),
		meeting.WithStrictParse(strict),
		meeting.WithImportParser(sess.analyzer.Parser()),
		meeting.WithImportLogger(deps.logger()),
	}
	if deps.Now != nil {
		opts = append(opts, meeting.WithImportClock(deps.Now))
	}
	im, err := meeting.NewImporter(sess.store, collection, opts...)
	if err != nil {
		return err
	}

	res, err := im.Import(ctx, path)
	if err != nil {
		return err
	}

	normalizer := transcript.NewDocumentNormalizer(sess.analyzer.Parser(), transcript.WithClock(deps.now))
	out := importOutput{
		ImportResult: res,
		Collection:   collection,
		DryRun:       dryRun,
		Documents:    make([]importedDocument, 0, len(res.Documents)),
	}
	for _, doc := range res.Documents {
		c := normalizer.Normalize(doc)
		out.Documents = append(out.Documents, importedDocument{
			ID:     c.IDString(),
			Title:  c.Title,
			Date:   c.Date.Display("N/A"),
			Length: len([]rune(c.Transcript)),
		})
	}

	return deps.render(out, func(w io.Writer) error {
		for _, d := range out.Documents {
			fmt.Fprintf(w, "%-12s  %-19s  %-40s  %d chars\n", d.ID, d.Date, truncate(d.Title, 40), d.Length)
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(w, "skipped  %s: %s\n", s.Path, s.Reason)
		}
		fmt.Fprintln(w)
		if dryRun {
			fmt.Fprintf(w, "Dry run: %d of %d files would be imported into %s.\n", len(res.Documents), res.Files, collection)
		} else {
			fmt.Fprintf(w, "Imported %d documents into %s (%d files, %d skipped).\n", res.Imported, collection, res.Files, len(res.Skipped))
		}
		return nil
	})
}
