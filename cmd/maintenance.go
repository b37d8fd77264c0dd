package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/analysis"
	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// DefaultFailedCollection receives meetings moved by 'move-failed'.
const DefaultFailedCollection = "failed_recordings"

// Keep strategies for 'dedupe'.
const (
	KeepFirst  = "first"
	KeepLast   = "last"
	KeepNewest = "newest"
	KeepOldest = "oldest"
)

// NewParticipantsCommand creates the 'participants' command.
func NewParticipantsCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var filter filterFlags

	cmd := &cobra.Command{
		Use:   "participants",
		Short: "List participants across meetings",
		Long: `List every distinct participant of the selected meetings with the number of
meetings they appear in.

Names are normalized (Unicode NFC, bracket suffixes removed, aliases applied) and
filtered with the same rules the parser uses. Meetings that carry an explicit
participant list contribute that list; others contribute their parsed speakers.

Examples:
  mta participants
  mta participants --start 2025-01-01 --end 2025-01-31
  mta participants --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParticipants(cmd.Context(), deps, filter)
		},
	}

	filter.bind(cmd)
	return cmd
}

func runParticipants(ctx context.Context, deps *CommandDeps, filter filterFlags) error {
	f, err := filter.filter(time.Local)
	if err != nil {
		return err
	}
	sess, err := deps.openSession(ctx, sessionOptions{
		analysis:    analysis.Options{Collection: filter.collection},
		noGenerator: true,
	})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	meetings, err := sess.analyzer.Fetch(ctx, f)
	if err != nil {
		return err
	}
	participants := transcript.CollectParticipants(meetings, sess.analyzer.Parser())

	return deps.render(participants, func(w io.Writer) error {
		if len(participants) == 0 {
			fmt.Fprintln(w, "No participants found.")
			return nil
		}
		fmt.Fprintf(w, "%-4s  %-30s  %s\n", "#", "NAME", "MEETINGS")
		for i, p := range participants {
			fmt.Fprintf(w, "%-4d  %-30s  %d\n", i+1, truncate(p.Name, 30), p.Meetings)
		}
		fmt.Fprintf(w, "\n%d participants in %d meetings\n", len(participants), len(meetings))
		return nil
	})
}

// NewDedupeCommand creates the 'dedupe' command.
func NewDedupeCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var (
		collection string
		field      string
		keep       string
		target     string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Move duplicate meetings out of the collection",
		Long: `Find documents that share a meeting_id, keep one per group and move the rest
to another collection.

Keep strategies:
  first    the first document in storage order (default)
  last     the last document in storage order
  newest   the document with the latest date / createdTime
  oldest   the document with the earliest date / createdTime

Duplicates go to duplicates_YYYYMMDD unless --target is given. Nothing is moved
unless --dry-run=false.

Examples:
  # Show what would be moved
  mta dedupe

  # Keep the newest copy and move the others
  mta dedupe --keep newest --dry-run=false

  # Group by a different field
  mta dedupe --field driveId --target dup_archive --dry-run=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedupe(cmd.Context(), deps, dedupeOptions{
				collection: collection,
				field:      field,
				keep:       keep,
				target:     target,
				dryRun:     dryRun,
			})
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Collection to deduplicate (default from config)")
	cmd.Flags().StringVar(&field, "field", "meeting_id", "Field that identifies a meeting")
	cmd.Flags().StringVar(&keep, "keep", KeepFirst, "Which copy to keep: first, last, newest, oldest")
	cmd.Flags().StringVar(&target, "target", "", "Collection receiving duplicates (default duplicates_YYYYMMDD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Only report what would be moved")

	return cmd
}

type dedupeOptions struct {
	collection string
	field      string
	keep       string
	target     string
	dryRun     bool
}

// duplicateGroup is one meeting_id shared by several documents.
type duplicateGroup struct {
	Key   string   `json:"key"`
	Kept  string   `json:"kept"`
	Title string   `json:"title"`
	Moved []string `json:"moved"`

	moved []store.Document
}

type dedupeOutput struct {
	Source     string           `json:"source"`
	Target     string           `json:"target"`
	Strategy   string           `json:"strategy"`
	DryRun     bool             `json:"dry_run"`
	Documents  int              `json:"documents"`
	Groups     []duplicateGroup `json:"groups"`
	MovedCount int              `json:"moved_count"`
}

func runDedupe(ctx context.Context, deps *CommandDeps, o dedupeOptions) error {
	switch o.keep {
	case KeepFirst, KeepLast, KeepNewest, KeepOldest:
	default:
		return fmt.Errorf("unknown keep strategy %q: %w", o.keep, mtaerrors.ErrValidation)
	}
	if o.field == "" {
		return fmt.Errorf("--field must not be empty: %w", mtaerrors.ErrValidation)
	}

	sess, err := deps.openSession(ctx, sessionOptions{noGenerator: true})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	lister, ok := sess.store.(store.Lister)
	if !ok {
		return fmt.Errorf("listing documents: %w", store.ErrNotSupported)
	}
	if o.collection == "" {
		o.collection = sess.cfg.Store.Collection
	}
	if o.target == "" {
		o.target = "duplicates_" + deps.now().Format("20060102")
	}

	docs, err := lister.All(ctx, o.collection)
	if err != nil {
		return fmt.Errorf("reading %s: %w", o.collection, err)
	}
	groups := findDuplicates(docs, o.field, o.keep)

	out := dedupeOutput{
		Source:    o.collection,
		Target:    o.target,
		Strategy:  o.keep,
		DryRun:    o.dryRun,
		Documents: len(docs),
		Groups:    groups,
	}
	if !o.dryRun {
		var move []store.Document
		for _, g := range groups {
			move = append(move, g.moved...)
		}
		n, err := store.Move(ctx, sess.store, o.collection, o.target, move)
		if err != nil {
			return err
		}
		out.MovedCount = n
		deps.logger().Info("Duplicates moved",
			logging.F("source", o.collection), logging.F("target", o.target), logging.F("count", n))
	}

	return deps.render(out, func(w io.Writer) error {
		if len(groups) == 0 {
			fmt.Fprintf(w, "No duplicate %s values in %s (%d documents).\n", o.field, o.collection, len(docs))
			return nil
		}
		pending := 0
		for _, g := range groups {
			fmt.Fprintf(w, "%s: %s\n", o.field, g.Key)
			fmt.Fprintf(w, "  keep  %s  %s\n", g.Kept, truncate(g.Title, 50))
			for _, id := range g.Moved {
				fmt.Fprintf(w, "  move  %s\n", id)
			}
			pending += len(g.Moved)
		}
		fmt.Fprintf(w, "\n%d duplicate groups, %d documents to move to %s\n", len(groups), pending, o.target)
		if o.dryRun {
			fmt.Fprintln(w, "Dry run: nothing was moved. Re-run with --dry-run=false to move them.")
		} else {
			fmt.Fprintf(w, "Moved %d documents.\n", out.MovedCount)
		}
		return nil
	})
}

// findDuplicates groups docs by field and picks the document to keep in each
// group of two or more. Groups are ordered by first appearance.
func findDuplicates(docs []store.Document, field, keep string) []duplicateGroup {
	byKey := make(map[string][]store.Document)
	var order []string
	for _, doc := range docs {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		key := store.IDKey(v)
		if key == "" {
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], doc)
	}

	var groups []duplicateGroup
	for _, key := range order {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		k := keepIndex(members, keep)
		g := duplicateGroup{
			Key:   key,
			Kept:  store.IDKey(members[k][transcript.FieldID]),
			Title: documentTitle(members[k]),
			Moved: []string{},
		}
		for i, doc := range members {
			if i == k {
				continue
			}
			g.Moved = append(g.Moved, store.IDKey(doc[transcript.FieldID]))
			g.moved = append(g.moved, doc)
		}
		groups = append(groups, g)
	}
	return groups
}

// keepIndex returns the index of the member to keep. Undated members are
// never preferred by newest or oldest; ties keep the earlier member.
func keepIndex(members []store.Document, keep string) int {
	switch keep {
	case KeepLast:
		return len(members) - 1
	case KeepNewest, KeepOldest:
		best := -1
		var bestTime time.Time
		for i, doc := range members {
			t, ok := store.DocumentTime(doc)
			if !ok {
				continue
			}
			if best < 0 || (keep == KeepNewest && t.After(bestTime)) || (keep == KeepOldest && t.Before(bestTime)) {
				best, bestTime = i, t
			}
		}
		if best >= 0 {
			return best
		}
	}
	return 0
}

func documentTitle(doc store.Document) string {
	for _, field := range []string{transcript.FieldTitle, transcript.FieldName} {
		if s, ok := doc[field].(string); ok && s != "" {
			return s
		}
	}
	return "N/A"
}

// NewMoveFailedCommand creates the 'move-failed' command.
func NewMoveFailedCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var (
		collection string
		target     string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "move-failed [parsing_failed.json]",
		Short: "Move meetings that failed to parse",
		Long: `Move the meetings listed in a parse-test report to another collection.

The report is the parsing_failed.json written by 'mta parse-test'; the _id of
every entry under failed_meetings is moved from the source collection to
failed_recordings (or --target). IDs that are not found are reported and
skipped. Nothing is moved unless --dry-run=false.

Examples:
  mta parse-test
  mta move-failed
  mta move-failed ./parsing_failed.json --dry-run=false
  mta move-failed /tmp/failed.json --target quarantine --dry-run=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultFailedFile
			if len(args) == 1 {
				path = args[0]
			}
			return runMoveFailed(cmd.Context(), deps, path, collection, target, dryRun)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Source collection (default from config)")
	cmd.Flags().StringVar(&target, "target", DefaultFailedCollection, "Collection receiving failed meetings")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Only report what would be moved")

	return cmd
}

// loadFailedIDs reads the ids listed under failed_meetings.
func loadFailedIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var file struct {
		FailedMeetings []struct {
			ID string `json:"id"`
		} `json:"failed_meetings"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	ids := make([]string, 0, len(file.FailedMeetings))
	for _, m := range file.FailedMeetings {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

type moveFailedOutput struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	DryRun   bool     `json:"dry_run"`
	Listed   int      `json:"listed"`
	Found    []string `json:"found"`
	NotFound []string `json:"not_found"`
	Moved    int      `json:"moved"`
}

func runMoveFailed(ctx context.Context, deps *CommandDeps, path, collection, target string, dryRun bool) error {
	ids, err := loadFailedIDs(path)
	if err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("--target must not be empty: %w", mtaerrors.ErrValidation)
	}

	sess, err := deps.openSession(ctx, sessionOptions{noGenerator: true})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)
	if collection == "" {
		collection = sess.cfg.Store.Collection
	}

	out := moveFailedOutput{
		Source:   collection,
		Target:   target,
		DryRun:   dryRun,
		Listed:   len(ids),
		Found:    []string{},
		NotFound: []string{},
	}
	if len(ids) > 0 {
		parsed := make([]any, 0, len(ids))
		for _, id := range ids {
			parsed = append(parsed, store.ParseID(id))
		}
		docs, err := sess.store.Find(ctx, store.Filter{Collection: collection, IDs: parsed})
		if err != nil {
			return fmt.Errorf("finding failed meetings: %w", err)
		}
		found := make(map[string]bool, len(docs))
		for _, doc := range docs {
			found[store.IDKey(doc[transcript.FieldID])] = true
		}
		for _, id := range ids {
			if found[id] {
				out.Found = append(out.Found, id)
			} else {
				out.NotFound = append(out.NotFound, id)
			}
		}

		if !dryRun && len(docs) > 0 {
			n, err := store.Move(ctx, sess.store, collection, target, docs)
			if err != nil {
				return err
			}
			out.Moved = n
			deps.logger().Info("Failed meetings moved",
				logging.F("source", collection), logging.F("target", target), logging.F("count", n))
		}
	}

	return deps.render(out, func(w io.Writer) error {
		fmt.Fprintf(w, "Listed in %s: %d\n", path, out.Listed)
		fmt.Fprintf(w, "Found in %s:  %d\n", collection, len(out.Found))
		for _, id := range out.NotFound {
			fmt.Fprintf(w, "  not found: %s\n", id)
		}
		if dryRun {
			fmt.Fprintf(w, "Dry run: %d documents would move to %s. Re-run with --dry-run=false to move them.\n", len(out.Found), target)
		} else {
			fmt.Fprintf(w, "Moved %d documents to %s.\n", out.Moved, target)
		}
		return nil
	})
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
