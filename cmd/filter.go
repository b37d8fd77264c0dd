package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

const dateLayout = "2006-01-02"

// filterFlags selects meetings from the source collection.
type filterFlags struct {
	collection string
	start      string
	end        string
	date       string
	ids        []string
	title      string
	limit      int
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.collection, "collection", "", "Source collection (default from config)")
	fs.StringVar(&f.start, "start", "", "First meeting date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "Last meeting date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.date, "date", "", "Single meeting date (YYYY-MM-DD); overrides --start/--end")
	fs.StringSliceVar(&f.ids, "id", nil, "Meeting document ID (repeatable)")
	fs.StringVar(&f.title, "title", "", "Case-insensitive title substring")
	fs.IntVar(&f.limit, "limit", 0, "Maximum number of meetings (0 = no limit)")
}

// filter builds the store filter. Dates are calendar days in loc.
func (f *filterFlags) filter(loc *time.Location) (store.Filter, error) {
	out := store.Filter{
		Collection:    f.collection,
		TitleContains: f.title,
		Limit:         f.limit,
	}
	if f.limit < 0 {
		return out, fmt.Errorf("--limit must not be negative: %w", mtaerrors.ErrValidation)
	}
	for _, id := range f.ids {
		out.IDs = append(out.IDs, store.ParseID(id))
	}

	if f.date != "" {
		day, err := parseDay(f.date, loc)
		if err != nil {
			return out, err
		}
		w := transcript.DayWindow(day)
		out.Date = &w
		return out, nil
	}

	var r transcript.DateRange
	if f.start != "" {
		day, err := parseDay(f.start, loc)
		if err != nil {
			return out, err
		}
		r.Gte = transcript.DayWindow(day).Gte
	}
	if f.end != "" {
		day, err := parseDay(f.end, loc)
		if err != nil {
			return out, err
		}
		r.Lte = transcript.DayWindow(day).Lte
	}
	if r.Gte != nil && r.Lte != nil && r.Gte.After(*r.Lte) {
		return out, fmt.Errorf("--start %s is after --end %s: %w", f.start, f.end, mtaerrors.ErrValidation)
	}
	if !r.IsZero() {
		out.Date = &r
	}
	return out, nil
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, mtaerrors.ErrValidation)
	}
	return t, nil
}

// postFilterFlags filter meetings after parsing.
type postFilterFlags struct {
	minLength       int
	maxLength       int
	participant     string
	minParticipants int
	maxParticipants int
}

func (p *postFilterFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&p.minLength, "min-length", 0, "Minimum transcript length in characters")
	fs.IntVar(&p.maxLength, "max-length", 0, "Maximum transcript length in characters")
	fs.StringVar(&p.participant, "participant", "", "Only meetings where this speaker talks")
	fs.IntVar(&p.minParticipants, "min-participants", 0, "Minimum number of speakers")
	fs.IntVar(&p.maxParticipants, "max-participants", 0, "Maximum number of speakers")
}

func (p *postFilterFlags) postFilter() transcript.PostFilter {
	return transcript.PostFilter{
		MinLength:           p.minLength,
		MaxLength:           p.maxLength,
		RequiredParticipant: p.participant,
		MinParticipants:     p.minParticipants,
		MaxParticipants:     p.maxParticipants,
	}
}
