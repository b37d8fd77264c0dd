package transcript

import "time"

// DateRange is an optional-bound time interval. Nil bounds are open.
type DateRange struct {
	Gte *time.Time `json:"gte,omitempty"`
	Lte *time.Time `json:"lte,omitempty"`
	Gt  *time.Time `json:"gt,omitempty"`
	Lt  *time.Time `json:"lt,omitempty"`
}

// IsZero reports whether no bound is set.
func (r *DateRange) IsZero() bool {
	return r == nil || (r.Gte == nil && r.Lte == nil && r.Gt == nil && r.Lt == nil)
}

// Contains reports whether t satisfies every bound.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.Gte != nil && t.Before(*r.Gte) {
		return false
	}
	if r.Lte != nil && t.After(*r.Lte) {
		return false
	}
	if r.Gt != nil && !t.After(*r.Gt) {
		return false
	}
	if r.Lt != nil && !t.Before(*r.Lt) {
		return false
	}
	return true
}

// DayWindow returns the inclusive range covering the calendar day of t in t's location.
func DayWindow(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999000, t.Location())
	return DateRange{Gte: &start, Lte: &end}
}

// ReportWindow returns the window for a daily report on day. Monday reports
// also cover the preceding weekend.
func ReportWindow(day time.Time) DateRange {
	r := DayWindow(day)
	if day.Weekday() == time.Monday {
		start := r.Gte.AddDate(0, 0, -2)
		r.Gte = &start
	}
	return r
}

// IsWeekday reports whether t falls Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WeekdaysInMonth returns midnight of every weekday in the month.
func WeekdaysInMonth(year int, month time.Month, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	var out []time.Time
	for d := time.Date(year, month, 1, 0, 0, 0, 0, loc); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if IsWeekday(d) {
			out = append(out, d)
		}
	}
	return out
}

// FilterByDate re-applies r to normalized meetings. Meetings without a timestamp
// are kept since the store query already selected them.
func FilterByDate(meetings []*CanonicalDocument, r *DateRange) []*CanonicalDocument {
	if r.IsZero() {
		return meetings
	}
	out := make([]*CanonicalDocument, 0, len(meetings))
	for _, m := range meetings {
		if m.Date.HasTime() && !r.Contains(m.Date.Time) {
			continue
		}
		out = append(out, m)
	}
	return out
}
