package filter

import (
	"time"
)

// Period is an inclusive time window. End is the last representable instant
// of the window, so consecutive periods never overlap and never leave a gap.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthOf returns the calendar month containing t, in t's location.
func MonthOf(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// DayRange returns [start of from's day, end of to's day].
func DayRange(from, to time.Time) Period {
	return Period{
		Start: StartOfDay(from),
		End:   StartOfDay(to).AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Days is the number of calendar days the period touches.
func (p Period) Days() int {
	return daysBetween(p.Start, p.End) + 1
}

// Key identifies the period in persisted state.
func (p Period) Key() string {
	return p.Start.Format(time.DateOnly) + ".." + p.End.Format(time.DateOnly)
}

// Progress reports how far into a period a given instant is.
type Progress struct {
	Elapsed int
	Total   int
}

// Progress counts the current day as elapsed. Before the period nothing has
// elapsed; after it, everything has.
func (p Period) Progress(now time.Time) Progress {
	total := p.Days()

	switch {
	case now.Before(p.Start):
		return Progress{Elapsed: 0, Total: total}
	case now.After(p.End):
		return Progress{Elapsed: total, Total: total}
	}

	return Progress{Elapsed: daysBetween(p.Start, now) + 1, Total: total}
}

// daysBetween counts calendar days independently of DST shifts.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	ca := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	cb := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	return int(cb.Sub(ca).Hours() / 24)
}
