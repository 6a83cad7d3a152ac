// Package filter turns user-chosen list/report options into a canonical,
// self-consistent Filter.
package filter

import (
	"errors"
	"slices"
	"time"
)

var ErrInvalidFilter = errors.New("invalid filter")

type Type string

const (
	TypeAll     Type = "all"
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

type SortBy string

const (
	SortByDate   SortBy = "date"
	SortByAmount SortBy = "amount"
)

type PeriodMode string

const (
	ModeMonth PeriodMode = "month"
	ModeRange PeriodMode = "range"
)

// Set is a set of category IDs.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}

	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Filter is the canonical query descriptor. Month is set only in month mode,
// RangeStart/RangeEnd only in range mode; use UseMonth and UseRange to switch.
type Filter struct {
	Type       Type
	SortBy     SortBy
	Mode       PeriodMode
	Month      time.Time
	RangeStart time.Time
	RangeEnd   time.Time
	Categories Set
}

// Month returns a filter over the calendar month containing t.
func Month(t time.Time) Filter {
	f := Filter{Type: TypeAll, SortBy: SortByDate}
	f.UseMonth(t)

	return f
}

func (f *Filter) UseMonth(t time.Time) {
	f.Mode = ModeMonth
	f.Month = MonthOf(t).Start
	f.RangeStart = time.Time{}
	f.RangeEnd = time.Time{}
}

func (f *Filter) UseRange(from, to time.Time) {
	f.Mode = ModeRange
	f.Month = time.Time{}
	f.RangeStart = StartOfDay(from)
	f.RangeEnd = StartOfDay(to)
}

// Period resolves the aggregation window. A filter without a usable period
// falls back to the month containing now rather than an unbounded window.
func (f Filter) Period(now time.Time) Period {
	switch f.Mode {
	case ModeRange:
		if !f.RangeStart.IsZero() && !f.RangeEnd.IsZero() && !f.RangeEnd.Before(f.RangeStart) {
			return DayRange(f.RangeStart, f.RangeEnd)
		}
	case ModeMonth:
		if !f.Month.IsZero() {
			return MonthOf(f.Month)
		}
	}

	return MonthOf(now)
}

// IsCurrentMonth reports whether f views the live month in month mode.
func (f Filter) IsCurrentMonth(now time.Time) bool {
	if f.Mode != ModeMonth || f.Month.IsZero() {
		return false
	}

	now = now.In(f.Month.Location())

	return f.Month.Year() == now.Year() && f.Month.Month() == now.Month()
}

// WithType returns a copy of f restricted to the given type.
func (f Filter) WithType(t Type) Filter {
	f.Type = t
	return f
}

// WithoutCategories returns a copy of f spanning every category.
func (f Filter) WithoutCategories() Filter {
	f.Categories = nil
	return f
}
