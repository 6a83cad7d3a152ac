package filter

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RawParams holds filter options exactly as they arrive from a client.
type RawParams struct {
	Type           string
	SortBy         string
	Time           string
	Categories     string
	DateRange      string
	DateRangeStart string
	DateRangeEnd   string
}

func ParamsFromQuery(q url.Values) RawParams {
	return RawParams{
		Type:           q.Get("type"),
		SortBy:         q.Get("sortBy"),
		Time:           q.Get("time"),
		Categories:     q.Get("categories"),
		DateRange:      q.Get("dateRange"),
		DateRangeStart: q.Get("dateRangeStart"),
		DateRangeEnd:   q.Get("dateRangeEnd"),
	}
}

// Normalize builds a canonical Filter. Dates are interpreted in now's location.
func Normalize(raw RawParams, now time.Time) (Filter, error) {
	f := Filter{
		Categories: parseCategories(raw.Categories),
		SortBy:     parseSortBy(raw.SortBy),
	}

	typ, err := parseType(raw.Type)
	if err != nil {
		return Filter{}, err
	}

	f.Type = typ

	if !truthy(raw.DateRange) {
		t, ok := parseDate(raw.Time, now.Location())
		if !ok {
			t = now
		}

		f.UseMonth(t)

		return f, nil
	}

	from, ok := parseDate(raw.DateRangeStart, now.Location())
	if !ok {
		return Filter{}, fmt.Errorf("%w: dateRangeStart %q", ErrInvalidFilter, raw.DateRangeStart)
	}

	to, ok := parseDate(raw.DateRangeEnd, now.Location())
	if !ok {
		return Filter{}, fmt.Errorf("%w: dateRangeEnd %q", ErrInvalidFilter, raw.DateRangeEnd)
	}

	if StartOfDay(to).Before(StartOfDay(from)) {
		return Filter{}, fmt.Errorf("%w: range ends before it starts", ErrInvalidFilter)
	}

	f.UseRange(from, to)

	return f, nil
}

func parseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeAll:
		return TypeAll, nil
	case TypeIncome:
		return TypeIncome, nil
	case TypeExpense:
		return TypeExpense, nil
	}

	return "", fmt.Errorf("%w: type %q", ErrInvalidFilter, s)
}

// parseSortBy only honours a single, unambiguous amount request. Anything
// else, including several comma-joined intents, sorts by date.
func parseSortBy(s string) SortBy {
	if SortBy(strings.ToLower(strings.TrimSpace(s))) == SortByAmount {
		return SortByAmount
	}

	return SortByDate
}

func parseCategories(s string) Set {
	set := make(Set)

	for part := range strings.SplitSeq(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			set[id] = struct{}{}
		}
	}

	return set
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}

	return time.Time{}, false
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}

	return false
}
