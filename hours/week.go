// Package hours turns raw per-day timesheet input into weekly totals and
// splits those totals into regular and overtime hours.
//
// Weeks run Sunday through Saturday and are identified by their Saturday
// ("week ending") date. Every function here is pure.
package hours

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout  = "2006-01-02"
	DaysPerWeek = 7
)

var (
	zero        = decimal.Zero
	maxDayHours = decimal.NewFromInt(24)
)

// DayEntry is one (date, hours) pair as entered against a project.
type DayEntry struct {
	Date  time.Time
	Hours decimal.Decimal
}

// Week holds hours for Sunday (index 0) through Saturday (index 6).
type Week [DaysPerWeek]decimal.Decimal

// Day truncates t to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekEndingFor returns the Saturday closing the week that contains t.
func WeekEndingFor(t time.Time) time.Time {
	d := Day(t)
	return d.AddDate(0, 0, int(time.Saturday-d.Weekday()))
}

// WeekStart returns the Sunday opening the week that ends on weekEnding.
func WeekStart(weekEnding time.Time) time.Time {
	return Day(weekEnding).AddDate(0, 0, -(DaysPerWeek - 1))
}

// Dates lists the seven calendar days of the week ending on weekEnding.
func Dates(weekEnding time.Time) [DaysPerWeek]time.Time {
	var out [DaysPerWeek]time.Time
	start := WeekStart(weekEnding)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// NormalizeWeek places entries onto the Sunday..Saturday grid ending on
// weekEnding. Days without entries are zero; several entries on the same
// day are added together.
func NormalizeWeek(entries []DayEntry, weekEnding time.Time) (Week, error) {
	var w Week
	end := Day(weekEnding)
	if end.Weekday() != time.Saturday {
		return w, fmt.Errorf("%w: %s is a %s", ErrWeekEndingNotSaturday, end.Format(DateLayout), end.Weekday())
	}
	start := WeekStart(end)

	for _, e := range entries {
		if err := checkDayHours(e.Date, e.Hours); err != nil {
			return Week{}, err
		}
		d := Day(e.Date)
		if d.Before(start) || d.After(end) {
			return Week{}, fmt.Errorf("%w: %s not in week ending %s", ErrDateOutsideWeek, d.Format(DateLayout), end.Format(DateLayout))
		}
		idx := int(d.Sub(start).Hours() / 24)
		w[idx] = w[idx].Add(e.Hours)
		if err := checkDayHours(d, w[idx]); err != nil {
			return Week{}, err
		}
	}
	return w, nil
}

// Entries converts w back into dated entries, one per day, so a normalized
// week can be fed through NormalizeWeek again.
func (w Week) Entries(weekEnding time.Time) []DayEntry {
	dates := Dates(weekEnding)
	out := make([]DayEntry, 0, DaysPerWeek)
	for i, h := range w {
		out = append(out, DayEntry{Date: dates[i], Hours: h})
	}
	return out
}

// Sum adds the seven days of w.
func (w Week) Sum() decimal.Decimal {
	total := zero
	for _, h := range w {
		total = total.Add(h)
	}
	return total
}

// ParseDayHours reads a date-keyed map of hour strings (the shape a weekly
// grid form submits) into entries. Blank values are skipped.
func ParseDayHours(in map[string]string) ([]DayEntry, error) {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]DayEntry, 0, len(in))
	for _, key := range keys {
		raw := in[key]
		if raw == "" {
			continue
		}
		date, err := time.Parse(DateLayout, key)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", key, err)
		}
		h, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse hours for %s: %w", key, err)
		}
		out = append(out, DayEntry{Date: date, Hours: h})
	}
	return out, nil
}

func checkDayHours(date time.Time, h decimal.Decimal) error {
	if h.IsNegative() || h.GreaterThan(maxDayHours) {
		return &InvalidHoursError{Date: Day(date), Hours: h}
	}
	return nil
}
