package hours

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals is the per-day and per-week sum over every project row of a week.
type Totals struct {
	Daily Week            `json:"daily"`
	Week  decimal.Decimal `json:"week"`
}

// ComputeTotals sums rows day by day. No rows gives all-zero totals.
func ComputeTotals(rows []Week) Totals {
	var t Totals
	for i := range t.Daily {
		t.Daily[i] = zero
	}
	t.Week = zero
	for _, row := range rows {
		for i, h := range row {
			t.Daily[i] = t.Daily[i].Add(h)
			t.Week = t.Week.Add(h)
		}
	}
	return t
}

// Validate checks that no single day, summed across rows, leaves [0, 24].
// weekEnding is only used to date the error.
func (t Totals) Validate(weekEnding time.Time) error {
	dates := Dates(weekEnding)
	for i, h := range t.Daily {
		if err := checkDayHours(dates[i], h); err != nil {
			return err
		}
	}
	return nil
}
