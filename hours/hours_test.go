package hours

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Week ending Saturday 2024-06-15 runs Sunday 06-09 .. Saturday 06-15.
var weekEnding = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func weekOf(values ...string) Week {
	var w Week
	for i := range w {
		w[i] = decimal.Zero
	}
	for i, v := range values {
		w[i] = dec(v)
	}
	return w
}

func TestNormalizeWeek(t *testing.T) {
	w, err := NormalizeWeek([]DayEntry{
		{Date: day("2024-06-12"), Hours: dec("3")},
		{Date: day("2024-06-10"), Hours: dec("7.5")},
		{Date: day("2024-06-12"), Hours: dec("2.25")},
	}, weekEnding)
	require.NoError(t, err)

	assertDecimal(t, "0", w[0])
	assertDecimal(t, "7.5", w[1])
	assertDecimal(t, "0", w[2])
	assertDecimal(t, "5.25", w[3])
	assertDecimal(t, "0", w[6])
}

func TestNormalizeWeek_IgnoresTimeOfDay(t *testing.T) {
	w, err := NormalizeWeek([]DayEntry{
		{Date: time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC), Hours: dec("4")},
	}, time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assertDecimal(t, "4", w[6])
}

func TestNormalizeWeek_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []DayEntry
		ending  time.Time
		check   func(t *testing.T, err error)
	}{
		{
			name:   "week ending not saturday",
			ending: day("2024-06-14"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrWeekEndingNotSaturday)
			},
		},
		{
			name:    "date before week",
			entries: []DayEntry{{Date: day("2024-06-08"), Hours: dec("1")}},
			ending:  weekEnding,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDateOutsideWeek)
			},
		},
		{
			name:    "date after week",
			entries: []DayEntry{{Date: day("2024-06-16"), Hours: dec("1")}},
			ending:  weekEnding,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDateOutsideWeek)
			},
		},
		{
			name:    "negative hours",
			entries: []DayEntry{{Date: day("2024-06-10"), Hours: dec("-1")}},
			ending:  weekEnding,
			check: func(t *testing.T, err error) {
				var invalid *InvalidHoursError
				require.True(t, errors.As(err, &invalid))
				assertDecimal(t, "-1", invalid.Hours)
			},
		},
		{
			name:    "more than a day",
			entries: []DayEntry{{Date: day("2024-06-10"), Hours: dec("24.5")}},
			ending:  weekEnding,
			check: func(t *testing.T, err error) {
				var invalid *InvalidHoursError
				assert.True(t, errors.As(err, &invalid))
			},
		},
		{
			name: "same day sums past 24",
			entries: []DayEntry{
				{Date: day("2024-06-10"), Hours: dec("20")},
				{Date: day("2024-06-10"), Hours: dec("5")},
			},
			ending: weekEnding,
			check: func(t *testing.T, err error) {
				var invalid *InvalidHoursError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, day("2024-06-10"), invalid.Date)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeWeek(tt.entries, tt.ending)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNormalizeWeek_Idempotent(t *testing.T) {
	first, err := NormalizeWeek([]DayEntry{
		{Date: day("2024-06-09"), Hours: dec("1.5")},
		{Date: day("2024-06-13"), Hours: dec("8")},
		{Date: day("2024-06-15"), Hours: dec("0.25")},
	}, weekEnding)
	require.NoError(t, err)

	second, err := NormalizeWeek(first.Entries(weekEnding), weekEnding)
	require.NoError(t, err)

	for i := range first {
		assertDecimal(t, first[i].String(), second[i])
	}
}

func TestParseDayHours(t *testing.T) {
	entries, err := ParseDayHours(map[string]string{
		"2024-06-11": "6.5",
		"2024-06-10": "8",
		"2024-06-12": "",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, day("2024-06-10"), entries[0].Date)
	assertDecimal(t, "6.5", entries[1].Hours)

	_, err = ParseDayHours(map[string]string{"06/10/2024": "8"})
	assert.Error(t, err)

	_, err = ParseDayHours(map[string]string{"2024-06-10": "eight"})
	assert.Error(t, err)
}

func TestWeekEndingFor(t *testing.T) {
	assert.Equal(t, weekEnding, WeekEndingFor(day("2024-06-09")))
	assert.Equal(t, weekEnding, WeekEndingFor(day("2024-06-12")))
	assert.Equal(t, weekEnding, WeekEndingFor(day("2024-06-15")))
	assert.Equal(t, day("2024-06-22"), WeekEndingFor(day("2024-06-16")))
}

func TestComputeTotals(t *testing.T) {
	rows := []Week{
		weekOf("0", "4", "4", "4", "4", "4"),
		weekOf("0", "4", "4.5", "4", "4", "6"),
	}
	totals := ComputeTotals(rows)

	assertDecimal(t, "8", totals.Daily[1])
	assertDecimal(t, "8.5", totals.Daily[2])
	assertDecimal(t, "10", totals.Daily[5])
	assertDecimal(t, "42.5", totals.Week)
	assertDecimal(t, totals.Week.String(), totals.Daily.Sum())
}

func TestComputeTotals_NoRows(t *testing.T) {
	totals := ComputeTotals(nil)
	assertDecimal(t, "0", totals.Week)
	for _, h := range totals.Daily {
		assertDecimal(t, "0", h)
	}
}

func TestTotalsValidate(t *testing.T) {
	totals := ComputeTotals([]Week{
		weekOf("0", "16"),
		weekOf("0", "9"),
	})
	err := totals.Validate(weekEnding)
	var invalid *InvalidHoursError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, day("2024-06-10"), invalid.Date)
	assertDecimal(t, "25", invalid.Hours)

	assert.NoError(t, ComputeTotals([]Week{weekOf("8", "8")}).Validate(weekEnding))
}

func TestResolveOvertime_WeeklyThreshold(t *testing.T) {
	// Mon..Fri 8, 8, 8, 8, 10
	w, err := NormalizeWeek([]DayEntry{
		{Date: day("2024-06-10"), Hours: dec("8")},
		{Date: day("2024-06-11"), Hours: dec("8")},
		{Date: day("2024-06-12"), Hours: dec("8")},
		{Date: day("2024-06-13"), Hours: dec("8")},
		{Date: day("2024-06-14"), Hours: dec("10")},
	}, weekEnding)
	require.NoError(t, err)
	totals := ComputeTotals([]Week{w})
	assertDecimal(t, "42", totals.Week)

	split, err := ResolveOvertime(totals, Policy{Rule: RuleWeeklyThreshold})
	require.NoError(t, err)
	assertDecimal(t, "40", split.Regular)
	assertDecimal(t, "2", split.Overtime)
}

func TestResolveOvertime_WeeklyAtOrBelowThreshold(t *testing.T) {
	for _, total := range []string{"0", "12.75", "39.5", "40"} {
		t.Run(total, func(t *testing.T) {
			totals := ComputeTotals([]Week{weekOf(total)})
			// a single day above 24 is fine for the resolver; it never validates ranges
			split, err := ResolveOvertime(totals, Policy{Rule: RuleWeeklyThreshold})
			require.NoError(t, err)
			assertDecimal(t, "0", split.Overtime)
			assertDecimal(t, total, split.Regular)
		})
	}
}

func TestResolveOvertime_WeeklyAboveThresholdKeepsPrecision(t *testing.T) {
	totals := ComputeTotals([]Week{weekOf("9.125", "9", "9", "9", "9.3")})
	split, err := ResolveOvertime(totals, Policy{Rule: RuleWeeklyThreshold})
	require.NoError(t, err)
	assertDecimal(t, "5.425", split.Overtime)
	assertDecimal(t, "40", split.Regular)
}

func TestResolveOvertime_DailyThreshold(t *testing.T) {
	w, err := NormalizeWeek([]DayEntry{
		{Date: day("2024-06-10"), Hours: dec("10")},
		{Date: day("2024-06-11"), Hours: dec("6")},
	}, weekEnding)
	require.NoError(t, err)

	split, err := ResolveOvertime(ComputeTotals([]Week{w}), Policy{Rule: RuleDailyThreshold})
	require.NoError(t, err)
	assertDecimal(t, "2", split.Overtime)
	assertDecimal(t, "14", split.Regular)
}

func TestResolveOvertime_DailyThresholdDaysAtEightContributeNothing(t *testing.T) {
	totals := ComputeTotals([]Week{weekOf("8", "8", "8", "8", "8", "8", "8")})
	split, err := ResolveOvertime(totals, Policy{Rule: RuleDailyThreshold})
	require.NoError(t, err)
	assertDecimal(t, "0", split.Overtime)
	assertDecimal(t, "56", split.Regular)
}

func TestResolveOvertime_Exempt(t *testing.T) {
	totals := ComputeTotals([]Week{weekOf("12", "12", "12", "12", "12")})
	for _, rule := range []RuleKey{RuleWeeklyThreshold, RuleDailyThreshold} {
		split, err := ResolveOvertime(totals, Policy{Exempt: true, Rule: rule})
		require.NoError(t, err)
		assertDecimal(t, "60", split.Regular)
		assertDecimal(t, "0", split.Overtime)
	}
}

func TestResolveOvertime_Errors(t *testing.T) {
	_, err := ResolveOvertime(ComputeTotals(nil), Policy{Rule: "biweekly"})
	var policyErr *PolicyResolutionError
	require.True(t, errors.As(err, &policyErr))
	assert.Equal(t, RuleKey("biweekly"), policyErr.Key)

	_, err = ResolveOvertime(ComputeTotals([]Week{weekOf("-2")}), Policy{Rule: RuleWeeklyThreshold})
	var invalid *InvalidHoursError
	assert.True(t, errors.As(err, &invalid))
}

func TestResolveWeeklyTotal(t *testing.T) {
	split, err := ResolveWeeklyTotal(dec("45.5"), Policy{Rule: RuleWeeklyThreshold})
	require.NoError(t, err)
	assertDecimal(t, "5.5", split.Overtime)
	assertDecimal(t, "40", split.Regular)

	split, err = ResolveWeeklyTotal(dec("60"), Policy{Exempt: true, Rule: RuleDailyThreshold})
	require.NoError(t, err)
	assertDecimal(t, "0", split.Overtime)

	_, err = ResolveWeeklyTotal(dec("45"), Policy{Rule: RuleDailyThreshold})
	var policyErr *PolicyResolutionError
	assert.True(t, errors.As(err, &policyErr))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, RuleDailyThreshold, r.RuleFor("ca"))
	assert.Equal(t, RuleWeeklyThreshold, r.RuleFor("TX"))
	assert.Equal(t, RuleWeeklyThreshold, r.RuleFor(""))
	assert.Equal(t, Policy{Exempt: true, Rule: RuleDailyThreshold}, r.PolicyFor(true, " CA "))
}

func TestParseRegistry(t *testing.T) {
	r, err := ParseRegistry(`
default = "weekly-threshold"

[states]
CA = "daily-threshold"
ak = "daily-threshold"
`)
	require.NoError(t, err)
	assert.Equal(t, RuleDailyThreshold, r.RuleFor("AK"))
	assert.Equal(t, RuleWeeklyThreshold, r.RuleFor("NY"))

	_, err = ParseRegistry(`
[states]
NV = "monthly-threshold"
`)
	var policyErr *PolicyResolutionError
	require.True(t, errors.As(err, &policyErr))
	assert.Equal(t, RuleKey("monthly-threshold"), policyErr.Key)

	_, err = ParseRegistry(`default = "none"`)
	assert.True(t, errors.As(err, &policyErr))
}
