package hours

import (
	"github.com/shopspring/decimal"
)

// RuleKey names an overtime rule.
type RuleKey string

const (
	// RuleDailyThreshold pays overtime for every hour past 8 in a single day
	// (California style).
	RuleDailyThreshold RuleKey = "daily-threshold"
	// RuleWeeklyThreshold pays overtime for every hour past 40 in the week.
	RuleWeeklyThreshold RuleKey = "weekly-threshold"
)

var (
	DailyThreshold  = decimal.NewFromInt(8)
	WeeklyThreshold = decimal.NewFromInt(40)
)

// Known reports whether k is a rule ResolveOvertime can apply.
func (k RuleKey) Known() bool {
	return k == RuleDailyThreshold || k == RuleWeeklyThreshold
}

// Policy is the overtime treatment for one employee.
type Policy struct {
	Exempt bool    `json:"exempt"`
	Rule   RuleKey `json:"rule"`
}

// Split is a week total divided into regular and overtime hours.
type Split struct {
	Regular  decimal.Decimal `json:"regular_hours"`
	Overtime decimal.Decimal `json:"overtime_hours"`
}

// ResolveOvertime splits t according to p. Exempt employees never accrue
// overtime. The result keeps the input precision; rounding is left to
// whoever displays it.
func ResolveOvertime(t Totals, p Policy) (Split, error) {
	for i, h := range t.Daily {
		if h.IsNegative() {
			return Split{}, &InvalidHoursError{Hours: t.Daily[i]}
		}
	}
	if t.Week.IsNegative() {
		return Split{}, &InvalidHoursError{Hours: t.Week}
	}
	if !p.Rule.Known() {
		return Split{}, &PolicyResolutionError{Key: p.Rule}
	}

	if p.Exempt {
		return Split{Regular: t.Week, Overtime: zero}, nil
	}

	overtime := zero
	switch p.Rule {
	case RuleDailyThreshold:
		for _, h := range t.Daily {
			if h.GreaterThan(DailyThreshold) {
				overtime = overtime.Add(h.Sub(DailyThreshold))
			}
		}
	case RuleWeeklyThreshold:
		if t.Week.GreaterThan(WeeklyThreshold) {
			overtime = t.Week.Sub(WeeklyThreshold)
		}
	}
	return Split{Regular: t.Week.Sub(overtime), Overtime: overtime}, nil
}

// ResolveWeeklyTotal splits a bare week total. It cannot apply the daily
// rule, which needs per-day figures.
func ResolveWeeklyTotal(week decimal.Decimal, p Policy) (Split, error) {
	if week.IsNegative() {
		return Split{}, &InvalidHoursError{Hours: week}
	}
	if !p.Rule.Known() {
		return Split{}, &PolicyResolutionError{Key: p.Rule}
	}
	if p.Exempt {
		return Split{Regular: week, Overtime: zero}, nil
	}
	if p.Rule == RuleDailyThreshold {
		return Split{}, &PolicyResolutionError{Key: p.Rule, Reason: "daily totals required"}
	}
	overtime := zero
	if week.GreaterThan(WeeklyThreshold) {
		overtime = week.Sub(WeeklyThreshold)
	}
	return Split{Regular: week.Sub(overtime), Overtime: overtime}, nil
}
