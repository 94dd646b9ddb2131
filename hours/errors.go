package hours

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrWeekEndingNotSaturday = errors.New("week ending date must be a Saturday")
	ErrDateOutsideWeek       = errors.New("date falls outside the timesheet week")
)

// InvalidHoursError reports an hours value outside [0, 24] for a single day.
type InvalidHoursError struct {
	Date  time.Time
	Hours decimal.Decimal
}

func (e *InvalidHoursError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("invalid hours %s: must be between 0 and 24", e.Hours.String())
	}
	return fmt.Sprintf("invalid hours %s on %s: must be between 0 and 24", e.Hours.String(), e.Date.Format(DateLayout))
}

// PolicyResolutionError is returned for an overtime rule key nobody knows.
type PolicyResolutionError struct {
	Key    RuleKey
	Reason string
}

func (e *PolicyResolutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("overtime policy %q: %s", string(e.Key), e.Reason)
	}
	return fmt.Sprintf("unrecognized overtime policy %q", string(e.Key))
}
