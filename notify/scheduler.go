// Package notify periodically scans for records that need someone's
// attention and leaves in-app notifications for them.
package notify

import (
	"context"
	"fmt"
	"time"

	"timekeeper/hours"
	"timekeeper/logger"
	"timekeeper/metrics"
	"timekeeper/models"
	"timekeeper/services"
	"timekeeper/workflow"

	"gorm.io/gorm"
)

type Scheduler struct {
	db            *gorm.DB
	notifications *services.Notifications
	interval      time.Duration
	pendingAge    time.Duration
	now           func() time.Time
}

func NewScheduler(db *gorm.DB, notifications *services.Notifications, interval, pendingAge time.Duration) *Scheduler {
	return &Scheduler{
		db:            db,
		notifications: notifications,
		interval:      interval,
		pendingAge:    pendingAge,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run checks once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().Dur("interval", s.interval).Msg("notification scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if created, err := s.RunOnce(ctx, s.now()); err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.SchedulerRuns.WithLabelValues("error").Inc()
			log.Error().Err(err).Msg("notification pass failed")
		} else {
			metrics.SchedulerRuns.WithLabelValues("ok").Inc()
			if created > 0 {
				log.Info().Int("created", created).Msg("notifications created")
			}
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("notification scheduler stopped")
			return
		case <-ticker.C:
		}
	}
	log.Info().Msg("notification scheduler stopped")
}

// RunOnce performs a single pass as of now and returns how many
// notifications were written.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.remindApprovers(ctx, now)
	if err != nil {
		return pending, err
	}
	missing, err := s.remindMissingTimesheets(ctx, now)
	return pending + missing, err
}

type pendingRecord struct {
	kind    string
	id      uint
	owner   *models.Employee
	summary string
}

func (s *Scheduler) remindApprovers(ctx context.Context, now time.Time) (int, error) {
	db := s.db.WithContext(ctx)
	cutoff := now.Add(-s.pendingAge)

	var timesheets []models.Timesheet
	if err := db.Preload("Employee").
		Where("status = ? AND submitted_at <= ?", workflow.StatusSubmitted, cutoff).
		Order("id").Find(&timesheets).Error; err != nil {
		return 0, err
	}
	var expenses []models.Expense
	if err := db.Preload("Employee").
		Where("status = ? AND submitted_at <= ?", workflow.StatusSubmitted, cutoff).
		Order("id").Find(&expenses).Error; err != nil {
		return 0, err
	}

	records := make([]pendingRecord, 0, len(timesheets)+len(expenses))
	for _, ts := range timesheets {
		if ts.Employee == nil {
			continue
		}
		records = append(records, pendingRecord{
			kind:    "timesheet",
			id:      ts.ID,
			owner:   ts.Employee,
			summary: fmt.Sprintf("%s's timesheet for the week ending %s (%s hours)", ts.Employee.DisplayName(), ts.WeekEnding.Format(hours.DateLayout), ts.TotalHours.String()),
		})
	}
	for _, e := range expenses {
		if e.Employee == nil {
			continue
		}
		records = append(records, pendingRecord{
			kind:    "expense",
			id:      e.ID,
			owner:   e.Employee,
			summary: fmt.Sprintf("%s's %s expense of %s", e.Employee.DisplayName(), e.Category, e.Amount.StringFixed(2)),
		})
	}

	created := 0
	for _, rec := range records {
		approvers, err := services.ApproversFor(ctx, s.db, rec.owner)
		if err != nil {
			return created, err
		}
		for _, a := range approvers {
			ok, err := s.notifications.Create(ctx, models.Notification{
				EmployeeID: a.ID,
				Kind:       models.NotificationPendingApproval,
				Subject:    "Waiting for your approval",
				Body:       rec.summary + " is waiting for approval.",
				DedupKey:   fmt.Sprintf("pending:%s:%d:%d", rec.kind, rec.id, a.ID),
			})
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// remindMissingTimesheets nudges active employees who have nothing, not even
// a draft, for the last completed week.
func (s *Scheduler) remindMissingTimesheets(ctx context.Context, now time.Time) (int, error) {
	db := s.db.WithContext(ctx)
	lastWeek := hours.WeekEndingFor(now).AddDate(0, 0, -7)

	var employees []models.Employee
	// nobody owes a timesheet for a week that ended before they joined
	if err := db.Where("is_active = ?", true).
		Where("created_at < ?", lastWeek.AddDate(0, 0, 1)).
		Where("id NOT IN (?)", db.Model(&models.Timesheet{}).Select("employee_id").Where("week_ending = ?", lastWeek)).
		Order("id").Find(&employees).Error; err != nil {
		return 0, err
	}

	created := 0
	label := lastWeek.Format(hours.DateLayout)
	for _, e := range employees {
		ok, err := s.notifications.Create(ctx, models.Notification{
			EmployeeID: e.ID,
			Kind:       models.NotificationMissingTimesheet,
			Subject:    "Timesheet missing",
			Body:       fmt.Sprintf("You have not entered a timesheet for the week ending %s.", label),
			DedupKey:   fmt.Sprintf("missing:%d:%s", e.ID, label),
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}
