package notify

import (
	"context"
	"testing"
	"time"

	"timekeeper/database/dbtest"
	"timekeeper/hours"
	"timekeeper/models"
	"timekeeper/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// joined backdates when employees were created.
func joined(t *testing.T, db *gorm.DB, at time.Time, employees ...*models.Employee) {
	t.Helper()
	for _, e := range employees {
		require.NoError(t, db.Model(&models.Employee{}).Where("id = ?", e.ID).UpdateColumn("created_at", at).Error)
	}
}

func TestRunOnce(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	acme := dbtest.Client(t, db, "Acme")
	project := dbtest.Project(t, db, "Rollout", &acme.ID)
	admin := dbtest.Employee(t, db, "admin", models.RoleAdmin, nil)
	manager := dbtest.Employee(t, db, "manager", models.RoleManager, nil)
	alice := dbtest.Employee(t, db, "alice", models.RoleEmployee, &acme.ID)
	newHire := dbtest.Employee(t, db, "newhire", models.RoleEmployee, &acme.ID)
	dbtest.AssignManager(t, db, manager, acme)
	joined(t, db, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), admin, manager, alice)
	joined(t, db, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), newHire)

	lastWeek := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	timesheets := services.NewTimesheets(db, hours.DefaultRegistry())
	_, err := timesheets.Save(ctx, alice, services.SaveTimesheetInput{
		WeekEnding: lastWeek,
		Rows:       []services.TimesheetRow{{ProjectID: project.ID, Hours: map[string]string{"2024-06-10": "8"}}},
		Submit:     true,
		Attested:   true,
	})
	require.NoError(t, err)

	notifications := services.NewNotifications(db)
	s := NewScheduler(db, notifications, time.Hour, 48*time.Hour)

	// Submitted moments ago, so it is not old enough to chase yet. Only the
	// admin and manager are missing last week's timesheet; the new hire
	// started after it ended.
	now := time.Date(2024, 6, 18, 9, 0, 0, 0, time.UTC)
	created, err := s.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var missing []models.Notification
	require.NoError(t, db.Where("kind = ?", models.NotificationMissingTimesheet).Order("employee_id").Find(&missing).Error)
	require.Len(t, missing, 2)
	assert.Equal(t, admin.ID, missing[0].EmployeeID)
	assert.Equal(t, manager.ID, missing[1].EmployeeID)
	assert.Contains(t, missing[0].Body, "2024-06-15")

	later := time.Now().UTC().Add(72 * time.Hour)
	created, err = s.RunOnce(ctx, later)
	require.NoError(t, err)

	var pending []models.Notification
	require.NoError(t, db.Where("kind = ?", models.NotificationPendingApproval).Order("employee_id").Find(&pending).Error)
	require.Len(t, pending, 2)
	assert.Equal(t, admin.ID, pending[0].EmployeeID)
	assert.Equal(t, manager.ID, pending[1].EmployeeID)
	assert.Contains(t, pending[0].Body, "alice")
	// plus a missing-timesheet reminder for each employee for the later week
	assert.Equal(t, 2+4, created)

	var newHireNotes int64
	require.NoError(t, db.Model(&models.Notification{}).Where("employee_id = ?", newHire.ID).Count(&newHireNotes).Error)
	assert.Equal(t, int64(1), newHireNotes, "only the week after joining")

	created, err = s.RunOnce(ctx, later)
	require.NoError(t, err)
	assert.Zero(t, created, "reminders are not repeated")
}

func TestRunStopsWithContext(t *testing.T) {
	db := dbtest.New(t)
	s := NewScheduler(db, services.NewNotifications(db), 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
