package services

import (
	"context"
	"testing"
	"time"

	"timekeeper/hours"
	"timekeeper/report"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReports_TimesheetsByClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	timesheets := NewTimesheets(f.db, hours.DefaultRegistry())

	submit := func(owner uint, day string, h string) uint {
		ts, err := timesheets.Save(ctx, f.admin, SaveTimesheetInput{
			EmployeeID: owner,
			WeekEnding: weekEnding,
			Rows:       []TimesheetRow{{ProjectID: f.projectA.ID, Hours: map[string]string{day: h}}},
			Submit:     true,
			Attested:   true,
		})
		require.NoError(t, err)
		return ts.ID
	}
	aliceID := submit(f.alice.ID, "2024-06-10", "8")
	submit(f.floater.ID, "2024-06-11", "6")
	_, err := timesheets.Save(ctx, f.bob, SaveTimesheetInput{
		WeekEnding: weekEnding,
		Rows:       []TimesheetRow{{ProjectID: f.projectA.ID, Hours: map[string]string{"2024-06-10": "3"}}},
	})
	require.NoError(t, err)
	_, err = timesheets.Approve(ctx, f.manager, aliceID)
	require.NoError(t, err)

	svc := NewReports(f.db)
	groups, err := svc.TimesheetsByClient(ctx, f.admin, Period{From: weekEnding, To: weekEnding})
	require.NoError(t, err)
	require.Len(t, groups, 2, "bob's draft is not reported")

	assert.Equal(t, "Acme", groups[0].Name)
	assert.Equal(t, 1, groups[0].TotalApproved)
	assert.Equal(t, 0, groups[0].TotalPending)
	assert.True(t, decimal.NewFromInt(8).Equal(groups[0].Total))

	assert.Equal(t, report.UnassignedName, groups[1].Name)
	assert.True(t, groups[1].Unassigned())
	assert.Equal(t, 1, groups[1].TotalPending)
	assert.True(t, decimal.NewFromInt(6).Equal(groups[1].PendingAmount))

	scoped, err := svc.TimesheetsByClient(ctx, f.manager, Period{})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "Acme", scoped[0].Name)

	_, err = svc.TimesheetsByClient(ctx, f.alice, Period{})
	assert.ErrorIs(t, err, ErrForbidden)

	empty, err := svc.TimesheetsByClient(ctx, f.admin, Period{From: weekEnding.AddDate(0, 0, 7)})
	require.NoError(t, err)
	assert.Empty(t, empty)

	lines, err := svc.TimesheetLines(ctx, f.admin, Period{})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "alice", lines[0].Employee)
	assert.Equal(t, "Acme", lines[0].Client)
	assert.Equal(t, "approved", lines[0].Status)
	assert.Equal(t, report.UnassignedName, lines[1].Client)
}

func TestReports_ExpensesByClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expenses := NewExpenses(f.db)

	for _, owner := range []uint{f.alice.ID, f.alice.ID, f.bob.ID} {
		in := expenseInput("12.25")
		in.EmployeeID = owner
		in.Submit = true
		_, err := expenses.Save(ctx, f.admin, in)
		require.NoError(t, err)
	}

	svc := NewReports(f.db)
	groups, err := svc.ExpensesByClient(ctx, f.admin, Period{To: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Acme", groups[0].Name)
	assert.Equal(t, "24.50", groups[0].PendingAmount.StringFixed(2))
	assert.Equal(t, "Globex", groups[1].Name)

	lines, err := svc.ExpenseLines(ctx, f.manager, Period{})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, "alice", l.Employee)
		assert.Equal(t, "travel", l.Category)
	}
}
