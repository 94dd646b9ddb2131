package services

import (
	"context"
	"errors"
	"testing"

	"timekeeper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNotifications_CreateDeduplicates(t *testing.T) {
	f := newFixture(t)
	svc := NewNotifications(f.db)
	ctx := context.Background()

	n := models.Notification{
		EmployeeID: f.alice.ID,
		Kind:       models.NotificationMissingTimesheet,
		Subject:    "Timesheet missing",
		DedupKey:   "missing:alice:2024-06-15",
	}
	created, err := svc.Create(ctx, n)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Create(ctx, n)
	require.NoError(t, err)
	assert.False(t, created)

	list, err := svc.List(ctx, f.alice.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].ID)
}

func TestNotifications_MarkRead(t *testing.T) {
	f := newFixture(t)
	svc := NewNotifications(f.db)
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		_, err := svc.Create(ctx, models.Notification{EmployeeID: f.alice.ID, Kind: models.NotificationPendingApproval, DedupKey: key})
		require.NoError(t, err)
	}
	unread, err := svc.List(ctx, f.alice.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 2)

	assert.ErrorIs(t, svc.MarkRead(ctx, f.bob.ID, unread[0].ID), ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, f.alice.ID, unread[0].ID))
	require.NoError(t, svc.MarkRead(ctx, f.alice.ID, unread[0].ID), "marking twice is harmless")
	assert.ErrorIs(t, svc.MarkRead(ctx, f.alice.ID, "nope"), ErrNotFound)

	unread, err = svc.List(ctx, f.alice.ID, true, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	all, err := svc.List(ctx, f.alice.ID, false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotifications_MarkReadReportsLookupFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewNotifications(f.db)
	ctx := context.Background()

	boom := errors.New("connection reset")
	require.NoError(t, f.db.Callback().Query().Before("gorm:query").Register("fail_notification_reads", func(tx *gorm.DB) {
		if tx.Statement.Table == "notifications" {
			tx.AddError(boom)
		}
	}))

	err := svc.MarkRead(ctx, f.alice.ID, "missing")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
