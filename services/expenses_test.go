package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"timekeeper/models"
	"timekeeper/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseInput(amount string) SaveExpenseInput {
	return SaveExpenseInput{
		ExpenseDate: time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Category:    " Travel ",
		Vendor:      "Rail Co",
	}
}

func TestExpenses_SaveDraftAndSubmit(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenses(f.db)
	ctx := context.Background()

	draft, err := svc.Save(ctx, f.alice, expenseInput("120.50"))
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, draft.Status)
	assert.Equal(t, "travel", draft.Category)
	assert.Equal(t, "2024-06-12", draft.ExpenseDate.UTC().Format("2006-01-02"))
	assert.Equal(t, 0, draft.ExpenseDate.UTC().Hour())
	assert.Nil(t, draft.SubmittedAt)

	in := expenseInput("99.99")
	in.ID = draft.ID
	in.Submit = true
	in.ProjectID = &f.projectA.ID
	submitted, err := svc.Save(ctx, f.alice, in)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, submitted.ID)
	assert.Equal(t, workflow.StatusSubmitted, submitted.Status)
	assert.Equal(t, "99.99", submitted.Amount.StringFixed(2))
	assert.NotNil(t, submitted.SubmittedAt)

	in.Amount = decimal.NewFromInt(1)
	_, err = svc.Save(ctx, f.alice, in)
	var te *workflow.TransitionError
	assert.True(t, errors.As(err, &te), "submitted expenses cannot be edited")
}

func TestExpenses_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenses(f.db)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*SaveExpenseInput)
	}{
		{"negative amount", func(in *SaveExpenseInput) { in.Amount = decimal.NewFromInt(-5) }},
		{"unknown category", func(in *SaveExpenseInput) { in.Category = "yachts" }},
		{"missing date", func(in *SaveExpenseInput) { in.ExpenseDate = time.Time{} }},
		{"unknown project", func(in *SaveExpenseInput) { id := uint(999); in.ProjectID = &id }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := expenseInput("10")
			tt.mutate(&in)
			_, err := svc.Save(ctx, f.alice, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	in := expenseInput("10")
	in.EmployeeID = f.bob.ID
	_, err := svc.Save(ctx, f.alice, in)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestExpenses_ApproveRejectAndLock(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenses(f.db)
	ctx := context.Background()

	in := expenseInput("40")
	in.Submit = true
	exp, err := svc.Save(ctx, f.alice, in)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, f.manager, exp.ID, "")
	assert.ErrorIs(t, err, workflow.ErrReasonRequired)

	rejected, err := svc.Reject(ctx, f.manager, exp.ID, "missing receipt")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, rejected.Status)
	assert.Equal(t, "missing receipt", rejected.Comments)

	in.ID = exp.ID
	in.ReceiptURL = "https://receipts.example.com/1.pdf"
	_, err = svc.Save(ctx, f.alice, in)
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, f.manager, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, f.manager.ID, *approved.ApprovedBy)
	assert.Empty(t, approved.Comments, "resubmitting clears the rejection")
	assert.Nil(t, approved.RejectedAt)

	var locked *workflow.RecordLockedError
	_, err = svc.Save(ctx, f.alice, in)
	assert.True(t, errors.As(err, &locked))
	assert.True(t, errors.As(svc.Delete(ctx, f.alice, exp.ID), &locked))

	var notes []models.Notification
	require.NoError(t, f.db.Where("employee_id = ?", f.alice.ID).Order("kind").Find(&notes).Error)
	require.Len(t, notes, 2)
	assert.Equal(t, models.NotificationRecordApproved, notes[0].Kind)
	assert.Equal(t, models.NotificationRecordRejected, notes[1].Kind)
}

func TestExpenses_ApproverScope(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenses(f.db)
	ctx := context.Background()

	in := expenseInput("15")
	in.Submit = true
	bobs, err := svc.Save(ctx, f.bob, in)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, f.manager, bobs.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	floaters, err := svc.Save(ctx, f.floater, in)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, f.manager, floaters.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Approve(ctx, f.admin, floaters.ID)
	assert.NoError(t, err)

	in.Submit = false
	draft, err := svc.Save(ctx, f.alice, in)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, f.manager, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, f.manager, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenses_ListAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenses(f.db)
	ctx := context.Background()

	submit := expenseInput("20")
	submit.Submit = true
	sub, err := svc.Save(ctx, f.alice, submit)
	require.NoError(t, err)
	draft, err := svc.Save(ctx, f.alice, expenseInput("5"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, f.bob, submit)
	require.NoError(t, err)

	own, err := svc.List(ctx, f.alice, models.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	managed, err := svc.List(ctx, f.manager, models.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, managed, 1)
	assert.Equal(t, sub.ID, managed[0].ID)

	all, err := svc.List(ctx, f.admin, models.ExpenseFilter{Status: workflow.StatusSubmitted})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byClient, err := svc.List(ctx, f.admin, models.ExpenseFilter{ClientID: f.globex.ID})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, f.bob.ID, byClient[0].EmployeeID)

	var te *workflow.TransitionError
	assert.True(t, errors.As(svc.Delete(ctx, f.alice, sub.ID), &te))
	assert.ErrorIs(t, svc.Delete(ctx, f.bob, draft.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, f.alice, draft.ID))
	_, err = svc.Get(ctx, f.alice, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
