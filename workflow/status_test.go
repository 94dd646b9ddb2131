package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from   Status
		action Action
		want   Status
	}{
		{StatusDraft, ActionSaveDraft, StatusDraft},
		{StatusDraft, ActionSubmit, StatusSubmitted},
		{StatusSubmitted, ActionApprove, StatusApproved},
		{StatusSubmitted, ActionReject, StatusRejected},
		{StatusRejected, ActionSubmit, StatusSubmitted},
		{StatusRejected, ActionSaveDraft, StatusDraft},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := Next(tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_Illegal(t *testing.T) {
	tests := []struct {
		from   Status
		action Action
	}{
		{StatusDraft, ActionApprove},
		{StatusDraft, ActionReject},
		{StatusSubmitted, ActionSubmit},
		{StatusSubmitted, ActionSaveDraft},
		{StatusRejected, ActionApprove},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			_, err := Next(tt.from, tt.action)
			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.from, te.From)
		})
	}
}

func TestNext_ApprovedIsTerminal(t *testing.T) {
	for _, a := range []Action{ActionSaveDraft, ActionSubmit, ActionApprove, ActionReject} {
		_, err := Next(StatusApproved, a)
		var locked *RecordLockedError
		assert.True(t, errors.As(err, &locked), "action %s", a)
	}
}

func TestRejectResubmitApprove(t *testing.T) {
	s := StatusDraft
	for _, a := range []Action{ActionSubmit, ActionReject, ActionSaveDraft, ActionSubmit, ActionApprove} {
		next, err := Next(s, a)
		require.NoError(t, err)
		s = next
	}
	assert.Equal(t, StatusApproved, s)
}

func TestCanEdit(t *testing.T) {
	assert.NoError(t, CanEdit(StatusDraft))
	assert.NoError(t, CanEdit(StatusRejected))

	var te *TransitionError
	assert.True(t, errors.As(CanEdit(StatusSubmitted), &te))

	var locked *RecordLockedError
	assert.True(t, errors.As(CanEdit(StatusApproved), &locked))
}

func TestLock(t *testing.T) {
	err := Lock(CanEdit(StatusApproved), "timesheet", 7)
	assert.EqualError(t, err, "timesheet 7 is approved and can no longer be changed")

	plain := errors.New("boom")
	assert.Equal(t, plain, Lock(plain, "timesheet", 7))
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusSubmitted.Pending())
	assert.False(t, StatusApproved.Pending())
	assert.False(t, StatusDraft.VisibleToApprovers())
	assert.True(t, StatusRejected.VisibleToApprovers())
	assert.False(t, Status("archived").Valid())
}
