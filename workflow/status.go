// Package workflow is the approval lifecycle shared by timesheets and
// expenses.
package workflow

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Pending is how approvers and reports refer to a submitted record.
func (s Status) Pending() bool {
	return s == StatusSubmitted
}

// VisibleToApprovers is false for drafts, which stay private to their owner.
func (s Status) VisibleToApprovers() bool {
	return s != StatusDraft
}

type Action string

const (
	ActionSaveDraft Action = "save_draft"
	ActionSubmit    Action = "submit"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
)

var (
	ErrStateConflict       = errors.New("record state already changed")
	ErrAttestationRequired = errors.New("timesheet must be attested before submitting")
	ErrReasonRequired      = errors.New("a reason is required to reject")
)

// RecordLockedError is returned for any change to an approved record.
type RecordLockedError struct {
	Kind string
	ID   uint
}

func (e *RecordLockedError) Error() string {
	if e.Kind == "" {
		return "record is approved and can no longer be changed"
	}
	return fmt.Sprintf("%s %d is approved and can no longer be changed", e.Kind, e.ID)
}

// TransitionError is an action the current status does not allow.
type TransitionError struct {
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s record", e.Action, e.From)
}

var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSaveDraft: StatusDraft,
		ActionSubmit:    StatusSubmitted,
	},
	StatusSubmitted: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusRejected: {
		ActionSaveDraft: StatusDraft,
		ActionSubmit:    StatusSubmitted,
	},
}

// Next returns the status reached by applying a to from.
func Next(from Status, a Action) (Status, error) {
	if from == StatusApproved {
		return "", &RecordLockedError{}
	}
	to, ok := transitions[from][a]
	if !ok {
		return "", &TransitionError{From: from, Action: a}
	}
	return to, nil
}

// CanEdit reports whether the owner may still change a record's contents.
func CanEdit(s Status) error {
	switch s {
	case StatusDraft, StatusRejected:
		return nil
	case StatusApproved:
		return &RecordLockedError{}
	default:
		return &TransitionError{From: s, Action: ActionSaveDraft}
	}
}

// Lock fills in the record identity on a RecordLockedError produced by Next
// or CanEdit; other errors pass through unchanged.
func Lock(err error, kind string, id uint) error {
	var locked *RecordLockedError
	if errors.As(err, &locked) {
		return &RecordLockedError{Kind: kind, ID: id}
	}
	return err
}
