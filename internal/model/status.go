package model

import (
	"fmt"
	"slices"
)

// Status is the listing lifecycle state.
//
// The three states are mutually reachable: a listing may move from any state
// to any other, including back to draft after approval.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Statuses lists every valid Status.
var Statuses = []Status{StatusDraft, StatusPending, StatusApproved}

func (s Status) Validate() error {
	if !slices.Contains(Statuses, s) {
		return fmt.Errorf("%q is not a valid status", string(s))
	}
	return nil
}

// ParseStatus returns the Status named by value.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s, nil
}

// Transition returns the state reached by moving from to target. Every valid
// target is reachable from every state; only the target is checked.
func Transition(from, target Status) (Status, error) {
	if err := target.Validate(); err != nil {
		return from, err
	}
	return target, nil
}
