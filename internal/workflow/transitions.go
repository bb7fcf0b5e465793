// Package workflow holds the settlement lifecycle rules: which role may move a settlement
// between states, what each move stamps, and when a settlement is locked for edits.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/nurpe/trip-settlements/internal/model"
)

var ErrForbidden = errors.New("permission denied")

// table maps role -> current state -> states the role may move to.
type table map[model.Role]map[model.Status][]model.Status

// transitions lists every move available to the non-systems roles. Anything absent is rejected.
var transitions = table{
	model.RoleCapturist: {
		model.StatusDraft:    {model.StatusInReview},
		model.StatusInReview: {model.StatusApproved},
	},
	model.RoleDirector: {
		model.StatusDraft:    {model.StatusCancelled},
		model.StatusInReview: {model.StatusCancelled, model.StatusApproved},
		model.StatusApproved: {model.StatusInReview, model.StatusPaid, model.StatusCancelled},
	},
	model.RoleAdmin: {
		model.StatusDraft:    {model.StatusCancelled},
		model.StatusInReview: {model.StatusCancelled, model.StatusApproved},
		model.StatusApproved: {model.StatusInReview, model.StatusPaid, model.StatusCancelled},
	},
}

// Allows reports whether the table lets role move a settlement from one state to another.
// The systems role has no entries; see CheckTransition.
func Allows(role model.Role, from, to model.Status) bool {
	for _, next := range transitions[role][from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status model.Status) bool {
	return status == model.StatusPaid || status == model.StatusCancelled
}

// CheckTransition authorizes a move. The terminal lock is checked before the table; the
// systems role skips both but can never mark a settlement as paid.
func CheckTransition(from, to model.Status, role model.Role) error {
	if role == model.RoleSystems {
		if to == model.StatusPaid {
			return fmt.Errorf("%w: role %s cannot mark a settlement as paid", ErrForbidden, role)
		}
		return nil
	}
	if IsTerminal(from) {
		return fmt.Errorf("%w: settlement is %s", ErrForbidden, from)
	}
	if !Allows(role, from, to) {
		return fmt.Errorf("%w: role %s cannot move a settlement from %s to %s", ErrForbidden, role, from, to)
	}
	return nil
}

// Apply moves the settlement to the target state and applies the stamps tied to it.
// It does not authorize the move; see CheckTransition.
func Apply(s *model.Settlement, to model.Status, actor model.Principal, now time.Time) {
	from := s.Status
	userID := actor.UserID

	if from == model.StatusApproved && to == model.StatusInReview {
		s.ApprovedByUserID = nil
	}
	if from == model.StatusPaid && to != model.StatusPaid {
		s.PaidByUserID = nil
		s.PaidAt = nil
	}

	switch to {
	case model.StatusApproved:
		if actor.IsCapturist() {
			s.ApprovedByUserID = &userID
		}
	case model.StatusPaid:
		paidAt := now
		s.PaidByUserID = &userID
		s.PaidAt = &paidAt
	}

	s.Status = to
	s.StampEditor(userID)
}

// Transition checks and applies a move in one step.
func Transition(s *model.Settlement, to model.Status, actor model.Principal, now time.Time) error {
	if err := CheckTransition(s.Status, to, actor.Role); err != nil {
		return err
	}
	Apply(s, to, actor, now)
	return nil
}
