package workflow

import (
	"fmt"

	"github.com/nurpe/trip-settlements/internal/model"
)

// AssertEditable rejects structural changes to a settlement, or to its children, once it
// has been approved, paid or cancelled. The systems role is never locked out.
func AssertEditable(s *model.Settlement, actor model.Principal) error {
	if actor.IsSystems() {
		return nil
	}
	switch s.Status {
	case model.StatusApproved, model.StatusPaid, model.StatusCancelled:
		return fmt.Errorf("%w: settlement %s is locked in status %s", ErrForbidden, s.Folio, s.Status)
	}
	return nil
}

func AssertCanAdjust(s *model.Settlement, actor model.Principal) error {
	return assertApprovedElevated(s, actor, "adjust")
}

func AssertCanOverrideTotal(s *model.Settlement, actor model.Principal) error {
	return assertApprovedElevated(s, actor, "override totals of")
}

func assertApprovedElevated(s *model.Settlement, actor model.Principal, action string) error {
	if !actor.IsElevated() {
		return fmt.Errorf("%w: role %s cannot %s a settlement", ErrForbidden, actor.Role, action)
	}
	if s.Status != model.StatusApproved {
		return fmt.Errorf("%w: only approved settlements can be changed this way, current status is %s", ErrForbidden, s.Status)
	}
	return nil
}
