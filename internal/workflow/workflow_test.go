package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/trip-settlements/internal/model"
)

// allowed is the full set of permitted moves for the table-driven roles, written out
// independently of the transition table.
var allowed = map[model.Role]map[model.Status]map[model.Status]bool{
	model.RoleCapturist: {
		model.StatusDraft:    {model.StatusInReview: true},
		model.StatusInReview: {model.StatusApproved: true},
	},
	model.RoleDirector: {
		model.StatusDraft:    {model.StatusCancelled: true},
		model.StatusInReview: {model.StatusCancelled: true, model.StatusApproved: true},
		model.StatusApproved: {model.StatusInReview: true, model.StatusPaid: true, model.StatusCancelled: true},
	},
	model.RoleAdmin: {
		model.StatusDraft:    {model.StatusCancelled: true},
		model.StatusInReview: {model.StatusCancelled: true, model.StatusApproved: true},
		model.StatusApproved: {model.StatusInReview: true, model.StatusPaid: true, model.StatusCancelled: true},
	},
}

func principal(role model.Role) model.Principal {
	return model.Principal{UserID: uuid.New(), Role: role}
}

func TestCheckTransition_EveryCell(t *testing.T) {
	for _, role := range model.Roles {
		for _, from := range model.Statuses {
			for _, to := range model.Statuses {
				name := fmt.Sprintf("%s/%s->%s", role, from, to)
				t.Run(name, func(t *testing.T) {
					err := CheckTransition(from, to, role)

					want := allowed[role][from][to]
					if role == model.RoleSystems {
						want = to != model.StatusPaid
					}

					if want {
						assert.NoError(t, err)
					} else {
						assert.ErrorIs(t, err, ErrForbidden)
					}
				})
			}
		}
	}
}

func TestCheckTransition_TerminalLockComesFirst(t *testing.T) {
	err := CheckTransition(model.StatusPaid, model.StatusInReview, model.RoleDirector)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "settlement is PAID")

	err = CheckTransition(model.StatusCancelled, model.StatusDraft, model.RoleAdmin)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "settlement is CANCELLED")
}

func TestTransition_LifecycleStamps(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s := &model.Settlement{Status: model.StatusDraft}

	capturist := principal(model.RoleCapturist)
	require.NoError(t, Transition(s, model.StatusInReview, capturist, now))
	assert.Equal(t, model.StatusInReview, s.Status)
	assert.Nil(t, s.ApprovedByUserID)
	require.NotNil(t, s.EditedByUserID)
	assert.Equal(t, capturist.UserID, *s.EditedByUserID)

	require.NoError(t, Transition(s, model.StatusApproved, capturist, now))
	require.NotNil(t, s.ApprovedByUserID)
	assert.Equal(t, capturist.UserID, *s.ApprovedByUserID)

	director := principal(model.RoleDirector)
	require.NoError(t, Transition(s, model.StatusPaid, director, now))
	assert.Equal(t, model.StatusPaid, s.Status)
	require.NotNil(t, s.PaidByUserID)
	assert.Equal(t, director.UserID, *s.PaidByUserID)
	require.NotNil(t, s.PaidAt)
	assert.True(t, now.Equal(*s.PaidAt))
	assert.Equal(t, director.UserID, *s.EditedByUserID)

	systems := principal(model.RoleSystems)
	require.NoError(t, Transition(s, model.StatusCancelled, systems, now))
	assert.Equal(t, model.StatusCancelled, s.Status)
	assert.Nil(t, s.PaidByUserID)
	assert.Nil(t, s.PaidAt)
	assert.Equal(t, systems.UserID, *s.EditedByUserID)
}

func TestTransition_ElevatedApprovalDoesNotStampApprover(t *testing.T) {
	s := &model.Settlement{Status: model.StatusInReview}
	require.NoError(t, Transition(s, model.StatusApproved, principal(model.RoleAdmin), time.Now()))
	assert.Equal(t, model.StatusApproved, s.Status)
	assert.Nil(t, s.ApprovedByUserID)
}

func TestTransition_ReturnToReviewClearsApprover(t *testing.T) {
	approver := uuid.New()
	s := &model.Settlement{Status: model.StatusApproved, ApprovedByUserID: &approver}

	require.NoError(t, Transition(s, model.StatusInReview, principal(model.RoleDirector), time.Now()))
	assert.Equal(t, model.StatusInReview, s.Status)
	assert.Nil(t, s.ApprovedByUserID)
}

func TestTransition_SystemsNeverPays(t *testing.T) {
	for _, from := range model.Statuses {
		s := &model.Settlement{Status: from}
		err := Transition(s, model.StatusPaid, principal(model.RoleSystems), time.Now())
		assert.ErrorIs(t, err, ErrForbidden, "from %s", from)
		assert.Equal(t, from, s.Status)
		assert.Nil(t, s.EditedByUserID)
	}
}

func TestTransition_RejectedMoveLeavesSettlementUntouched(t *testing.T) {
	s := &model.Settlement{Status: model.StatusDraft}
	err := Transition(s, model.StatusApproved, principal(model.RoleCapturist), time.Now())
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.StatusDraft, s.Status)
	assert.Nil(t, s.EditedByUserID)
	assert.Nil(t, s.ApprovedByUserID)
}

func TestAssertEditable(t *testing.T) {
	cases := []struct {
		status model.Status
		locked bool
	}{
		{model.StatusDraft, false},
		{model.StatusInReview, false},
		{model.StatusApproved, true},
		{model.StatusPaid, true},
		{model.StatusCancelled, true},
	}

	for _, tc := range cases {
		s := &model.Settlement{Status: tc.status, Folio: "LIQ-1"}
		for _, role := range model.Roles {
			err := AssertEditable(s, principal(role))
			if tc.locked && role != model.RoleSystems {
				assert.ErrorIs(t, err, ErrForbidden, "%s as %s", tc.status, role)
			} else {
				assert.NoError(t, err, "%s as %s", tc.status, role)
			}
		}
	}
}

func TestAssertCanAdjustAndOverride(t *testing.T) {
	checks := map[string]func(*model.Settlement, model.Principal) error{
		"adjust":   AssertCanAdjust,
		"override": AssertCanOverrideTotal,
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			for _, status := range model.Statuses {
				for _, role := range model.Roles {
					err := check(&model.Settlement{Status: status}, principal(role))
					ok := status == model.StatusApproved && role != model.RoleCapturist
					if ok {
						assert.NoError(t, err, "%s as %s", status, role)
					} else {
						assert.ErrorIs(t, err, ErrForbidden, "%s as %s", status, role)
					}
				}
			}
		})
	}
}

func TestAllows_MatchesTable(t *testing.T) {
	for role, byState := range transitions {
		for from, targets := range byState {
			for _, to := range targets {
				assert.True(t, allowed[role][from][to], "%s %s->%s", role, from, to)
			}
		}
	}
	for _, role := range model.Roles {
		for _, from := range model.Statuses {
			for _, to := range model.Statuses {
				assert.Equal(t, allowed[role][from][to], Allows(role, from, to), "%s %s->%s", role, from, to)
			}
		}
	}
	assert.False(t, Allows(model.RoleSystems, model.StatusDraft, model.StatusInReview))
}
