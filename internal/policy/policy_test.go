package policy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
)

func TestNewPrincipalNormalisesRoleCasing(t *testing.T) {
	require.Equal(t, models.RoleStudent, policy.NewPrincipal(1, "Student").Role)
	require.Equal(t, models.RoleAdmin, policy.NewPrincipal(1, " ADMIN ").Role)
	require.Equal(t, models.RoleInvalid, policy.NewPrincipal(1, "teacher").Role)
}

func TestAuthorizeMatrix(t *testing.T) {
	student := policy.Principal{ID: 10, Role: models.RoleStudent}
	otherStudent := policy.Principal{ID: 11, Role: models.RoleStudent}
	creator := policy.Principal{ID: 20, Role: models.RoleExecutive}
	otherExecutive := policy.Principal{ID: 21, Role: models.RoleExecutive}
	admin := policy.Principal{ID: 30, Role: models.RoleAdmin}
	anonymous := policy.Principal{}

	tutorial := policy.Target{CreatorID: creator.ID}
	registration := policy.Target{CreatorID: creator.ID, StudentID: student.ID}

	cases := []struct {
		name      string
		principal policy.Principal
		action    policy.Action
		target    policy.Target
		allowed   bool
	}{
		{"student cannot create tutorial", student, policy.ActionCreateTutorial, policy.Target{}, false},
		{"executive creates tutorial", creator, policy.ActionCreateTutorial, policy.Target{}, true},
		{"admin creates tutorial", admin, policy.ActionCreateTutorial, policy.Target{}, true},
		{"creator manages tutorial", creator, policy.ActionManageTutorial, tutorial, true},
		{"other executive cannot manage", otherExecutive, policy.ActionManageTutorial, tutorial, false},
		{"admin manages any tutorial", admin, policy.ActionManageTutorial, tutorial, true},
		{"student cannot manage", student, policy.ActionManageTutorial, tutorial, false},
		{"student registers", student, policy.ActionRegister, tutorial, true},
		{"executive cannot register", creator, policy.ActionRegister, tutorial, false},
		{"owner cancels", student, policy.ActionCancelRegistration, registration, true},
		{"other student cannot cancel", otherStudent, policy.ActionCancelRegistration, registration, false},
		{"creator cancels on behalf", creator, policy.ActionCancelRegistration, registration, true},
		{"other executive cannot cancel", otherExecutive, policy.ActionCancelRegistration, registration, false},
		{"executive views analytics", otherExecutive, policy.ActionViewAnalytics, policy.Target{}, true},
		{"student cannot view analytics", student, policy.ActionViewAnalytics, policy.Target{}, false},
		{"admin manages users", admin, policy.ActionManageUsers, policy.Target{}, true},
		{"executive cannot manage users", creator, policy.ActionManageUsers, policy.Target{}, false},
		{"anonymous denied", anonymous, policy.ActionRegister, tutorial, false},
		{"unknown action denied", admin, policy.Action("tutorial:explode"), tutorial, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Authorize(tc.principal, tc.action, tc.target)
			if tc.allowed {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, policy.ErrPermissionDenied)
		})
	}
}

func TestManageRequiresKnownCreator(t *testing.T) {
	executive := policy.Principal{ID: 5, Role: models.RoleExecutive}
	require.False(t, policy.Allowed(executive, policy.ActionManageTutorial, policy.Target{}))
}
