// Package policy centralises authorization decisions for the portal.
package policy

import (
	"errors"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// ErrPermissionDenied is returned when a principal may not perform an action.
var ErrPermissionDenied = errors.New("permission denied")

// Principal is the authenticated caller as supplied by the identity provider.
type Principal struct {
	ID   uint
	Role models.Role
}

// NewPrincipal builds a principal from a raw role claim.
func NewPrincipal(id uint, role string) Principal {
	return Principal{ID: id, Role: models.ParseRole(role)}
}

// Authenticated reports whether the principal carries an id and a known role.
func (p Principal) Authenticated() bool {
	return p.ID != 0 && p.Role.Valid()
}

// Action names an operation subject to authorization.
type Action string

const (
	ActionCreateTutorial       Action = "tutorial:create"
	ActionManageTutorial       Action = "tutorial:manage"
	ActionRegister             Action = "tutorial:register"
	ActionCancelRegistration   Action = "registration:cancel"
	ActionViewOwnRegistrations Action = "registration:list_own"
	ActionViewAnalytics        Action = "analytics:view"
	ActionManageUsers          Action = "users:manage"
)

// Target describes the ownership of the resource an action applies to.
type Target struct {
	// CreatorID owns the tutorial.
	CreatorID uint
	// StudentID owns the registration.
	StudentID uint
}

// TutorialTarget builds a target for a tutorial.
func TutorialTarget(tutorial models.Tutorial) Target {
	return Target{CreatorID: tutorial.CreatedByID}
}

// RegistrationTarget builds a target for a registration whose tutorial is loaded.
func RegistrationTarget(registration models.TutorialRegistration) Target {
	return Target{CreatorID: registration.Tutorial.CreatedByID, StudentID: registration.StudentID}
}

// Authorize decides whether the principal may perform the action on the target.
func Authorize(p Principal, action Action, target Target) error {
	if !p.Authenticated() {
		return ErrPermissionDenied
	}

	allowed := false
	switch action {
	case ActionCreateTutorial, ActionViewAnalytics:
		allowed = p.Role.IsStaff()
	case ActionManageTutorial:
		allowed = canManage(p, target)
	case ActionRegister, ActionViewOwnRegistrations:
		allowed = p.Role == models.RoleStudent
	case ActionCancelRegistration:
		owner := p.Role == models.RoleStudent && target.StudentID != 0 && target.StudentID == p.ID
		allowed = owner || canManage(p, target)
	case ActionManageUsers:
		allowed = p.Role == models.RoleAdmin
	}

	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// Allowed is a boolean shorthand for Authorize.
func Allowed(p Principal, action Action, target Target) bool {
	return Authorize(p, action, target) == nil
}

func canManage(p Principal, target Target) bool {
	if p.Role == models.RoleAdmin {
		return true
	}
	return p.Role == models.RoleExecutive && target.CreatorID != 0 && target.CreatorID == p.ID
}
