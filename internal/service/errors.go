package service

import (
	"errors"

	"github.com/noah-isme/mgsa-portal-api/internal/policy"
)

// Domain errors returned by the portal services. Each one is a
// caller-correctable rejection and carries a human-readable reason.
var (
	ErrTutorialNotFound           = errors.New("tutorial not found")
	ErrTutorialNotActive          = errors.New("tutorial is not accepting registrations")
	ErrTutorialFull               = errors.New("tutorial is full")
	ErrAlreadyRegistered          = errors.New("already registered for this tutorial")
	ErrRegistrationNotFound       = errors.New("registration not found")
	ErrInvalidTransition          = errors.New("registration cannot move to the requested status")
	ErrCapacityBelowRegistrations = errors.New("max students cannot be lower than the seats already held")
	ErrInvalidSchedule            = errors.New("invalid tutorial schedule")
	ErrUserNotFound               = errors.New("user not found")
	ErrAccountExists              = errors.New("an account with this email or student number already exists")
	ErrInvalidRole                = errors.New("role must be one of student, executive or admin")
	ErrNotificationNotFound       = errors.New("notification not found")
	ErrInvalidTimeRange           = errors.New("until must be after since")
	ErrPermissionDenied           = policy.ErrPermissionDenied
)
