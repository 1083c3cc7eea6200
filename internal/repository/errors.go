package repository

import "errors"

// Ledger errors returned by the registration repository. Callers translate
// them into domain errors.
var (
	ErrTutorialInactive          = errors.New("tutorial is not active")
	ErrCapacityReached           = errors.New("tutorial capacity reached")
	ErrDuplicateRegistration     = errors.New("registration already exists for student and tutorial")
	ErrRegistrationNotRegistered = errors.New("registration is not in registered status")
	ErrCapacityBelowHeldSeats    = errors.New("capacity is below the number of held seats")
)
