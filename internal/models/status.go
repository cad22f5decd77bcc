package models

import "fmt"

// AccountStatus is the account lifecycle state. Accounts start unprofiled,
// become active when profile setup completes, and can be moved to inactive
// or suspended administratively. Nothing in this service leaves inactive or
// suspended; reactivation is an external operation.
type AccountStatus string

const (
	StatusUnprofiled AccountStatus = "unprofiled"
	StatusActive     AccountStatus = "active"
	StatusInactive   AccountStatus = "inactive"
	StatusSuspended  AccountStatus = "suspended"
)

// transitions is the single source of truth for legal status changes.
var transitions = map[AccountStatus][]AccountStatus{
	StatusUnprofiled: {StatusActive, StatusInactive, StatusSuspended},
	StatusActive:     {StatusInactive, StatusSuspended},
	StatusInactive:   {},
	StatusSuspended:  {},
}

// Valid reports whether s is a known status value.
func (s AccountStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the status change from s to target is legal.
func (s AccountStatus) CanTransition(target AccountStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change on the account.
func (a *Account) Transition(target AccountStatus) error {
	if !a.Status.CanTransition(target) {
		return fmt.Errorf("illegal status transition %s -> %s: %w", a.Status, target, ErrConflict)
	}
	a.Status = target
	return nil
}

// CheckOperational is the guard run before every sensitive operation.
// Inactive and suspended accounts are rejected with state-specific errors.
// Unprofiled accounts pass: registration-adjacent flows legitimately run
// before a profile exists, and profile completion applies its own checks.
func (a *Account) CheckOperational() error {
	switch a.Status {
	case StatusInactive:
		return ErrAccountInactive
	case StatusSuspended:
		return ErrAccountSuspended
	case StatusUnprofiled, StatusActive:
		return nil
	default:
		return fmt.Errorf("unknown account status %q: %w", a.Status, ErrInternalServer)
	}
}
