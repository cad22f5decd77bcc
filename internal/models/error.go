package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors. Inactive and suspended stay distinguishable;
	// credential errors collapse into ErrUnauthorized.
	ErrAccountInactive   = errors.New("account is inactive")
	ErrAccountSuspended  = errors.New("account is suspended")
	ErrAccountUnprofiled = errors.New("account has not completed profile setup")

	// Profile completion conflicts
	ErrProfileAlreadySetUp = errors.New("profile already set up")
	ErrAccountAlreadySetUp = errors.New("account already set up")

	// Rate limiting
	ErrRateLimited = errors.New("too many failed attempts")
)
