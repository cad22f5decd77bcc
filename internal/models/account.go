package models

import (
	"time"
)

// Account roles
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

type Account struct {
	ID               string
	Email            string
	PasswordHash     string // empty for federated-only accounts
	RefreshTokenHash string // empty when no active refresh session
	Role             string
	Status           AccountStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasPassword reports whether the account can authenticate with a password.
// Accounts created through federated sign-in have no password hash.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

type Profile struct {
	ID        string
	AccountID string
	Name      string
	BirthDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
