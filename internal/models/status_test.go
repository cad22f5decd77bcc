package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    AccountStatus
		to      AccountStatus
		allowed bool
	}{
		{"unprofiled to active", StatusUnprofiled, StatusActive, true},
		{"unprofiled to suspended", StatusUnprofiled, StatusSuspended, true},
		{"active to inactive", StatusActive, StatusInactive, true},
		{"active to suspended", StatusActive, StatusSuspended, true},
		{"active to unprofiled", StatusActive, StatusUnprofiled, false},
		{"inactive to active", StatusInactive, StatusActive, false},
		{"suspended to active", StatusSuspended, StatusActive, false},
		{"suspended to inactive", StatusSuspended, StatusInactive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestAccount_Transition_RejectsIllegalChange(t *testing.T) {
	account := &Account{Status: StatusSuspended}

	err := account.Transition(StatusActive)

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, StatusSuspended, account.Status, "status must not change on rejected transition")
}

func TestAccount_Transition_AppliesLegalChange(t *testing.T) {
	account := &Account{Status: StatusUnprofiled}

	err := account.Transition(StatusActive)

	assert.NoError(t, err)
	assert.Equal(t, StatusActive, account.Status)
}

func TestAccount_CheckOperational(t *testing.T) {
	tests := []struct {
		status  AccountStatus
		wantErr error
	}{
		{StatusActive, nil},
		{StatusUnprofiled, nil},
		{StatusInactive, ErrAccountInactive},
		{StatusSuspended, ErrAccountSuspended},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			account := &Account{Status: tt.status}
			err := account.CheckOperational()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAccount_CheckOperational_UnknownStatus(t *testing.T) {
	account := &Account{Status: AccountStatus("banana")}
	assert.ErrorIs(t, account.CheckOperational(), ErrInternalServer)
}
