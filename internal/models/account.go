package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered user. The account ID is also the address
// used on the token ledger and in circle rotations, so authenticating as an
// account is what lets a caller act as that address.
type Account struct {
	// ID is the unique identifier (UUID format) and the ledger address.
	ID string

	// Email is the login identifier (unique).
	Email string

	// DisplayName is shown to other circle members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the login password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was registered.
	CreatedAt int64
}

// NewAccount creates an account with a fresh ID and timestamp.
func NewAccount(email, displayName, passwordHash string) *Account {
	return &Account{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}
