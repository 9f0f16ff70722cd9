// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/tandalabs/tanda/internal/models"
	"github.com/tandalabs/tanda/internal/token"
)

// UpdateFunc applies one state transition to a circle. It runs inside a
// single storage transaction: the circle passed in was loaded in that
// transaction, and the token view moves funds in the same transaction.
// Returning an error rolls back everything, circle mutation and token
// moves alike.
type UpdateFunc func(c *models.Circle, tok token.Token) error

// Store defines the interface for circle and account persistence.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateCircle persists a new circle record.
	CreateCircle(ctx context.Context, c *models.Circle) error

	// GetCircle retrieves a circle by ID, including members and the
	// current cycle's contributions. Returns models.ErrCircleNotFound if
	// no record exists.
	GetCircle(ctx context.Context, circleID string) (*models.Circle, error)

	// ListCircles retrieves all circles, newest first.
	ListCircles(ctx context.Context) ([]*models.Circle, error)

	// UpdateCircle loads the circle, applies fn, and persists the result,
	// all inside one transaction. If fn returns an error nothing is
	// persisted, including any token moves fn made.
	UpdateCircle(ctx context.Context, circleID string, fn UpdateFunc) error

	// Tokens returns the token ledger backed by the same database, for
	// reads and standalone moves outside a circle update.
	Tokens() token.Token

	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccountByEmail retrieves an account by email, or (nil, nil) if
	// no such account exists.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetAccountByID retrieves an account by ID, or (nil, nil) if no such
	// account exists.
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)

	// Close releases any resources held by the store.
	Close() error
}
