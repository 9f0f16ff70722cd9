// Package token provides the fungible-token primitive that circles use to
// pull contributions into escrow and push payouts out. It mirrors the
// classic allowance model: an owner approves a spender, and the spender may
// then move up to the approved amount on the owner's behalf.
package token

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx. Ledger
// methods run against whichever is supplied, so token moves can participate
// in a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Token is the transfer primitive consumed by the circle service. Every
// method either fully applies or returns an error with no partial write.
type Token interface {
	// BalanceOf returns the balance of addr for asset (0 if unknown).
	BalanceOf(ctx context.Context, asset, addr string) (int64, error)

	// Allowance returns what spender may still move on owner's behalf.
	Allowance(ctx context.Context, asset, owner, spender string) (int64, error)

	// Approve sets (not adds to) spender's allowance from owner.
	Approve(ctx context.Context, asset, owner, spender string, amount int64) error

	// Transfer moves amount from one address to another. Fails with
	// models.ErrInsufficientFunds if the source balance is short.
	Transfer(ctx context.Context, asset, from, to string, amount int64) error

	// TransferFrom moves amount from owner to, consuming spender's
	// allowance. Fails with models.ErrInsufficientAllowance if the
	// allowance is short, models.ErrInsufficientFunds if the balance is.
	TransferFrom(ctx context.Context, asset, owner, spender, to string, amount int64) error

	// Mint credits amount to addr out of thin air. Used by the faucet.
	Mint(ctx context.Context, asset, addr string, amount int64) error
}
