package token

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tandalabs/tanda/internal/models"
)

// Ensure Ledger implements Token
var _ Token = (*Ledger)(nil)

// Ledger implements Token on top of two SQL tables: per-address balances and
// owner/spender allowances. It holds no state of its own; pass an *sql.Tx to
// make a sequence of moves atomic with other writes in that transaction.
type Ledger struct {
	db DBTX
}

// NewLedger creates a ledger bound to db (a *sql.DB or *sql.Tx).
func NewLedger(db DBTX) *Ledger {
	return &Ledger{db: db}
}

// BalanceOf returns the balance of addr for asset, zero if no row exists.
func (l *Ledger) BalanceOf(ctx context.Context, asset, addr string) (int64, error) {
	var amount int64
	err := l.db.QueryRowContext(ctx,
		"SELECT amount FROM token_balances WHERE asset = ? AND address = ?",
		asset, addr,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return amount, nil
}

// Allowance returns what spender may still move on owner's behalf.
func (l *Ledger) Allowance(ctx context.Context, asset, owner, spender string) (int64, error) {
	var amount int64
	err := l.db.QueryRowContext(ctx,
		"SELECT amount FROM token_allowances WHERE asset = ? AND owner = ? AND spender = ?",
		asset, owner, spender,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read allowance: %w", err)
	}
	return amount, nil
}

// Approve sets spender's allowance from owner to exactly amount.
func (l *Ledger) Approve(ctx context.Context, asset, owner, spender string, amount int64) error {
	if amount < 0 {
		return models.ErrInvalidAmount
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO token_allowances (asset, owner, spender, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT(asset, owner, spender) DO UPDATE SET amount = excluded.amount`,
		asset, owner, spender, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to set allowance: %w", err)
	}
	return nil
}

// Mint credits amount to addr.
func (l *Ledger) Mint(ctx context.Context, asset, addr string, amount int64) error {
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	return l.credit(ctx, asset, addr, amount)
}

// Transfer moves amount between addresses, failing if the source is short.
func (l *Ledger) Transfer(ctx context.Context, asset, from, to string, amount int64) error {
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	balance, err := l.BalanceOf(ctx, asset, from)
	if err != nil {
		return err
	}
	if balance < amount {
		return models.ErrInsufficientFunds
	}
	if err := l.debit(ctx, asset, from, amount); err != nil {
		return err
	}
	return l.credit(ctx, asset, to, amount)
}

// TransferFrom consumes spender's allowance from owner, then transfers.
// Both checks run before either write, so a rejected transfer leaves the
// allowance untouched even when the ledger is not inside a transaction.
func (l *Ledger) TransferFrom(ctx context.Context, asset, owner, spender, to string, amount int64) error {
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	allowance, err := l.Allowance(ctx, asset, owner, spender)
	if err != nil {
		return err
	}
	if allowance < amount {
		return models.ErrInsufficientAllowance
	}
	balance, err := l.BalanceOf(ctx, asset, owner)
	if err != nil {
		return err
	}
	if balance < amount {
		return models.ErrInsufficientFunds
	}
	_, err = l.db.ExecContext(ctx,
		"UPDATE token_allowances SET amount = amount - ? WHERE asset = ? AND owner = ? AND spender = ?",
		amount, asset, owner, spender,
	)
	if err != nil {
		return fmt.Errorf("failed to consume allowance: %w", err)
	}
	if err := l.debit(ctx, asset, owner, amount); err != nil {
		return err
	}
	return l.credit(ctx, asset, to, amount)
}

func (l *Ledger) credit(ctx context.Context, asset, addr string, amount int64) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO token_balances (asset, address, amount) VALUES (?, ?, ?)
		 ON CONFLICT(asset, address) DO UPDATE SET amount = amount + excluded.amount`,
		asset, addr, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

func (l *Ledger) debit(ctx context.Context, asset, addr string, amount int64) error {
	_, err := l.db.ExecContext(ctx,
		"UPDATE token_balances SET amount = amount - ? WHERE asset = ? AND address = ?",
		amount, asset, addr,
	)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	return nil
}
