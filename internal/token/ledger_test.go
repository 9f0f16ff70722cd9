package token

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/tandalabs/tanda/internal/models"
)

const testSchema = `
CREATE TABLE token_balances (
    asset TEXT NOT NULL,
    address TEXT NOT NULL,
    amount INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (asset, address)
);
CREATE TABLE token_allowances (
    asset TEXT NOT NULL,
    owner TEXT NOT NULL,
    spender TEXT NOT NULL,
    amount INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (asset, owner, spender)
);
`

func newTestLedger(t *testing.T) (*Ledger, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tokens.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return NewLedger(db), db
}

func TestMintAndBalance(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "USDt", "alice", 500); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := ledger.Mint(ctx, "USDt", "alice", 250); err != nil {
		t.Fatalf("second Mint failed: %v", err)
	}

	balance, err := ledger.BalanceOf(ctx, "USDt", "alice")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 750 {
		t.Errorf("expected balance 750, got %d", balance)
	}

	// Unknown address reads as zero.
	balance, err = ledger.BalanceOf(ctx, "USDt", "bob")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected balance 0, got %d", balance)
	}
}

func TestTransfer(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "USDt", "alice", 100); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	t.Run("moves funds", func(t *testing.T) {
		if err := ledger.Transfer(ctx, "USDt", "alice", "bob", 60); err != nil {
			t.Fatalf("Transfer failed: %v", err)
		}
		from, _ := ledger.BalanceOf(ctx, "USDt", "alice")
		to, _ := ledger.BalanceOf(ctx, "USDt", "bob")
		if from != 40 || to != 60 {
			t.Errorf("expected 40/60, got %d/%d", from, to)
		}
	})

	t.Run("rejects overdraft", func(t *testing.T) {
		err := ledger.Transfer(ctx, "USDt", "alice", "bob", 1000)
		if !errors.Is(err, models.ErrInsufficientFunds) {
			t.Errorf("expected ErrInsufficientFunds, got %v", err)
		}
		from, _ := ledger.BalanceOf(ctx, "USDt", "alice")
		if from != 40 {
			t.Errorf("failed transfer must not change balance, got %d", from)
		}
	})
}

func TestTransferFrom(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "USDt", "owner", 300); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := ledger.Approve(ctx, "USDt", "owner", "spender", 200); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	t.Run("consumes allowance", func(t *testing.T) {
		if err := ledger.TransferFrom(ctx, "USDt", "owner", "spender", "payee", 150); err != nil {
			t.Fatalf("TransferFrom failed: %v", err)
		}
		allowance, _ := ledger.Allowance(ctx, "USDt", "owner", "spender")
		if allowance != 50 {
			t.Errorf("expected allowance 50, got %d", allowance)
		}
		payee, _ := ledger.BalanceOf(ctx, "USDt", "payee")
		if payee != 150 {
			t.Errorf("expected payee balance 150, got %d", payee)
		}
	})

	t.Run("rejects exceeding allowance", func(t *testing.T) {
		err := ledger.TransferFrom(ctx, "USDt", "owner", "spender", "payee", 100)
		if !errors.Is(err, models.ErrInsufficientAllowance) {
			t.Errorf("expected ErrInsufficientAllowance, got %v", err)
		}
		owner, _ := ledger.BalanceOf(ctx, "USDt", "owner")
		if owner != 150 {
			t.Errorf("failed transfer must not change balance, got %d", owner)
		}
	})

	t.Run("overdraft leaves allowance intact", func(t *testing.T) {
		if err := ledger.Approve(ctx, "USDt", "pauper", "spender", 100); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
		err := ledger.TransferFrom(ctx, "USDt", "pauper", "spender", "payee", 100)
		if !errors.Is(err, models.ErrInsufficientFunds) {
			t.Errorf("expected ErrInsufficientFunds, got %v", err)
		}
		allowance, _ := ledger.Allowance(ctx, "USDt", "pauper", "spender")
		if allowance != 100 {
			t.Errorf("failed transfer must not consume allowance, got %d", allowance)
		}
	})

	t.Run("rejects without any approval", func(t *testing.T) {
		err := ledger.TransferFrom(ctx, "USDt", "owner", "stranger", "payee", 10)
		if !errors.Is(err, models.ErrInsufficientAllowance) {
			t.Errorf("expected ErrInsufficientAllowance, got %v", err)
		}
	})

	t.Run("approve replaces rather than adds", func(t *testing.T) {
		if err := ledger.Approve(ctx, "USDt", "owner", "spender", 75); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
		allowance, _ := ledger.Allowance(ctx, "USDt", "owner", "spender")
		if allowance != 75 {
			t.Errorf("expected allowance 75, got %d", allowance)
		}
	})
}

func TestLedgerInTransaction(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "USDt", "alice", 100); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	// Moves made through a rolled-back transaction must vanish.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	txLedger := NewLedger(tx)
	if err := txLedger.Transfer(ctx, "USDt", "alice", "bob", 100); err != nil {
		t.Fatalf("Transfer in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	balance, err := ledger.BalanceOf(ctx, "USDt", "alice")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 100 {
		t.Errorf("rolled-back transfer leaked: balance %d", balance)
	}
}
