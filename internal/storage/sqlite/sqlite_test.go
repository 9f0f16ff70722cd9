package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tandalabs/tanda/internal/models"
	"github.com/tandalabs/tanda/internal/token"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCircleRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := models.NewCircle("", "admin-addr", 100, "USDt", 0)
	if err := c.Join("alice", 10); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := c.Join("bob", 11); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if err := store.CreateCircle(ctx, c); err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected circle ID to be generated")
	}
	if c.CreatedAt == 0 {
		t.Error("expected CreatedAt to be set")
	}

	got, err := store.GetCircle(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCircle failed: %v", err)
	}
	if got.Admin != "admin-addr" || got.Contribution != 100 || got.Asset != "USDt" {
		t.Errorf("unexpected circle fields: %+v", got)
	}
	if got.Status != models.StatusOpen {
		t.Errorf("expected open, got %s", got.Status)
	}
	if len(got.Members) != 2 || got.Members[0].Address != "alice" || got.Members[1].Address != "bob" {
		t.Errorf("members not restored in join order: %+v", got.Members)
	}
}

func TestGetCircleNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCircle(context.Background(), "missing")
	if !errors.Is(err, models.ErrCircleNotFound) {
		t.Errorf("expected ErrCircleNotFound, got %v", err)
	}

	err = store.UpdateCircle(context.Background(), "missing", func(*models.Circle, token.Token) error {
		t.Fatal("update fn must not run for a missing circle")
		return nil
	})
	if !errors.Is(err, models.ErrCircleNotFound) {
		t.Errorf("expected ErrCircleNotFound, got %v", err)
	}
}

func TestUpdateCirclePersistsTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := models.NewCircle("", "admin-addr", 100, "USDt", 0)
	c.Join("alice", 10)
	c.Join("bob", 11)
	if err := store.CreateCircle(ctx, c); err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}

	err := store.UpdateCircle(ctx, c.ID, func(c *models.Circle, _ token.Token) error {
		return c.Start("admin-addr", 20)
	})
	if err != nil {
		t.Fatalf("UpdateCircle failed: %v", err)
	}

	err = store.UpdateCircle(ctx, c.ID, func(c *models.Circle, _ token.Token) error {
		return c.RecordContribution("alice", 100)
	})
	if err != nil {
		t.Fatalf("UpdateCircle failed: %v", err)
	}

	got, err := store.GetCircle(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCircle failed: %v", err)
	}
	if got.Status != models.StatusActive || got.CurrentCycle != 1 {
		t.Errorf("start not persisted: status %s cycle %d", got.Status, got.CurrentCycle)
	}
	if got.Contributions["alice"] != 100 {
		t.Errorf("contribution not persisted: %+v", got.Contributions)
	}
	if got.ContributedThisCycle("bob") {
		t.Error("bob should not be marked as contributed")
	}
}

func TestUpdateCircleRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := models.NewCircle("", "admin-addr", 100, "USDt", 0)
	c.Join("alice", 10)
	c.Join("bob", 11)
	if err := store.CreateCircle(ctx, c); err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}
	if err := store.Tokens().Mint(ctx, "USDt", "alice", 500); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	boom := errors.New("boom")
	err := store.UpdateCircle(ctx, c.ID, func(c *models.Circle, tok token.Token) error {
		// Mutate state and move funds, then fail: nothing may persist.
		if err := c.Start("admin-addr", 20); err != nil {
			return err
		}
		if err := tok.Transfer(ctx, "USDt", "alice", "bob", 500); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := store.GetCircle(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCircle failed: %v", err)
	}
	if got.Status != models.StatusOpen {
		t.Errorf("rolled-back start leaked: status %s", got.Status)
	}
	balance, err := store.Tokens().BalanceOf(ctx, "USDt", "alice")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 500 {
		t.Errorf("rolled-back transfer leaked: balance %d", balance)
	}
}

func TestContributionHistorySurvivesCycleAdvance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := models.NewCircle("", "admin-addr", 100, "USDt", 0)
	c.Join("alice", 10)
	c.Join("bob", 11)
	c.Start("admin-addr", 20)
	if err := store.CreateCircle(ctx, c); err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}

	escrow := models.EscrowAddress(c.ID)
	for _, addr := range []string{"alice", "bob"} {
		if err := store.Tokens().Mint(ctx, "USDt", addr, 100); err != nil {
			t.Fatalf("Mint failed: %v", err)
		}
		if err := store.Tokens().Approve(ctx, "USDt", addr, escrow, 100); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
	}

	for _, addr := range []string{"alice", "bob"} {
		err := store.UpdateCircle(ctx, c.ID, func(c *models.Circle, tok token.Token) error {
			if err := c.RecordContribution(addr, 100); err != nil {
				return err
			}
			return tok.TransferFrom(ctx, "USDt", addr, escrow, escrow, 100)
		})
		if err != nil {
			t.Fatalf("deposit update failed: %v", err)
		}
	}
	err := store.UpdateCircle(ctx, c.ID, func(c *models.Circle, tok token.Token) error {
		recipient, amount, err := c.Payout()
		if err != nil {
			return err
		}
		return tok.Transfer(ctx, "USDt", escrow, recipient, amount)
	})
	if err != nil {
		t.Fatalf("payout update failed: %v", err)
	}

	got, err := store.GetCircle(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCircle failed: %v", err)
	}
	if got.CurrentCycle != 2 {
		t.Fatalf("expected cycle 2, got %d", got.CurrentCycle)
	}
	// New cycle starts with an empty contribution set even though cycle 1
	// rows are retained as history.
	if len(got.Contributions) != 0 {
		t.Errorf("expected empty contributions for cycle 2, got %+v", got.Contributions)
	}
	var historyRows int
	err = store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contributions WHERE circle_id = ? AND cycle = 1", c.ID,
	).Scan(&historyRows)
	if err != nil {
		t.Fatalf("failed to count history rows: %v", err)
	}
	if historyRows != 2 {
		t.Errorf("expected 2 retained cycle-1 rows, got %d", historyRows)
	}
}

func TestCompletedCircleRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := models.NewCircle("", "admin-addr", 100, "USDt", 0)
	c.Join("alice", 10)
	c.Join("bob", 11)
	c.Start("admin-addr", 20)
	if err := store.CreateCircle(ctx, c); err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}

	escrow := models.EscrowAddress(c.ID)
	for _, addr := range []string{"alice", "bob"} {
		if err := store.Tokens().Mint(ctx, "USDt", addr, 200); err != nil {
			t.Fatalf("Mint failed: %v", err)
		}
		if err := store.Tokens().Approve(ctx, "USDt", addr, escrow, 200); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
	}

	// Run both cycles to completion.
	for cycle := 0; cycle < 2; cycle++ {
		for _, addr := range []string{"alice", "bob"} {
			err := store.UpdateCircle(ctx, c.ID, func(c *models.Circle, tok token.Token) error {
				if err := c.RecordContribution(addr, 100); err != nil {
					return err
				}
				return tok.TransferFrom(ctx, "USDt", addr, escrow, escrow, 100)
			})
			if err != nil {
				t.Fatalf("deposit update failed: %v", err)
			}
		}
		err := store.UpdateCircle(ctx, c.ID, func(c *models.Circle, tok token.Token) error {
			recipient, amount, err := c.Payout()
			if err != nil {
				return err
			}
			return tok.Transfer(ctx, "USDt", escrow, recipient, amount)
		})
		if err != nil {
			t.Fatalf("payout update failed: %v", err)
		}
	}

	got, err := store.GetCircle(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCircle failed: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	// The final payout cleared the contribution set; reloading must not
	// resurrect the last cycle's rows.
	if len(got.Contributions) != 0 {
		t.Errorf("reloaded completed circle shows contributions: %+v", got.Contributions)
	}
	for _, m := range got.Members {
		if got.ContributedThisCycle(m.Address) {
			t.Errorf("%s marked as contributed on a terminal circle", m.Address)
		}
	}
	if got.TotalDistributed != 400 {
		t.Errorf("expected total distributed 400, got %d", got.TotalDistributed)
	}
}

func TestAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := models.NewAccount("alice@example.com", "Alice", "hash")
	if err := store.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	t.Run("by email", func(t *testing.T) {
		got, err := store.GetAccountByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetAccountByEmail failed: %v", err)
		}
		if got == nil || got.ID != account.ID {
			t.Errorf("unexpected account: %+v", got)
		}
	})

	t.Run("by id", func(t *testing.T) {
		got, err := store.GetAccountByID(ctx, account.ID)
		if err != nil {
			t.Fatalf("GetAccountByID failed: %v", err)
		}
		if got == nil || got.Email != "alice@example.com" {
			t.Errorf("unexpected account: %+v", got)
		}
	})

	t.Run("missing account is nil, nil", func(t *testing.T) {
		got, err := store.GetAccountByEmail(ctx, "nobody@example.com")
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %+v, %v", got, err)
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := models.NewAccount("alice@example.com", "Other Alice", "hash2")
		if err := store.CreateAccount(ctx, dup); err == nil {
			t.Error("expected unique constraint violation")
		}
	})
}

func TestListCircles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, admin := range []string{"a", "b", "c"} {
		c := models.NewCircle("", admin, int64(100*(i+1)), "USDt", int64(1000+i))
		if err := store.CreateCircle(ctx, c); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}
	}

	circles, err := store.ListCircles(ctx)
	if err != nil {
		t.Fatalf("ListCircles failed: %v", err)
	}
	if len(circles) != 3 {
		t.Fatalf("expected 3 circles, got %d", len(circles))
	}
}
