package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tandalabs/tanda/internal/models"
	"github.com/tandalabs/tanda/internal/observability"
	"github.com/tandalabs/tanda/internal/storage"
	"github.com/tandalabs/tanda/internal/token"
)

// CircleService orchestrates circle lifecycle operations. Every mutating
// method takes the authenticated caller address; role rules live on the
// Circle itself, and all multi-step mutations (state + token moves) run
// inside a single storage transaction.
type CircleService struct {
	store        storage.Store
	faucetAmount int64
}

// NewCircleService creates a new CircleService with the given storage
// backend. faucetAmount is what a single faucet request mints.
func NewCircleService(store storage.Store, faucetAmount int64) *CircleService {
	return &CircleService{store: store, faucetAmount: faucetAmount}
}

// fail records a rejected operation and passes the error through.
func fail(op string, err error) error {
	observability.Circles().RecordError(op, models.ErrorKind(err))
	return err
}

// CreateCircle registers a new open circle owned by the caller.
func (s *CircleService) CreateCircle(ctx context.Context, caller string, contribution int64, asset string) (*models.Circle, error) {
	slog.Info("CreateCircle request", "caller", caller, "contribution", contribution, "asset", asset)

	if caller == "" {
		return nil, fail("create", models.ErrUnauthorized)
	}
	if contribution <= 0 || contribution > models.MaxContribution || asset == "" {
		return nil, fail("create", models.ErrInvalidAmount)
	}

	c := models.NewCircle(uuid.New().String(), caller, contribution, asset, time.Now().Unix())
	if err := s.store.CreateCircle(ctx, c); err != nil {
		slog.Error("CreateCircle failed", "error", err)
		return nil, fail("create", err)
	}

	observability.Circles().RecordCreated(asset)
	slog.Info("Circle created", "circle_id", c.ID, "admin", caller)
	return c, nil
}

// JoinCircle appends the caller to an open circle's rotation.
func (s *CircleService) JoinCircle(ctx context.Context, caller, circleID string) (*models.Circle, error) {
	slog.Info("JoinCircle request", "circle_id", circleID, "caller", caller)

	if caller == "" {
		return nil, fail("join", models.ErrUnauthorized)
	}

	c, err := s.update(ctx, circleID, func(c *models.Circle, _ token.Token) error {
		return c.Join(caller, time.Now().Unix())
	})
	if err != nil {
		slog.Warn("JoinCircle rejected", "circle_id", circleID, "caller", caller, "error", err)
		return nil, fail("join", err)
	}

	observability.Circles().RecordJoin()
	slog.Info("Member joined", "circle_id", circleID, "caller", caller, "members", len(c.Members))
	return c, nil
}

// LeaveCircle removes the caller from a circle that has not started yet.
// Membership is frozen at activation, so there is no leaving afterwards.
func (s *CircleService) LeaveCircle(ctx context.Context, caller, circleID string) (*models.Circle, error) {
	slog.Info("LeaveCircle request", "circle_id", circleID, "caller", caller)

	if caller == "" {
		return nil, fail("leave", models.ErrUnauthorized)
	}

	c, err := s.update(ctx, circleID, func(c *models.Circle, _ token.Token) error {
		return c.Leave(caller)
	})
	if err != nil {
		slog.Warn("LeaveCircle rejected", "circle_id", circleID, "caller", caller, "error", err)
		return nil, fail("leave", err)
	}

	slog.Info("Member left", "circle_id", circleID, "caller", caller, "members", len(c.Members))
	return c, nil
}

// StartCircle activates the circle. Admin only; needs at least two members.
func (s *CircleService) StartCircle(ctx context.Context, caller, circleID string) (*models.Circle, error) {
	slog.Info("StartCircle request", "circle_id", circleID, "caller", caller)

	c, err := s.update(ctx, circleID, func(c *models.Circle, _ token.Token) error {
		return c.Start(caller, time.Now().Unix())
	})
	if err != nil {
		slog.Warn("StartCircle rejected", "circle_id", circleID, "caller", caller, "error", err)
		return nil, fail("start", err)
	}

	slog.Info("Circle started", "circle_id", circleID, "members", len(c.Members), "cycle", c.CurrentCycle)
	return c, nil
}

// Deposit pulls the caller's contribution for the current cycle into the
// circle's escrow. The transfer and the ledger update commit together or
// not at all.
func (s *CircleService) Deposit(ctx context.Context, caller, circleID string, amount int64) (*models.Circle, error) {
	slog.Info("Deposit request", "circle_id", circleID, "caller", caller, "amount", amount)

	c, err := s.update(ctx, circleID, func(c *models.Circle, tok token.Token) error {
		if err := c.RecordContribution(caller, amount); err != nil {
			return err
		}
		escrow := models.EscrowAddress(c.ID)
		return tok.TransferFrom(ctx, c.Asset, caller, escrow, escrow, amount)
	})
	if err != nil {
		slog.Warn("Deposit rejected", "circle_id", circleID, "caller", caller, "error", err)
		return nil, fail("deposit", err)
	}

	observability.Circles().RecordDeposit(c.Asset)
	slog.Info("Contribution recorded",
		"circle_id", circleID,
		"caller", caller,
		"cycle", c.CurrentCycle,
		"collected", len(c.Contributions),
		"members", len(c.Members),
	)
	return c, nil
}

// TriggerPayout releases the pot to the member whose turn it is. Any
// authenticated caller may trigger it once every member has contributed;
// that permissiveness is what keeps the rotation trustless. The escrow
// transfer and the cycle advance commit together or not at all.
func (s *CircleService) TriggerPayout(ctx context.Context, caller, circleID string) (*models.Circle, error) {
	slog.Info("TriggerPayout request", "circle_id", circleID, "caller", caller)

	if caller == "" {
		return nil, fail("payout", models.ErrUnauthorized)
	}

	var recipient string
	var amount int64
	c, err := s.update(ctx, circleID, func(c *models.Circle, tok token.Token) error {
		var err error
		recipient, amount, err = c.Payout()
		if err != nil {
			return err
		}
		return tok.Transfer(ctx, c.Asset, models.EscrowAddress(c.ID), recipient, amount)
	})
	if err != nil {
		slog.Warn("TriggerPayout rejected", "circle_id", circleID, "caller", caller, "error", err)
		return nil, fail("payout", err)
	}

	observability.Circles().RecordPayout(c.Asset, amount)
	slog.Info("Payout released",
		"circle_id", circleID,
		"recipient", recipient,
		"amount", amount,
		"status", c.Status,
		"cycle", c.CurrentCycle,
	)
	return c, nil
}

// CancelCircle moves the circle to its cancelled terminal state. Admin only.
// Anything collected for the current cycle is refunded from escrow to the
// contributors in the same transaction.
func (s *CircleService) CancelCircle(ctx context.Context, caller, circleID string) (*models.Circle, error) {
	slog.Info("CancelCircle request", "circle_id", circleID, "caller", caller)

	c, err := s.update(ctx, circleID, func(c *models.Circle, tok token.Token) error {
		if err := c.Cancel(caller); err != nil {
			return err
		}
		escrow := models.EscrowAddress(c.ID)
		for _, m := range c.Members {
			amount, ok := c.Contributions[m.Address]
			if !ok {
				continue
			}
			if err := tok.Transfer(ctx, c.Asset, escrow, m.Address, amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("CancelCircle rejected", "circle_id", circleID, "caller", caller, "error", err)
		return nil, fail("cancel", err)
	}

	observability.Circles().RecordCancellation()
	slog.Info("Circle cancelled", "circle_id", circleID, "refunds", len(c.Contributions))
	return c, nil
}

// GetCircle retrieves a circle by ID.
func (s *CircleService) GetCircle(ctx context.Context, circleID string) (*models.Circle, error) {
	c, err := s.store.GetCircle(ctx, circleID)
	if err != nil {
		return nil, fail("get", err)
	}
	return c, nil
}

// ListCircles retrieves all circles.
func (s *CircleService) ListCircles(ctx context.Context) ([]*models.Circle, error) {
	return s.store.ListCircles(ctx)
}

// Approve sets the caller's allowance toward a circle's escrow spender.
// Members call this before depositing; the circle pulls exactly the fixed
// contribution per cycle.
func (s *CircleService) Approve(ctx context.Context, caller, circleID string, amount int64) error {
	c, err := s.store.GetCircle(ctx, circleID)
	if err != nil {
		return fail("approve", err)
	}
	if err := s.store.Tokens().Approve(ctx, c.Asset, caller, models.EscrowAddress(c.ID), amount); err != nil {
		return fail("approve", err)
	}
	slog.Info("Allowance set", "circle_id", circleID, "owner", caller, "amount", amount)
	return nil
}

// Faucet mints the configured demo amount of asset to the caller.
func (s *CircleService) Faucet(ctx context.Context, caller, asset string) (int64, error) {
	if asset == "" {
		return 0, fail("faucet", models.ErrInvalidAmount)
	}
	if err := s.store.Tokens().Mint(ctx, asset, caller, s.faucetAmount); err != nil {
		return 0, fail("faucet", err)
	}
	slog.Info("Faucet mint", "address", caller, "asset", asset, "amount", s.faucetAmount)
	return s.faucetAmount, nil
}

// Balance returns the caller's ledger balance for asset.
func (s *CircleService) Balance(ctx context.Context, caller, asset string) (int64, error) {
	return s.store.Tokens().BalanceOf(ctx, asset, caller)
}

// update runs fn inside one storage transaction and returns the circle as
// persisted.
func (s *CircleService) update(ctx context.Context, circleID string, fn storage.UpdateFunc) (*models.Circle, error) {
	var out *models.Circle
	err := s.store.UpdateCircle(ctx, circleID, func(c *models.Circle, tok token.Token) error {
		if err := fn(c, tok); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
