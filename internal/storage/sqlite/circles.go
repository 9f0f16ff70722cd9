package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tandalabs/tanda/internal/models"
	"github.com/tandalabs/tanda/internal/storage"
	"github.com/tandalabs/tanda/internal/token"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// CreateCircle persists a new circle to the database.
func (s *SQLiteStore) CreateCircle(ctx context.Context, c *models.Circle) error {
	// Generate ID if not set
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO circles (id, admin, contribution, asset, status, current_cycle, recipient_index, total_distributed, created_at, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Admin, c.Contribution, c.Asset, string(c.Status),
		c.CurrentCycle, c.RecipientIndex, c.TotalDistributed, c.CreatedAt, c.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert circle: %w", err)
	}

	for i, m := range c.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO circle_members (circle_id, position, address, joined_at) VALUES (?, ?, ?, ?)",
			c.ID, i, m.Address, m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCircle retrieves a circle by ID, including members and the current
// cycle's contributions.
func (s *SQLiteStore) GetCircle(ctx context.Context, circleID string) (*models.Circle, error) {
	return loadCircle(ctx, s.db, circleID)
}

// ListCircles retrieves all circles, newest first.
func (s *SQLiteStore) ListCircles(ctx context.Context) ([]*models.Circle, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM circles ORDER BY created_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list circles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan circle id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate circles: %w", err)
	}

	circles := make([]*models.Circle, 0, len(ids))
	for _, id := range ids {
		c, err := loadCircle(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		circles = append(circles, c)
	}
	return circles, nil
}

// UpdateCircle loads the circle inside a transaction, applies fn, and
// persists the result. Token moves made through the supplied ledger share
// the transaction, so an error from fn rolls back funds and state together.
func (s *SQLiteStore) UpdateCircle(ctx context.Context, circleID string, fn storage.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := loadCircle(ctx, tx, circleID)
	if err != nil {
		return err
	}

	if err := fn(c, token.NewLedger(tx)); err != nil {
		return err
	}

	if err := saveCircle(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// loadCircle reads a whole circle record: row, members in rotation order,
// and the current cycle's contributions.
func loadCircle(ctx context.Context, q querier, circleID string) (*models.Circle, error) {
	c := &models.Circle{Contributions: make(map[string]int64)}
	var status string

	err := q.QueryRowContext(ctx,
		`SELECT id, admin, contribution, asset, status, current_cycle, recipient_index, total_distributed, created_at, started_at
		 FROM circles WHERE id = ?`,
		circleID,
	).Scan(&c.ID, &c.Admin, &c.Contribution, &c.Asset, &status,
		&c.CurrentCycle, &c.RecipientIndex, &c.TotalDistributed, &c.CreatedAt, &c.StartedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrCircleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get circle: %w", err)
	}
	c.Status = models.Status(status)

	rows, err := q.QueryContext(ctx,
		"SELECT address, joined_at FROM circle_members WHERE circle_id = ? ORDER BY position",
		circleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.Address, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		c.Members = append(c.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	// Only an active circle has a cycle in progress. Terminal circles keep
	// their last cycle's rows as history, but the in-memory contribution
	// set must stay empty so it matches the state the final transition
	// left behind.
	if c.Status != models.StatusActive {
		return c, nil
	}

	contribRows, err := q.QueryContext(ctx,
		"SELECT address, amount FROM contributions WHERE circle_id = ? AND cycle = ?",
		circleID, c.CurrentCycle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contributions: %w", err)
	}
	defer contribRows.Close()

	for contribRows.Next() {
		var addr string
		var amount int64
		if err := contribRows.Scan(&addr, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		c.Contributions[addr] = amount
	}
	if err := contribRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}

	return c, nil
}

// saveCircle writes a whole circle record back. Members are replaced to
// handle pre-activation leaves; contribution rows are upserted for the
// current cycle only, so earlier cycles remain as history.
func saveCircle(ctx context.Context, q querier, c *models.Circle) error {
	_, err := q.ExecContext(ctx,
		`UPDATE circles SET admin = ?, contribution = ?, asset = ?, status = ?,
		 current_cycle = ?, recipient_index = ?, total_distributed = ?, started_at = ?
		 WHERE id = ?`,
		c.Admin, c.Contribution, c.Asset, string(c.Status),
		c.CurrentCycle, c.RecipientIndex, c.TotalDistributed, c.StartedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update circle: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM circle_members WHERE circle_id = ?", c.ID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	for i, m := range c.Members {
		_, err = q.ExecContext(ctx,
			"INSERT INTO circle_members (circle_id, position, address, joined_at) VALUES (?, ?, ?, ?)",
			c.ID, i, m.Address, m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	now := time.Now().Unix()
	for addr, amount := range c.Contributions {
		_, err = q.ExecContext(ctx,
			`INSERT INTO contributions (circle_id, cycle, address, amount, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(circle_id, cycle, address) DO UPDATE SET amount = excluded.amount`,
			c.ID, c.CurrentCycle, addr, amount, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contribution: %w", err)
		}
	}

	return nil
}
