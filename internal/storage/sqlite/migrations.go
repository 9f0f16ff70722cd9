package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database tables.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS circles (
    id TEXT PRIMARY KEY,
    admin TEXT NOT NULL,
    contribution INTEGER NOT NULL,
    asset TEXT NOT NULL,
    status TEXT NOT NULL,
    current_cycle INTEGER NOT NULL DEFAULT 0,
    recipient_index INTEGER NOT NULL DEFAULT 0,
    total_distributed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    started_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS circle_members (
    circle_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    address TEXT NOT NULL,
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (circle_id, address),
    UNIQUE (circle_id, position),
    FOREIGN KEY (circle_id) REFERENCES circles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS contributions (
    circle_id TEXT NOT NULL,
    cycle INTEGER NOT NULL,
    address TEXT NOT NULL,
    amount INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (circle_id, cycle, address),
    FOREIGN KEY (circle_id) REFERENCES circles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS token_balances (
    asset TEXT NOT NULL,
    address TEXT NOT NULL,
    amount INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (asset, address)
);

CREATE TABLE IF NOT EXISTS token_allowances (
    asset TEXT NOT NULL,
    owner TEXT NOT NULL,
    spender TEXT NOT NULL,
    amount INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (asset, owner, spender)
);

CREATE INDEX IF NOT EXISTS idx_circle_members_circle_id ON circle_members(circle_id);
CREATE INDEX IF NOT EXISTS idx_contributions_circle_cycle ON contributions(circle_id, cycle);
CREATE INDEX IF NOT EXISTS idx_circles_status ON circles(status);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
