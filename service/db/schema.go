package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the full DDL for the service. Statements are idempotent so
// Migrate can run at startup and in test setup.
const schema = `
CREATE TABLE IF NOT EXISTS pending_transactions (
    id               BIGSERIAL PRIMARY KEY,
    tx_type          TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'PENDING',
    initiator        TEXT NOT NULL,
    target           TEXT NOT NULL,
    amount           NUMERIC(78,0) NOT NULL DEFAULT 0,
    data             TEXT NOT NULL DEFAULT '',
    rejection_reason TEXT NOT NULL DEFAULT '',
    approver         TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    execute_after    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_transactions_pending
    ON pending_transactions (id) WHERE status = 'PENDING';

CREATE INDEX IF NOT EXISTS idx_pending_transactions_due
    ON pending_transactions (execute_after) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS redemption_requests (
    id            BIGSERIAL PRIMARY KEY,
    user_address  TEXT NOT NULL,
    amount        NUMERIC(78,0) NOT NULL,
    processed     BOOLEAN NOT NULL DEFAULT FALSE,
    approved      BOOLEAN NOT NULL DEFAULT FALSE,
    burn_tx_id    BIGINT REFERENCES pending_transactions(id),
    processed_by  TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    processed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS address_roles (
    address    TEXT NOT NULL,
    role       TEXT NOT NULL,
    granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (address, role)
);

CREATE TABLE IF NOT EXISTS queue_state (
    id         BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
    paused     BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

INSERT INTO queue_state (id, paused) VALUES (TRUE, FALSE)
    ON CONFLICT (id) DO NOTHING;
`

// Migrate applies the schema to the database. Safe to call repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
