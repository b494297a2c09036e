package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresBackend implements Backend using the client_tokens table.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend creates a new PostgresBackend.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Get looks up the value stored under key.
func (b *PostgresBackend) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM client_tokens WHERE key = $1`

	var value string
	if err := b.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set upserts the value stored under key.
func (b *PostgresBackend) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO client_tokens (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := b.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	return err
}

// Delete removes the row for key.
func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM client_tokens WHERE key = $1`
	_, err := b.db.ExecContext(ctx, query, key)
	return err
}
