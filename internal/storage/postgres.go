package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const snapshotTableDDL = `CREATE TABLE IF NOT EXISTS snapshots (
	namespace  TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresBackend struct {
	db        *sqlx.DB
	namespace string
}

// NewPostgresBackend connects with a few retries, since the database often
// starts alongside the service.
func NewPostgresBackend(ctx context.Context, databaseURL, namespace string) (*PostgresBackend, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres url is required")
	}

	const maxRetries = 5
	const retryInterval = 2 * time.Second

	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sqlx.ConnectContext(ctx, "postgres", databaseURL)
		if err == nil {
			break
		}
		slog.Warn("Failed to connect to postgres, retrying", "attempt", attempt, "in", retryInterval, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres after %d attempts: %w", maxRetries, err)
	}

	if _, err := db.ExecContext(ctx, snapshotTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &PostgresBackend{db: db, namespace: namespace}, nil
}

func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := b.db.GetContext(ctx, &payload, `SELECT payload FROM snapshots WHERE namespace = $1`, b.namespace)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return payload, nil
}

func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO snapshots (namespace, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (namespace) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		b.namespace, data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
