package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  variant TEXT NOT NULL,
  run_id TEXT NOT NULL DEFAULT '',
  taken_at TIMESTAMPTZ NOT NULL,
  followers BIGINT,
  doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_username_taken ON snapshots(username, taken_at);
`

// PostgresStore keeps snapshots in a Postgres table, one JSONB document per
// row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save inserts s, replacing any row with the same id.
func (p *PostgresStore) Save(ctx context.Context, s *Snapshot) error {
	if s.Username == "" {
		return fmt.Errorf("snapshot has no username")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now().UTC()
	}

	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
INSERT INTO snapshots (id, username, variant, run_id, taken_at, followers, doc)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  variant=EXCLUDED.variant, run_id=EXCLUDED.run_id,
  taken_at=EXCLUDED.taken_at, followers=EXCLUDED.followers, doc=EXCLUDED.doc`,
		s.ID, strings.ToLower(s.Username), s.Variant, s.RunID, s.TakenAt, s.Followers, doc)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// List returns the newest limit snapshots of username, oldest first.
func (p *PostgresStore) List(ctx context.Context, username string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := p.pool.Query(ctx, `
SELECT doc FROM (
  SELECT doc, taken_at FROM snapshots
  WHERE username=$1
  ORDER BY taken_at DESC
  LIMIT $2
) recent
ORDER BY taken_at ASC`, strings.ToLower(username), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var s Snapshot
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
