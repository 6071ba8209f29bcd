package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/storage"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the candidates table if needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS candidates (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	status TEXT NOT NULL,
	approved BOOLEAN NOT NULL DEFAULT FALSE,
	uploaded_at TIMESTAMPTZ NOT NULL,
	record JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_score ON candidates(score DESC);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Store keeps candidates in PostgreSQL, the full record in a JSONB column.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Write(ctx context.Context, key string, c candidate.Candidate) error {
	c.ID = key
	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO candidates (id, name, email, score, status, approved, uploaded_at, record)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			score = EXCLUDED.score,
			status = EXCLUDED.status,
			approved = EXCLUDED.approved,
			uploaded_at = EXCLUDED.uploaded_at,
			record = EXCLUDED.record
	`, key, c.Name, c.Email, c.Score, c.Status, c.Approved, c.UploadedAt, record)
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (candidate.Candidate, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM candidates WHERE id=$1`, id).Scan(&record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return candidate.Candidate{}, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
		}
		return candidate.Candidate{}, fmt.Errorf("select candidate: %w", err)
	}
	return decode(record)
}

// List returns candidates by score descending, oldest first within a score.
func (s *Store) List(ctx context.Context) ([]candidate.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM candidates ORDER BY score DESC, uploaded_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []candidate.Candidate
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c, err := decode(record)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// SetApproved updates only the approval flag, in the column and in the record.
func (s *Store) SetApproved(ctx context.Context, id string, approved bool) (candidate.Candidate, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, `
		UPDATE candidates
		SET approved = $2, record = jsonb_set(record, '{approved}', to_jsonb($2::boolean))
		WHERE id = $1
		RETURNING record
	`, id, approved).Scan(&record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return candidate.Candidate{}, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
		}
		return candidate.Candidate{}, fmt.Errorf("update approval: %w", err)
	}
	return decode(record)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func decode(record []byte) (candidate.Candidate, error) {
	var c candidate.Candidate
	if err := json.Unmarshal(record, &c); err != nil {
		return candidate.Candidate{}, fmt.Errorf("decode candidate: %w", err)
	}
	return c, nil
}
