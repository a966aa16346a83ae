package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"brand-workflow-service/internal/entity"
)

// PostgresArchive writes terminal records into a jobs table:
//
//	CREATE TABLE IF NOT EXISTS jobs (
//	    id           uuid PRIMARY KEY,
//	    status       text NOT NULL,
//	    error        text,
//	    record       jsonb NOT NULL,
//	    created_at   timestamptz NOT NULL,
//	    completed_at timestamptz
//	);
type PostgresArchive struct {
	pool *pgxpool.Pool
}

// NewPool connects and pings a pgx pool for the archive.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return pool, nil
}

func NewPostgresArchive(pool *pgxpool.Pool) *PostgresArchive {
	return &PostgresArchive{pool: pool}
}

func (a *PostgresArchive) Save(ctx context.Context, job entity.Job) error {
	data, err := encode(job)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO jobs (id, status, error, record, created_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    error = EXCLUDED.error,
    record = EXCLUDED.record,
    completed_at = EXCLUDED.completed_at;
`
	_, err = a.pool.Exec(ctx, q,
		job.ID,
		string(job.Status),
		job.Error,
		data,
		job.CreatedAt,
		job.CompletedAt,
	)
	return err
}

func (a *PostgresArchive) Load(ctx context.Context, id uuid.UUID) (entity.Job, error) {
	const q = `SELECT record FROM jobs WHERE id = $1;`

	var data []byte
	if err := a.pool.QueryRow(ctx, q, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Job{}, ErrNotArchived
		}
		return entity.Job{}, err
	}
	return decode(data)
}
