package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores documents as JSONB rows in a single table.
type PostgresBackend struct {
	Pool *pgxpool.Pool
}

// ConnectPostgres opens a pool to databaseURL and verifies connectivity.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return &PostgresBackend{Pool: pool}, nil
}

// Migrate creates the documents table if it does not exist.
func (p *PostgresBackend) Migrate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stratus_documents (
			kind       TEXT NOT NULL,
			id         TEXT NOT NULL,
			body       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (kind, id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, kind Kind, id string) ([]byte, error) {
	var body []byte
	err := p.Pool.QueryRow(ctx,
		`SELECT body FROM stratus_documents WHERE kind = $1 AND id = $2`,
		string(kind), id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (p *PostgresBackend) Put(ctx context.Context, kind Kind, id string, doc []byte) error {
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO stratus_documents (kind, id, body, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (kind, id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		string(kind), id, doc,
	)
	return err
}

func (p *PostgresBackend) Delete(ctx context.Context, kind Kind, id string) error {
	tag, err := p.Pool.Exec(ctx,
		`DELETE FROM stratus_documents WHERE kind = $1 AND id = $2`,
		string(kind), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresBackend) List(ctx context.Context, kind Kind) ([][]byte, error) {
	rows, err := p.Pool.Query(ctx,
		`SELECT body FROM stratus_documents WHERE kind = $1`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		docs = append(docs, body)
	}
	return docs, rows.Err()
}

func (p *PostgresBackend) Close() error {
	p.Pool.Close()
	return nil
}
