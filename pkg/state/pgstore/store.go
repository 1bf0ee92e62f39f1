// Package pgstore implements state.RowStore over PostgreSQL with pgx, plus
// the pg_notify change channel used to tell other processes to refresh.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	settings "github.com/goliatone/go-settings"
)

// DefaultTable is the table created by RunMigrationsUp.
const DefaultTable = "site_settings"

// NewConnectionPool creates a pgx v5 pool from a PostgreSQL connection
// string.
func NewConnectionPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse config: %w", err)
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Option configures a Store.
type Option func(*Store)

// WithTable stores rows in table instead of DefaultTable.
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// Store is a state.RowStore over one PostgreSQL table.
type Store struct {
	pool  *pgxpool.Pool
	table string
	ident string
}

// New returns a store over pool.
func New(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pgstore: pool is required")
	}
	s := &Store{pool: pool, table: DefaultTable}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.ident = pgx.Identifier{s.table}.Sanitize()
	return s, nil
}

func (s *Store) TableExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, s.table).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgstore: probe table %s: %w", s.table, err)
	}
	return exists, nil
}

func (s *Store) All(ctx context.Context) ([]settings.Row, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, value, data_type FROM `+s.ident+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query %s: %w", s.table, err)
	}
	out, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan %s: %w", s.table, err)
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, name string) (settings.Row, bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, value, data_type FROM `+s.ident+` WHERE name = $1`, name)
	if err != nil {
		return settings.Row{}, false, fmt.Errorf("pgstore: find %q: %w", name, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, scanRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return settings.Row{}, false, nil
	}
	if err != nil {
		return settings.Row{}, false, fmt.Errorf("pgstore: find %q: %w", name, err)
	}
	return row, true, nil
}

func (s *Store) Upsert(ctx context.Context, row settings.Row) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO `+s.ident+` (name, data_type, value)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET
    data_type  = EXCLUDED.data_type,
    value      = EXCLUDED.value,
    updated_at = now()`, row.Name, int(row.DataType), row.Value)
	if err != nil {
		return fmt.Errorf("pgstore: upsert %q: %w", row.Name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM `+s.ident+` WHERE name = $1`, name); err != nil {
		return fmt.Errorf("pgstore: delete %q: %w", name, err)
	}
	return nil
}

func scanRow(row pgx.CollectableRow) (settings.Row, error) {
	var (
		out      settings.Row
		dataType int32
	)
	if err := row.Scan(&out.Name, &out.Value, &dataType); err != nil {
		return settings.Row{}, err
	}
	out.DataType = settings.DataType(dataType)
	return out, nil
}
