// Package sqlstore implements state.RowStore over database/sql with SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	settings "github.com/goliatone/go-settings"
)

// DefaultTable is the table created by Migrate.
const DefaultTable = "site_settings"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Option configures a Store.
type Option func(*Store)

// WithTable stores rows in table instead of DefaultTable. One table serves
// one site.
func WithTable(table string) Option {
	return func(s *Store) {
		s.table = table
	}
}

// Store is a state.RowStore over one SQLite table.
type Store struct {
	db    *sql.DB
	table string
}

// New returns a store over db. The table is not created; see Migrate and
// EnsureTable.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: db is required")
	}
	s := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if !tableNamePattern.MatchString(s.table) {
		return nil, fmt.Errorf("sqlstore: invalid table name %q", s.table)
	}
	return s, nil
}

// Table returns the table the store reads and writes.
func (s *Store) Table() string { return s.table }

// EnsureTable creates the store table when it does not exist. Migrate only
// creates DefaultTable.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name       TEXT PRIMARY KEY,
    data_type  INTEGER NOT NULL,
    value      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, s.table))
	if err != nil {
		return fmt.Errorf("sqlstore: create table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) TableExists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlstore: probe table %s: %w", s.table, err)
	}
	return n > 0, nil
}

func (s *Store) All(ctx context.Context) ([]settings.Row, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT name, value, data_type FROM %s ORDER BY name`, s.table))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []settings.Row
	for rows.Next() {
		var row settings.Row
		if err := rows.Scan(&row.Name, &row.Value, &row.DataType); err != nil {
			return nil, fmt.Errorf("sqlstore: scan %s: %w", s.table, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) Find(ctx context.Context, name string) (settings.Row, bool, error) {
	var row settings.Row
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT name, value, data_type FROM %s WHERE name = ?`, s.table), name).
		Scan(&row.Name, &row.Value, &row.DataType)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Row{}, false, nil
	}
	if err != nil {
		return settings.Row{}, false, fmt.Errorf("sqlstore: find %q: %w", name, err)
	}
	return row, true, nil
}

func (s *Store) Upsert(ctx context.Context, row settings.Row) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (name, data_type, value)
VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
    data_type  = excluded.data_type,
    value      = excluded.value,
    updated_at = CURRENT_TIMESTAMP`, s.table), row.Name, int(row.DataType), row.Value)
	if err != nil {
		return fmt.Errorf("sqlstore: upsert %q: %w", row.Name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, s.table), name); err != nil {
		return fmt.Errorf("sqlstore: delete %q: %w", name, err)
	}
	return nil
}
