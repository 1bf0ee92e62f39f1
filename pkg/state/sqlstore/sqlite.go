package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open opens a SQLite database at path with WAL journaling and a single
// connection. The parent directory is created when missing.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlstore: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open database: %w", err)
	}

	// SQLite serializes writers; keep every statement on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping database: %w", err)
	}
	return db, nil
}

func migrationProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, db, fsys)
}

// Migrate applies the embedded migrations, creating the site_settings table.
func Migrate(ctx context.Context, db *sql.DB) error {
	provider, err := migrationProvider(db)
	if err != nil {
		return fmt.Errorf("sqlstore: migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate up: %w", err)
	}
	return nil
}

// MigrationVersion reports the latest applied migration version.
func MigrationVersion(ctx context.Context, db *sql.DB) (int64, error) {
	provider, err := migrationProvider(db)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: migrations: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
