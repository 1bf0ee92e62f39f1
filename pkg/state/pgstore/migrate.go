package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationsTable records the applied migration version.
const MigrationsTable = "gomigrate_site_settings"

// RunMigrationsUp applies all up migrations using embedded migration files.
func RunMigrationsUp(ctx context.Context, pool *pgxpool.Pool) error {
	m, closeAll, err := newMigrator(pool)
	if err != nil {
		return err
	}
	defer closeAll()

	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("pgstore: current version: %w", err)
	}
	if dirty {
		return errors.New("pgstore: migration is dirty, please fix it before proceeding")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("pgstore: migrate up: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version; zero when none ran.
func MigrationVersion(ctx context.Context, pool *pgxpool.Pool) (uint, bool, error) {
	m, closeAll, err := newMigrator(pool)
	if err != nil {
		return 0, false, err
	}
	defer closeAll()
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrator(pool *pgxpool.Pool) (*migrate.Migrate, func(), error) {
	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("pgstore: iofs driver: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	dbDriver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("pgstore: pgx driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		_ = dbDriver.Close()
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("pgstore: migrate instance: %w", err)
	}
	return m, func() {
		_ = dbDriver.Close()
		_ = sqlDB.Close()
	}, nil
}
