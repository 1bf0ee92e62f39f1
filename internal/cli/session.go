package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5/pgxpool"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/state"
	"github.com/goliatone/go-settings/pkg/state/pgstore"
	"github.com/goliatone/go-settings/pkg/state/sqlstore"
	"github.com/goliatone/go-settings/schema"
)

// Session is an engine wired to the configured backend.
type Session struct {
	Engine   *settings.Engine
	Provider *state.DurableProvider

	cfg     *Config
	logger  *slog.Logger
	db      *sql.DB
	sqlite  *sqlstore.Store
	pool    *pgxpool.Pool
	closers []func() error
}

// Open connects to the backend, builds the engine, applies the schema file
// and loads persisted overrides. A backend without the settings table still
// opens; reads return defaults until Migrate runs.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Session, error) {
	s := &Session{cfg: cfg, logger: logger}
	store, notifier, err := s.openStore(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	engineLogger := settings.SlogLogger(logger.With(slog.String("site", cfg.Site)))
	opts := []settings.Option{
		settings.WithLogger(engineLogger),
		settings.WithEvaluatorLogger(engineLogger),
		settings.WithActivityChannel("cli"),
		settings.WithActivityHooks(activity.Hooks{activityLogHook(logger)}),
	}
	if cfg.Locale != "" {
		opts = append(opts, settings.WithGlobalLocale(cfg.Locale))
	}

	providerOpts := []state.DurableOption{
		state.WithSite(cfg.Site),
		state.WithLogger(engineLogger),
	}
	if notifier != nil {
		providerOpts = append(providerOpts, state.WithNotifier(notifier))
	}
	s.Provider = state.NewDurableProvider(store, providerOpts...)

	s.Engine, err = settings.New(s.Provider, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	if cfg.Schema != "" {
		doc, err := schema.LoadFile(cfg.Schema)
		if err == nil {
			err = doc.Apply(s.Engine)
		}
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	if err := s.Engine.Refresh(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) openStore(ctx context.Context) (state.RowStore, state.Notifier, error) {
	switch s.cfg.Backend {
	case BackendPostgres:
		pool, err := pgstore.NewConnectionPool(ctx, s.cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		s.pool = pool
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		var opts []pgstore.Option
		if s.cfg.Table != "" {
			opts = append(opts, pgstore.WithTable(s.cfg.Table))
		}
		store, err := pgstore.New(pool, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, pgstore.NewNotifier(pool, s.cfg.Postgres.Channel), nil
	default:
		db, err := sqlstore.Open(s.cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		s.db = db
		s.closers = append(s.closers, db.Close)
		var opts []sqlstore.Option
		if s.cfg.Table != "" {
			opts = append(opts, sqlstore.WithTable(s.cfg.Table))
		}
		store, err := sqlstore.New(db, opts...)
		if err != nil {
			return nil, nil, err
		}
		s.sqlite = store
		return store, nil, nil
	}
}

// Migrate brings the backend schema up to date and reloads overrides.
func (s *Session) Migrate(ctx context.Context) error {
	switch {
	case s.pool != nil:
		if err := pgstore.RunMigrationsUp(ctx, s.pool); err != nil {
			return err
		}
	case s.db != nil:
		if err := sqlstore.Migrate(ctx, s.db); err != nil {
			return err
		}
		if s.sqlite.Table() != sqlstore.DefaultTable {
			if err := s.sqlite.EnsureTable(ctx); err != nil {
				return err
			}
		}
	}
	s.logger.Info("settings migrations applied", slog.String("backend", s.cfg.Backend))
	return s.Engine.Refresh(ctx)
}

// MigrationVersion reports the applied migration version of the backend.
func (s *Session) MigrationVersion(ctx context.Context) (string, error) {
	if s.pool != nil {
		version, dirty, err := pgstore.MigrationVersion(ctx, s.pool)
		if err != nil {
			return "", err
		}
		if dirty {
			return fmt.Sprintf("%d (dirty)", version), nil
		}
		return fmt.Sprint(version), nil
	}
	version, err := sqlstore.MigrationVersion(ctx, s.db)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(version), nil
}

// Listen streams change notifications from the postgres backend until ctx
// is done, refreshing the engine before each callback.
func (s *Session) Listen(ctx context.Context, fn func(state.Ref)) error {
	if s.pool == nil {
		return fmt.Errorf("settingsctl: listen requires the %s backend", BackendPostgres)
	}
	listener := pgstore.NewListener(s.pool, s.cfg.Postgres.Channel, func(err error) {
		s.logger.Warn("settings notification", slog.Any("error", err))
	})
	return listener.Listen(ctx, func(ctx context.Context, ref state.Ref) {
		if ref.Site != s.cfg.Site {
			return
		}
		if err := s.Engine.Refresh(ctx); err != nil {
			s.logger.Warn("settings refresh", slog.Any("error", err))
		}
		fn(ref)
	})
}

// Close releases the backend connections.
func (s *Session) Close() error {
	var result *multierror.Error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result.ErrorOrNil()
}

func activityLogHook(logger *slog.Logger) activity.ActivityHook {
	return activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		logger.InfoContext(ctx, "setting activity",
			slog.String("verb", event.Verb),
			slog.String("object", event.ObjectType+":"+event.ObjectID),
			slog.String("actor", event.ActorID),
			slog.String("channel", event.Channel),
		)
		return nil
	})
}
