package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	settings "github.com/goliatone/go-settings"
)

type app struct {
	v          *viper.Viper
	configFile string
	cfg        *Config
	logger     *slog.Logger
	closeLog   func() error
	session    *Session
}

// NewRootCommand builds the settingsctl command tree. Log records go to the
// command's error writer.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{v: newViper()})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "settingsctl",
		Short:         "Inspect and change site settings",
		Long:          "Read, write and describe the settings of a site stored in SQLite or Postgres.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("backend", "", "storage backend: sqlite or postgres")
	flags.String("db", "", "sqlite database path")
	flags.String("postgres-url", "", "postgres connection url")
	flags.String("site", "", "site whose settings are addressed")
	flags.String("table", "", "settings table name")
	flags.String("schema", "", "YAML file declaring the settings")
	flags.String("locale", "", "force the site locale")
	flags.String("actor", "", "actor recorded on writes")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "also write JSON logs to this file")
	for key, flag := range map[string]string{
		"backend":      "backend",
		"sqlite.path":  "db",
		"postgres.url": "postgres-url",
		"site":         "site",
		"table":        "table",
		"schema":       "schema",
		"locale":       "locale",
		"actor":        "actor",
		"log.level":    "log-level",
		"log.file":     "log-file",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newGetCommand(a),
		newSetCommand(a),
		newResetCommand(a),
		newListCommand(a),
		newDescribeCommand(a),
		newTraceCommand(a),
		newLocaleCommand(a),
		newSchemaCommand(a),
		newMigrateCommand(a),
		newListenCommand(a),
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{v: newViper()}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if closeErr := a.teardown(); err == nil {
		err = closeErr
	}
	return err
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.v, a.configFile)
	if err != nil {
		return err
	}
	logger, closeLog, err := NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.closeLog = cfg, logger, closeLog
	return nil
}

func (a *app) teardown() error {
	var err error
	if a.session != nil {
		err = a.session.Close()
		a.session = nil
	}
	if a.closeLog != nil {
		if closeErr := a.closeLog(); err == nil {
			err = closeErr
		}
		a.closeLog = nil
	}
	return err
}

func (a *app) open(ctx context.Context) (*Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	s, err := Open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.session = s
	return s, nil
}

// writeContext carries the configured actor into engine writes.
func (a *app) writeContext(ctx context.Context) context.Context {
	if a.cfg.Actor == "" {
		return ctx
	}
	return settings.ContextWithActor(ctx, a.cfg.Actor)
}
