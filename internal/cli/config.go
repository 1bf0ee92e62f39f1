package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// Backends understood by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds the settingsctl configuration. Values come from flags, the
// environment (SETTINGS_ prefix, dots become underscores) and an optional
// config file, in that order of precedence.
type Config struct {
	Backend  string         `mapstructure:"backend"`
	Site     string         `mapstructure:"site"`
	Table    string         `mapstructure:"table"`
	Schema   string         `mapstructure:"schema"`
	Locale   string         `mapstructure:"locale"`
	Actor    string         `mapstructure:"actor"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Log      LogConfig      `mapstructure:"log"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("site", "default")
	v.SetDefault("sqlite.path", "settings.db")
	v.SetDefault("postgres.channel", "site_settings_changed")
	v.SetDefault("log.level", "warn")

	v.SetEnvPrefix("SETTINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvs(v, Config{})
	return v
}

// LoadConfig reads file, when given, and resolves the configuration held by v.
func LoadConfig(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("settingsctl: read config %s: %w", file, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("settingsctl: decode config: %w", err)
	}
	switch cfg.Backend {
	case BackendSQLite, BackendPostgres:
	default:
		return nil, fmt.Errorf("settingsctl: unknown backend %q", cfg.Backend)
	}
	if cfg.Backend == BackendPostgres && cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("settingsctl: postgres.url is required for the postgres backend")
	}
	return cfg, nil
}

// bindEnvs registers every key of cfg so Unmarshal sees environment values
// that have no default.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		key := append(append([]string(nil), parts...), tag)
		if field.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
