// Package config loads server settings from an optional file, the
// environment and command-line overrides, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. INVENTAR_DATABASE_DSN.
const EnvPrefix = "INVENTAR"

// Config holds every server setting, keyed like the dotted names in defaults.
type Config struct {
	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Database struct {
		Driver string
		DSN    string
	} `mapstructure:"database"`

	Auth struct {
		JWTSecret         string        `mapstructure:"jwt_secret"`
		TokenTTL          time.Duration `mapstructure:"token_ttl"`
		AllowRegistration bool          `mapstructure:"allow_registration"`
		InitialUser       string        `mapstructure:"initial_user"`
	} `mapstructure:"auth"`

	Tenancy struct {
		Mode string
	} `mapstructure:"tenancy"`

	Storage struct {
		Backend string
		Dir     string
		S3      struct {
			Endpoint  string
			Region    string
			Bucket    string
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
			PathStyle bool   `mapstructure:"path_style"`
		} `mapstructure:"s3"`
	} `mapstructure:"storage"`

	Log struct {
		Path       string
		Level      string
		MaxSizeMB  int `mapstructure:"max_size_mb"`
		MaxBackups int `mapstructure:"max_backups"`
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

var defaults = map[string]any{
	"http.addr":               ":8080",
	"database.driver":         "sqlite",
	"database.dsn":            "inventar.sqlite3",
	"auth.jwt_secret":         "",
	"auth.token_ttl":          24 * time.Hour,
	"auth.allow_registration": true,
	"auth.initial_user":       "Admin",
	"tenancy.mode":            model.TenancyMulti,
	"storage.backend":         "local",
	"storage.dir":             "images",
	"storage.s3.endpoint":     "",
	"storage.s3.region":       "",
	"storage.s3.bucket":       "",
	"storage.s3.access_key":   "",
	"storage.s3.secret_key":   "",
	"storage.s3.path_style":   false,
	"log.path":                "",
	"log.level":               "info",
	"log.max_size_mb":         100,
	"log.max_backups":         3,
	"metrics.enabled":         true,
}

// Load reads path (skipped when empty), then INVENTAR_* environment
// variables, then overrides, keyed by dotted setting names.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if _, err := db.DriverName(c.Database.Driver); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.Tenancy.Mode {
	case model.TenancyMulti, model.TenancySingle:
	default:
		return fmt.Errorf("tenancy.mode must be %q or %q, got %q", model.TenancyMulti, model.TenancySingle, c.Tenancy.Mode)
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the local backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be local or s3, got %q", c.Storage.Backend)
	}

	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}
