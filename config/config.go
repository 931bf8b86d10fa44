// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config controls the cookieboard server.
type Config struct {
	Port        int      `env:"COOKIEBOARD_PORT"          envDefault:"8080"`
	Driver      string   `env:"COOKIEBOARD_DB_DRIVER"     envDefault:"sqlite"`
	SQLitePath  string   `env:"COOKIEBOARD_SQLITE_PATH"   envDefault:"./cookieboard.db"`
	PostgresDSN string   `env:"COOKIEBOARD_POSTGRES_DSN"`
	JWTSecret   string   `env:"COOKIEBOARD_JWT_SECRET"`
	CORSOrigins []string `env:"COOKIEBOARD_CORS_ORIGINS"  envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	TokenNameLength int `env:"COOKIEBOARD_TOKEN_NAME_LENGTH" envDefault:"7"`
	MaxNameAttempts int `env:"COOKIEBOARD_MAX_NAME_ATTEMPTS" envDefault:"16"`

	// ReconcileInterval of 0 turns the background like counter sweep off.
	ReconcileInterval time.Duration `env:"COOKIEBOARD_RECONCILE_INTERVAL" envDefault:"1h"`
}

// ParseEnv fills target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads dotenvPath when it exists, then parses the environment.
// Variables already set in the process win over the file. The result is not
// validated; apply command-line overrides first, then call Validate.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Overrides are command-line values. Zero fields leave the config alone.
type Overrides struct {
	Port       int
	Driver     string
	SQLitePath string
}

// Apply copies the set fields of o onto c.
func (c *Config) Apply(o Overrides) {
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.Driver != "" {
		c.Driver = o.Driver
	}
	if o.SQLitePath != "" {
		c.SQLitePath = o.SQLitePath
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite driver needs COOKIEBOARD_SQLITE_PATH")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres driver needs COOKIEBOARD_POSTGRES_DSN")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown db driver %q", c.Driver)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TokenNameLength < 4 {
		return fmt.Errorf("token name length %d is too short", c.TokenNameLength)
	}
	if c.MaxNameAttempts < 1 {
		return fmt.Errorf("max name attempts must be positive, got %d", c.MaxNameAttempts)
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile interval must not be negative, got %v", c.ReconcileInterval)
	}
	return nil
}
