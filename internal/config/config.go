// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// Backend names accepted by DATABASE_TYPE. The long forms are aliases.
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

type Config struct {
	Server   Server
	Database Database
	Party    Party

	NATSURL  string `env:"NATS_URL"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type Server struct {
	Host         string `env:"HOST" envDefault:"0.0.0.0"`
	Port         string `env:"PORT" envDefault:"8003"`
	JWTSecret    string `env:"JWT_SECRET,required"`
	ServiceToken string `env:"SERVICE_TOKEN,required"`
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type Database struct {
	Type       string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"party.db"`
	MySQL      MySQL
}

type MySQL struct {
	Host     string `env:"MYSQL_HOST" envDefault:"localhost"`
	Port     string `env:"MYSQL_PORT" envDefault:"3306"`
	Name     string `env:"MYSQL_NAME" envDefault:"mcengine"`
	User     string `env:"MYSQL_USER" envDefault:"root"`
	Password string `env:"MYSQL_PASSWORD"`
}

// Backend returns the canonical backend name, or an error for unsupported types.
func (d Database) Backend() (string, error) {
	switch strings.ToLower(strings.TrimSpace(d.Type)) {
	case "sqlite", "embedded-file":
		return BackendSQLite, nil
	case "mysql", "networked-relational":
		return BackendMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database type: %q", d.Type)
	}
}

type Party struct {
	// SizeLimit caps members per party. Zero means unlimited.
	SizeLimit      int           `env:"PARTY_SIZE_LIMIT" envDefault:"0"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"3s"`
	LookupAccounts []uuid.UUID   `env:"PARTY_LOOKUP_ACCOUNTS" envSeparator:","`
}

// Load parses and validates the full service configuration.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadDatabase parses only the database section. Used by tools that do not
// serve HTTP and therefore carry no secrets.
func LoadDatabase() (*Database, error) {
	return loadDatabase(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDatabase(opts env.Options) (*Database, error) {
	db := &Database{}
	if err := env.ParseWithOptions(db, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := db.Backend(); err != nil {
		return nil, err
	}
	return db, nil
}

func (c *Config) Validate() error {
	if _, err := c.Database.Backend(); err != nil {
		return err
	}
	if c.Party.SizeLimit < 0 {
		return fmt.Errorf("PARTY_SIZE_LIMIT must be >= 0, got %d", c.Party.SizeLimit)
	}
	if c.Party.StorageTimeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be positive, got %s", c.Party.StorageTimeout)
	}
	return nil
}
