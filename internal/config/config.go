// Package config loads service configuration from .env, an optional YAML file,
// and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"cargo_loadplan/internal/storage"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Storage
	StoreDriver string         `yaml:"store_driver"` // sqlite or postgres
	SQLitePath  string         `yaml:"sqlite_path"`
	Postgres    PostgresConfig `yaml:"postgres"`

	// ClickHouse report analytics. Empty Addr disables it.
	ClickHouseAddr     string `yaml:"clickhouse_addr"`
	ClickHouseDatabase string `yaml:"clickhouse_database"`
	ClickHouseUser     string `yaml:"clickhouse_user"`
	ClickHousePassword string `yaml:"clickhouse_password"`

	// NATS events. Empty URL disables publishing.
	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`

	// Reports
	DefaultCarrier string `yaml:"default_carrier"`
	Timezone       string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Port:         "8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		StoreDriver:  "sqlite",
		SQLitePath:   "loadplan.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "loadplan",
			User:     "loadplan",
			Password: "loadplan",
		},
		ClickHouseDatabase: "loadplan",
		ClickHouseUser:     "default",
		NATSSubjectPrefix:  "loadplan",
		DefaultCarrier:     "EK",
		Timezone:           "Asia/Dubai",
		LogLevel:           "info",
	}
}

// Load loads configuration. A .env file is read if present, then the YAML
// file named by LOADPLAN_CONFIG, then individual environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("LOADPLAN_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.ReadTimeout = getEnvAsSeconds("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsSeconds("WRITE_TIMEOUT", c.WriteTimeout)

	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.Postgres.Host = getEnv("POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnvAsInt("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.Database = getEnv("POSTGRES_DATABASE", c.Postgres.Database)
	c.Postgres.User = getEnv("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Postgres.Password)

	c.ClickHouseAddr = getEnv("CLICKHOUSE_ADDR", c.ClickHouseAddr)
	c.ClickHouseDatabase = getEnv("CLICKHOUSE_DATABASE", c.ClickHouseDatabase)
	c.ClickHouseUser = getEnv("CLICKHOUSE_USER", c.ClickHouseUser)
	c.ClickHousePassword = getEnv("CLICKHOUSE_PASSWORD", c.ClickHousePassword)

	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSSubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATSSubjectPrefix)

	c.DefaultCarrier = getEnv("DEFAULT_CARRIER", c.DefaultCarrier)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want sqlite or postgres)", c.StoreDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured shift timezone, or UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Store returns the storage backend settings.
func (c *Config) Store() storage.Config {
	return storage.Config{
		Driver:     c.StoreDriver,
		SQLitePath: c.SQLitePath,
		Postgres: storage.PostgresConfig{
			Host:     c.Postgres.Host,
			Port:     c.Postgres.Port,
			Database: c.Postgres.Database,
			User:     c.Postgres.User,
			Password: c.Postgres.Password,
		},
	}
}

// ClickHouse returns the analytics settings. ok is false when analytics is
// disabled.
func (c *Config) ClickHouse() (cfg storage.ClickHouseConfig, ok bool) {
	if c.ClickHouseAddr == "" {
		return storage.ClickHouseConfig{}, false
	}
	return storage.ClickHouseConfig{
		Addr:     c.ClickHouseAddr,
		Database: c.ClickHouseDatabase,
		User:     c.ClickHouseUser,
		Password: c.ClickHousePassword,
	}, true
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Second
	}
	return defaultValue
}
