// Package config loads the database settings of an application.
//
//	sql_dialect: postgres        # optional, defaults to the driver's dialect
//	driver: postgres
//	dsn: postgres://localhost/shop?sslmode=disable
//	debug: true                  # log every statement at debug level
//	stats: true                  # collect statement counters
//	slow_threshold: 200ms
//	fetch_batch_size: 500
//	max_open_conns: 10
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/arbor/dialect/sql"
)

// DefaultFetchBatchSize is the number of rows FetchIterator converts at a time.
const DefaultFetchBatchSize = 500

// Config holds the database settings.
type Config struct {
	// SQLDialect selects the SQL dialect. Empty means the dialect of Driver.
	SQLDialect string `yaml:"sql_dialect"`
	// Driver is the database/sql driver name: mysql, postgres or sqlite.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Debug logs every statement, humanized, at debug level.
	Debug bool `yaml:"debug"`
	// Stats wraps the driver with statement counters.
	Stats bool `yaml:"stats"`
	// SlowThreshold is the duration above which a statement is reported
	// as slow. Only used with Stats.
	SlowThreshold  time.Duration `yaml:"slow_threshold"`
	FetchBatchSize int           `yaml:"fetch_batch_size"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
}

// Default returns a configuration for a local SQLite database.
func Default() *Config {
	return &Config{
		Driver:         "sqlite",
		DSN:            "file:arbor.db",
		SlowThreshold:  100 * time.Millisecond,
		FetchBatchSize: DefaultFetchBatchSize,
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Driver == "" {
		return errors.New("config: driver is required")
	}
	if c.DSN == "" {
		return errors.New("config: dsn is required")
	}
	if c.FetchBatchSize <= 0 {
		return fmt.Errorf("config: fetch_batch_size must be positive, got %d", c.FetchBatchSize)
	}
	if c.SlowThreshold < 0 {
		return fmt.Errorf("config: slow_threshold must not be negative, got %s", c.SlowThreshold)
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("config: max_open_conns must not be negative, got %d", c.MaxOpenConns)
	}
	if _, err := c.Dialect(); err != nil {
		return err
	}
	return nil
}

// Dialect returns the configured SQL dialect.
func (c *Config) Dialect() (sql.Dialect, error) {
	name := c.SQLDialect
	if name == "" {
		name = c.Driver
	}
	return sql.ForName(name)
}
